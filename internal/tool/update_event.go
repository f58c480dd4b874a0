package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/api/calendar/v3"

	"github.com/hal9000y/gapi-gateway/internal/event"
)

type UpdateEventRequest struct {
	EventID     string          `json:"event_id" jsonschema:"ID of the event to update"`
	Start       *event.DateTime `json:"start,omitempty" jsonschema:"the inclusive start of the event"`
	End         *event.DateTime `json:"end,omitempty" jsonschema:"the exclusive end of the event"`
	Summary     *string         `json:"summary,omitempty" jsonschema:"the event title"`
	Description *string         `json:"description,omitempty" jsonschema:"the event description"`
	Location    *string         `json:"location,omitempty" jsonschema:"the event location"`
}

// UpdatedEvent is the part of the stored event reported back to the model.
type UpdatedEvent struct {
	EventID     string          `json:"eventId" jsonschema:"calendar event ID"`
	HTMLLink    string          `json:"htmlLink,omitempty" jsonschema:"link to the event in Google Calendar"`
	Status      string          `json:"status,omitempty" jsonschema:"event status"`
	Summary     string          `json:"summary,omitempty" jsonschema:"event title"`
	Description string          `json:"description,omitempty" jsonschema:"event description"`
	Location    string          `json:"location,omitempty" jsonschema:"event location"`
	Start       *event.DateTime `json:"start,omitempty" jsonschema:"event start"`
	End         *event.DateTime `json:"end,omitempty" jsonschema:"event end"`
	Updated     string          `json:"updated,omitempty" jsonschema:"last modification timestamp"`
}

type updateEventSvc interface {
	Update(ctx context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error)
}

func NewUpdateEvent(svc updateEventSvc) *UpdateEvent {
	return &UpdateEvent{
		svc: svc,
	}
}

type UpdateEvent struct {
	svc updateEventSvc
}

func (t *UpdateEvent) UpdateEvent(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input UpdateEventRequest,
) (*mcp.CallToolResult, UpdatedEvent, error) {
	if input.EventID == "" {
		return nil, UpdatedEvent{}, errors.New("event_id is required")
	}

	ev, err := t.svc.Update(ctx, input.EventID, event.UpdateRequest{
		Start:       input.Start,
		End:         input.End,
		Summary:     input.Summary,
		Description: input.Description,
		Location:    input.Location,
	})
	if err != nil {
		return nil, UpdatedEvent{}, fmt.Errorf("svc.Update failed: %w", err)
	}

	return nil, toUpdatedEvent(ev), nil
}

func toUpdatedEvent(ev *calendar.Event) UpdatedEvent {
	return UpdatedEvent{
		EventID:     ev.Id,
		HTMLLink:    ev.HtmlLink,
		Status:      ev.Status,
		Summary:     ev.Summary,
		Description: ev.Description,
		Location:    ev.Location,
		Start:       fromAPI(ev.Start),
		End:         fromAPI(ev.End),
		Updated:     ev.Updated,
	}
}

func fromAPI(dt *calendar.EventDateTime) *event.DateTime {
	if dt == nil {
		return nil
	}
	return &event.DateTime{Date: dt.Date, DateTime: dt.DateTime, TimeZone: dt.TimeZone}
}
