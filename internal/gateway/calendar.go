package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/calendar/v3"

	"github.com/hal9000y/gapi-gateway/internal/event"
)

type calendarSvc interface {
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) (*calendar.Events, error)
	InsertEvent(ctx context.Context, calendarID string, ev *calendar.Event, sendUpdates string) (*calendar.Event, error)
	UpdateEvent(ctx context.Context, calendarID, eventID string, ev *calendar.Event) (*calendar.Event, error)
}

// Attendees are always notified of created events.
const sendUpdatesAll = "all"

// CalendarOptions configures Calendar.
type CalendarOptions struct {
	CalendarID      string
	DefaultTimeZone string
	MaxResults      int64
	Timeout         time.Duration
	Now             func() time.Time
}

// EventList is the ListToday result.
type EventList struct {
	Events []event.Simplified `json:"events"`
}

// Calendar lists, creates and updates events of one calendar.
type Calendar struct {
	svc  calendarSvc
	opts CalendarOptions
	now  func() time.Time
	log  *zap.Logger
}

// NewCalendar creates Calendar.
func NewCalendar(svc calendarSvc, opts CalendarOptions, log *zap.Logger) *Calendar {
	return &Calendar{
		svc:  svc,
		opts: opts,
		now:  clock(opts.Now),
		log:  log,
	}
}

// DayWindow returns the first and last microsecond of day's UTC date.
func DayWindow(day time.Time) (time.Time, time.Time) {
	y, m, d := day.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Microsecond)
}

// ListToday returns events starting today (UTC), ordered by start time.
func (c *Calendar) ListToday(ctx context.Context) (EventList, error) {
	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	today := c.now()
	start, end := DayWindow(today)

	res, err := c.svc.ListEvents(ctx, c.opts.CalendarID, start, end, c.opts.MaxResults)
	if err != nil {
		return EventList{}, fmt.Errorf("svc.ListEvents failed: %w", err)
	}

	events := event.FilterDay(res.Items, today, func(ev *calendar.Event, err error) {
		c.log.Warn("skipping event", zap.String("event_id", ev.Id), zap.Error(err))
	})

	return EventList{Events: events}, nil
}

// Create moves req onto today's date, inserts it and returns the projection of
// the created event.
func (c *Calendar) Create(ctx context.Context, req event.CreateRequest) (event.Created, error) {
	if req.Start == nil || req.End == nil {
		return event.Created{}, invalid(errors.New("start and end are required"))
	}

	start, end := *req.Start, *req.End
	req.Start, req.End = &start, &end
	if err := event.ApplyToday(&req, c.now(), c.opts.DefaultTimeZone); err != nil {
		return event.Created{}, invalid(err)
	}

	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	created, err := c.svc.InsertEvent(ctx, c.opts.CalendarID, req.Event(), sendUpdatesAll)
	if err != nil {
		return event.Created{}, fmt.Errorf("svc.InsertEvent failed: %w", err)
	}

	c.log.Info("event created", zap.String("event_id", created.Id), zap.String("start", req.Start.DateTime))

	return event.Project(created), nil
}

// Update sends only the provided fields as the new event body and returns the
// remote event as is.
func (c *Calendar) Update(ctx context.Context, eventID string, req event.UpdateRequest) (*calendar.Event, error) {
	if eventID == "" {
		return nil, invalid(errors.New("event_id is required"))
	}

	ctx, cancel := withTimeout(ctx, c.opts.Timeout)
	defer cancel()

	updated, err := c.svc.UpdateEvent(ctx, c.opts.CalendarID, eventID, req.Event())
	if err != nil {
		return nil, fmt.Errorf("svc.UpdateEvent failed: %w", err)
	}

	c.log.Info("event updated", zap.String("event_id", eventID))

	return updated, nil
}
