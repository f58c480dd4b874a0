// Package event converts between the gateway's calendar payloads and the
// Google Calendar API event model.
package event

import (
	"google.golang.org/api/calendar/v3"
)

// DefaultSummary is used for events that carry no title.
const DefaultSummary = "No Title"

// DateTime mirrors the Calendar API EventDateTime. Exactly one of Date and
// DateTime is expected to be set, which is left to the Calendar API to enforce.
type DateTime struct {
	Date     string `json:"date,omitempty" jsonschema:"the date in yyyy-mm-dd format for all-day events"`
	DateTime string `json:"dateTime,omitempty" jsonschema:"the time as an RFC3339 date-time"`
	TimeZone string `json:"timeZone,omitempty" jsonschema:"IANA zone name or a +HH:MM offset"`
}

// Attendee identifies an invited guest.
type Attendee struct {
	Email       string `json:"email" binding:"required" jsonschema:"attendee email address"`
	DisplayName string `json:"displayName,omitempty" jsonschema:"attendee display name"`
	Optional    bool   `json:"optional,omitempty" jsonschema:"whether attendance is optional"`
}

// ReminderOverride is a single reminder rule.
type ReminderOverride struct {
	Method  string `json:"method" binding:"required,oneof=email popup" jsonschema:"email or popup"`
	Minutes int64  `json:"minutes" binding:"gte=0" jsonschema:"minutes before the event start"`
}

// Reminders holds the reminder settings of an event.
type Reminders struct {
	UseDefault bool               `json:"useDefault" jsonschema:"use the calendar default reminders"`
	Overrides  []ReminderOverride `json:"overrides,omitempty" binding:"omitempty,dive" jsonschema:"explicit reminders"`
}

// CreateRequest is the payload accepted for new events.
type CreateRequest struct {
	Summary     string     `json:"summary" binding:"required" jsonschema:"the event title"`
	Location    string     `json:"location,omitempty" jsonschema:"the event location"`
	Description string     `json:"description,omitempty" jsonschema:"the event description"`
	Start       *DateTime  `json:"start" binding:"required" jsonschema:"the inclusive start of the event"`
	End         *DateTime  `json:"end" binding:"required" jsonschema:"the exclusive end of the event"`
	Attendees   []Attendee `json:"attendees,omitempty" binding:"omitempty,dive" jsonschema:"guests to invite"`
	Reminders   *Reminders `json:"reminders,omitempty" jsonschema:"reminder settings"`
	Recurrence  []string   `json:"recurrence,omitempty" jsonschema:"RRULE, EXRULE, RDATE and EXDATE lines"`
}

// UpdateRequest is a partial event. Nil fields are not sent upstream.
type UpdateRequest struct {
	Start       *DateTime `json:"start,omitempty" jsonschema:"the inclusive start of the event"`
	End         *DateTime `json:"end,omitempty" jsonschema:"the exclusive end of the event"`
	Summary     *string   `json:"summary,omitempty" jsonschema:"the event title"`
	Description *string   `json:"description,omitempty" jsonschema:"the event description"`
	Location    *string   `json:"location,omitempty" jsonschema:"the event location"`
}

// Simplified is the reduced event shape returned by list operations.
type Simplified struct {
	EventID string `json:"eventId" jsonschema:"calendar event ID"`
	Summary string `json:"summary" jsonschema:"event title"`
	Start   string `json:"start" jsonschema:"start date-time, or date for all-day events"`
	End     string `json:"end" jsonschema:"end date-time, or date for all-day events"`
}

// Created is the projection returned after inserting an event.
type Created struct {
	EventID  string `json:"eventId" jsonschema:"calendar event ID"`
	HTMLLink string `json:"htmlLink" jsonschema:"link to the event in Google Calendar"`
	Summary  string `json:"summary" jsonschema:"event title"`
	Status   string `json:"status" jsonschema:"event status"`
	Created  string `json:"created" jsonschema:"creation timestamp"`
	Updated  string `json:"updated" jsonschema:"last modification timestamp"`
	Start    string `json:"start" jsonschema:"start date-time"`
	End      string `json:"end" jsonschema:"end date-time"`
	TimeZone string `json:"timeZone" jsonschema:"time zone of the start"`
}

// Event converts r into the Calendar API model.
func (r CreateRequest) Event() *calendar.Event {
	ev := &calendar.Event{
		Summary:     r.Summary,
		Location:    r.Location,
		Description: r.Description,
		Start:       r.Start.toAPI(),
		End:         r.End.toAPI(),
		Recurrence:  r.Recurrence,
	}

	for _, a := range r.Attendees {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{
			Email:       a.Email,
			DisplayName: a.DisplayName,
			Optional:    a.Optional,
		})
	}

	if r.Reminders != nil {
		reminders := &calendar.EventReminders{
			UseDefault:      r.Reminders.UseDefault,
			ForceSendFields: []string{"UseDefault"},
		}
		for _, o := range r.Reminders.Overrides {
			reminders.Overrides = append(reminders.Overrides, &calendar.EventReminder{
				Method:          o.Method,
				Minutes:         o.Minutes,
				ForceSendFields: []string{"Minutes"},
			})
		}
		ev.Reminders = reminders
	}

	return ev
}

// Event converts r into the Calendar API model. Only non-nil fields are set;
// explicit empty strings are forced onto the wire.
func (r UpdateRequest) Event() *calendar.Event {
	ev := &calendar.Event{
		Start: r.Start.toAPI(),
		End:   r.End.toAPI(),
	}

	setString := func(field string, dst *string, src *string) {
		if src == nil {
			return
		}
		*dst = *src
		if *src == "" {
			ev.ForceSendFields = append(ev.ForceSendFields, field)
		}
	}
	setString("Summary", &ev.Summary, r.Summary)
	setString("Description", &ev.Description, r.Description)
	setString("Location", &ev.Location, r.Location)

	return ev
}

func (d *DateTime) toAPI() *calendar.EventDateTime {
	if d == nil {
		return nil
	}

	return &calendar.EventDateTime{
		Date:     d.Date,
		DateTime: d.DateTime,
		TimeZone: d.TimeZone,
	}
}

// Project reduces a created event to the fields callers need.
func Project(ev *calendar.Event) Created {
	created := Created{
		EventID:  ev.Id,
		HTMLLink: ev.HtmlLink,
		Summary:  ev.Summary,
		Status:   ev.Status,
		Created:  ev.Created,
		Updated:  ev.Updated,
	}

	if ev.Start != nil {
		created.Start = ev.Start.DateTime
		created.TimeZone = ev.Start.TimeZone
	}
	if ev.End != nil {
		created.End = ev.End.DateTime
	}

	return created
}
