package gservice

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const calendarAPI = "calendar"

// RFC3339 with microseconds, matching the day window bounds sent upstream.
const windowLayout = "2006-01-02T15:04:05.000000Z07:00"

// NewCalendar creates a Calendar wrapper.
func NewCalendar(cred credential, rec Recorder, opts ...option.ClientOption) *Calendar {
	return &Calendar{
		cred: cred,
		rec:  rec,
		opts: opts,
	}
}

// Calendar performs Calendar API calls on behalf of the authenticated user.
type Calendar struct {
	cred credential
	rec  Recorder
	opts []option.ClientOption
}

// ListEvents lists single (expanded) events between timeMin and timeMax ordered by start time.
func (c *Calendar) ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time, maxResults int64) (_ *calendar.Events, err error) {
	defer func(started time.Time) { observe(c.rec, calendarAPI, "events.list", started, err) }(time.Now())

	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	events, err := svc.Events.List(calendarID).
		TimeMin(timeMin.Format(windowLayout)).
		TimeMax(timeMax.Format(windowLayout)).
		MaxResults(maxResults).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("events.List failed: %w", err)
	}

	return events, nil
}

// InsertEvent creates ev. sendUpdates controls attendee notifications ("all", "externalOnly", "none").
func (c *Calendar) InsertEvent(ctx context.Context, calendarID string, ev *calendar.Event, sendUpdates string) (_ *calendar.Event, err error) {
	defer func(started time.Time) { observe(c.rec, calendarAPI, "events.insert", started, err) }(time.Now())

	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	created, err := svc.Events.Insert(calendarID, ev).
		SendUpdates(sendUpdates).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("events.Insert failed: %w", err)
	}

	return created, nil
}

// UpdateEvent replaces the event eventID with ev.
func (c *Calendar) UpdateEvent(ctx context.Context, calendarID, eventID string, ev *calendar.Event) (_ *calendar.Event, err error) {
	defer func(started time.Time) { observe(c.rec, calendarAPI, "events.update", started, err) }(time.Now())

	svc, err := c.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	updated, err := svc.Events.Update(calendarID, eventID, ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("events.Update failed: %w", err)
	}

	return updated, nil
}

func (c *Calendar) newSvc(ctx context.Context) (*calendar.Service, error) {
	clt, err := httpClient(ctx, c.cred)
	if err != nil {
		return nil, err
	}

	opts := append([]option.ClientOption{option.WithHTTPClient(clt)}, c.opts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("calendar.NewService failed: %w", err)
	}

	return svc, nil
}
