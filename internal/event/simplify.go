package event

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"
)

// Simplify reduces ev to its id, title, start and end. Start and end prefer
// dateTime over the all-day date.
func Simplify(ev *calendar.Event) Simplified {
	summary := ev.Summary
	if summary == "" {
		summary = DefaultSummary
	}

	return Simplified{
		EventID: ev.Id,
		Summary: summary,
		Start:   pick(ev.Start),
		End:     pick(ev.End),
	}
}

func pick(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.DateTime != "" {
		return dt.DateTime
	}
	return dt.Date
}

// StartDate returns the calendar date of the event start in the start's own offset.
func StartDate(ev *calendar.Event) (time.Time, error) {
	start := pick(ev.Start)
	if start == "" {
		return time.Time{}, fmt.Errorf("%w: event %s has no start", ErrInvalidDateTime, ev.Id)
	}

	if !strings.Contains(start, "T") {
		d, err := time.Parse(dateLayout, start)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, start)
		}
		return d, nil
	}

	t, err := ParseDateTime(start)
	if err != nil {
		return time.Time{}, err
	}

	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// OnDay reports whether ev starts on the UTC calendar date of day.
func OnDay(ev *calendar.Event, day time.Time) (bool, error) {
	start, err := StartDate(ev)
	if err != nil {
		return false, err
	}

	y, m, d := day.UTC().Date()
	sy, sm, sd := start.Date()

	return y == sy && m == sm && d == sd, nil
}

// FilterDay simplifies the events starting on day. Events with an unreadable
// start are dropped and reported to onSkip when it is not nil.
func FilterDay(events []*calendar.Event, day time.Time, onSkip func(*calendar.Event, error)) []Simplified {
	simplified := make([]Simplified, 0, len(events))

	for _, ev := range events {
		if ev == nil {
			continue
		}

		ok, err := OnDay(ev, day)
		if err != nil {
			if onSkip != nil {
				onSkip(ev, err)
			}
			continue
		}
		if ok {
			simplified = append(simplified, Simplify(ev))
		}
	}

	return simplified
}
