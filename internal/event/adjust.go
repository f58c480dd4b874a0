package event

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

var (
	// ErrInvalidDateTime is returned for dateTime values that are not ISO-8601 date-times.
	ErrInvalidDateTime = errors.New("invalid dateTime")
	// ErrInvalidTimeZone is returned for zones that are neither offsets nor IANA names.
	ErrInvalidTimeZone = errors.New("invalid timeZone")
)

const (
	dateLayout   = "2006-01-02"
	outputLayout = "2006-01-02T15:04:05.999999999-07:00"
	maxOffset    = 14 * time.Hour
)

var dateTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseDateTime parses an ISO-8601 date-time. Values without an offset keep
// their wall clock in UTC.
func ParseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDateTime, s)
}

// ResolveZone maps a zone string to a location. Accepted forms are "Z", "UTC",
// numeric offsets (+08, +0530, +05:30) and IANA names.
func ResolveZone(zone string) (*time.Location, error) {
	zone = strings.TrimSpace(zone)

	switch {
	case zone == "":
		return nil, fmt.Errorf("%w: empty", ErrInvalidTimeZone)
	case zone == "Z" || strings.EqualFold(zone, "UTC"):
		return time.UTC, nil
	case zone[0] == '+' || zone[0] == '-':
		offset, err := parseOffset(zone)
		if err != nil {
			return nil, err
		}
		return time.FixedZone(zone, int(offset.Seconds())), nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidTimeZone, zone, err)
	}

	return loc, nil
}

func parseOffset(zone string) (time.Duration, error) {
	sign := time.Duration(1)
	if zone[0] == '-' {
		sign = -1
	}

	digits := strings.ReplaceAll(zone[1:], ":", "")
	if len(digits) != 2 && len(digits) != 4 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}

	hours, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
	}

	minutes := 0
	if len(digits) == 4 {
		minutes, err = strconv.Atoi(digits[2:])
		if err != nil || minutes >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidTimeZone, zone)
		}
	}

	offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if offset > maxOffset {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTimeZone, zone)
	}

	return sign * offset, nil
}

// AdjustToDay moves dateTime onto the UTC calendar date of today, keeping its
// wall-clock time and expressing it in zone.
func AdjustToDay(dateTime, zone string, today time.Time) (string, error) {
	t, err := ParseDateTime(dateTime)
	if err != nil {
		return "", err
	}

	loc, err := ResolveZone(zone)
	if err != nil {
		return "", err
	}

	y, m, d := today.UTC().Date()
	adjusted := time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)

	return adjusted.Format(outputLayout), nil
}

// ApplyToday rewrites the start and end dateTime of r onto today's date.
// The end falls back to the start zone, then to defaultZone. Date-only values
// are left untouched.
func ApplyToday(r *CreateRequest, today time.Time, defaultZone string) error {
	startZone := defaultZone
	if r.Start != nil && r.Start.TimeZone != "" {
		startZone = r.Start.TimeZone
	}

	if r.Start != nil && r.Start.DateTime != "" {
		adjusted, err := AdjustToDay(r.Start.DateTime, startZone, today)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		r.Start.DateTime = adjusted
	}

	if r.End != nil && r.End.DateTime != "" {
		endZone := startZone
		if r.End.TimeZone != "" {
			endZone = r.End.TimeZone
		}

		adjusted, err := AdjustToDay(r.End.DateTime, endZone, today)
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		r.End.DateTime = adjusted
	}

	return nil
}
