package domain

import (
	"fmt"
	"time"
)

// TimeLayout is the ISO-8601 form every local timestamp column is written in.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Now returns the current UTC time formatted with TimeLayout.
func Now() string {
	return FormatTime(time.Now())
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout as well as RFC 3339 and sqlite's datetime() output.
func ParseTime(value string) (time.Time, error) {
	for _, layout := range []string{TimeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", value)
}
