package formatter

import (
	"strings"
	"time"
)

// TimestampLayout is ISO-8601 with millisecond fractional seconds, e.g. 2025-11-08T10:00:00.000Z
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// DisplayLayout renders as month-day hour:minute, e.g. 11-8 18:00
const DisplayLayout = "1-2 15:04"

// FormatTimestamp converts t to the canonical UTC timestamp string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts RFC 3339 with or without fractional seconds.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
}

// FormatDisplayTime reformats a canonical timestamp for the feed.
// Strings that do not parse are returned unchanged.
func FormatDisplayTime(s string, loc *time.Location) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return s
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DisplayLayout)
}
