package adcirc

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts seen across ADCIRC vintages. base_date is usually
// "2005-08-24 00:00:00 UTC"; some runs emit ISO-8601 or a bare date.
var coldStartLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseColdStart resolves the model cold-start instant from the time
// variable's attributes: base_date when present, otherwise a units string of
// the form "seconds since <timestamp>". All times are taken as UTC.
func parseColdStart(baseDate, units string) (time.Time, error) {
	if s := strings.TrimSpace(baseDate); s != "" {
		t, err := parseTimestamp(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("base_date: %w", err)
		}
		return t, nil
	}

	s := strings.TrimSpace(units)
	if rest, ok := strings.CutPrefix(s, "seconds since "); ok {
		t, err := parseTimestamp(strings.TrimSpace(rest))
		if err != nil {
			return time.Time{}, fmt.Errorf("units %q: %w", units, err)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("no cold start: base_date absent and units %q not \"seconds since <timestamp>\"", units)
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range coldStartLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
