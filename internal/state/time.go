package state

import (
	"fmt"
	"strings"
	"time"
)

// LegacyLayout is the textual form the stats API reports for window ends.
const LegacyLayout = "2006-01-02 15:04:05 UTC"

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	LegacyLayout,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses a bookmark or start date value. Values without a zone
// are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

// FormatTimestamp renders t the way bookmarks are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
