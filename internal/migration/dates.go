// dates.go tolerant date handling for legacy records
package migration

import (
	"strings"
	"time"
)

// legacyDateLayouts are tried in order after the DD/MM/YYYY form. Legacy
// exports mix ISO dates, datetimes and slash forms freely.
var legacyDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	time.RFC3339,
}

// parseLegacyDate parses a date string from the legacy source. The primary
// legacy form is DD/MM/YYYY, which is reinterpreted to ISO ordering (so
// "05/03/2023" is 5 March 2023, not 3 May). Unparsable input returns a zero
// time and false rather than an error; record-level date problems must never
// reject the record.
func parseLegacyDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse("02/01/2006", s); err == nil {
		return t, true
	}

	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// daysBetween returns the number of whole or partial days from earlier to
// later, computed as ceil(delta / 1 day) and clamped to zero or more.
func daysBetween(earlier, later time.Time) int {
	delta := later.Sub(earlier)
	if delta <= 0 {
		return 0
	}
	days := int(delta / (24 * time.Hour))
	if delta%(24*time.Hour) != 0 {
		days++
	}
	return days
}
