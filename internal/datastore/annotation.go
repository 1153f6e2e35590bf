// annotation.go handles the legacy-origin annotation embedded in record notes
package datastore

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// legacyAnnotation is the structured form written into the Notes column of
// every record created by the migration. It is the durable trace that lets
// the resolver rebuild legacy-id mappings after a restart.
type legacyAnnotation struct {
	LegacyID int    `json:"legacy_id"`
	Source   string `json:"source,omitempty"`
}

// annotationSource marks records created by the legacy import.
const annotationSource = "legacy_import"

// Extraction patterns in decreasing order of specificity: a labeled
// "legacy id", a generic labeled "id", then a bare number.
var legacyIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)legacy[ _-]?id\s*[:=#]?\s*(\d+)`),
	regexp.MustCompile(`(?i)\bid\s*[:=#]?\s*(\d+)`),
	regexp.MustCompile(`(\d+)`),
}

// NewLegacyAnnotation renders the annotation stored in a migrated record's
// Notes column.
func NewLegacyAnnotation(legacyID int) string {
	data, err := json.Marshal(legacyAnnotation{
		LegacyID: legacyID,
		Source:   annotationSource,
	})
	if err != nil {
		// Marshaling an int and a string cannot fail; fall back to the
		// labeled text form the extractor also understands.
		return "legacy_id: " + strconv.Itoa(legacyID)
	}
	return string(data)
}

// ExtractLegacyID recovers a legacy id from an annotation string. It first
// parses the annotation as JSON and reads the legacy_id property, accepting
// both number and string values, then falls back to the regex patterns
// above. The first successful extraction wins.
func ExtractLegacyID(notes string) (int, bool) {
	trimmed := strings.TrimSpace(notes)
	if trimmed == "" {
		return 0, false
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
		if id, ok := legacyIDFromValue(parsed["legacy_id"]); ok {
			return id, true
		}
	}

	for _, pattern := range legacyIDPatterns {
		if m := pattern.FindStringSubmatch(trimmed); m != nil {
			if id, err := strconv.Atoi(m[1]); err == nil {
				return id, true
			}
		}
	}

	return 0, false
}

// legacyIDFromValue interprets a decoded JSON value as a legacy id.
func legacyIDFromValue(value any) (int, bool) {
	switch v := value.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int(v), true
	case string:
		if id, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return id, true
		}
	}
	return 0, false
}
