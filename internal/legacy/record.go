// record.go provides tolerant typed access to rows of unknown schema
package legacy

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Record is one row of a source table. Column access is case-insensitive
// because legacy schemas are inconsistent about column name casing.
type Record map[string]any

// Value returns the raw value of the first column whose name matches key
// case-insensitively.
func (r Record) Value(key string) (any, bool) {
	if v, ok := r[key]; ok {
		return v, true
	}
	for k, v := range r {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Str returns the column value as a trimmed string, or "" when the column
// is missing or NULL.
func (r Record) Str(key string) string {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case []byte:
		return strings.TrimSpace(string(s))
	case time.Time:
		return s.Format("2006-01-02")
	case float64:
		// Whole numbers read from numeric columns render without decimals
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
}

// StrAny returns the first non-empty string value among the given columns.
func (r Record) StrAny(keys ...string) string {
	for _, key := range keys {
		if s := r.Str(key); s != "" {
			return s
		}
	}
	return ""
}

// Int returns the column value as an int. The second return reports whether
// a usable value was present.
func (r Record) Int(key string) (int, bool) {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	case []byte:
		if i, err := strconv.Atoi(strings.TrimSpace(string(n))); err == nil {
			return i, true
		}
	}
	return 0, false
}

// IntAny returns the first parseable integer among the given columns.
func (r Record) IntAny(keys ...string) (int, bool) {
	for _, key := range keys {
		if i, ok := r.Int(key); ok {
			return i, true
		}
	}
	return 0, false
}

// Float returns the column value as a float64.
func (r Record) Float(key string) (float64, bool) {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return f, true
		}
	case []byte:
		if f, err := strconv.ParseFloat(strings.TrimSpace(string(n)), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// Bool interprets the column value as a boolean using the usual SQLite
// conventions (integers, "true"/"false", "yes"/"no").
func (r Record) Bool(key string) bool {
	v, ok := r.Value(key)
	if !ok || v == nil {
		return false
	}
	switch b := v.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	case string:
		return parseBoolToken(b)
	case []byte:
		return parseBoolToken(string(b))
	}
	return false
}

func parseBoolToken(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}
