package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLegacyDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
		ok    bool
	}{
		{"slash form is day first", "05/03/2023", time.Date(2023, time.March, 5, 0, 0, 0, 0, time.UTC), true},
		{"iso date", "2023-03-05", time.Date(2023, time.March, 5, 0, 0, 0, 0, time.UTC), true},
		{"iso datetime", "2023-03-05 14:30:00", time.Date(2023, time.March, 5, 14, 30, 0, 0, time.UTC), true},
		{"iso slash", "2023/03/05", time.Date(2023, time.March, 5, 0, 0, 0, 0, time.UTC), true},
		{"padded", "  05/03/2023  ", time.Date(2023, time.March, 5, 0, 0, 0, 0, time.UTC), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not a date", time.Time{}, false},
		{"word month", "5th March 2023", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLegacyDate(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, daysBetween(base, base))
	assert.Equal(t, 0, daysBetween(base, base.Add(-48*time.Hour)), "clamped when later precedes earlier")
	assert.Equal(t, 1, daysBetween(base, base.Add(24*time.Hour)))
	assert.Equal(t, 1, daysBetween(base, base.Add(6*time.Hour)), "partial days round up")
	assert.Equal(t, 2, daysBetween(base, base.Add(25*time.Hour)))
	assert.Equal(t, 10, daysBetween(base, base.AddDate(0, 0, 10)))
}
