// importers_test.go unit tests for the per-entity transform helpers
package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kitabu/kitabu-go/internal/conf"
	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

func TestSplitName(t *testing.T) {
	tests := []struct {
		input string
		first string
		last  string
	}{
		{"Jane Wanjiku", "Jane", "Wanjiku"},
		{"Ali Hassan Omar", "Ali", "Hassan Omar"},
		{"Cher", "Cher", placeholderLastName},
		{"  spaced   name  ", "spaced", "name"},
		{"", "", placeholderLastName},
	}

	for _, tt := range tests {
		first, last := splitName(tt.input)
		assert.Equal(t, tt.first, first, "input %q", tt.input)
		assert.Equal(t, tt.last, last, "input %q", tt.input)
	}
}

func TestClassForYear(t *testing.T) {
	settings := testSettings()
	settings.Migration.ClassAssignments = map[string]string{"2021": "form4", "2022": "form3"}
	settings.Migration.DefaultClass = "alumni"
	engine := &Engine{settings: settings}

	assert.Equal(t, "form4", engine.classForYear(2021))
	assert.Equal(t, "form3", engine.classForYear(2022))
	assert.Equal(t, "alumni", engine.classForYear(2019))
	assert.Equal(t, "alumni", engine.classForYear(0))

	engine.settings.Migration.DefaultClass = ""
	assert.Equal(t, "other", engine.classForYear(2019))
}

func TestAdmissionYear(t *testing.T) {
	rec := legacy.Record{"Year": int64(2020), "AdmNo": "2018123"}
	assert.Equal(t, 2020, admissionYear(rec, "Year", "2018123"), "explicit year column wins")
	assert.Equal(t, 2018, admissionYear(rec, "", "2018123"), "falls back to the admission number prefix")
	assert.Equal(t, 0, admissionYear(legacy.Record{}, "", "ADM7"), "non-numeric prefix yields no year")
	assert.Equal(t, 0, admissionYear(legacy.Record{}, "", "0042123"), "implausible year is rejected")
}

func TestCopyStatusFromFlag(t *testing.T) {
	available := []string{"Yes", "y", "AVAILABLE", "avail", "true", "1", "In stock: yes"}
	for _, value := range available {
		assert.Equal(t, datastore.CopyStatusAvailable, copyStatusFromFlag(value), "value %q", value)
	}

	borrowed := []string{"no", "0", "false", "out", ""}
	for _, value := range borrowed {
		assert.Equal(t, datastore.CopyStatusBorrowed, copyStatusFromFlag(value), "value %q", value)
	}
}

func TestGenerateTrackingCode(t *testing.T) {
	assert.Equal(t, "LEG-000042", generateTrackingCode(42, true))
	assert.Equal(t, "LEG-123456", generateTrackingCode(123456, true))

	code := generateTrackingCode(0, false)
	assert.True(t, strings.HasPrefix(code, "LEG-"))
	assert.Len(t, code, 12)
	assert.NotEqual(t, code, generateTrackingCode(0, false), "codes without a legacy id are unique")
}

func TestEntityEnabled(t *testing.T) {
	settings := testSettings()
	settings.Migration.Entities = map[string]bool{"books": false}
	engine := &Engine{settings: settings}

	assert.False(t, engine.entityEnabled("books"))
	assert.True(t, engine.entityEnabled("students"), "undeclared entities default to enabled")
}

func TestIsHistoricalTable(t *testing.T) {
	assert.True(t, isHistoricalTable("IssueHistory"))
	assert.True(t, isHistoricalTable("returned_loans"))
	assert.True(t, isHistoricalTable("OldIssues"))
	assert.False(t, isHistoricalTable("IssueDetails"))
	assert.False(t, isHistoricalTable("Borrowings"))
}

func TestConflictStrategyTokens(t *testing.T) {
	// All three tokens validate; only skip changes importer behavior.
	for _, strategy := range []string{conf.ConflictSkip, conf.ConflictOverwrite, conf.ConflictMerge} {
		settings := testSettings()
		settings.Migration.ConflictStrategy = strategy
		assert.NoError(t, conf.ValidateSettings(settings))
	}
}
