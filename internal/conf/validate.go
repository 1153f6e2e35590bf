package conf

import (
	"fmt"
	"strings"
)

// knownEntities are the entity types the migration pipeline understands.
var knownEntities = map[string]bool{
	"categories": true,
	"books":      true,
	"students":   true,
	"borrowings": true,
	"fines":      true,
}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks the loaded settings for consistency.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if settings.Migration.BatchSize <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("migration.batchsize must be positive, got %d", settings.Migration.BatchSize))
	}

	switch settings.Migration.ConflictStrategy {
	case ConflictSkip, ConflictOverwrite, ConflictMerge:
	default:
		ve.Errors = append(ve.Errors, fmt.Sprintf("migration.conflictstrategy must be one of skip, overwrite, merge; got %q", settings.Migration.ConflictStrategy))
	}

	for entity := range settings.Migration.Entities {
		if !knownEntities[entity] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("migration.entities contains unknown entity type %q", entity))
		}
	}

	if settings.Migration.Fines.DailyRate < 0 {
		ve.Errors = append(ve.Errors, "migration.fines.dailyrate must not be negative")
	}
	if settings.Migration.Fines.LostBookAmount < 0 {
		ve.Errors = append(ve.Errors, "migration.fines.lostbookamount must not be negative")
	}
	if settings.Migration.Fines.LoanPeriodDays <= 0 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("migration.fines.loanperioddays must be positive, got %d", settings.Migration.Fines.LoanPeriodDays))
	}

	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		ve.Errors = append(ve.Errors, "no target store enabled, enable output.sqlite or output.mysql")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		ve.Errors = append(ve.Errors, "output.sqlite.path must be set when SQLite output is enabled")
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Database == "" {
			ve.Errors = append(ve.Errors, "output.mysql.database must be set when MySQL output is enabled")
		}
		if settings.Output.MySQL.Host == "" {
			ve.Errors = append(ve.Errors, "output.mysql.host must be set when MySQL output is enabled")
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
