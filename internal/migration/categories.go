// categories.go category table import
package migration

import (
	"strconv"

	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

// importCategories migrates the detected category table. Legacy categories
// recur across re-runs, so a name hit registers the mapping to the existing
// record and counts as imported, not duplicate.
func (e *Engine) importCategories(det *TableDetection, onProgress ProgressFunc) (*BatchResult, error) {
	nameCol := det.SourceColumn("name")
	descCol := det.SourceColumn("description")

	transform := func(record legacy.Record) Outcome {
		name := record.Str(nameCol)
		if name == "" {
			name = record.StrAny("name", "category", "cat")
		}
		legacyID, hasLegacyID := record.Int(det.PrimaryKey)
		legacyKey := ""
		if hasLegacyID {
			legacyKey = strconv.Itoa(legacyID)
		}

		if name == "" {
			return Skipped(ReasonMissingField, legacyKey, "")
		}

		existing, err := e.store.CategoryByName(name)
		if err != nil {
			return Errored(err, legacyKey, name)
		}
		if existing != nil {
			e.resolver.Register(EntityCategory, legacyKey, existing.ID)
			return Imported()
		}

		category := datastore.Category{
			Name:        name,
			Description: record.Str(descCol),
		}
		if hasLegacyID {
			category.Notes = datastore.NewLegacyAnnotation(legacyID)
		}
		if err := e.store.InsertCategory(&category); err != nil {
			return Errored(err, legacyKey, name)
		}

		e.resolver.Register(EntityCategory, legacyKey, category.ID)
		return Imported()
	}

	return runBatches(e.source, det.SourceTable, e.settings.Migration.BatchSize, transform, onProgress)
}
