// books.go book table import with copy synthesis
package migration

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

// availabilityTokens is the tolerant truthy set for the legacy availability
// flag. Matching is case-insensitive substring; anything else means the
// copy starts out borrowed.
var availabilityTokens = []string{"yes", "y", "available", "avail", "true", "1"}

// copyStatusFromFlag maps a legacy availability value onto a copy status.
func copyStatusFromFlag(value string) string {
	lowered := strings.ToLower(strings.TrimSpace(value))
	for _, token := range availabilityTokens {
		if strings.Contains(lowered, token) {
			return datastore.CopyStatusAvailable
		}
	}
	return datastore.CopyStatusBorrowed
}

// generateTrackingCode produces a unique tracking code for a synthesized
// copy. The legacy book id keeps codes recognizable; a uuid fragment keeps
// them unique when the source lacks ids.
func generateTrackingCode(legacyID int, hasLegacyID bool) string {
	if hasLegacyID {
		return fmt.Sprintf("LEG-%06d", legacyID)
	}
	return "LEG-" + strings.ToUpper(uuid.NewString()[:8])
}

// importBooks migrates the detected book table. Every inserted book gets
// exactly one synthesized copy record; the book mapping is registered only
// after a successful insert.
func (e *Engine) importBooks(det *TableDetection, onProgress ProgressFunc) (*BatchResult, error) {
	titleCol := det.SourceColumn("title")
	authorCol := det.SourceColumn("author")
	isbnCol := det.SourceColumn("isbn")
	categoryCol := det.SourceColumn("category")
	publisherCol := det.SourceColumn("publisher")
	yearCol := det.SourceColumn("year")
	availableCol := det.SourceColumn("available")
	shelfCol := det.SourceColumn("shelf")

	transform := func(record legacy.Record) Outcome {
		title := record.Str(titleCol)
		author := record.Str(authorCol)
		legacyID, hasLegacyID := record.Int(det.PrimaryKey)
		legacyKey := ""
		if hasLegacyID {
			legacyKey = strconv.Itoa(legacyID)
		}

		if title == "" {
			return Skipped(ReasonMissingField, legacyKey, "")
		}

		// Dedupe by the (title, author) natural key.
		existing, err := e.store.BookByTitleAuthor(title, author)
		if err != nil {
			return Errored(err, legacyKey, title)
		}
		if existing != nil {
			e.resolver.Register(EntityBook, legacyKey, existing.ID)
			return Imported()
		}

		book := datastore.Book{
			Title:           title,
			Author:          author,
			ISBN:            record.Str(isbnCol),
			Publisher:       record.Str(publisherCol),
			ShelfLocation:   record.Str(shelfCol),
			Status:          datastore.BookStatusAvailable,
			TotalCopies:     1,
			CategoryID:      e.resolveCategory(record.Str(categoryCol)),
		}
		if year, ok := record.Int(yearCol); ok {
			book.PublicationYear = year
		}
		if hasLegacyID {
			book.Notes = datastore.NewLegacyAnnotation(legacyID)
			book.LegacyBookID = &legacyID
		}

		copyStatus := copyStatusFromFlag(record.Str(availableCol))
		if copyStatus == datastore.CopyStatusAvailable {
			book.AvailableCopies = 1
		}

		if err := e.store.InsertBook(&book); err != nil {
			return Errored(err, legacyKey, title)
		}

		copy := datastore.BookCopy{
			BookID:       book.ID,
			CopyNumber:   1,
			TrackingCode: generateTrackingCode(legacyID, hasLegacyID),
			Condition:    "good",
			Status:       copyStatus,
		}
		if hasLegacyID {
			copy.LegacyBookID = &legacyID
		}
		if err := e.store.InsertBookCopy(&copy); err != nil {
			return Errored(err, legacyKey, title)
		}

		e.resolver.Register(EntityBook, legacyKey, book.ID)
		return Imported()
	}

	return runBatches(e.source, det.SourceTable, e.settings.Migration.BatchSize, transform, onProgress)
}

// resolveCategory maps a legacy category reference, which may be a name or
// a numeric id, onto a target category id. Tried in order: resolver cache,
// name lookup, numeric legacy-id lookup. An unresolvable reference leaves
// the book uncategorized rather than failing the record.
func (e *Engine) resolveCategory(ref string) string {
	if ref == "" {
		return ""
	}

	if targetID, err := e.resolver.Resolve(EntityCategory, ref); err == nil && targetID != "" {
		return targetID
	}

	if category, err := e.store.CategoryByName(ref); err == nil && category != nil {
		e.resolver.Register(EntityCategory, ref, category.ID)
		return category.ID
	}

	if numericID, err := strconv.Atoi(ref); err == nil {
		if category, err := e.store.CategoryByLegacyID(numericID); err == nil && category != nil {
			e.resolver.Register(EntityCategory, ref, category.ID)
			return category.ID
		}
	}

	return ""
}
