// stats.go per-run migration counters surfaced in the final report
package migration

// EntityStats holds the running counters for one entity type. Stats are
// never persisted; they are rebuilt fresh on every run.
type EntityStats struct {
	Imported   int `json:"imported"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// BorrowingStats extends EntityStats with the active/historical split.
type BorrowingStats struct {
	EntityStats
	Active     int `json:"active"`
	Historical int `json:"historical"`
}

// FailedMappings lists the borrowing records whose book or student legacy
// reference could not be resolved.
type FailedMappings struct {
	Books    []FailedRecord `json:"books,omitempty"`
	Students []FailedRecord `json:"students,omitempty"`
}

// Stats is the final migration report.
type Stats struct {
	Categories     EntityStats    `json:"categories"`
	Books          EntityStats    `json:"books"`
	Students       EntityStats    `json:"students"`
	Borrowings     BorrowingStats `json:"borrowings"`
	Fines          EntityStats    `json:"fines"`
	Errors         int            `json:"errors"`
	FailedMappings FailedMappings `json:"failed_mappings"`
}

// applyBatch folds a batch result into an entity's counters.
func (es *EntityStats) applyBatch(result *BatchResult) {
	es.Imported += result.Imported
	es.Duplicates += result.Duplicates
	es.Errors += result.Errors
}

// TotalErrors sums record-level errors across all entity types.
func (s *Stats) TotalErrors() int {
	return s.Categories.Errors + s.Books.Errors + s.Students.Errors +
		s.Borrowings.Errors + s.Fines.Errors
}
