// batch.go generic paged import engine with per-record error isolation
package migration

import (
	"fmt"

	"github.com/kitabu/kitabu-go/internal/legacy"
)

// OutcomeKind classifies the result of transforming one source record.
type OutcomeKind int

const (
	// OutcomeImported means the record was written to the target store, or
	// matched an existing target record that now stands in for it.
	OutcomeImported OutcomeKind = iota
	// OutcomeDuplicate means an identical record already exists and nothing
	// was written.
	OutcomeDuplicate
	// OutcomeSkipped means the record was intentionally not imported, with
	// a named reason such as student_not_found.
	OutcomeSkipped
	// OutcomeError means the transform failed for this record only.
	OutcomeError
)

// Skip reasons surfaced in the final report.
const (
	ReasonStudentNotFound = "student_not_found"
	ReasonBookNotFound    = "book_not_found"
	ReasonCopyNotFound    = "copy_not_found"
	ReasonMissingField    = "missing_required_field"
)

// Outcome is the per-record result returned by a transform function.
// Explicit outcomes replace thrown-error control flow so the batch loop can
// aggregate without unwinding.
type Outcome struct {
	Kind     OutcomeKind
	Reason   string // named skip reason, for Kind == OutcomeSkipped
	Message  string // error message, for Kind == OutcomeError
	LegacyID string // source identifier of the record, when known
	Name     string // human-readable record descriptor, when known
}

// Imported returns a success outcome.
func Imported() Outcome {
	return Outcome{Kind: OutcomeImported}
}

// Duplicate returns an already-exists outcome.
func Duplicate() Outcome {
	return Outcome{Kind: OutcomeDuplicate}
}

// Skipped returns a skip outcome with a named reason.
func Skipped(reason, legacyID, name string) Outcome {
	return Outcome{Kind: OutcomeSkipped, Reason: reason, LegacyID: legacyID, Name: name}
}

// Errored returns a record-level failure outcome.
func Errored(err error, legacyID, name string) Outcome {
	return Outcome{Kind: OutcomeError, Message: err.Error(), LegacyID: legacyID, Name: name}
}

// FailedRecord describes one record that could not be imported.
type FailedRecord struct {
	LegacyID string `json:"legacy_id,omitempty"`
	Name     string `json:"name,omitempty"`
	Reason   string `json:"reason"`
}

// BatchResult aggregates the outcomes of one table import.
type BatchResult struct {
	Processed  int
	Imported   int
	Duplicates int
	Skipped    int
	Errors     int
	Failures   []FailedRecord
}

// ProgressFunc reports records processed so far against the total row count.
// It is invoked synchronously after each page; callers must not block in it.
type ProgressFunc func(done, total int)

// TransformFunc converts and inserts one source record, reporting the result
// as an Outcome. It must not panic; if it does, the batch loop converts the
// panic into an error outcome and continues.
type TransformFunc func(record legacy.Record) Outcome

// runBatches iterates a source table in fixed-size pages, applying transform
// to every record. A failing record never aborts the batch; the loop
// advances regardless of outcome. The total row count is fetched once up
// front so progress can be reported against a stable denominator.
func runBatches(src *legacy.Source, table string, batchSize int, transform TransformFunc, onProgress ProgressFunc) (*BatchResult, error) {
	total64, err := src.RowCount(table)
	if err != nil {
		return nil, err
	}
	total := int(total64)

	result := &BatchResult{}
	log := getLogger()

	for offset := 0; ; offset += batchSize {
		page, err := src.FetchPage(table, offset, batchSize)
		if err != nil {
			return result, err
		}
		if len(page) == 0 {
			break
		}

		for i := range page {
			outcome := safeTransform(transform, page[i])
			result.Processed++

			switch outcome.Kind {
			case OutcomeImported:
				result.Imported++
			case OutcomeDuplicate:
				result.Duplicates++
			case OutcomeSkipped:
				result.Skipped++
				result.Failures = append(result.Failures, FailedRecord{
					LegacyID: outcome.LegacyID,
					Name:     outcome.Name,
					Reason:   outcome.Reason,
				})
			case OutcomeError:
				result.Errors++
				result.Failures = append(result.Failures, FailedRecord{
					LegacyID: outcome.LegacyID,
					Name:     outcome.Name,
					Reason:   outcome.Message,
				})
				log.Warn("record import failed",
					"table", table,
					"offset", offset+i,
					"error", outcome.Message)
			}
		}

		if onProgress != nil {
			onProgress(result.Processed, total)
		}

		if len(page) < batchSize {
			break
		}
	}

	return result, nil
}

// safeTransform invokes transform and converts a panic into an error outcome
// so one bad record cannot take down the run.
func safeTransform(transform TransformFunc, record legacy.Record) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{
				Kind:    OutcomeError,
				Message: fmt.Sprintf("panic during transform: %v", r),
			}
		}
	}()
	return transform(record)
}
