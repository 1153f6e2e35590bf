// borrowings.go borrowing table import for active and historical loans
package migration

import (
	"strconv"
	"time"

	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

// importBorrowings migrates a borrowings source table. historical marks the
// table as holding already-returned loans; unknown return dates there
// default to today. An active insert flips the chosen copy to borrowed.
func (e *Engine) importBorrowings(det *TableDetection, historical bool, onProgress ProgressFunc) (*BatchResult, error) {
	// Dependent phase: a cold cache means a prior process imported the
	// books and students, so rebuild the mappings before touching records.
	if err := e.resolver.EnsureMappings(EntityStudent); err != nil {
		return nil, err
	}
	if err := e.resolver.EnsureMappings(EntityBook); err != nil {
		return nil, err
	}

	studentCol := det.SourceColumn("student_ref")
	bookCol := det.SourceColumn("book_ref")
	borrowedCol := det.SourceColumn("borrowed_date")
	dueCol := det.SourceColumn("due_date")
	returnedCol := det.SourceColumn("returned_date")
	lostCol := det.SourceColumn("lost")
	conditionCol := det.SourceColumn("condition")
	fineCol := det.SourceColumn("fine")

	loanPeriod := time.Duration(e.settings.Migration.Fines.LoanPeriodDays) * 24 * time.Hour

	transform := func(record legacy.Record) Outcome {
		legacyKey := ""
		if id, ok := record.Int(det.PrimaryKey); ok {
			legacyKey = strconv.Itoa(id)
		}

		studentRef := record.Str(studentCol)
		studentID, err := e.resolver.Resolve(EntityStudent, studentRef)
		if err != nil {
			return Errored(err, legacyKey, studentRef)
		}
		if studentID == "" {
			return Skipped(ReasonStudentNotFound, legacyKey, studentRef)
		}

		bookRef := record.Str(bookCol)
		bookID, err := e.resolver.Resolve(EntityBook, bookRef)
		if err != nil {
			return Errored(err, legacyKey, bookRef)
		}
		if bookID == "" {
			return Skipped(ReasonBookNotFound, legacyKey, bookRef)
		}

		// Pick an available copy of the book, falling back to any copy.
		copies, err := e.store.CopiesByBookID(bookID)
		if err != nil {
			return Errored(err, legacyKey, bookRef)
		}
		if len(copies) == 0 {
			return Skipped(ReasonCopyNotFound, legacyKey, bookRef)
		}
		chosen := copies[0]
		for i := range copies {
			if copies[i].Status == datastore.CopyStatusAvailable {
				chosen = copies[i]
				break
			}
		}

		borrowedDate, ok := parseLegacyDate(record.Str(borrowedCol))
		if !ok {
			borrowedDate = time.Now()
		}
		dueDate, ok := parseLegacyDate(record.Str(dueCol))
		if !ok {
			dueDate = borrowedDate.Add(loanPeriod)
		}

		isLost := record.Bool(lostCol)
		status := datastore.BorrowingStatusActive
		var returnedDate *time.Time
		if historical {
			status = datastore.BorrowingStatusReturned
			returned, ok := parseLegacyDate(record.Str(returnedCol))
			if !ok {
				returned = time.Now()
			}
			returnedDate = &returned
		}
		if isLost {
			status = datastore.BorrowingStatusLost
		}

		// Dedupe by the (student, book, copy, status) tuple so re-runs are
		// idempotent rather than additive.
		existing, err := e.store.BorrowingByNaturalKey(studentID, bookID, chosen.ID, status)
		if err != nil {
			return Errored(err, legacyKey, bookRef)
		}
		if existing != nil {
			return Duplicate()
		}

		borrowing := datastore.Borrowing{
			StudentID:         studentID,
			BookID:            bookID,
			BookCopyID:        chosen.ID,
			BorrowedDate:      borrowedDate,
			DueDate:           dueDate,
			ReturnedDate:      returnedDate,
			Status:            status,
			ConditionAtIssue:  "good",
			ConditionAtReturn: record.Str(conditionCol),
			IsLost:            isLost,
		}
		if fine, ok := record.Float(fineCol); ok {
			borrowing.FineAmount = fine
		}

		if err := e.store.InsertBorrowing(&borrowing); err != nil {
			return Errored(err, legacyKey, bookRef)
		}

		if status == datastore.BorrowingStatusActive {
			if err := e.store.UpdateCopyStatus(chosen.ID, datastore.CopyStatusBorrowed); err != nil {
				return Errored(err, legacyKey, bookRef)
			}
		}

		return Imported()
	}

	return runBatches(e.source, det.SourceTable, e.settings.Migration.BatchSize, transform, onProgress)
}
