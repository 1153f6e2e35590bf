// fines.go fine derivation post-pass over imported borrowings
package migration

import (
	"fmt"
	"time"

	"github.com/kitabu/kitabu-go/internal/datastore"
)

// deriveFine computes the fine owed for one borrowing, or nil when the
// borrowing is in good standing. now is injected for testability.
func deriveFine(borrowing *datastore.Borrowing, fines *fineRates, now time.Time) *datastore.Fine {
	switch {
	case borrowing.IsLost:
		// Lost books charge the legacy amount when one was recorded,
		// otherwise the fixed default.
		amount := fines.lostBookAmount
		if borrowing.FineAmount > 0 {
			amount = borrowing.FineAmount
		}
		return &datastore.Fine{
			StudentID:   borrowing.StudentID,
			BorrowingID: borrowing.ID,
			FineType:    datastore.FineTypeLostBook,
			Amount:      amount,
			Status:      datastore.FineStatusUnpaid,
			Description: "book reported lost",
		}

	case borrowing.ReturnedDate != nil && borrowing.ReturnedDate.After(borrowing.DueDate):
		daysLate := daysBetween(borrowing.DueDate, *borrowing.ReturnedDate)
		return &datastore.Fine{
			StudentID:   borrowing.StudentID,
			BorrowingID: borrowing.ID,
			FineType:    datastore.FineTypeLateReturn,
			Amount:      float64(daysLate) * fines.dailyRate,
			Status:      datastore.FineStatusUnpaid,
			Description: fmt.Sprintf("returned %d days late", daysLate),
		}

	case borrowing.ReturnedDate == nil && borrowing.DueDate.Before(now):
		daysOverdue := daysBetween(borrowing.DueDate, now)
		return &datastore.Fine{
			StudentID:   borrowing.StudentID,
			BorrowingID: borrowing.ID,
			FineType:    datastore.FineTypeOverdue,
			Amount:      float64(daysOverdue) * fines.dailyRate,
			Status:      datastore.FineStatusUnpaid,
			Description: fmt.Sprintf("%d days overdue", daysOverdue),
		}
	}

	return nil
}

// fineRates holds the constants fine derivation works from.
type fineRates struct {
	dailyRate      float64
	lostBookAmount float64
}

// generateFines scans all borrowings for overdue, late-return and lost
// conditions and inserts the derived fines in batches. A borrowing that
// already has a fine on record is never re-charged.
func (e *Engine) generateFines(onProgress ProgressFunc) (int, error) {
	borrowings, err := e.store.AllBorrowings()
	if err != nil {
		return 0, err
	}
	fined, err := e.store.BorrowingIDsWithFines()
	if err != nil {
		return 0, err
	}

	rates := &fineRates{
		dailyRate:      e.settings.Migration.Fines.DailyRate,
		lostBookAmount: e.settings.Migration.Fines.LostBookAmount,
	}
	now := time.Now()
	batchSize := e.settings.Migration.BatchSize

	var pending []datastore.Fine
	created := 0
	for i := range borrowings {
		if fined[borrowings[i].ID] {
			continue
		}
		fine := deriveFine(&borrowings[i], rates, now)
		if fine == nil {
			continue
		}
		pending = append(pending, *fine)

		if len(pending) >= batchSize {
			if err := e.store.InsertFines(pending); err != nil {
				return created, err
			}
			created += len(pending)
			pending = pending[:0]
		}

		if onProgress != nil {
			onProgress(i+1, len(borrowings))
		}
	}

	if len(pending) > 0 {
		if err := e.store.InsertFines(pending); err != nil {
			return created, err
		}
		created += len(pending)
	}

	if onProgress != nil {
		onProgress(len(borrowings), len(borrowings))
	}
	return created, nil
}
