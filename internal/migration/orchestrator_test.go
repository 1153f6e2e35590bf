package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

// libraryFixture is a small but complete legacy export: categories, books,
// students, active loans and a historical loan table. Member 999 in the
// active table does not exist, exercising the skip path.
func libraryFixture(t *testing.T) *legacy.Source {
	t.Helper()
	return createLegacySource(t, []string{
		`CREATE TABLE Categories (CatID INTEGER PRIMARY KEY, Category TEXT, Description TEXT)`,
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT, Author TEXT, Category TEXT, Available TEXT)`,
		`CREATE TABLE Students (StudentID INTEGER PRIMARY KEY, AdmNo TEXT, Name TEXT, DOB TEXT, Form TEXT)`,
		`CREATE TABLE IssueDetails (IssueID INTEGER PRIMARY KEY, BookID INTEGER, MemberID INTEGER, IssueDate TEXT, DueDate TEXT)`,
		`CREATE TABLE IssueHistory (HistID INTEGER PRIMARY KEY, BookID INTEGER, MemberID INTEGER, IssueDate TEXT, DueDate TEXT, ReturnDate TEXT)`,

		`INSERT INTO Categories VALUES (1, 'Fiction', 'Novels and stories')`,
		`INSERT INTO Categories VALUES (2, 'Science', 'Reference texts')`,

		`INSERT INTO Books VALUES (1, 'Things Fall Apart', 'Chinua Achebe', 'Fiction', 'Yes')`,
		`INSERT INTO Books VALUES (2, 'Physics Notes', 'J. Doe', 'Science', 'No')`,
		`INSERT INTO Books VALUES (3, 'The River Between', 'Ngugi wa Thiong''o', 'Fiction', 'Yes')`,

		`INSERT INTO Students VALUES (1, 'ADM001', 'Jane Wanjiku', '12/05/2010', 'Form 2')`,
		`INSERT INTO Students VALUES (2, 'ADM002', 'Ali Hassan', '2011-03-04', 'Form 1')`,

		`INSERT INTO IssueDetails VALUES (1, 1, 1, '01/01/2024', '15/01/2024')`,
		`INSERT INTO IssueDetails VALUES (2, 3, 999, '01/01/2024', '15/01/2024')`,

		`INSERT INTO IssueHistory VALUES (1, 3, 2, '01/01/2024', '10/01/2024', '20/01/2024')`,
	})
}

func TestEngineRunFullPipeline(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := libraryFixture(t)

	finalProgress := make(map[StepID][2]int)
	engine := New(Config{
		Settings: settings,
		Store:    store,
		OnProgress: func(step StepID, done, total int) {
			finalProgress[step] = [2]int{done, total}
		},
	})

	stats, err := engine.Run(src)
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, 2, stats.Categories.Imported)
	assert.Equal(t, 3, stats.Books.Imported)
	assert.Equal(t, 2, stats.Students.Imported)
	assert.Equal(t, 2, stats.Borrowings.Imported)
	assert.Equal(t, 1, stats.Borrowings.Active)
	assert.Equal(t, 1, stats.Borrowings.Historical)
	assert.Equal(t, 2, stats.Fines.Imported)
	assert.Zero(t, stats.Errors)

	// The unresolvable member lands in the failed-mappings report.
	require.Len(t, stats.FailedMappings.Students, 1)
	assert.Equal(t, ReasonStudentNotFound, stats.FailedMappings.Students[0].Reason)
	assert.Equal(t, "999", stats.FailedMappings.Students[0].Name)

	status := engine.Status()
	require.NotNil(t, status)
	assert.False(t, status.HasErrors())
	for _, step := range status.Steps() {
		assert.Equal(t, StateCompleted, step.State, "step %s", step.ID)
	}
	assert.Equal(t, [2]int{3, 3}, finalProgress[StepBorrowings],
		"borrowings progress spans active and historical tables")

	assertTargetState(t, store)
}

// assertTargetState checks the record-level outcome of a full pipeline run
// against libraryFixture.
func assertTargetState(t *testing.T, store datastore.Interface) {
	t.Helper()

	books, err := store.AllBooks()
	require.NoError(t, err)
	byTitle := make(map[string]datastore.Book, len(books))
	for _, book := range books {
		byTitle[book.Title] = book
	}
	require.Len(t, byTitle, 3)

	// Book 1's only copy was lent out by the active import; book 2's copy
	// arrived marked unavailable; book 3's copy is still on the shelf.
	lent := byTitle["Things Fall Apart"]
	assert.Equal(t, datastore.BookStatusUnavailable, lent.Status)
	assert.Equal(t, 1, lent.TotalCopies)
	assert.Equal(t, 0, lent.AvailableCopies)
	require.NotNil(t, lent.LegacyBookID)
	assert.Equal(t, 1, *lent.LegacyBookID)

	copies, err := store.CopiesByBookID(lent.ID)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, datastore.CopyStatusBorrowed, copies[0].Status)
	assert.Equal(t, "LEG-000001", copies[0].TrackingCode)

	onShelf := byTitle["The River Between"]
	assert.Equal(t, datastore.BookStatusAvailable, onShelf.Status)
	assert.Equal(t, 1, onShelf.AvailableCopies)

	// Every migrated record carries a recoverable legacy annotation.
	legacyID, ok := datastore.ExtractLegacyID(lent.Notes)
	assert.True(t, ok)
	assert.Equal(t, 1, legacyID)

	students, err := store.AllStudents()
	require.NoError(t, err)
	require.Len(t, students, 2)
	byAdm := make(map[string]datastore.Student, len(students))
	for _, student := range students {
		byAdm[student.AdmissionNumber] = student
	}
	jane := byAdm["ADM001"]
	assert.Equal(t, "Jane", jane.FirstName)
	assert.Equal(t, "Wanjiku", jane.LastName)
	assert.Equal(t, "Form 2", jane.ClassGrade)
	require.NotNil(t, jane.DateOfBirth)
	assert.Equal(t, "2010-05-12", jane.DateOfBirth.Format("2006-01-02"))

	borrowCount, err := store.CountBorrowings()
	require.NoError(t, err)
	assert.EqualValues(t, 2, borrowCount)

	fined, err := store.BorrowingIDsWithFines()
	require.NoError(t, err)
	assert.Len(t, fined, 2, "both the overdue and the late return are fined")
}

func TestEngineRunIsIdempotent(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := libraryFixture(t)

	first := New(Config{Settings: settings, Store: store})
	_, err := first.Run(src)
	require.NoError(t, err)

	// A fresh engine has a cold resolver cache; mappings come back from the
	// persisted annotations, not from session state.
	second := New(Config{Settings: settings, Store: store})
	stats, err := second.Run(src)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Categories.Imported, "dedupe hits still count as imported")
	assert.Equal(t, 3, stats.Books.Imported)
	assert.Equal(t, 2, stats.Students.Imported)
	assert.Zero(t, stats.Borrowings.Imported)
	assert.Equal(t, 2, stats.Borrowings.Duplicates)
	assert.Zero(t, stats.Fines.Imported, "fined borrowings are never re-charged")

	bookCount, err := store.CountBooks()
	require.NoError(t, err)
	assert.EqualValues(t, 3, bookCount, "no net new records on a re-run")

	studentCount, err := store.CountStudents()
	require.NoError(t, err)
	assert.EqualValues(t, 2, studentCount)

	borrowCount, err := store.CountBorrowings()
	require.NoError(t, err)
	assert.EqualValues(t, 2, borrowCount)

	fined, err := store.BorrowingIDsWithFines()
	require.NoError(t, err)
	assert.Len(t, fined, 2)
}

func TestEngineRunFailsOnEmptyRequiredTable(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := createLegacySource(t, []string{
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT, Author TEXT)`,
	})

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.Error(t, err)
	require.NotNil(t, stats)
	assert.Equal(t, StateError, engine.Status().Step(StepInit).State)
}

func TestEngineRunFailsOnSourceWithoutTables(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := createLegacySource(t, []string{
		`CREATE TABLE Scratch (ID INTEGER)`,
		`DROP TABLE Scratch`,
	})

	engine := New(Config{Settings: settings, Store: store})
	_, err := engine.Run(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tables")
	assert.Equal(t, StateError, engine.Status().Step(StepInit).State)
}

func TestEngineRunDefaultsUnparsableDueDate(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := createLegacySource(t, []string{
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT, Author TEXT, Available TEXT)`,
		`CREATE TABLE Students (StudentID INTEGER PRIMARY KEY, AdmNo TEXT, Name TEXT)`,
		`CREATE TABLE IssueDetails (IssueID INTEGER PRIMARY KEY, BookID INTEGER, MemberID INTEGER, IssueDate TEXT, DueDate TEXT)`,
		`INSERT INTO Books VALUES (1, 'Weep Not, Child', 'Ngugi wa Thiong''o', 'Yes')`,
		`INSERT INTO Students VALUES (1, 'ADM010', 'Mary Atieno')`,
		`INSERT INTO IssueDetails VALUES (1, 1, 1, '01/02/2024', 'soon')`,
	})

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Borrowings.Imported)

	borrowings, err := store.AllBorrowings()
	require.NoError(t, err)
	require.Len(t, borrowings, 1)

	borrowed := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, borrowings[0].BorrowedDate.Equal(borrowed))
	assert.True(t, borrowings[0].DueDate.Equal(borrowed.AddDate(0, 0, 14)),
		"unknown due date defaults to borrowed date plus the loan period")

	// A due date fourteen days out from an early-2024 loan is long past,
	// so the run also derives one overdue fine for it.
	assert.Equal(t, 1, stats.Fines.Imported)
}

func TestEngineRunFallsBackToBorrowedCopy(t *testing.T) {
	// The only copy of the referenced book is already borrowed; the loan
	// must still land on that copy instead of being skipped.
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := createLegacySource(t, []string{
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT, Author TEXT, Available TEXT)`,
		`CREATE TABLE Students (StudentID INTEGER PRIMARY KEY, AdmNo TEXT, Name TEXT)`,
		`CREATE TABLE IssueDetails (IssueID INTEGER PRIMARY KEY, BookID INTEGER, MemberID INTEGER, IssueDate TEXT, DueDate TEXT)`,
		`INSERT INTO Books VALUES (1, 'A Grain of Wheat', 'Ngugi wa Thiong''o', 'No')`,
		`INSERT INTO Students VALUES (1, 'ADM020', 'Peter Otieno')`,
		`INSERT INTO IssueDetails VALUES (1, 1, 1, '01/01/2024', '15/01/2024')`,
	})

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Borrowings.Imported)
	assert.Empty(t, stats.FailedMappings.Books)

	book, err := store.BookByTitleAuthor("A Grain of Wheat", "Ngugi wa Thiong'o")
	require.NoError(t, err)
	require.NotNil(t, book)
	copies, err := store.CopiesByBookID(book.ID)
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, datastore.CopyStatusBorrowed, copies[0].Status)

	borrowings, err := store.AllBorrowings()
	require.NoError(t, err)
	require.Len(t, borrowings, 1)
	assert.Equal(t, copies[0].ID, borrowings[0].BookCopyID)
}

func TestEngineRunImportsLostBorrowing(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := createLegacySource(t, []string{
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT, Author TEXT, Available TEXT)`,
		`CREATE TABLE Students (StudentID INTEGER PRIMARY KEY, AdmNo TEXT, Name TEXT)`,
		`CREATE TABLE IssueDetails (IssueID INTEGER PRIMARY KEY, BookID INTEGER, MemberID INTEGER, IssueDate TEXT, DueDate TEXT, Lost INTEGER, Fine REAL)`,
		`INSERT INTO Books VALUES (1, 'Petals of Blood', 'Ngugi wa Thiong''o', 'Yes')`,
		`INSERT INTO Students VALUES (1, 'ADM030', 'Grace Njeri')`,
		`INSERT INTO IssueDetails VALUES (1, 1, 1, '01/01/2024', '15/01/2024', 1, 350.0)`,
	})

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Borrowings.Imported)
	assert.Equal(t, 1, stats.Fines.Imported)

	borrowings, err := store.AllBorrowings()
	require.NoError(t, err)
	require.Len(t, borrowings, 1)
	assert.Equal(t, datastore.BorrowingStatusLost, borrowings[0].Status)
	assert.True(t, borrowings[0].IsLost)
	assert.Nil(t, borrowings[0].ReturnedDate)

	sqlStore, ok := store.(*datastore.SQLiteStore)
	require.True(t, ok)
	var fines []datastore.Fine
	require.NoError(t, sqlStore.DB.Find(&fines).Error)
	require.Len(t, fines, 1)
	assert.Equal(t, datastore.FineTypeLostBook, fines[0].FineType)
	assert.Equal(t, borrowings[0].ID, fines[0].BorrowingID)
	assert.InDelta(t, 350.0, fines[0].Amount, 0.001,
		"legacy fine amount wins over the lost-book default")
}

func TestEngineRunCountsFineGenerationFailure(t *testing.T) {
	settings := testSettings()
	store := setupTargetStore(t, settings)
	src := createLegacySource(t, []string{
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT, Author TEXT)`,
		`CREATE TABLE Students (StudentID INTEGER PRIMARY KEY, AdmNo TEXT, Name TEXT)`,
		`INSERT INTO Books VALUES (1, 'Devil on the Cross', 'Ngugi wa Thiong''o')`,
		`INSERT INTO Students VALUES (1, 'ADM040', 'Sara Kioko')`,
	})

	sqlStore, ok := store.(*datastore.SQLiteStore)
	require.True(t, ok)
	require.NoError(t, sqlStore.DB.Migrator().DropTable(&datastore.Borrowing{}))

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.NoError(t, err)

	assert.Equal(t, StateError, engine.Status().Step(StepFines).State)
	assert.Equal(t, 1, stats.Fines.Errors, "fine generation failure counts against the fines entity")
	assert.Equal(t, 1, stats.Errors)
}

func TestEngineRunSkipsDisabledEntities(t *testing.T) {
	settings := testSettings()
	settings.Migration.Entities["categories"] = false
	store := setupTargetStore(t, settings)
	src := libraryFixture(t)

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.NoError(t, err)

	assert.Zero(t, stats.Categories.Imported)
	assert.Equal(t, "skipped (disabled)", engine.Status().Step(StepCategories).Message)

	categories, err := store.AllCategories()
	require.NoError(t, err)
	assert.Empty(t, categories)

	// Books still import; they just stay uncategorized.
	assert.Equal(t, 3, stats.Books.Imported)
}

func TestEngineRunWithoutHistorical(t *testing.T) {
	settings := testSettings()
	settings.Migration.ImportHistorical = false
	store := setupTargetStore(t, settings)
	src := libraryFixture(t)

	engine := New(Config{Settings: settings, Store: store})
	stats, err := engine.Run(src)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Borrowings.Imported)
	assert.Zero(t, stats.Borrowings.Historical)

	borrowCount, err := store.CountBorrowings()
	require.NoError(t, err)
	assert.EqualValues(t, 1, borrowCount)
}
