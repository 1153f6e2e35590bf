// datastore.go implements the target store operations used by the migration engine
package datastore

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Inserts

// InsertCategory stores a new category record.
func (ds *DataStore) InsertCategory(category *Category) error {
	if err := validateRequired("category name", category.Name); err != nil {
		return err
	}
	if err := ds.DB.Create(category).Error; err != nil {
		return dbError(err, "insert_category", "", "name", category.Name)
	}
	return nil
}

// InsertBook stores a new book record.
func (ds *DataStore) InsertBook(book *Book) error {
	if err := validateRequired("book title", book.Title); err != nil {
		return err
	}
	if err := ds.DB.Create(book).Error; err != nil {
		return dbError(err, "insert_book", "", "title", book.Title)
	}
	return nil
}

// InsertBookCopy stores a new book copy record.
func (ds *DataStore) InsertBookCopy(copy *BookCopy) error {
	if err := validateRequired("copy tracking code", copy.TrackingCode); err != nil {
		return err
	}
	if err := ds.DB.Create(copy).Error; err != nil {
		return dbError(err, "insert_book_copy", "", "tracking_code", copy.TrackingCode)
	}
	return nil
}

// InsertStudent stores a new student record.
func (ds *DataStore) InsertStudent(student *Student) error {
	if err := validateRequired("admission number", student.AdmissionNumber); err != nil {
		return err
	}
	if err := ds.DB.Create(student).Error; err != nil {
		return dbError(err, "insert_student", "", "admission_number", student.AdmissionNumber)
	}
	return nil
}

// InsertBorrowing stores a new borrowing record.
func (ds *DataStore) InsertBorrowing(borrowing *Borrowing) error {
	if err := ds.DB.Create(borrowing).Error; err != nil {
		return dbError(err, "insert_borrowing", "", "student_id", borrowing.StudentID, "book_id", borrowing.BookID)
	}
	return nil
}

// InsertFines stores a batch of fine records in a single transaction.
func (ds *DataStore) InsertFines(fines []Fine) error {
	if len(fines) == 0 {
		return nil
	}
	if err := ds.DB.Create(&fines).Error; err != nil {
		return dbError(err, "insert_fines", "", "count", len(fines))
	}
	return nil
}

// Lookup probes. These report a missing record as (nil, nil) because the
// importers use them as dedupe checks where absence is the normal case.

// CategoryByName returns the category with the given name, if any.
func (ds *DataStore) CategoryByName(name string) (*Category, error) {
	var category Category
	err := ds.DB.Where("name = ?", strings.TrimSpace(name)).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "category_by_name", "", "name", name)
	}
	return &category, nil
}

// CategoryByLegacyID returns the category whose annotation embeds the given
// legacy id. The match is a substring probe over the Notes column; callers
// verify the extracted id before trusting the result.
func (ds *DataStore) CategoryByLegacyID(legacyID int) (*Category, error) {
	var categories []Category
	if err := ds.DB.Where("notes LIKE ?", "%legacy%").Find(&categories).Error; err != nil {
		return nil, dbError(err, "category_by_legacy_id", "", "legacy_id", legacyID)
	}
	for i := range categories {
		if id, ok := ExtractLegacyID(categories[i].Notes); ok && id == legacyID {
			return &categories[i], nil
		}
	}
	return nil, nil
}

// BookByTitleAuthor returns the book matching the (title, author) pair, if any.
func (ds *DataStore) BookByTitleAuthor(title, author string) (*Book, error) {
	var book Book
	err := ds.DB.Where("title = ? AND author = ?", strings.TrimSpace(title), strings.TrimSpace(author)).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "book_by_title_author", "", "title", title)
	}
	return &book, nil
}

// StudentByAdmissionNumber returns the student with the given admission number, if any.
func (ds *DataStore) StudentByAdmissionNumber(admissionNumber string) (*Student, error) {
	var student Student
	err := ds.DB.Where("admission_number = ?", strings.TrimSpace(admissionNumber)).First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "student_by_admission_number", "", "admission_number", admissionNumber)
	}
	return &student, nil
}

// BorrowingByNaturalKey returns the borrowing matching the dedupe tuple
// (student, book, copy, status), if any.
func (ds *DataStore) BorrowingByNaturalKey(studentID, bookID, copyID, status string) (*Borrowing, error) {
	var borrowing Borrowing
	err := ds.DB.Where("student_id = ? AND book_id = ? AND book_copy_id = ? AND status = ?",
		studentID, bookID, copyID, status).First(&borrowing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "borrowing_by_natural_key", "", "student_id", studentID, "book_id", bookID)
	}
	return &borrowing, nil
}

// CopyByLegacyBookID returns a copy carrying the given legacy book id in its
// first-class legacy reference column, if any.
func (ds *DataStore) CopyByLegacyBookID(legacyID int) (*BookCopy, error) {
	var copy BookCopy
	err := ds.DB.Where("legacy_book_id = ?", legacyID).First(&copy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError(err, "copy_by_legacy_book_id", "", "legacy_id", legacyID)
	}
	return &copy, nil
}

// CopiesByBookID returns all copies of a book ordered by copy number.
func (ds *DataStore) CopiesByBookID(bookID string) ([]BookCopy, error) {
	var copies []BookCopy
	if err := ds.DB.Where("book_id = ?", bookID).Order("copy_number ASC").Find(&copies).Error; err != nil {
		return nil, dbError(err, "copies_by_book_id", "", "book_id", bookID)
	}
	return copies, nil
}

// Updates

// UpdateCopyStatus sets the status of a single copy.
func (ds *DataStore) UpdateCopyStatus(copyID, status string) error {
	result := ds.DB.Model(&BookCopy{}).Where("id = ?", copyID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if result.Error != nil {
		return dbError(result.Error, "update_copy_status", "", "copy_id", copyID, "status", status)
	}
	if result.RowsAffected == 0 {
		return dbError(gorm.ErrRecordNotFound, "update_copy_status", "", "copy_id", copyID)
	}
	return nil
}

// UpdateBookCounts sets a book's total and available copy counters.
func (ds *DataStore) UpdateBookCounts(bookID string, total, available int) error {
	status := BookStatusAvailable
	if available == 0 {
		status = BookStatusUnavailable
	}
	err := ds.DB.Model(&Book{}).Where("id = ?", bookID).
		Updates(map[string]any{
			"total_copies":     total,
			"available_copies": available,
			"status":           status,
			"updated_at":       time.Now(),
		}).Error
	if err != nil {
		return dbError(err, "update_book_counts", "", "book_id", bookID)
	}
	return nil
}

// Full scans

// AllCategories returns every category record.
func (ds *DataStore) AllCategories() ([]Category, error) {
	var categories []Category
	if err := ds.DB.Find(&categories).Error; err != nil {
		return nil, dbError(err, "all_categories", "")
	}
	return categories, nil
}

// AllBooks returns every book record.
func (ds *DataStore) AllBooks() ([]Book, error) {
	var books []Book
	if err := ds.DB.Find(&books).Error; err != nil {
		return nil, dbError(err, "all_books", "")
	}
	return books, nil
}

// AllStudents returns every student record.
func (ds *DataStore) AllStudents() ([]Student, error) {
	var students []Student
	if err := ds.DB.Find(&students).Error; err != nil {
		return nil, dbError(err, "all_students", "")
	}
	return students, nil
}

// AllBorrowings returns every borrowing record.
func (ds *DataStore) AllBorrowings() ([]Borrowing, error) {
	var borrowings []Borrowing
	if err := ds.DB.Find(&borrowings).Error; err != nil {
		return nil, dbError(err, "all_borrowings", "")
	}
	return borrowings, nil
}

// BorrowingIDsWithFines returns the set of borrowing ids that already have a
// fine on record, used to exclude them from fine derivation.
func (ds *DataStore) BorrowingIDsWithFines() (map[string]bool, error) {
	var ids []string
	if err := ds.DB.Model(&Fine{}).Distinct("borrowing_id").Pluck("borrowing_id", &ids).Error; err != nil {
		return nil, dbError(err, "borrowing_ids_with_fines", "")
	}
	fined := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			fined[id] = true
		}
	}
	return fined, nil
}

// Counts

// CountBooks returns the number of book records.
func (ds *DataStore) CountBooks() (int64, error) {
	return ds.count(&Book{}, "count_books")
}

// CountStudents returns the number of student records.
func (ds *DataStore) CountStudents() (int64, error) {
	return ds.count(&Student{}, "count_students")
}

// CountBorrowings returns the number of borrowing records.
func (ds *DataStore) CountBorrowings() (int64, error) {
	return ds.count(&Borrowing{}, "count_borrowings")
}

func (ds *DataStore) count(model any, operation string) (int64, error) {
	var n int64
	if err := ds.DB.Model(model).Count(&n).Error; err != nil {
		return 0, dbError(err, operation, "")
	}
	return n, nil
}

func validateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return validationError("required field is empty", field, value)
	}
	return nil
}
