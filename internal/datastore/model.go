// model.go defines the target store data model for the library system
package datastore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book status values.
const (
	BookStatusAvailable   = "available"
	BookStatusUnavailable = "unavailable"
)

// Book copy status values.
const (
	CopyStatusAvailable   = "available"
	CopyStatusBorrowed    = "borrowed"
	CopyStatusMaintenance = "maintenance"
	CopyStatusLost        = "lost"
)

// Borrowing status values.
const (
	BorrowingStatusActive   = "active"
	BorrowingStatusReturned = "returned"
	BorrowingStatusOverdue  = "overdue"
	BorrowingStatusLost     = "lost"
)

// Fine types and statuses.
const (
	FineTypeOverdue    = "overdue"
	FineTypeLateReturn = "late_return"
	FineTypeLostBook   = "lost_book"

	FineStatusUnpaid = "unpaid"
	FineStatusPaid   = "paid"
	FineStatusWaived = "waived"
)

// Category represents a book category. Notes carries the free-text
// annotation used to trace a record back to its legacy origin.
type Category struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string `gorm:"type:text"`
	Notes       string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Book represents a title in the catalogue. Individual physical copies are
// tracked as BookCopy records.
type Book struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	Title           string `gorm:"index:idx_books_title_author;not null"`
	Author          string `gorm:"index:idx_books_title_author"`
	ISBN            string
	Publisher       string
	PublicationYear int
	ShelfLocation   string
	Status          string `gorm:"type:varchar(20)"`
	CategoryID      string `gorm:"index;type:varchar(36)"`
	TotalCopies     int
	AvailableCopies int
	Notes           string `gorm:"type:text"`
	LegacyBookID    *int   `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BookCopy represents one physical copy of a book, identified by a unique
// tracking code.
type BookCopy struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	BookID       string `gorm:"index;type:varchar(36);not null"`
	CopyNumber   int
	TrackingCode string `gorm:"uniqueIndex;not null"`
	Condition    string `gorm:"type:varchar(20)"`
	Status       string `gorm:"type:varchar(20);index"`
	Notes        string `gorm:"type:text"`
	LegacyBookID *int   `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Student represents a registered borrower.
type Student struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	AdmissionNumber string `gorm:"uniqueIndex;not null"`
	FirstName       string `gorm:"not null"`
	LastName        string
	Email           string
	Phone           string
	ClassGrade      string
	DateOfBirth     *time.Time
	EnrollmentDate  time.Time
	Status          string `gorm:"type:varchar(20)"`
	Notes           string `gorm:"type:text"`
	LegacyStudentID *int   `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Borrowing represents one loan of one copy to one student.
type Borrowing struct {
	ID                string `gorm:"primaryKey;type:varchar(36)"`
	StudentID         string `gorm:"index;type:varchar(36)"`
	BookID            string `gorm:"index;type:varchar(36)"`
	BookCopyID        string `gorm:"index;type:varchar(36)"`
	BorrowedDate      time.Time
	DueDate           time.Time
	ReturnedDate      *time.Time
	Status            string `gorm:"type:varchar(20);index"`
	ConditionAtIssue  string `gorm:"type:varchar(20)"`
	ConditionAtReturn string `gorm:"type:varchar(20)"`
	IsLost            bool
	FineAmount        float64
	FinePaid          bool
	Notes             string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Fine represents a charge raised against a student for an overdue, late or
// lost borrowing.
type Fine struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	StudentID   string `gorm:"index;type:varchar(36)"`
	BorrowingID string `gorm:"index;type:varchar(36)"`
	FineType    string `gorm:"type:varchar(20)"`
	Amount      float64
	Status      string `gorm:"type:varchar(20)"`
	Description string `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeCreate hooks assign a UUID primary key when the caller did not.

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func (b *Book) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (bc *BookCopy) BeforeCreate(*gorm.DB) error {
	if bc.ID == "" {
		bc.ID = uuid.NewString()
	}
	return nil
}

func (s *Student) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (b *Borrowing) BeforeCreate(*gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

func (f *Fine) BeforeCreate(*gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
