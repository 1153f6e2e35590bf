// interfaces.go defines the interface for target store operations
package datastore

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kitabu/kitabu-go/internal/conf"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Interface abstracts the underlying database implementation and defines the
// operations the migration engine issues against the target store.
type Interface interface {
	Open() error
	Close() error

	// Inserts
	InsertCategory(category *Category) error
	InsertBook(book *Book) error
	InsertBookCopy(copy *BookCopy) error
	InsertStudent(student *Student) error
	InsertBorrowing(borrowing *Borrowing) error
	InsertFines(fines []Fine) error

	// Dedupe and lookup probes. A missing record is (nil, nil), not an error.
	CategoryByName(name string) (*Category, error)
	CategoryByLegacyID(legacyID int) (*Category, error)
	BookByTitleAuthor(title, author string) (*Book, error)
	StudentByAdmissionNumber(admissionNumber string) (*Student, error)
	BorrowingByNaturalKey(studentID, bookID, copyID, status string) (*Borrowing, error)
	CopyByLegacyBookID(legacyID int) (*BookCopy, error)
	CopiesByBookID(bookID string) ([]BookCopy, error)

	// Updates
	UpdateCopyStatus(copyID, status string) error
	UpdateBookCounts(bookID string, total, available int) error

	// Full scans used by mapping reconstruction and derivation passes
	AllCategories() ([]Category, error)
	AllBooks() ([]Book, error)
	AllStudents() ([]Student, error)
	AllBorrowings() ([]Borrowing, error)
	BorrowingIDsWithFines() (map[string]bool, error)

	// Counts
	CountBooks() (int64, error)
	CountStudents() (int64, error)
	CountBorrowings() (int64, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new store instance based on the provided configuration.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{
			Settings: settings,
		}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{
			Settings: settings,
		}
	default:
		return nil
	}
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return dbError(err, "close", "")
	}
	return sqlDB.Close()
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Category{}, &Book{}, &BookCopy{}, &Student{}, &Borrowing{}, &Fine{}); err != nil {
		return fmt.Errorf("failed to auto-migrate %s database: %w", dbType, err)
	}

	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}

	return nil
}

// createGormLogger configures and returns a new GORM logger instance.
func createGormLogger() logger.Interface {
	return logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
