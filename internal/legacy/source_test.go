package legacy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// createFixture writes a small legacy database file and returns its path.
func createFixture(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE Books (BookID INTEGER PRIMARY KEY, Title TEXT NOT NULL, Author TEXT)`,
		`CREATE TABLE Students (StudentID INTEGER PRIMARY KEY, AdmNo TEXT, Name TEXT)`,
		`INSERT INTO Books (BookID, Title, Author) VALUES (1, 'Things Fall Apart', 'Chinua Achebe')`,
		`INSERT INTO Books (BookID, Title, Author) VALUES (2, 'The River Between', 'Ngugi wa Thiong''o')`,
		`INSERT INTO Students (StudentID, AdmNo, Name) VALUES (1, 'ADM001', 'Jane Wanjiku')`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	return path
}

func TestOpenRejectsMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

func TestOpenRejectsShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.db")
	require.NoError(t, os.WriteFile(path, []byte("tiny"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestOpenRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestOpenRejectsWrongMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.db")
	payload := []byte("this is definitely not a database file, just some text")
	require.NoError(t, os.WriteFile(path, payload, 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a SQLite database")
}

func TestTablesAndTableInfo(t *testing.T) {
	src, err := Open(createFixture(t))
	require.NoError(t, err)
	defer src.Close()

	tables, err := src.Tables()
	require.NoError(t, err)
	assert.Equal(t, []string{"Books", "Students"}, tables)

	info, err := src.TableInfo("Books")
	require.NoError(t, err)
	assert.Equal(t, "Books", info.Name)
	assert.EqualValues(t, 2, info.RowCount)
	require.Len(t, info.Columns, 3)
	assert.Equal(t, "BookID", info.Columns[0].Name)
	assert.True(t, info.Columns[0].IsPrimaryKey)
	assert.Equal(t, "Title", info.Columns[1].Name)
	assert.False(t, info.Columns[1].Nullable)
	assert.True(t, info.Columns[2].Nullable)
}

func TestTableNameValidation(t *testing.T) {
	src, err := Open(createFixture(t))
	require.NoError(t, err)
	defer src.Close()

	_, err = src.TableInfo("Books; DROP TABLE Books")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown table")

	_, err = src.FetchPage("nope", 0, 10)
	assert.Error(t, err)
}

func TestFetchPage(t *testing.T) {
	src, err := Open(createFixture(t))
	require.NoError(t, err)
	defer src.Close()

	page, err := src.FetchPage("Books", 0, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Things Fall Apart", page[0].Str("Title"))

	page, err = src.FetchPage("Books", 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "The River Between", page[0].Str("Title"))

	page, err = src.FetchPage("Books", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}
