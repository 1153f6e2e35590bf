// Package legacy provides read-only access to a legacy library database
// file. The file must be a SQLite database; the engine only ever issues
// introspection and paged select queries against it.
package legacy

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kitabu/kitabu-go/internal/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteMagic is the 16-byte header every SQLite database file starts with.
var sqliteMagic = []byte("SQLite format 3\x00")

// Column describes one column of a source table.
type Column struct {
	Name         string
	DeclaredType string
	Nullable     bool
	IsPrimaryKey bool
}

// TableInfo is a read-only snapshot of one table in the source file.
type TableInfo struct {
	Name     string
	Columns  []Column
	RowCount int64
}

// Source is a handle to an opened legacy database file.
type Source struct {
	Path string
	db   *gorm.DB

	// tables caches the table list so names can be validated before they
	// are interpolated into queries.
	tables map[string]bool
}

// Open validates the file header and opens a read-only handle. A missing
// file, short file or magic mismatch is a hard rejection.
func Open(path string) (*Source, error) {
	header := make([]byte, len(sqliteMagic))
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryFileIO).
			FileContext(path, -1).
			Build()
	}
	n, err := io.ReadFull(f, header)
	closeErr := f.Close()
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, errors.Newf("file too short to be a database: %s", path).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			FileContext(path, int64(n)).
			Build()
	}
	if err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryFileIO).
			FileContext(path, int64(n)).
			Build()
	}
	if closeErr != nil {
		return nil, errors.New(closeErr).
			Component("legacy").
			Category(errors.CategoryFileIO).
			FileContext(path, -1).
			Build()
	}
	if !bytes.Equal(header, sqliteMagic) {
		return nil, errors.Newf("not a SQLite database: %s", path).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Context("header", fmt.Sprintf("%q", header)).
			Build()
	}

	dsn := fmt.Sprintf("file:%s?mode=ro&immutable=1", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			FileContext(path, -1).
			Build()
	}

	return &Source{Path: path, db: db}, nil
}

// Close releases the underlying database handle.
func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Tables returns the user table names in the source file, excluding SQLite
// system tables. A source with zero tables is an error: the engine has
// nothing to migrate and a valid legacy export always has tables.
func (s *Source) Tables() ([]string, error) {
	var names []string
	err := s.db.Raw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name").
		Scan(&names).Error
	if err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Context("operation", "list_tables").
			Build()
	}
	if len(names) == 0 {
		return nil, errors.Newf("no tables found in %s", s.Path).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Build()
	}

	s.tables = make(map[string]bool, len(names))
	for _, name := range names {
		s.tables[name] = true
	}
	return names, nil
}

// TableInfo returns the column definitions and row count of a named table.
func (s *Source) TableInfo(name string) (*TableInfo, error) {
	if err := s.validateTableName(name); err != nil {
		return nil, err
	}

	var rows []struct {
		Name    string `gorm:"column:name"`
		Type    string `gorm:"column:type"`
		NotNull int    `gorm:"column:notnull"`
		PK      int    `gorm:"column:pk"`
	}
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(name))
	if err := s.db.Raw(query).Scan(&rows).Error; err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Context("table", name).
			Context("operation", "table_info").
			Build()
	}
	if len(rows) == 0 {
		return nil, errors.Newf("table %s has no columns", name).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Context("table", name).
			Build()
	}

	info := &TableInfo{Name: name, Columns: make([]Column, 0, len(rows))}
	for _, row := range rows {
		info.Columns = append(info.Columns, Column{
			Name:         row.Name,
			DeclaredType: row.Type,
			Nullable:     row.NotNull == 0,
			IsPrimaryKey: row.PK > 0,
		})
	}

	count, err := s.RowCount(name)
	if err != nil {
		return nil, err
	}
	info.RowCount = count

	return info, nil
}

// RowCount returns the number of rows in a named table.
func (s *Source) RowCount(name string) (int64, error) {
	if err := s.validateTableName(name); err != nil {
		return 0, err
	}

	var count int64
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(name))
	if err := s.db.Raw(query).Scan(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Context("table", name).
			Context("operation", "row_count").
			Build()
	}
	return count, nil
}

// FetchPage returns up to limit rows of a named table starting at offset.
func (s *Source) FetchPage(name string, offset, limit int) ([]Record, error) {
	if err := s.validateTableName(name); err != nil {
		return nil, err
	}

	var rows []map[string]any
	err := s.db.Table(quoteIdentifier(name)).
		Limit(limit).
		Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, errors.New(err).
			Component("legacy").
			Category(errors.CategoryLegacySource).
			Context("table", name).
			Context("offset", offset).
			Context("limit", limit).
			Build()
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}
	return records, nil
}

// validateTableName checks a name against the introspected table list so a
// caller-supplied name is never interpolated blindly.
func (s *Source) validateTableName(name string) error {
	if s.tables == nil {
		if _, err := s.Tables(); err != nil {
			return err
		}
	}
	if !s.tables[name] {
		return errors.Newf("unknown table: %s", name).
			Component("legacy").
			Category(errors.CategoryNotFound).
			Context("table", name).
			Build()
	}
	return nil
}

// quoteIdentifier quotes a SQLite identifier, doubling any embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
