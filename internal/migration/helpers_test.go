// helpers_test.go shared fixtures for the migration tests
package migration

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/kitabu/kitabu-go/internal/conf"
	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/legacy"
)

// testSettings returns a settings instance with the stock migration defaults
// and an in-memory SQLite target.
func testSettings() *conf.Settings {
	return &conf.Settings{
		Migration: conf.MigrationSettings{
			BatchSize:        25,
			ImportHistorical: true,
			ConflictStrategy: conf.ConflictSkip,
			Entities: map[string]bool{
				"categories": true,
				"books":      true,
				"students":   true,
				"borrowings": true,
				"fines":      true,
			},
			DefaultClass: "other",
			Fines: conf.FineSettings{
				DailyRate:      10.0,
				LostBookAmount: 500.0,
				LoanPeriodDays: 14,
			},
		},
		Output: conf.OutputSettings{
			SQLite: conf.SQLiteSettings{Enabled: true, Path: ":memory:"},
		},
	}
}

// setupTargetStore opens an in-memory target store.
func setupTargetStore(t *testing.T, settings *conf.Settings) datastore.Interface {
	t.Helper()

	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// createLegacySource writes a legacy database file from raw SQL statements
// and opens it read-only.
func createLegacySource(t *testing.T, statements []string) *legacy.Source {
	t.Helper()

	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	src, err := legacy.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}
