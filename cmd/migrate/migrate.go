// Package migrate implements the migration run command.
package migrate

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kitabu/kitabu-go/internal/conf"
	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/errors"
	"github.com/kitabu/kitabu-go/internal/legacy"
	"github.com/kitabu/kitabu-go/internal/logging"
	"github.com/kitabu/kitabu-go/internal/migration"
	"github.com/kitabu/kitabu-go/internal/observability"
)

// Command creates a new migrate command for running a full migration.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [legacy.db]",
		Short: "Migrate a legacy database into the library store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration(settings, args[0])
		},
	}

	// Set up flags specific to the 'migrate' command
	cmd.Flags().IntVar(&settings.Migration.BatchSize, "batch-size", settings.Migration.BatchSize, "Records per import batch")
	cmd.Flags().BoolVar(&settings.Migration.ImportHistorical, "historical", settings.Migration.ImportHistorical, "Import returned/historical borrowings")

	return cmd
}

func runMigration(settings *conf.Settings, sourcePath string) error {
	if settings.Main.Log.Enabled {
		level := slog.Leveler(slog.LevelInfo)
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLogger, err := logging.NewFileLogger(settings.Main.Log.Path, "migration", level)
		if err != nil {
			logging.Warn("file logging disabled", "path", settings.Main.Log.Path, "error", err)
		} else {
			migration.SetLogger(fileLogger)
			defer func() { _ = closeLogger() }()
		}
	}

	store := datastore.New(settings)
	if store == nil {
		return errors.Newf("no target store enabled in configuration").
			Component("cmd").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	src, err := legacy.Open(sourcePath)
	if err != nil {
		return err
	}
	defer src.Close()

	metrics, err := observability.NewMetrics()
	if err != nil {
		return err
	}

	engine := migration.New(migration.Config{
		Settings: settings,
		Store:    store,
		Metrics:  metrics,
		OnProgress: func(step migration.StepID, done, total int) {
			fmt.Printf("\r%-28s %d/%d", step, done, total)
			if done >= total {
				fmt.Println()
			}
		},
	})

	stats, err := engine.Run(src)
	printReport(stats, engine.Status())
	if err != nil {
		return err
	}
	if engine.Status().HasErrors() {
		return errors.Newf("migration finished with step errors").
			Component("cmd").
			Category(errors.CategoryImport).
			Build()
	}
	return nil
}

func printReport(stats *migration.Stats, status *migration.RunStatus) {
	if stats == nil {
		return
	}

	fmt.Println("\nMigration report")
	fmt.Printf("  categories: %d imported, %d duplicates, %d errors\n",
		stats.Categories.Imported, stats.Categories.Duplicates, stats.Categories.Errors)
	fmt.Printf("  books:      %d imported, %d duplicates, %d errors\n",
		stats.Books.Imported, stats.Books.Duplicates, stats.Books.Errors)
	fmt.Printf("  students:   %d imported, %d duplicates, %d errors\n",
		stats.Students.Imported, stats.Students.Duplicates, stats.Students.Errors)
	fmt.Printf("  borrowings: %d active, %d historical, %d duplicates, %d errors\n",
		stats.Borrowings.Active, stats.Borrowings.Historical, stats.Borrowings.Duplicates, stats.Borrowings.Errors)
	fmt.Printf("  fines:      %d created\n", stats.Fines.Imported)

	if len(stats.FailedMappings.Students) > 0 {
		fmt.Printf("  unresolved students: %d\n", len(stats.FailedMappings.Students))
	}
	if len(stats.FailedMappings.Books) > 0 {
		fmt.Printf("  unresolved books: %d\n", len(stats.FailedMappings.Books))
	}

	if status != nil {
		for _, step := range status.Steps() {
			if step.State == migration.StateError {
				fmt.Printf("  step %s failed: %s\n", step.ID, step.Message)
			}
		}
	}
}
