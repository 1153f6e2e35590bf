// orchestrator.go sequences the import steps and aggregates progress
package migration

import (
	"strings"
	"time"

	"github.com/kitabu/kitabu-go/internal/conf"
	"github.com/kitabu/kitabu-go/internal/datastore"
	"github.com/kitabu/kitabu-go/internal/errors"
	"github.com/kitabu/kitabu-go/internal/legacy"
	"github.com/kitabu/kitabu-go/internal/observability"
)

// ProgressCallback receives per-batch progress for a step. It is invoked
// synchronously on the pipeline goroutine; callers must not block in it.
type ProgressCallback func(step StepID, done, total int)

// Config wires an Engine. Store must be open; Metrics and OnProgress are
// optional.
type Config struct {
	Settings   *conf.Settings
	Store      datastore.Interface
	Metrics    *observability.Metrics
	OnProgress ProgressCallback
}

// Engine drives a full migration run: schema detection, the entity import
// steps, book availability reconciliation and fine derivation. The whole
// pipeline is deliberately single-threaded; concurrent inserts would race
// the dedupe checks that make re-runs idempotent.
type Engine struct {
	settings   *conf.Settings
	store      datastore.Interface
	resolver   *Resolver
	metrics    *observability.Metrics
	onProgress ProgressCallback

	source *legacy.Source
	status *RunStatus
	stats  *Stats
}

// New creates an Engine for one or more runs against the same target store.
func New(cfg Config) *Engine {
	return &Engine{
		settings:   cfg.Settings,
		store:      cfg.Store,
		resolver:   NewResolver(cfg.Store),
		metrics:    cfg.Metrics,
		onProgress: cfg.OnProgress,
	}
}

// Status returns the step statuses of the current or last run.
func (e *Engine) Status() *RunStatus {
	return e.status
}

// historicalTokens mark a borrowings table as holding returned loans.
var historicalTokens = []string{"return", "history", "hist", "archive", "old", "past"}

func isHistoricalTable(name string) bool {
	lowered := strings.ToLower(name)
	for _, token := range historicalTokens {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}

// Run executes the full pipeline against an opened source. Fatal
// precondition failures abort before any step starts; step-level errors are
// recorded on the step and sibling steps still run. The returned Stats is
// complete even on partial failure.
func (e *Engine) Run(src *legacy.Source) (*Stats, error) {
	e.source = src
	e.status = newRunStatus()
	e.stats = &Stats{}
	log := getLogger()

	if e.settings.Migration.ConflictStrategy != conf.ConflictSkip {
		log.Warn("conflict strategy not implemented, using skip semantics",
			"strategy", e.settings.Migration.ConflictStrategy)
	}

	// init: probe the source and check fatal preconditions.
	e.status.start(StepInit)
	detections, err := DetectTables(src)
	if err != nil {
		e.status.fail(StepInit, err.Error())
		e.countRun("error")
		return e.stats, fatalError(err, "schema detection failed")
	}

	if len(detections) == 0 {
		err := errors.NewStd("source database contains no tables")
		e.status.fail(StepInit, err.Error())
		e.countRun("error")
		return e.stats, fatalError(err, "schema detection failed")
	}

	plan := e.planRun(detections)
	if err := e.checkRequiredTables(plan); err != nil {
		e.status.fail(StepInit, err.Error())
		e.countRun("error")
		return e.stats, err
	}
	e.status.complete(StepInit, "")

	e.runStep(StepCategories, "categories", plan.categories != nil, func(onProgress ProgressFunc) error {
		result, err := e.importCategories(plan.categories, onProgress)
		if result != nil {
			e.stats.Categories.applyBatch(result)
			e.observeBatch("categories", result)
		}
		return err
	})

	e.runStep(StepBooks, "books", plan.books != nil, func(onProgress ProgressFunc) error {
		result, err := e.importBooks(plan.books, onProgress)
		if result != nil {
			e.stats.Books.applyBatch(result)
			e.observeBatch("books", result)
		}
		return err
	})

	e.runStep(StepStudents, "students", plan.students != nil, func(onProgress ProgressFunc) error {
		result, err := e.importStudents(plan.students, onProgress)
		if result != nil {
			e.stats.Students.applyBatch(result)
			e.observeBatch("students", result)
		}
		return err
	})

	e.runStep(StepBorrowings, "borrowings", plan.activeBorrowings != nil || plan.historicalBorrowings != nil, func(onProgress ProgressFunc) error {
		return e.runBorrowings(plan, onProgress)
	})

	e.runStep(StepReconcile, "books", true, func(onProgress ProgressFunc) error {
		return e.reconcileBookStatus(onProgress)
	})

	e.runStep(StepFines, "fines", e.entityEnabled("fines"), func(onProgress ProgressFunc) error {
		created, err := e.generateFines(onProgress)
		e.stats.Fines.Imported += created
		if err != nil {
			e.stats.Fines.Errors++
		}
		if e.metrics != nil {
			e.metrics.Migration.IncRecords("fines", "imported", created)
		}
		return err
	})

	// finalize
	e.status.start(StepFinalize)
	e.stats.Errors = e.stats.TotalErrors()
	e.status.complete(StepFinalize, "")

	state := "completed"
	if e.status.HasErrors() {
		state = "completed_with_errors"
	}
	e.countRun(state)
	log.Info("migration run finished",
		"state", state,
		"categories", e.stats.Categories.Imported,
		"books", e.stats.Books.Imported,
		"students", e.stats.Students.Imported,
		"borrowings_active", e.stats.Borrowings.Active,
		"borrowings_historical", e.stats.Borrowings.Historical,
		"fines", e.stats.Fines.Imported,
		"errors", e.stats.Errors)

	return e.stats, nil
}

// runPlan holds the source tables selected for each entity import.
type runPlan struct {
	categories           *TableDetection
	books                *TableDetection
	students             *TableDetection
	activeBorrowings     *TableDetection
	historicalBorrowings *TableDetection
}

// planRun selects the best detected table per entity. For borrowings, a
// table whose name carries a historical token becomes the returned-loans
// source; the best remaining one is the active source.
func (e *Engine) planRun(detections []TableDetection) *runPlan {
	plan := &runPlan{}
	log := getLogger()

	for i := range detections {
		det := &detections[i]
		if det.Status == StatusUnmapped {
			log.Warn("table not recognized, manual migration required",
				"table", det.SourceTable)
			continue
		}
		log.Info("detected source table",
			"table", det.SourceTable,
			"entity", string(det.TargetEntity),
			"score", det.Score,
			"status", string(det.Status),
			"rows", det.RecordCount)

		switch det.TargetEntity {
		case RoleCategories:
			plan.categories = betterOf(plan.categories, det)
		case RoleBooks:
			plan.books = betterOf(plan.books, det)
		case RoleStudents:
			plan.students = betterOf(plan.students, det)
		case RoleBorrowings:
			if isHistoricalTable(det.SourceTable) {
				plan.historicalBorrowings = betterOf(plan.historicalBorrowings, det)
			} else {
				plan.activeBorrowings = betterOf(plan.activeBorrowings, det)
			}
		case RoleFines:
			// Legacy fine tables are ignored: fines are derived from
			// borrowing state, not copied from the source.
			log.Info("ignoring legacy fine table, fines are derived", "table", det.SourceTable)
		}
	}

	if !e.settings.Migration.ImportHistorical {
		plan.historicalBorrowings = nil
	}
	if !e.entityEnabled("categories") {
		plan.categories = nil
	}
	if !e.entityEnabled("books") {
		plan.books = nil
	}
	if !e.entityEnabled("students") {
		plan.students = nil
	}
	if !e.entityEnabled("borrowings") {
		plan.activeBorrowings = nil
		plan.historicalBorrowings = nil
	}
	return plan
}

func betterOf(current, candidate *TableDetection) *TableDetection {
	if current == nil || candidate.Score > current.Score {
		return candidate
	}
	return current
}

// checkRequiredTables enforces the fatal precondition that an enabled
// entity's detected source table must have rows.
func (e *Engine) checkRequiredTables(plan *runPlan) error {
	checks := []struct {
		det    *TableDetection
		entity string
	}{
		{plan.categories, "categories"},
		{plan.books, "books"},
		{plan.students, "students"},
		{plan.activeBorrowings, "borrowings"},
	}
	for _, check := range checks {
		if check.det != nil && check.det.RecordCount == 0 {
			return fatalError(
				errNoRows(check.det.SourceTable),
				"empty required table for enabled entity "+check.entity)
		}
	}
	return nil
}

// runStep executes one pipeline step with status bookkeeping. A step whose
// predecessor has not reached a terminal state stays pending; a disabled or
// sourceless step completes immediately with a message.
func (e *Engine) runStep(id StepID, entity string, runnable bool, fn func(onProgress ProgressFunc) error) {
	if !e.status.canStart(id) {
		e.status.fail(id, "predecessor did not finish")
		return
	}
	if !e.entityEnabled(entity) {
		e.status.complete(id, "skipped (disabled)")
		return
	}
	if !runnable {
		e.status.complete(id, "skipped (no source table)")
		return
	}

	e.status.start(id)
	started := time.Now()

	onProgress := func(done, total int) {
		e.status.setProgress(id, done, total)
		if e.metrics != nil {
			e.metrics.Migration.SetOverallProgress(e.status.OverallProgress())
		}
		if e.onProgress != nil {
			e.onProgress(id, done, total)
		}
	}

	err := fn(onProgress)

	if e.metrics != nil {
		e.metrics.Migration.ObserveStepDuration(string(id), time.Since(started).Seconds())
	}

	if err != nil {
		// Step-level failure: recorded, sibling steps still run.
		e.status.fail(id, err.Error())
		getLogger().Error("migration step failed",
			"step", string(id),
			"error", stepError(err, id, "entity", entity))
		return
	}
	e.status.complete(id, "")
}

// runBorrowings imports the active table and, when configured, the
// historical table, folding both results into the borrowing stats.
func (e *Engine) runBorrowings(plan *runPlan, onProgress ProgressFunc) error {
	activeTotal, historicalTotal := 0, 0
	if plan.activeBorrowings != nil {
		activeTotal = int(plan.activeBorrowings.RecordCount)
	}
	if plan.historicalBorrowings != nil {
		historicalTotal = int(plan.historicalBorrowings.RecordCount)
	}
	combinedTotal := activeTotal + historicalTotal

	if plan.activeBorrowings != nil {
		result, err := e.importBorrowings(plan.activeBorrowings, false, func(done, _ int) {
			onProgress(done, combinedTotal)
		})
		if result != nil {
			e.stats.Borrowings.applyBatch(result)
			e.stats.Borrowings.Active += result.Imported
			e.collectFailedMappings(result)
			e.observeBatch("borrowings", result)
		}
		if err != nil {
			return err
		}
	}

	if plan.historicalBorrowings != nil {
		result, err := e.importBorrowings(plan.historicalBorrowings, true, func(done, _ int) {
			onProgress(activeTotal+done, combinedTotal)
		})
		if result != nil {
			e.stats.Borrowings.applyBatch(result)
			e.stats.Borrowings.Historical += result.Imported
			e.collectFailedMappings(result)
			e.observeBatch("borrowings", result)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// collectFailedMappings sorts borrowing skip records into the final
// report's per-entity failure lists.
func (e *Engine) collectFailedMappings(result *BatchResult) {
	for _, failure := range result.Failures {
		switch failure.Reason {
		case ReasonStudentNotFound:
			e.stats.FailedMappings.Students = append(e.stats.FailedMappings.Students, failure)
		case ReasonBookNotFound, ReasonCopyNotFound:
			e.stats.FailedMappings.Books = append(e.stats.FailedMappings.Books, failure)
		}
	}
}

// reconcileBookStatus recomputes every book's copy counters from the copies
// actually on record, correcting drift introduced by the import order.
func (e *Engine) reconcileBookStatus(onProgress ProgressFunc) error {
	books, err := e.store.AllBooks()
	if err != nil {
		return err
	}

	for i := range books {
		copies, err := e.store.CopiesByBookID(books[i].ID)
		if err != nil {
			return err
		}
		available := 0
		for j := range copies {
			if copies[j].Status == datastore.CopyStatusAvailable {
				available++
			}
		}
		if err := e.store.UpdateBookCounts(books[i].ID, len(copies), available); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(i+1, len(books))
		}
	}
	return nil
}

func (e *Engine) entityEnabled(entity string) bool {
	enabled, declared := e.settings.Migration.Entities[entity]
	if !declared {
		// Entities absent from the config default to enabled.
		return true
	}
	return enabled
}

func (e *Engine) observeBatch(entity string, result *BatchResult) {
	if e.metrics == nil {
		return
	}
	e.metrics.Migration.IncRecords(entity, "imported", result.Imported)
	e.metrics.Migration.IncRecords(entity, "duplicate", result.Duplicates)
	e.metrics.Migration.IncRecords(entity, "skipped", result.Skipped)
	e.metrics.Migration.IncRecords(entity, "error", result.Errors)
}

func (e *Engine) countRun(state string) {
	if e.metrics == nil {
		return
	}
	e.metrics.Migration.IncRuns(state)
}

func errNoRows(table string) error {
	return errors.NewStd("required table is empty: " + table)
}
