// status.go step state machine for the migration run
package migration

// StepID names one step of the migration pipeline, in execution order.
type StepID string

const (
	StepInit       StepID = "init"
	StepCategories StepID = "categories"
	StepBooks      StepID = "books"
	StepStudents   StepID = "students"
	StepBorrowings StepID = "borrowings"
	StepReconcile  StepID = "book-status-reconciliation"
	StepFines      StepID = "generate-fines"
	StepFinalize   StepID = "finalize"
)

// stepOrder is the fixed execution order of the pipeline.
var stepOrder = []StepID{
	StepInit,
	StepCategories,
	StepBooks,
	StepStudents,
	StepBorrowings,
	StepReconcile,
	StepFines,
	StepFinalize,
}

// StepState is the sub-state of one step.
type StepState string

const (
	StatePending    StepState = "pending"
	StateInProgress StepState = "in_progress"
	StateCompleted  StepState = "completed"
	StateError      StepState = "error"
)

// StepStatus tracks the progress of one pipeline step.
type StepStatus struct {
	ID       StepID    `json:"id"`
	State    StepState `json:"state"`
	Progress int       `json:"progress"`
	Total    int       `json:"total"`
	Message  string    `json:"message,omitempty"`
}

// RunStatus tracks the state of every step in one migration run.
type RunStatus struct {
	steps []*StepStatus
	byID  map[StepID]*StepStatus
}

// newRunStatus creates a RunStatus with every step pending.
func newRunStatus() *RunStatus {
	rs := &RunStatus{byID: make(map[StepID]*StepStatus, len(stepOrder))}
	for _, id := range stepOrder {
		status := &StepStatus{ID: id, State: StatePending}
		rs.steps = append(rs.steps, status)
		rs.byID[id] = status
	}
	return rs
}

// Steps returns the per-step statuses in execution order.
func (rs *RunStatus) Steps() []StepStatus {
	out := make([]StepStatus, len(rs.steps))
	for i, s := range rs.steps {
		out[i] = *s
	}
	return out
}

// Step returns a copy of one step's status.
func (rs *RunStatus) Step(id StepID) StepStatus {
	return *rs.byID[id]
}

// canStart reports whether a step may transition to in_progress: its
// predecessor must have reached a terminal state. A predecessor error does
// not block the step, since sibling steps are independent; the error is
// still surfaced in the final report.
func (rs *RunStatus) canStart(id StepID) bool {
	for i, stepID := range stepOrder {
		if stepID != id {
			continue
		}
		if i == 0 {
			return true
		}
		prev := rs.byID[stepOrder[i-1]]
		return prev.State == StateCompleted || prev.State == StateError
	}
	return false
}

// start marks a step in_progress.
func (rs *RunStatus) start(id StepID) {
	step := rs.byID[id]
	step.State = StateInProgress
}

// setProgress updates a step's progress counters.
func (rs *RunStatus) setProgress(id StepID, done, total int) {
	step := rs.byID[id]
	step.Progress = done
	step.Total = total
}

// complete marks a step completed, with an optional message.
func (rs *RunStatus) complete(id StepID, message string) {
	step := rs.byID[id]
	step.State = StateCompleted
	step.Message = message
	if step.Total == 0 {
		step.Total = step.Progress
	}
}

// fail marks a step errored with a message. Subsequent steps still run.
func (rs *RunStatus) fail(id StepID, message string) {
	step := rs.byID[id]
	step.State = StateError
	step.Message = message
}

// HasErrors reports whether any step ended in the error state.
func (rs *RunStatus) HasErrors() bool {
	for _, step := range rs.steps {
		if step.State == StateError {
			return true
		}
	}
	return false
}

// OverallProgress returns the aggregate progress of the run as a fraction
// in [0, 1]: the sum of per-step progress over the sum of per-step totals,
// recomputed on every call.
func (rs *RunStatus) OverallProgress() float64 {
	done, total := 0, 0
	for _, step := range rs.steps {
		done += step.Progress
		total += step.Total
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
