package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/mauv0809/etf-flows/internal/models"
	"github.com/mauv0809/etf-flows/internal/synchronizer"
)

// State is a step of a run.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateExtracting State = "extracting"
	StateEnriching  State = "enriching"
	StatePersisting State = "persisting"
	StateNotifying  State = "notifying"
	StateDone       State = "done"
	StateDoneEmpty  State = "done-empty"
	StateFailed     State = "failed"
)

// Outcome is the terminal classification of a run.
type Outcome string

const (
	OutcomeDone   Outcome = "done"
	OutcomeEmpty  Outcome = "done-empty"
	OutcomeFailed Outcome = "failed"
)

// StageError records the state a run failed in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Report is the terminal summary of one run.
type Report struct {
	RunID       string                `json:"run_id"`
	ETF         string                `json:"etf"`
	Trigger     string                `json:"trigger"`
	Outcome     Outcome               `json:"outcome"`
	FailedStage State                 `json:"failed_stage,omitempty"`
	Error       string                `json:"error,omitempty"`
	Tickers     []string              `json:"tickers,omitempty"`
	Results     []synchronizer.Result `json:"results"`
	Latest      *models.DayRecord     `json:"latest,omitempty"`
	StartedAt   time.Time             `json:"started_at"`
	FinishedAt  time.Time             `json:"finished_at"`

	err error
}

// Err returns the failure of the run, nil unless the outcome is failed.
func (r *Report) Err() error { return r.err }

// Duration is the wall-clock time the run took.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

func (r *Report) fail(stage State, err error) {
	se := &StageError{Stage: stage, Err: err}
	r.Outcome = OutcomeFailed
	r.FailedStage = stage
	r.Error = se.Error()
	r.err = se
}

// FailedAt reports whether err is a StageError raised in stage.
func FailedAt(err error, stage State) bool {
	var se *StageError
	return errors.As(err, &se) && se.Stage == stage
}
