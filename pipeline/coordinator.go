// SNPpipe: a variant calling and annotation pipeline for M. tuberculosis
// sequencing data.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see
// <https://github.com/mezewudo/SNPpipe/blob/master/LICENSE.txt>.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mezewudo/SNPpipe/workspace"
)

// RunState carries the file outputs stages hand to their successors.
// Stages communicate only through these workspace-registered paths.
type RunState struct {
	TrimmedReads  []string
	Alignment     string
	CallerOutputs map[Caller]string
}

// StageSpec is one ordered unit of orchestrated work. Stage order,
// mandatoriness and failure policy are data consumed by the coordinator
// loop rather than control flow scattered across call sites. A stage is
// executed at most once and never retried.
type StageSpec struct {
	ID string
	// Mandatory stages abort the remainder of the run on failure.
	Mandatory bool
	// Always marks stages that still run after an abort.
	Always bool
	// When gates conditional stages; nil means always.
	When func(*Plan, *RunState) bool
	Run  func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error
}

// StageFailure reports a failed pipeline stage.
type StageFailure struct {
	Stage string
	Err   error
}

func (e *StageFailure) Error() string {
	return fmt.Sprintf("stage %v: %v", e.Stage, e.Err)
}

func (e *StageFailure) Unwrap() error { return e.Err }

// Status is the overall outcome of a run.
type Status int

const (
	// Success means every executed stage succeeded.
	Success Status = iota
	// Partial means a non-mandatory or per-caller stage failed but the
	// run finished.
	Partial
	// Aborted means a mandatory stage failed and the remainder of the
	// run was skipped.
	Aborted
)

func (s Status) String() string {
	switch s {
	case Success:
		return "SUCCESS"
	case Partial:
		return "PARTIAL"
	case Aborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// StageOutcome is the recorded result of one stage.
type StageOutcome int

const (
	// StageOK means the stage ran and succeeded.
	StageOK StageOutcome = iota
	// StageFailed means the stage ran and failed.
	StageFailed
	// StageSkipped means the stage did not run.
	StageSkipped
)

func (o StageOutcome) String() string {
	switch o {
	case StageOK:
		return "ok"
	case StageFailed:
		return "failed"
	case StageSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StageResult records the outcome of one stage.
type StageResult struct {
	ID      string
	Outcome StageOutcome
	Err     error
}

// Summary is the final report for a run.
type Summary struct {
	RunID   string
	Status  Status
	Stages  []StageResult
	Started time.Time
	Elapsed time.Duration
}

func (s *Summary) record(id string, outcome StageOutcome, err error) {
	s.Stages = append(s.Stages, StageResult{ID: id, Outcome: outcome, Err: err})
}

// Result returns the recorded result for the given stage.
func (s *Summary) Result(id string) (StageResult, bool) {
	for _, r := range s.Stages {
		if r.ID == id {
			return r, true
		}
	}
	return StageResult{}, false
}

// Print writes the run summary to w.
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintln(w, "Run", s.RunID, "finished with status", s.Status)
	for _, r := range s.Stages {
		if r.Err != nil {
			fmt.Fprintf(w, "  %-20v %v (%v)\n", r.ID, r.Outcome, r.Err)
		} else {
			fmt.Fprintf(w, "  %-20v %v\n", r.ID, r.Outcome)
		}
	}
	fmt.Fprintln(w, "Elapsed time:", s.Elapsed)
}

// Coordinator executes the ordered stage list against a resolved plan.
// Execution is strictly sequential; later stages consume the file outputs
// of earlier ones.
type Coordinator struct {
	Plan      *Plan
	Workspace *workspace.Workspace
	Runner    Runner
	Stages    []StageSpec
}

// NewCoordinator builds a coordinator with the standard stage list for
// the given plan.
func NewCoordinator(plan *Plan, ws *workspace.Workspace, r Runner) *Coordinator {
	return &Coordinator{Plan: plan, Workspace: ws, Runner: r, Stages: BuildStages(plan)}
}

// Run executes the stages in order. Mandatory stage failures abort the
// remainder of the run; other failures are recorded and the run continues
// from the current position. Cleanup still runs after an abort.
func (c *Coordinator) Run(ctx context.Context) *Summary {
	summary := &Summary{RunID: uuid.New().String(), Started: time.Now()}
	st := &RunState{CallerOutputs: map[Caller]string{}}
	aborted := false
	failed := false
	for _, stage := range c.Stages {
		if aborted && !stage.Always {
			summary.record(stage.ID, StageSkipped, nil)
			continue
		}
		if stage.When != nil && !stage.When(c.Plan, st) {
			summary.record(stage.ID, StageSkipped, nil)
			continue
		}
		log.Println("Running stage:", stage.ID)
		if err := c.runStage(ctx, stage, st); err != nil {
			err = &StageFailure{Stage: stage.ID, Err: err}
			log.Println("Error:", err)
			summary.record(stage.ID, StageFailed, err)
			if stage.Mandatory {
				aborted = true
			} else {
				failed = true
			}
			continue
		}
		summary.record(stage.ID, StageOK, nil)
	}
	switch {
	case aborted:
		summary.Status = Aborted
	case failed:
		summary.Status = Partial
	default:
		summary.Status = Success
	}
	summary.Elapsed = time.Since(summary.Started)
	return summary
}

func (c *Coordinator) runStage(ctx context.Context, stage StageSpec, st *RunState) error {
	if timeout := c.Plan.Config.StageTimeout; timeout > 0 && !stage.Always {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return stage.Run(ctx, c.Plan, c.Workspace, c.Runner, st)
}
