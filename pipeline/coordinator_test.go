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
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezewudo/SNPpipe/conf"
	"github.com/mezewudo/SNPpipe/workspace"
)

// spyRunner records every external tool invocation instead of spawning
// processes, and fails the tools listed in fail.
type spyRunner struct {
	calls []string
	fail  map[string]error
}

func (r *spyRunner) record(name string) error {
	r.calls = append(r.calls, name)
	if err, ok := r.fail[name]; ok {
		return err
	}
	return nil
}

func (r *spyRunner) Run(ctx context.Context, name string, args ...string) error {
	return r.record(name)
}

func (r *spyRunner) RunTo(ctx context.Context, outfile, name string, args ...string) error {
	return r.record(name)
}

// blockingRunner blocks until the stage context is done.
type blockingRunner struct{}

func (blockingRunner) Run(ctx context.Context, name string, args ...string) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingRunner) RunTo(ctx context.Context, outfile, name string, args ...string) error {
	<-ctx.Done()
	return ctx.Err()
}

func testPlan(t *testing.T, mutate func(cfg *conf.RunConfig)) (*Plan, *workspace.Workspace) {
	t.Helper()
	cfg := &conf.RunConfig{
		Fastq:      "a.fastq",
		Reference:  "ref.fasta",
		SampleName: "s1",
		Threads:    2,
		KrakenDB:   "/data/kraken",
	}
	if mutate != nil {
		mutate(cfg)
	}
	plan, err := Derive(cfg)
	require.NoError(t, err)
	ws, err := workspace.Prepare(filepath.Join(t.TempDir(), plan.OutDir))
	require.NoError(t, err)
	return plan, ws
}

func outcome(t *testing.T, s *Summary, id string) StageOutcome {
	t.Helper()
	r, ok := s.Result(id)
	require.True(t, ok, "no result for stage %v", id)
	return r.Outcome
}

func TestCoordinatorSuccess(t *testing.T) {
	plan, ws := testPlan(t, nil)
	runner := &spyRunner{}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	assert.Equal(t, Success, summary.Status)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, StageOK, outcome(t, summary, "screening"))
	assert.Equal(t, StageOK, outcome(t, summary, "aligning"))
	assert.Equal(t, StageOK, outcome(t, summary, "calling.samtools"))
	assert.Equal(t, StageSkipped, outcome(t, summary, "annotating"))
	assert.Equal(t, StageOK, outcome(t, summary, "typing"))
	assert.Equal(t, StageOK, outcome(t, summary, "summarizing"))
	assert.Equal(t, StageOK, outcome(t, summary, "cleanup"))

	assert.Equal(t, []string{
		"kraken", "prinseq-lite.pl", // screening
		"bwa", "samtools", "samtools", // aligning
		"bcftools", "bcftools", // calling.samtools
		"fast-lineage-caller",  // typing
		"samtools", "samtools", // summarizing
	}, runner.calls)
}

func TestCoordinatorCallerFailureIsPartial(t *testing.T) {
	plan, ws := testPlan(t, func(cfg *conf.RunConfig) {
		cfg.RequestedCallers = []string{"samtools", "gatk"}
	})
	runner := &spyRunner{fail: map[string]error{"bcftools": errors.New("boom")}}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	// One caller failing must not abort its sibling nor the stages that
	// only depend on the alignment.
	assert.Equal(t, Partial, summary.Status)
	assert.Equal(t, StageFailed, outcome(t, summary, "calling.samtools"))
	assert.Equal(t, StageOK, outcome(t, summary, "calling.gatk"))
	assert.Equal(t, StageOK, outcome(t, summary, "typing"))
	assert.Equal(t, StageOK, outcome(t, summary, "summarizing"))
	assert.Equal(t, StageOK, outcome(t, summary, "cleanup"))

	r, ok := summary.Result("calling.samtools")
	require.True(t, ok)
	var failure *StageFailure
	require.ErrorAs(t, r.Err, &failure)
	assert.Equal(t, "calling.samtools", failure.Stage)
}

func TestCoordinatorOnlyCallerFailureIsPartial(t *testing.T) {
	plan, ws := testPlan(t, nil)
	runner := &spyRunner{fail: map[string]error{"bcftools": errors.New("boom")}}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	assert.Equal(t, Partial, summary.Status)
	assert.Equal(t, StageSkipped, outcome(t, summary, "typing"))
	assert.Equal(t, StageOK, outcome(t, summary, "summarizing"))
}

func TestCoordinatorAlignmentFailureAborts(t *testing.T) {
	plan, ws := testPlan(t, nil)
	runner := &spyRunner{fail: map[string]error{"bwa": errors.New("boom")}}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	assert.Equal(t, Aborted, summary.Status)
	assert.Equal(t, StageFailed, outcome(t, summary, "aligning"))
	assert.Equal(t, StageSkipped, outcome(t, summary, "calling.samtools"))
	assert.Equal(t, StageSkipped, outcome(t, summary, "typing"))
	assert.Equal(t, StageSkipped, outcome(t, summary, "summarizing"))
	assert.Equal(t, StageOK, outcome(t, summary, "cleanup"))
	assert.NotContains(t, runner.calls, "bcftools")
}

func TestCoordinatorScreeningFailureAborts(t *testing.T) {
	plan, ws := testPlan(t, nil)
	runner := &spyRunner{fail: map[string]error{"kraken": errors.New("boom")}}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	assert.Equal(t, Aborted, summary.Status)
	assert.Equal(t, []string{"kraken"}, runner.calls)
}

func TestCoordinatorAnnotate(t *testing.T) {
	plan, ws := testPlan(t, func(cfg *conf.RunConfig) {
		cfg.Annotate = true
	})
	runner := &spyRunner{}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	assert.Equal(t, Success, summary.Status)
	assert.Equal(t, StageOK, outcome(t, summary, "annotating"))
	assert.Contains(t, runner.calls, "snpEff")
}

func TestCoordinatorKeepFilesSkipsCleanup(t *testing.T) {
	plan, ws := testPlan(t, func(cfg *conf.RunConfig) {
		cfg.KeepFiles = true
	})
	runner := &spyRunner{}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())

	assert.Equal(t, Success, summary.Status)
	assert.Equal(t, StageSkipped, outcome(t, summary, "cleanup"))
}

func TestCoordinatorStageTimeout(t *testing.T) {
	plan, ws := testPlan(t, func(cfg *conf.RunConfig) {
		cfg.StageTimeout = time.Millisecond
	})
	summary := NewCoordinator(plan, ws, blockingRunner{}).Run(context.Background())

	assert.Equal(t, Aborted, summary.Status)
	assert.Equal(t, StageFailed, outcome(t, summary, "screening"))
	assert.Equal(t, StageOK, outcome(t, summary, "cleanup"))
}

func TestCoordinatorPairedStages(t *testing.T) {
	plan, ws := testPlan(t, func(cfg *conf.RunConfig) {
		cfg.Fastq2 = "b.fastq"
	})
	require.True(t, plan.Paired)
	runner := &spyRunner{}
	summary := NewCoordinator(plan, ws, runner).Run(context.Background())
	assert.Equal(t, Success, summary.Status)
	// two trimmed read files, the sam, and the mpileup intermediate
	assert.Len(t, ws.Intermediates(), 4)
}
