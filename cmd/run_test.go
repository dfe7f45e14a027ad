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

package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

const testConfig = "directories:\n  krakendb: /data/kraken\nother:\n  threads: 2\n"

// runArgs builds a complete command line against files in dir, creating
// the inputs that exist controls.
func runArgs(t *testing.T, dir string, inputsExist bool) []string {
	t.Helper()
	config := writeFile(t, dir, "snppipe.yml", testConfig)
	reads := filepath.Join(dir, "a.fastq")
	reference := filepath.Join(dir, "ref.fasta")
	if inputsExist {
		writeFile(t, dir, "a.fastq", "@r1\nACGT\n+\nFFFF\n")
		writeFile(t, dir, "ref.fasta", ">chr\nACGT\n")
	}
	return []string{
		"--config", config,
		"--fastq", reads,
		"--reference", reference,
		"--name", "s1",
		"--outdir", filepath.Join(dir, "s1"),
	}
}

func TestRunValidationFailureSpawnsNothing(t *testing.T) {
	runner := &spyRunner{}
	code := run(runArgs(t, t.TempDir(), false), runner)
	assert.Equal(t, ExitInvalidInput, code)
	assert.Empty(t, runner.calls)
}

func TestRunSuccessExitCode(t *testing.T) {
	dir := t.TempDir()
	runner := &spyRunner{}
	code := run(runArgs(t, dir, true), runner)
	assert.Equal(t, ExitSuccess, code)
	assert.NotEmpty(t, runner.calls)
	assert.FileExists(t, filepath.Join(dir, "s1", "s1.summary.txt"))
}

func TestRunAbortedExitCode(t *testing.T) {
	runner := &spyRunner{fail: map[string]error{"bwa": errors.New("boom")}}
	code := run(runArgs(t, t.TempDir(), true), runner)
	assert.Equal(t, ExitAborted, code)
}

func TestRunPartialExitCode(t *testing.T) {
	runner := &spyRunner{fail: map[string]error{"bcftools": errors.New("boom")}}
	code := run(runArgs(t, t.TempDir(), true), runner)
	assert.Equal(t, ExitPartial, code)
}

func TestRunMissingNameIsUsageError(t *testing.T) {
	dir := t.TempDir()
	config := writeFile(t, dir, "snppipe.yml", testConfig)
	runner := &spyRunner{}
	code := run([]string{"--config", config, "--fastq", "a.fastq", "--reference", "ref.fasta"}, runner)
	assert.Equal(t, ExitUsage, code)
	assert.Empty(t, runner.calls)
}

func TestRunMissingConfigIsUsageError(t *testing.T) {
	dir := t.TempDir()
	args := runArgs(t, dir, true)
	args[1] = filepath.Join(dir, "nope.yml")
	runner := &spyRunner{}
	code := run(args, runner)
	assert.Equal(t, ExitUsage, code)
	assert.Empty(t, runner.calls)
}

func TestRunUnknownFlagIsUsageError(t *testing.T) {
	runner := &spyRunner{}
	assert.Equal(t, ExitUsage, run([]string{"--no-such-flag"}, runner))
	assert.Empty(t, runner.calls)
}

func TestRunVersion(t *testing.T) {
	runner := &spyRunner{}
	assert.Equal(t, ExitSuccess, run([]string{"--version"}, runner))
	assert.Empty(t, runner.calls)
}
