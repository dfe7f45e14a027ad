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
	"log"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes external pipeline tools. Stages never spawn processes
// themselves; the coordinator hands them a Runner.
type Runner interface {
	// Run executes a tool and waits for it to finish.
	Run(ctx context.Context, name string, args ...string) error
	// RunTo executes a tool with its standard output redirected to
	// outfile.
	RunTo(ctx context.Context, outfile, name string, args ...string) error
}

// ExecRunner runs tools with os/exec, forwarding their standard error to
// the process log.
type ExecRunner struct {
	Verbose bool
}

func (r ExecRunner) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	if r.Verbose {
		log.Println("Executing command:", name, strings.Join(args, " "))
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = os.Stderr
	return cmd
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	return r.command(ctx, name, args...).Run()
}

// RunTo implements Runner.
func (r ExecRunner) RunTo(ctx context.Context, outfile, name string, args ...string) error {
	f, err := os.Create(outfile)
	if err != nil {
		return errors.Wrapf(err, "cannot create output file for %v", name)
	}
	cmd := r.command(ctx, name, args...)
	cmd.Stdout = f
	err = cmd.Run()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// The partial output is never registered, so remove it here
		// rather than leaving it for a cleanup that cannot see it.
		_ = os.Remove(outfile)
	}
	return err
}
