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
	"fmt"
	"strings"

	"github.com/mezewudo/SNPpipe/conf"
)

// SelectionError reports an ambiguous tool selection on the command line.
type SelectionError struct {
	Axis      string
	Requested []string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("ambiguous %v selection: requested %v", e.Axis, strings.Join(e.Requested, ", "))
}

// Derive resolves the aligner, the caller set, paired-end mode, and the
// output directory into an unambiguous execution plan. The resolution
// rules are deterministic and the axes independent:
//
// Requesting more than one aligner is fatal; requesting none selects the
// default. --all selects every known caller regardless of individual
// caller flags; no caller flags selects the default caller; any other
// combination selects exactly the flagged subset. Paired-end mode holds
// iff a second read file was supplied. The output directory defaults to
// the sample name, relative to the invocation directory.
func Derive(cfg *conf.RunConfig) (*Plan, error) {
	if len(cfg.RequestedAligners) > 1 {
		return nil, &SelectionError{Axis: "aligner", Requested: cfg.RequestedAligners}
	}
	aligner := BWA
	if len(cfg.RequestedAligners) == 1 {
		aligner = Aligner(cfg.RequestedAligners[0])
	}

	var callers CallerSet
	switch {
	case cfg.AllCallers:
		callers = AllCallers()
	case len(cfg.RequestedCallers) > 0:
		callers = NewCallerSet()
		for _, c := range cfg.RequestedCallers {
			callers.Add(Caller(c))
		}
	default:
		callers = NewCallerSet(DefaultCaller)
	}
	if callers.Empty() {
		return nil, &SelectionError{Axis: "caller", Requested: cfg.RequestedCallers}
	}

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = cfg.SampleName
	}

	return &Plan{
		Config:  *cfg,
		Aligner: aligner,
		Callers: callers,
		Paired:  cfg.Fastq2 != "",
		OutDir:  outDir,
	}, nil
}
