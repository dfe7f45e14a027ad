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
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mezewudo/SNPpipe/workspace"
)

// BuildStages returns the ordered stage list for plan. The calling stage
// appears once per selected caller.
func BuildStages(plan *Plan) []StageSpec {
	stages := []StageSpec{screeningStage(), aligningStage()}
	for _, caller := range plan.Callers.Slice() {
		stages = append(stages, callingStage(caller))
	}
	return append(stages,
		annotatingStage(),
		typingStage(),
		summarizingStage(),
		cleanupStage(),
	)
}

// Screening classifies the raw reads against the kraken database and
// quality-trims them. The classification report is a final artifact; the
// trimmed reads are intermediates consumed by alignment.
func screeningStage() StageSpec {
	return StageSpec{
		ID:        "screening",
		Mandatory: true,
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			name := plan.Config.SampleName
			report := ws.Path(name + ".kraken.txt")
			args := []string{
				"--db", plan.Config.KrakenDB,
				"--threads", strconv.Itoa(plan.Config.Threads),
				"--output", report,
			}
			if plan.Paired {
				args = append(args, "--paired", plan.Config.Fastq, plan.Config.Fastq2)
			} else {
				args = append(args, plan.Config.Fastq)
			}
			if err := r.Run(ctx, "kraken", args...); err != nil {
				return errors.Wrap(err, "taxonomic classification failed")
			}
			if err := ws.Register("screening", report, true); err != nil {
				return err
			}

			goodPrefix := ws.Path(name + "_trimmed")
			trimArgs := []string{"-fastq", plan.Config.Fastq}
			if plan.Paired {
				trimArgs = append(trimArgs, "-fastq2", plan.Config.Fastq2)
			}
			trimArgs = append(trimArgs,
				"-out_good", goodPrefix,
				"-out_bad", "null",
				"-trim_qual_left", "20",
				"-trim_qual_right", "20",
				"-min_len", "40",
			)
			if err := r.Run(ctx, "prinseq-lite.pl", trimArgs...); err != nil {
				return errors.Wrap(err, "quality trimming failed")
			}
			if plan.Paired {
				st.TrimmedReads = []string{goodPrefix + "_1.fastq", goodPrefix + "_2.fastq"}
			} else {
				st.TrimmedReads = []string{goodPrefix + ".fastq"}
			}
			for _, f := range st.TrimmedReads {
				if err := ws.Register("screening", f, false); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// Aligning maps the trimmed reads with the selected aligner and sorts and
// indexes the result. No downstream stage can proceed without its output.
func aligningStage() StageSpec {
	return StageSpec{
		ID:        "aligning",
		Mandatory: true,
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			name := plan.Config.SampleName
			threads := strconv.Itoa(plan.Config.Threads)
			samFile := ws.Path(name + ".sam")
			readGroup := fmt.Sprintf(`@RG\tID:%v\tSM:%v\tPL:ILLUMINA`, name, name)
			args := []string{"mem", "-t", threads, "-R", readGroup, plan.Config.Reference}
			args = append(args, st.TrimmedReads...)
			if err := r.RunTo(ctx, samFile, string(plan.Aligner), args...); err != nil {
				return errors.Wrap(err, "read alignment failed")
			}
			if err := ws.Register("aligning", samFile, false); err != nil {
				return err
			}
			bamFile := ws.Path(name + ".sorted.bam")
			if err := r.Run(ctx, "samtools", "sort", "-@", threads, "-o", bamFile, samFile); err != nil {
				return errors.Wrap(err, "alignment sorting failed")
			}
			if err := r.Run(ctx, "samtools", "index", bamFile); err != nil {
				return errors.Wrap(err, "alignment indexing failed")
			}
			if err := ws.Register("aligning", bamFile, true); err != nil {
				return err
			}
			st.Alignment = bamFile
			return nil
		},
	}
}

// Calling runs one variant caller against the sorted alignment. Each
// selected caller gets its own stage instance; a failure here never
// aborts sibling callers.
func callingStage(caller Caller) StageSpec {
	id := "calling." + string(caller)
	return StageSpec{
		ID: id,
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			name := plan.Config.SampleName
			vcf := ws.Path(fmt.Sprintf("%v.%v.vcf", name, caller))
			switch caller {
			case Samtools:
				pileup := ws.Path(fmt.Sprintf("%v.%v.mpileup.bcf", name, caller))
				if err := r.RunTo(ctx, pileup, "bcftools", "mpileup", "-f", plan.Config.Reference, st.Alignment); err != nil {
					return errors.Wrap(err, "mpileup failed")
				}
				if err := ws.Register(id, pileup, false); err != nil {
					return err
				}
				if err := r.RunTo(ctx, vcf, "bcftools", "call", "-mv", pileup); err != nil {
					return errors.Wrap(err, "bcftools call failed")
				}
			case GATK:
				if err := r.Run(ctx, "gatk", "HaplotypeCaller", "-R", plan.Config.Reference, "-I", st.Alignment, "-O", vcf); err != nil {
					return errors.Wrap(err, "HaplotypeCaller failed")
				}
			case Freebayes:
				if err := r.RunTo(ctx, vcf, "freebayes", "-f", plan.Config.Reference, st.Alignment); err != nil {
					return errors.Wrap(err, "freebayes failed")
				}
			default:
				return errors.Errorf("unknown caller %v", caller)
			}
			if err := ws.Register(id, vcf, true); err != nil {
				return err
			}
			st.CallerOutputs[caller] = vcf
			return nil
		},
	}
}

// Annotating runs snpEff over every usable caller output. It is skipped
// unless annotation was requested and at least one caller succeeded.
func annotatingStage() StageSpec {
	return StageSpec{
		ID: "annotating",
		When: func(plan *Plan, st *RunState) bool {
			return plan.Config.Annotate && len(st.CallerOutputs) > 0
		},
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			var firstErr error
			for _, caller := range knownCallers {
				vcf, ok := st.CallerOutputs[caller]
				if !ok {
					continue
				}
				annotated := strings.TrimSuffix(vcf, ".vcf") + ".ann.vcf"
				if err := r.RunTo(ctx, annotated, "snpEff", "ann", "Mycobacterium_tuberculosis_H37Rv", vcf); err != nil {
					if firstErr == nil {
						firstErr = errors.Wrapf(err, "annotation of %v failed", filepath.Base(vcf))
					}
					continue
				}
				if err := ws.Register("annotating", annotated, true); err != nil {
					return err
				}
			}
			return firstErr
		},
	}
}

// Typing determines the lineage from the first available caller output.
// Failures are recorded but never halt the run.
func typingStage() StageSpec {
	return StageSpec{
		ID: "typing",
		When: func(plan *Plan, st *RunState) bool {
			return len(st.CallerOutputs) > 0
		},
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			var vcf string
			for _, caller := range knownCallers {
				if v, ok := st.CallerOutputs[caller]; ok {
					vcf = v
					break
				}
			}
			out := ws.Path(plan.Config.SampleName + ".lineage.txt")
			if err := r.RunTo(ctx, out, "fast-lineage-caller", vcf); err != nil {
				return errors.Wrap(err, "lineage typing failed")
			}
			return ws.Register("typing", out, true)
		},
	}
}

// Summarizing collects depth and mapping statistics for the alignment.
func summarizingStage() StageSpec {
	return StageSpec{
		ID: "summarizing",
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			name := plan.Config.SampleName
			coverage := ws.Path(name + ".coverage.txt")
			if err := r.RunTo(ctx, coverage, "samtools", "depth", "-a", st.Alignment); err != nil {
				return errors.Wrap(err, "coverage statistics failed")
			}
			if err := ws.Register("summarizing", coverage, true); err != nil {
				return err
			}
			flagstat := ws.Path(name + ".flagstat.txt")
			if err := r.RunTo(ctx, flagstat, "samtools", "flagstat", st.Alignment); err != nil {
				return errors.Wrap(err, "mapping statistics failed")
			}
			return ws.Register("summarizing", flagstat, true)
		},
	}
}

// Cleanup removes intermediate artifacts. Best effort; it runs even after
// an abort and never fails the run.
func cleanupStage() StageSpec {
	return StageSpec{
		ID:     "cleanup",
		Always: true,
		When: func(plan *Plan, st *RunState) bool {
			return !plan.Config.KeepFiles
		},
		Run: func(ctx context.Context, plan *Plan, ws *workspace.Workspace, r Runner, st *RunState) error {
			ws.Cleanup(plan.Config.KeepFiles)
			return nil
		},
	}
}
