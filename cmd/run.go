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
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mezewudo/SNPpipe/conf"
	"github.com/mezewudo/SNPpipe/pipeline"
	"github.com/mezewudo/SNPpipe/utils"
	"github.com/mezewudo/SNPpipe/workspace"
)

// RunHelp is the help string for the snppipe pipeline.
const RunHelp = "\nsnppipe parameters:\n" +
	"snppipe --fastq fastq-file --reference fasta-file --name sample-name\n" +
	"[--fastq2 fastq-file]\n" +
	"[--outdir path]\n" +
	"[--config path]\n" +
	"[--krakendb path]\n" +
	"[--threads nr]\n" +
	"[--bwa]\n" +
	"[--samtools]\n" +
	"[--gatk]\n" +
	"[--freebayes]\n" +
	"[--all]\n" +
	"[--annotate]\n" +
	"[--keepfiles]\n" +
	"[--verbose]\n" +
	"[--version]\n"

// Run implements the snppipe pipeline command. It returns the process
// exit code.
func Run() int {
	return run(os.Args[1:], nil)
}

// run parses args and drives the pipeline. A non-nil runner replaces the
// exec runner and leaves the process log untouched; tests use it to
// record which external tools would have been invoked.
func run(args []string, runner pipeline.Runner) int {
	var opts conf.Options

	flags := flag.NewFlagSet(utils.ProgramName, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.StringVar(&opts.Fastq, "fastq", "", "fastq file with forward reads")
	flags.StringVar(&opts.Fastq2, "fastq2", "", "fastq file with reverse reads (enables paired-end mode)")
	flags.StringVar(&opts.Reference, "reference", "", "reference genome in fasta format")
	flags.StringVar(&opts.Name, "name", "", "sample name")
	flags.StringVar(&opts.OutDir, "outdir", "", "output directory (defaults to the sample name)")
	flags.StringVar(&opts.Config, "config", "", "alternate configuration file")
	flags.StringVar(&opts.KrakenDB, "krakendb", "", "kraken database directory")
	flags.IntVar(&opts.Threads, "threads", conf.DefaultThreads, "number of threads passed to the external tools")
	flags.BoolVar(&opts.BWA, "bwa", false, "align reads with bwa")
	flags.BoolVar(&opts.Samtools, "samtools", false, "call variants with samtools/bcftools")
	flags.BoolVar(&opts.GATK, "gatk", false, "call variants with gatk")
	flags.BoolVar(&opts.Freebayes, "freebayes", false, "call variants with freebayes")
	flags.BoolVar(&opts.AllCallers, "all", false, "call variants with every known caller")
	flags.BoolVar(&opts.Annotate, "annotate", false, "annotate the called variants")
	flags.BoolVar(&opts.KeepFiles, "keepfiles", false, "keep intermediate files")
	flags.BoolVar(&opts.Verbose, "verbose", false, "log every external command line")
	version := flags.Bool("version", false, "print the program version and exit")

	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			fmt.Fprint(os.Stderr, RunHelp)
			return ExitSuccess
		}
		log.Println("Error:", err)
		fmt.Fprint(os.Stderr, RunHelp)
		return ExitUsage
	}
	if flags.NArg() > 0 {
		log.Println("Cannot parse remaining parameters:", flags.Args())
		fmt.Fprint(os.Stderr, RunHelp)
		return ExitUsage
	}
	if *version {
		fmt.Println(utils.ProgramName, "version", utils.ProgramVersion)
		return ExitSuccess
	}

	opts.Explicit = map[string]bool{}
	flags.Visit(func(f *flag.Flag) { opts.Explicit[f.Name] = true })

	if opts.Name == "" {
		log.Println("Error: Missing sample name. Please add the --name option to your call.")
		fmt.Fprint(os.Stderr, RunHelp)
		return ExitUsage
	}

	cfg, err := conf.Resolve(&opts)
	if err != nil {
		log.Println("Error:", err)
		fmt.Fprint(os.Stderr, RunHelp)
		return ExitUsage
	}

	// All inputs are checked before any external process is spawned, and
	// every collected problem is reported.
	if result := pipeline.Validate(cfg.Fastq, cfg.Reference, cfg.Fastq2); !result.OK() {
		for _, p := range result {
			log.Printf("Error: %v for command line parameter %v.\n", p.Reason, p.Input)
		}
		fmt.Fprint(os.Stderr, RunHelp)
		return ExitInvalidInput
	}

	plan, err := pipeline.Derive(cfg)
	if err != nil {
		log.Println("Error:", err)
		fmt.Fprint(os.Stderr, RunHelp)
		return ExitUsage
	}

	ws, err := workspace.Prepare(plan.OutDir)
	if err != nil {
		log.Println("Error:", err)
		return ExitUsage
	}
	if runner == nil {
		setLogOutput(ws.Dir)
		runner = pipeline.ExecRunner{Verbose: cfg.Verbose}
	}
	log.Println("Command line:", os.Args)
	log.Println("Selected aligner:", plan.Aligner, "- selected callers:", plan.Callers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coordinator := pipeline.NewCoordinator(plan, ws, runner)
	summary := coordinator.Run(ctx)

	summaryFile := ws.Path(cfg.SampleName + ".summary.txt")
	if err := ws.Register("summary", summaryFile, true); err != nil {
		log.Println("Warning:", err)
	}
	if f, err := os.Create(summaryFile); err != nil {
		log.Println("Warning: cannot write run summary:", err)
	} else {
		summary.Print(f)
		if err := f.Close(); err != nil {
			log.Println("Warning: cannot write run summary:", err)
		}
	}
	summary.Print(os.Stderr)

	switch summary.Status {
	case pipeline.Aborted:
		return ExitAborted
	case pipeline.Partial:
		return ExitPartial
	default:
		return ExitSuccess
	}
}
