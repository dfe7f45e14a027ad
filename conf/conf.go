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

// Package conf loads the layered snppipe configuration and merges it with
// explicit command line overrides into the resolved settings for one run.
package conf

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the installed location of the configuration file. It
	// is used unless --config points somewhere else; the two files are
	// never merged.
	DefaultPath = "/usr/local/share/snppipe/snppipe.yml"

	// DefaultThreads is the hard default thread count when neither the
	// command line nor the configuration file provides one.
	DefaultThreads = 4
)

// File is the parsed configuration file.
type File struct {
	Directories Directories `yaml:"directories"`
	Other       Other       `yaml:"other"`
}

// Directories holds filesystem locations of installed resources.
type Directories struct {
	KrakenDB string `yaml:"krakendb"`
}

// Other holds general pipeline settings.
type Other struct {
	Threads             int `yaml:"threads"`
	StageTimeoutMinutes int `yaml:"stage_timeout_minutes"`
}

// ConfigError reports a missing, unreadable, or unparsable configuration
// file.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration file %v: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// MissingKeyError reports a setting required downstream that neither the
// command line nor the configuration file provides.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("required setting %v missing from both command line and configuration file", e.Key)
}

// Load parses the configuration file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Err: err}
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &ConfigError{Path: path, Err: errors.Wrap(err, "cannot parse")}
	}
	return &f, nil
}

// Options holds the raw command line values for one invocation together
// with the set of flags the user explicitly passed. Tracking explicitness
// per flag keeps flag defaults from silently masking configuration file
// values.
type Options struct {
	Fastq     string
	Fastq2    string
	Reference string
	Name      string
	OutDir    string
	Threads   int
	KrakenDB  string
	Config    string

	BWA        bool
	Samtools   bool
	GATK       bool
	Freebayes  bool
	AllCallers bool

	Annotate  bool
	KeepFiles bool
	Verbose   bool

	Explicit map[string]bool
}

// RunConfig is the resolved, immutable settings object for one pipeline
// run. Every field has a value once Resolve returns; downstream components
// consume it read-only.
type RunConfig struct {
	Fastq      string
	Fastq2     string
	Reference  string
	SampleName string
	OutDir     string

	Threads      int
	KrakenDB     string
	StageTimeout time.Duration

	Annotate  bool
	KeepFiles bool
	Verbose   bool

	RequestedAligners []string
	RequestedCallers  []string
	AllCallers        bool
}

// Resolve merges the command line with the configuration file. For every
// recognized setting an explicit command line value wins, then the file
// value, then the hard default.
func Resolve(opts *Options) (*RunConfig, error) {
	path := opts.Config
	if path == "" {
		path = DefaultPath
	}
	file, err := Load(path)
	if err != nil {
		return nil, err
	}

	cfg := &RunConfig{
		Fastq:      opts.Fastq,
		Fastq2:     opts.Fastq2,
		Reference:  opts.Reference,
		SampleName: opts.Name,
		OutDir:     opts.OutDir,
		Annotate:   opts.Annotate,
		KeepFiles:  opts.KeepFiles,
		Verbose:    opts.Verbose,
		AllCallers: opts.AllCallers,
	}

	switch {
	case opts.Explicit["threads"]:
		cfg.Threads = opts.Threads
	case file.Other.Threads > 0:
		cfg.Threads = file.Other.Threads
	default:
		cfg.Threads = DefaultThreads
	}

	// An explicitly passed empty --krakendb counts as unset; an empty
	// database path can never be handed to the classifier.
	switch {
	case opts.KrakenDB != "":
		cfg.KrakenDB = opts.KrakenDB
	case file.Directories.KrakenDB != "":
		cfg.KrakenDB = file.Directories.KrakenDB
	default:
		return nil, &MissingKeyError{Key: "directories.krakendb"}
	}

	cfg.StageTimeout = time.Duration(file.Other.StageTimeoutMinutes) * time.Minute

	if opts.BWA {
		cfg.RequestedAligners = append(cfg.RequestedAligners, "bwa")
	}
	if opts.Samtools {
		cfg.RequestedCallers = append(cfg.RequestedCallers, "samtools")
	}
	if opts.GATK {
		cfg.RequestedCallers = append(cfg.RequestedCallers, "gatk")
	}
	if opts.Freebayes {
		cfg.RequestedCallers = append(cfg.RequestedCallers, "freebayes")
	}

	return cfg, nil
}
