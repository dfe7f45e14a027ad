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

// Package workspace owns the per-run output directory and the lifecycle
// of the artifacts the pipeline stages write into it.
package workspace

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/mezewudo/SNPpipe/internal"
)

// Error reports an output location that cannot be prepared.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workspace %v: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

type artifact struct {
	stage string
	path  string
	final bool
}

// Workspace is the per-run output directory together with the registered
// artifact paths. Stages request paths through it and never fabricate
// their own.
type Workspace struct {
	Dir       string
	artifacts []artifact
}

// Prepare creates the output directory, idempotently. An existing path
// that is not a directory is an error.
func Prepare(outdir string) (*Workspace, error) {
	dir, err := internal.FullPathname(outdir)
	if err != nil {
		return nil, &Error{Path: outdir, Err: err}
	}
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return nil, &Error{Path: dir, Err: errors.New("exists and is not a directory")}
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, &Error{Path: dir, Err: err}
	}
	return &Workspace{Dir: dir}, nil
}

// Path returns the location inside the workspace for the given file name.
func (ws *Workspace) Path(name string) string {
	return filepath.Join(ws.Dir, name)
}

// Register records an artifact written by a stage. Final artifacts
// survive cleanup; a path may be registered by at most one stage.
func (ws *Workspace) Register(stage, path string, final bool) error {
	for _, a := range ws.artifacts {
		if a.path == path {
			return errors.Errorf("path %v already registered by stage %v", path, a.stage)
		}
	}
	ws.artifacts = append(ws.artifacts, artifact{stage: stage, path: path, final: final})
	return nil
}

// Intermediates returns the registered non-final artifact paths.
func (ws *Workspace) Intermediates() []string {
	var paths []string
	for _, a := range ws.artifacts {
		if !a.final {
			paths = append(paths, a.path)
		}
	}
	return paths
}

// Finals returns the registered final artifact paths.
func (ws *Workspace) Finals() []string {
	var paths []string
	for _, a := range ws.artifacts {
		if a.final {
			paths = append(paths, a.path)
		}
	}
	return paths
}

// Cleanup removes every registered intermediate artifact unless keep is
// set. Deletion failures are logged, never fatal.
func (ws *Workspace) Cleanup(keep bool) {
	if keep {
		return
	}
	for _, a := range ws.artifacts {
		if a.final {
			continue
		}
		if err := os.RemoveAll(a.path); err != nil {
			log.Printf("Warning: cannot remove intermediate file %v: %v\n", a.path, err)
		}
	}
}
