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
	"os"

	"golang.org/x/sys/unix"
)

// Problem describes one rejected input file.
type Problem struct {
	Input  string
	Reason string
}

// ValidationResult collects every input problem found in one pass; empty
// means the run may proceed.
type ValidationResult []Problem

// OK reports whether validation found no problems.
func (r ValidationResult) OK() bool { return len(r) == 0 }

// Validate checks existence and read permission of the input files. The
// mate file is checked only when supplied. Validation never
// short-circuits: every failure is collected before returning, so a user
// sees all problems in one pass.
func Validate(reads, reference, mate string) ValidationResult {
	var result ValidationResult
	result = checkReadable(result, "--fastq", reads)
	result = checkReadable(result, "--reference", reference)
	if mate != "" {
		result = checkReadable(result, "--fastq2", mate)
	}
	return result
}

func checkReadable(r ValidationResult, input, filename string) ValidationResult {
	if filename == "" {
		return append(r, Problem{Input: input, Reason: "Missing filename"})
	}
	info, err := os.Stat(filename)
	switch {
	case os.IsNotExist(err):
		return append(r, Problem{Input: input, Reason: fmt.Sprintf("File %v does not exist", filename)})
	case os.IsPermission(err):
		return append(r, Problem{Input: input, Reason: fmt.Sprintf("No permission to read file %v", filename)})
	case err != nil:
		return append(r, Problem{Input: input, Reason: fmt.Sprintf("Error %v when trying to access file %v", err, filename)})
	case info.IsDir():
		return append(r, Problem{Input: input, Reason: fmt.Sprintf("File %v is a directory", filename)})
	}
	if err := unix.Access(filename, unix.R_OK); err != nil {
		return append(r, Problem{Input: input, Reason: fmt.Sprintf("No permission to read file %v", filename)})
	}
	return r
}
