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

// snppipe drives a variant calling workflow for M. tuberculosis isolates:
// quality trimming and contamination screening of the raw reads, alignment
// against a reference genome, variant calling with one or more callers,
// annotation, lineage typing, and coverage statistics, with all analysis
// tools invoked as external programs.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/mezewudo/SNPpipe/cmd"
)

func main() {
	fmt.Fprintln(os.Stderr, cmd.ProgramMessage)
	if len(os.Args) < 2 {
		log.Println("Incorrect number of parameters.")
		fmt.Fprint(os.Stderr, cmd.RunHelp)
		os.Exit(1)
	}
	os.Exit(cmd.Run())
}
