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
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mezewudo/SNPpipe/internal"
	"github.com/mezewudo/SNPpipe/utils"
)

// ProgramMessage is the first line printed when the snppipe binary is
// called.
var ProgramMessage string

func init() {
	ProgramMessage = fmt.Sprint(
		"\n", utils.ProgramName, " version ", utils.ProgramVersion,
		" compiled with ", runtime.Version(),
		" - see ", utils.ProgramURL, " for more information.\n",
	)
}

// Exit codes returned by the snppipe binary.
const (
	// ExitSuccess means the whole pipeline succeeded.
	ExitSuccess = 0
	// ExitUsage means a usage, configuration, or selection error before
	// any stage ran.
	ExitUsage = 1
	// ExitInvalidInput means input validation rejected the run.
	ExitInvalidInput = 2
	// ExitAborted means a mandatory stage failed and the run was cut
	// short.
	ExitAborted = 3
	// ExitPartial means the run finished but one or more non-mandatory
	// stages failed.
	ExitPartial = 4
)

func createLogFilename() string {
	t := time.Now()
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/snppipe-%d-%02d-%02d-%02d-%02d-%02d-%09d-%v.log", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
}

// setLogOutput mirrors the log and external tool stderr into a
// timestamped log file inside the workspace.
func setLogOutput(dir string) {
	fullPath := filepath.Join(dir, createLogFilename())
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}

	multi := io.MultiWriter(f, ferr)

	log.SetOutput(multi)
	log.Println("Created log file at", fullPath)
}
