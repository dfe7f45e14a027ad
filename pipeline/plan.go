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

// Package pipeline derives the execution plan for a sequencing run and
// coordinates the external tool stages that implement it.
package pipeline

import (
	"strings"

	"github.com/willf/bitset"

	"github.com/mezewudo/SNPpipe/conf"
)

// Aligner identifies a supported read aligner.
type Aligner string

// BWA is the only aligner currently shipped.
const BWA Aligner = "bwa"

// Caller identifies a supported variant caller.
type Caller string

// The known variant callers.
const (
	Samtools  Caller = "samtools"
	GATK      Caller = "gatk"
	Freebayes Caller = "freebayes"
)

// DefaultCaller is selected when no caller flag is passed.
const DefaultCaller = Samtools

var knownCallers = []Caller{Samtools, GATK, Freebayes}

// CallerSet is a set of variant callers.
type CallerSet struct {
	bits *bitset.BitSet
}

// NewCallerSet returns a set containing the given callers.
func NewCallerSet(callers ...Caller) CallerSet {
	s := CallerSet{bits: bitset.New(uint(len(knownCallers)))}
	for _, c := range callers {
		s.Add(c)
	}
	return s
}

// AllCallers returns the full known caller set.
func AllCallers() CallerSet {
	return NewCallerSet(knownCallers...)
}

func callerIndex(c Caller) (uint, bool) {
	for i, k := range knownCallers {
		if k == c {
			return uint(i), true
		}
	}
	return 0, false
}

// Add puts c into the set; unknown callers are ignored.
func (s CallerSet) Add(c Caller) {
	if i, ok := callerIndex(c); ok {
		s.bits.Set(i)
	}
}

// Contains reports whether c is in the set.
func (s CallerSet) Contains(c Caller) bool {
	i, ok := callerIndex(c)
	return ok && s.bits != nil && s.bits.Test(i)
}

// Empty reports whether the set contains no callers.
func (s CallerSet) Empty() bool {
	return s.bits == nil || !s.bits.Any()
}

// Slice returns the selected callers in their canonical order.
func (s CallerSet) Slice() []Caller {
	var callers []Caller
	for i, c := range knownCallers {
		if s.bits != nil && s.bits.Test(uint(i)) {
			callers = append(callers, c)
		}
	}
	return callers
}

func (s CallerSet) String() string {
	var names []string
	for _, c := range s.Slice() {
		names = append(names, string(c))
	}
	return strings.Join(names, ",")
}

// Plan is the fully resolved execution plan for one run. It is derived
// once from the resolved configuration and consumed read-only by every
// stage.
type Plan struct {
	Config  conf.RunConfig
	Aligner Aligner
	Callers CallerSet
	Paired  bool
	OutDir  string
}
