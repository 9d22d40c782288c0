// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"slices"
	"strings"
)

type (
	// Binary is a build product reported by the build binary.
	Binary struct {
		Name string
		// Dir is the directory the build reported the binary in.
		Dir string
	}

	// OutputScanner tracks the binaries reported across a sequence of
	// builds. Call Start before feeding the lines of each build to Scan.
	//
	// Recognized lines:
	//
	//	BUILDING <name> ... <dir>            records <name> in <dir>
	//	- <name>.log                          remembers <name> as the prior image
	//	<x> image up to date, ...             the prior image replaces the new one
	OutputScanner struct {
		binaries []Binary

		suffix  string
		current string
		prior   string
		dir     string
	}
)

// NewOutputScanner returns an empty scanner.
func NewOutputScanner() *OutputScanner { return &OutputScanner{} }

// Start resets the per-build state for a build of handle. A handle with a
// dotted suffix ("APP.test") appends that suffix to every binary name the
// build reports.
func (s *OutputScanner) Start(handle string) {
	s.suffix = ""
	if i := strings.LastIndexByte(handle, '.'); i >= 0 {
		s.suffix = handle[i:]
	}
	s.current, s.prior, s.dir = "", "", ""
}

// Scan consumes one line of build output.
func (s *OutputScanner) Scan(line string) {
	words := strings.Fields(line)
	switch {
	case len(words) >= 2 && words[0] == "BUILDING":
		s.current = words[1] + s.suffix
		s.dir = words[len(words)-1]
		s.set(s.current, s.dir)
	case len(words) == 2 && words[0] == "-":
		name, _, _ := strings.Cut(words[1], ".log")
		s.prior = name + s.suffix
	case len(words) > 4 && strings.Join(words[1:5], " ") == "image up to date,":
		if s.current == "" || s.prior == "" {
			return
		}
		s.remove(s.current)
		s.set(s.prior, s.dir)
		s.current = s.prior
	}
}

// Binaries returns the binaries recorded so far, in report order.
func (s *OutputScanner) Binaries() []Binary { return slices.Clone(s.binaries) }

func (s *OutputScanner) set(name, dir string) {
	for i := range s.binaries {
		if s.binaries[i].Name == name {
			s.binaries[i].Dir = dir
			return
		}
	}
	s.binaries = append(s.binaries, Binary{Name: name, Dir: dir})
}

func (s *OutputScanner) remove(name string) {
	s.binaries = slices.DeleteFunc(s.binaries, func(b Binary) bool { return b.Name == name })
}
