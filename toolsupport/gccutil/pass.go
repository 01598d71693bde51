// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gccutil provides utilities of gcc.
package gccutil

// Pass is a compiler pass requested by a command line.
//
// The zero value is Linking: a compiler invoked without a phase flag
// compiles and links.
type Pass int

const (
	Linking Pass = iota
	Compilation
	Preprocessor
	Internal
)

// passFlags maps phase flags to the pass they request.
var passFlags = map[string]Pass{
	"-v":     Internal,
	"-###":   Internal,
	"-cc1":   Internal,
	"-cc1as": Internal,
	"-E":     Preprocessor,
	"-M":     Preprocessor,
	"-MM":    Preprocessor,
	"-c":     Compilation,
	"-S":     Compilation,
}

// PassFlag returns the pass requested by flag, if flag is a phase flag.
func PassFlag(flag string) (Pass, bool) {
	p, ok := passFlags[flag]
	return p, ok
}

// Advance returns the pass after proposed is requested in p.
// Precedence is Internal > Preprocessor > Compilation > Linking, and
// the pass never moves to a lower precedence.
func (p Pass) Advance(proposed Pass) Pass {
	if proposed > p {
		return proposed
	}
	return p
}

// Take updates p if flag is a phase flag, and reports whether it was.
func (p *Pass) Take(flag string) bool {
	proposed, ok := PassFlag(flag)
	if !ok {
		return false
	}
	*p = p.Advance(proposed)
	return true
}

// IsCompiling reports whether the pass produces object code,
// i.e. it is not preprocessing only nor an internal invocation.
func (p Pass) IsCompiling() bool {
	return p == Compilation || p == Linking
}

func (p Pass) String() string {
	switch p {
	case Linking:
		return "linking"
	case Compilation:
		return "compilation"
	case Preprocessor:
		return "preprocessor"
	case Internal:
		return "internal"
	}
	return "unknown"
}
