// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gccutil

import (
	"iter"
	"regexp"
)

// ignoredFlags maps flags that don't matter to reproduce a compile
// to the number of following args they consume.
var ignoredFlags = map[string]int{
	// dependency file generation. these would make otherwise
	// identical commands differ.
	"-MD":  0,
	"-MMD": 0,
	"-MG":  0,
	"-MP":  0,
	"-MF":  1,
	"-MT":  1,
	"-MQ":  1,

	// linker only.
	"-static":   0,
	"-shared":   0,
	"-s":        0,
	"-rdynamic": 0,
	"-l":        1,
	"-L":        1,
	"-u":        1,
	"-z":        1,
	"-T":        1,
	"-Xlinker":  1,

	// clang-cl / cl.exe
	"-nologo": 0,
	"-EHsc":   0,
	"-EHa":    0,
}

// linkerFlag matches joined linker flags, e.g. -lfoo, -L/path, -Wl,opt.
var linkerFlag = regexp.MustCompile(`^-(l|L|Wl,).+`)

// FlagFilter iterates over args, skipping flags irrelevant to a compile.
type FlagFilter struct {
	args []string
	i    int
}

// NewFlagFilter returns a FlagFilter over args.
func NewFlagFilter(args []string) *FlagFilter {
	return &FlagFilter{args: args}
}

// Next returns the next arg that passes the filter.
func (f *FlagFilter) Next() (string, bool) {
	for f.i < len(f.args) {
		arg := f.args[f.i]
		f.i++
		if n, ok := ignoredFlags[arg]; ok {
			f.i = min(f.i+n, len(f.args))
			continue
		}
		if linkerFlag.MatchString(arg) {
			continue
		}
		return arg, true
	}
	return "", false
}

// Reset restarts the iteration from the first arg.
func (f *FlagFilter) Reset() {
	f.i = 0
}

// All returns an iterator over the remaining filtered args.
func (f *FlagFilter) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			arg, ok := f.Next()
			if !ok {
				return
			}
			if !yield(arg) {
				return
			}
		}
	}
}

// FilterFlags returns args without flags irrelevant to a compile.
func FilterFlags(args []string) []string {
	filtered := make([]string, 0, len(args))
	f := NewFlagFilter(args)
	for arg := range f.All() {
		filtered = append(filtered, arg)
	}
	return filtered
}
