// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilation

import (
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/compdb/compdb"
	"go.chromium.org/infra/build/compdb/toolsupport/gccutil"
)

// Entries returns compilation database entries for call,
// one for each source in source order.
// Each entry compiles the source alone with "-c".
func Entries(call *CompilerCall) []compdb.Entry {
	entries := make([]compdb.Entry, 0, len(call.Sources))
	for _, src := range call.Sources {
		output := call.outputFor(src)
		args := make([]string, 0, len(call.Flags)+5)
		args = append(args, call.Compiler, "-c")
		args = append(args, call.Flags...)
		args = append(args, src, "-o", output)
		entries = append(entries, compdb.Entry{
			Directory: call.Dir,
			File:      src,
			Arguments: args,
			Output:    output,
		})
	}
	return entries
}

// outputFor returns the object file of src.
// Explicit output of a link, or shared by several sources, is not
// an object file of src.
func (c *CompilerCall) outputFor(src string) string {
	if c.Pass != gccutil.Linking && c.Output != "" && len(c.Sources) == 1 {
		return c.Output
	}
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".o"
}
