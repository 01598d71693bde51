// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compdb provides JSON compilation database.
//
// https://clang.llvm.org/docs/JSONCompilationDatabase.html
package compdb

import (
	"encoding/json"
	"fmt"

	"go.chromium.org/infra/build/compdb/toolsupport/shutil"
)

// Entry is an entry of compilation database.
// It describes how to compile one source file.
type Entry struct {
	// Directory is the working directory of the compile.
	Directory string `json:"directory"`

	// File is the source file, absolute or relative to Directory.
	File string `json:"file"`

	// Arguments is the compile command line.
	Arguments []string `json:"arguments"`

	// Output is the output of the compile, if known.
	Output string `json:"output,omitempty"`
}

type entryJSON struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments,omitempty"`
	Command   string   `json:"command,omitempty"`
	Output    string   `json:"output,omitempty"`
}

// UnmarshalJSON decodes an entry in either "arguments" or "command" form.
func (e *Entry) UnmarshalJSON(b []byte) error {
	var v entryJSON
	err := json.Unmarshal(b, &v)
	if err != nil {
		return err
	}
	args := v.Arguments
	if len(args) == 0 && v.Command != "" {
		args, err = shutil.Split(v.Command)
		if err != nil {
			return fmt.Errorf("bad command for %s: %w", v.File, err)
		}
	}
	if v.Directory == "" || v.File == "" || len(args) == 0 {
		return fmt.Errorf("incomplete entry: directory=%q file=%q arguments=%q", v.Directory, v.File, args)
	}
	*e = Entry{
		Directory: v.Directory,
		File:      v.File,
		Arguments: args,
		Output:    v.Output,
	}
	return nil
}

type entryKey struct {
	directory, file string
}

func (e Entry) key() entryKey {
	return entryKey{directory: e.Directory, file: e.File}
}

// Merge merges previous and current entries.
// Entries are unique by (Directory, File); a later entry replaces
// an earlier one with the same key at the earlier one's position.
func Merge(previous, current []Entry) []Entry {
	merged := make([]Entry, 0, len(previous)+len(current))
	index := make(map[entryKey]int, len(previous)+len(current))
	for _, entries := range [][]Entry{previous, current} {
		for _, e := range entries {
			k := e.key()
			if i, ok := index[k]; ok {
				merged[i] = e
				continue
			}
			index[k] = len(merged)
			merged = append(merged, e)
		}
	}
	return merged
}
