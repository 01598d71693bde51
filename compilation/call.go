// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.chromium.org/infra/build/compdb/toolsupport/gccutil"
)

// Classification outcomes. A command that results in one of these
// is not recorded, and it is not a failure.
var (
	ErrNotCompiler  = errors.New("not a compiler")
	ErrNotCompiling = errors.New("not compiling")
	ErrNoSources    = errors.New("no source files")
)

// IsClassification reports whether err is a classification outcome.
func IsClassification(err error) bool {
	return errors.Is(err, ErrNotCompiler) || errors.Is(err, ErrNotCompiling) || errors.Is(err, ErrNoSources)
}

// CompilerCall is a parsed compiler invocation.
type CompilerCall struct {
	// Dir is the working directory.
	Dir string

	// Compiler is the compiler executable.
	Compiler string

	// Pass is the pass requested by the command line.
	Pass gccutil.Pass

	// Flags are options kept to reproduce the compile,
	// without phase flags, output and sources.
	Flags []string

	// Sources are source files.
	Sources []string

	// Output is the explicit output, or empty.
	Output string
}

// Parse parses compiler args run in dir.
// Args irrelevant to compile (e.g. dependency file or linker flags)
// are dropped.
func Parse(dir, compiler string, args []string) (*CompilerCall, error) {
	call := &CompilerCall{
		Dir:      dir,
		Compiler: compiler,
	}
	ff := gccutil.NewFlagFilter(args)
	for {
		arg, ok := ff.Next()
		if !ok {
			break
		}
		if call.Pass.Take(arg) {
			continue
		}
		switch {
		case arg == "-o":
			if out, ok := ff.Next(); ok {
				call.Output = out
			}
		case isJoinedOutput(arg):
			call.Output = strings.TrimPrefix(arg, "-o")
		case strings.HasPrefix(arg, "-"):
			call.Flags = append(call.Flags, arg)
			if !gccutil.OptionArgs(arg) {
				continue
			}
			if v, ok := ff.Next(); ok {
				call.Flags = append(call.Flags, v)
			}
		case gccutil.IsSourceFile(arg):
			call.Sources = append(call.Sources, arg)
		}
	}
	if !call.Pass.IsCompiling() {
		return nil, fmt.Errorf("%s pass: %w", call.Pass, ErrNotCompiling)
	}
	if len(call.Sources) == 0 {
		return nil, ErrNoSources
	}
	return call, nil
}

// outputExts are extensions of compiler outputs.
var outputExts = map[string]bool{
	".o":   true,
	".obj": true,
	".s":   true,
	".i":   true,
	".ii":  true,
	".bc":  true,
	".ll":  true,
	".pch": true,
	".gch": true,
	".pcm": true,
}

// isJoinedOutput reports whether arg is "-o<file>".
// Options starting with "-o" (e.g. -openmp, -objcmt-migrate-literals)
// are not outputs, so the file needs a compiler output extension.
func isJoinedOutput(arg string) bool {
	out, ok := strings.CutPrefix(arg, "-o")
	if !ok || out == "" {
		return false
	}
	return outputExts[strings.ToLower(filepath.Ext(out))]
}

// ParseCommand parses argv run in dir, if argv is a compiler invocation.
func ParseCommand(ctx context.Context, c *Classifier, dir string, argv []string) (*CompilerCall, error) {
	compiler, args, ok := c.Split(ctx, dir, argv)
	if !ok {
		return nil, ErrNotCompiler
	}
	return Parse(dir, compiler, args)
}
