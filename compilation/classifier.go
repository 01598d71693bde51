// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package compilation recognizes compiler invocations and converts them
// to compilation database entries.
package compilation

import (
	"context"
	"path/filepath"
	"regexp"

	"go.chromium.org/infra/build/compdb/o11y/clog"
)

// Config configures which executables are compilers.
type Config struct {
	// OnlyUse disables compiler name patterns. Only executables
	// listed in CCompilers or CXXCompilers are compilers.
	OnlyUse bool

	// CCompilers lists additional C compilers.
	CCompilers []string

	// CXXCompilers lists additional C++ compilers.
	CXXCompilers []string
}

// MPIResolver resolves an MPI compiler wrapper to the command line
// of the compiler it runs.
// dir is the working directory where wrapper was run.
type MPIResolver interface {
	Resolve(ctx context.Context, dir, wrapper string) ([]string, error)
}

var (
	wrapperPattern = regexp.MustCompile(`^(distcc|ccache)$`)
	mpiPattern     = regexp.MustCompile(`^mpi(cc|cxx|CC|c\+\+)$`)

	ccPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^([^-]*-)*[mg]cc(-?\d+(\.\d+){0,2})?$`),
		regexp.MustCompile(`^([^-]*-)*clang(-\d+(\.\d+){0,2})?$`),
		regexp.MustCompile(`^(|i)cc$`),
		regexp.MustCompile(`^(g|)xlc$`),
	}
	cxxPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(c\+\+|cxx|CC)$`),
		regexp.MustCompile(`^([^-]*-)*[mg]\+\+(-?\d+(\.\d+){0,2})?$`),
		regexp.MustCompile(`^([^-]*-)*clang\+\+(-\d+(\.\d+){0,2})?$`),
		regexp.MustCompile(`^icpc$`),
		regexp.MustCompile(`^(g|)xl(C|c\+\+)$`),
	}
)

// maxDepth bounds wrapper unwrapping, e.g. an mpicc whose --show
// prints mpicc again.
const maxDepth = 8

// Classifier decides whether a command line is a compiler invocation.
type Classifier struct {
	onlyUse bool
	cc      map[string]bool
	cxx     map[string]bool
	mpi     MPIResolver
}

// NewClassifier creates a classifier with cfg.
// mpi may be nil, then MPI wrappers are not compilers.
func NewClassifier(cfg Config, mpi MPIResolver) *Classifier {
	return &Classifier{
		onlyUse: cfg.OnlyUse,
		cc:      basenames(cfg.CCompilers),
		cxx:     basenames(cfg.CXXCompilers),
		mpi:     mpi,
	}
}

func basenames(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, name := range names {
		m[filepath.Base(name)] = true
	}
	return m
}

// Split splits argv into a compiler and its arguments.
// It unwraps ccache, distcc and MPI wrappers.
// dir is the working directory of argv.
// ok is false if argv is not a compiler invocation.
func (c *Classifier) Split(ctx context.Context, dir string, argv []string) (compiler string, args []string, ok bool) {
	return c.split(ctx, dir, argv, 0)
}

func (c *Classifier) split(ctx context.Context, dir string, argv []string, depth int) (string, []string, bool) {
	if len(argv) == 0 || depth > maxDepth {
		return "", nil, false
	}
	head, tail := argv[0], argv[1:]
	base := filepath.Base(head)
	switch {
	case wrapperPattern.MatchString(base):
		if compiler, args, ok := c.split(ctx, dir, tail, depth+1); ok {
			return compiler, args, true
		}
		return head, tail, true

	case mpiPattern.MatchString(base):
		if c.mpi == nil {
			return "", nil, false
		}
		resolved, err := c.mpi.Resolve(ctx, dir, head)
		if err != nil {
			clog.Debugf(ctx, "failed to resolve MPI wrapper %s: %v", head, err)
			return "", nil, false
		}
		combined := make([]string, 0, len(resolved)+len(tail))
		combined = append(combined, resolved...)
		combined = append(combined, tail...)
		return c.split(ctx, dir, combined, depth+1)

	case c.isCCompiler(base), c.isCXXCompiler(base):
		return head, tail, true
	}
	return "", nil, false
}

func (c *Classifier) isCCompiler(base string) bool {
	return c.cc[base] || (!c.onlyUse && matchAny(ccPatterns, base))
}

func (c *Classifier) isCXXCompiler(base string) bool {
	return c.cxx[base] || (!c.onlyUse && matchAny(cxxPatterns, base))
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}
