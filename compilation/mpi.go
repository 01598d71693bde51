// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compilation

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"go.chromium.org/infra/build/compdb/execute"
	"go.chromium.org/infra/build/compdb/execute/localexec"
	"go.chromium.org/infra/build/compdb/o11y/clog"
	"go.chromium.org/infra/build/compdb/toolsupport/shutil"
)

// mpiProbeFlags are flags to make an MPI wrapper print the compiler
// command line. --show is for MPICH, --showme for Open MPI.
var mpiProbeFlags = []string{"--show", "--showme"}

var errEmptyOutput = errors.New("empty output")

// ExecMPIResolver resolves MPI wrappers by running them.
// Results are memoized per wrapper path.
type ExecMPIResolver struct {
	// Executor runs probe commands. If nil, runs locally.
	Executor execute.Executor

	// Env is environment for probe commands.
	Env []string

	mu    sync.Mutex
	cache map[string]mpiResult
}

type mpiResult struct {
	args []string
	err  error
}

// Resolve runs wrapper with --show, then --showme, and returns the
// command line in the first line of output.
// A relative wrapper path (e.g. ./mpicc) is resolved against dir.
// A bare name is looked up in PATH.
func (r *ExecMPIResolver) Resolve(ctx context.Context, dir, wrapper string) ([]string, error) {
	wrapper = wrapperPath(dir, wrapper)
	r.mu.Lock()
	defer r.mu.Unlock()
	if res, ok := r.cache[wrapper]; ok {
		return slices.Clone(res.args), res.err
	}
	args, err := r.probe(ctx, wrapper)
	if ctx.Err() != nil {
		return args, err
	}
	if r.cache == nil {
		r.cache = make(map[string]mpiResult)
	}
	r.cache[wrapper] = mpiResult{args: args, err: err}
	return slices.Clone(args), err
}

func wrapperPath(dir, wrapper string) string {
	if !strings.ContainsRune(wrapper, '/') || filepath.IsAbs(wrapper) || dir == "" {
		return wrapper
	}
	return filepath.Join(dir, wrapper)
}

func (r *ExecMPIResolver) probe(ctx context.Context, wrapper string) ([]string, error) {
	var errs []error
	for _, flag := range mpiProbeFlags {
		args, err := r.run(ctx, wrapper, flag)
		if err == nil {
			clog.Debugf(ctx, "%s %s: %q", wrapper, flag, args)
			return args, nil
		}
		errs = append(errs, fmt.Errorf("%s %s: %w", wrapper, flag, err))
	}
	return nil, errors.Join(errs...)
}

func (r *ExecMPIResolver) run(ctx context.Context, wrapper, flag string) ([]string, error) {
	executor := r.Executor
	if executor == nil {
		executor = localexec.LocalExec{}
	}
	cmd := &execute.Cmd{
		ID:   "mpi-probe:" + wrapper + flag,
		Args: []string{wrapper, flag},
		Env:  r.Env,
	}
	err := executor.Run(ctx, cmd)
	if err != nil {
		return nil, err
	}
	line, _, _ := strings.Cut(string(cmd.Stdout()), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, errEmptyOutput
	}
	args, err := shutil.Split(line)
	if err != nil {
		return nil, fmt.Errorf("bad output %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil, errEmptyOutput
	}
	return args, nil
}
