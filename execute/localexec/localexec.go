// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package localexec implements local command execution.
package localexec

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"go.chromium.org/infra/build/compdb/execute"
	"go.chromium.org/infra/build/compdb/o11y/clog"
	"go.chromium.org/infra/build/compdb/sync/semaphore"
)

// LocalExec implements execute.Executor interface that runs commands locally.
type LocalExec struct{}

// Run runs cmd with LocalExec.
func Run(ctx context.Context, cmd *execute.Cmd) error {
	return LocalExec{}.Run(ctx, cmd)
}

var forkSema = semaphore.New("fork", runtime.NumCPU())

// Run runs a cmd.
// It returns *execute.ExitError if the cmd exits with non-zero status
// or is killed by a signal.
func (LocalExec) Run(ctx context.Context, cmd *execute.Cmd) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("no arguments in the command. ID: %s", cmd.ID)
	}
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin
	c.Stdout = cmd.StdoutWriter()
	c.Stderr = cmd.StderrWriter()
	s := time.Now()
	err := forkSema.Do(ctx, func(ctx context.Context) error {
		return c.Start()
	})
	if err != nil {
		return fmt.Errorf("failed to start %q: %w", cmd.Args[0], err)
	}
	err = c.Wait()
	clog.Debugf(ctx, "%s exit=%v stdout=%d stderr=%d in %s", cmd, err, len(cmd.Stdout()), len(cmd.Stderr()), time.Since(s))
	if err == nil {
		return nil
	}
	if eerr := exitError(err); eerr != nil {
		return eerr
	}
	return fmt.Errorf("failed to run %q: %w", cmd.Args[0], err)
}

func exitError(err error) *execute.ExitError {
	var eerr *exec.ExitError
	if !errors.As(err, &eerr) {
		return nil
	}
	w, ok := eerr.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		return &execute.ExitError{ExitCode: eerr.ExitCode()}
	}
	if w.Signaled() {
		// follow shell convention for exit code of signaled process.
		return &execute.ExitError{
			ExitCode: 128 + int(w.Signal()),
			Signal:   unix.SignalName(w.Signal()),
		}
	}
	return &execute.ExitError{ExitCode: w.ExitStatus()}
}
