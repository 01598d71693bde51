// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package execute runs commands.
package execute

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.chromium.org/infra/build/compdb/toolsupport/shutil"
)

// Executor is an interface to run the cmd.
type Executor interface {
	Run(ctx context.Context, cmd *Cmd) error
}

// Cmd includes all the information required to run a command.
type Cmd struct {
	// ID is used as a unique identifier for this cmd in logs.
	// It does not have to be human-readable, so using a UUID is fine.
	ID string

	// Args holds command line arguments.
	Args []string

	// Env specifies the environment of the process.
	// If nil, it uses the current process's environment.
	Env []string

	// Dir specifies the working directory of the cmd.
	// If empty, it runs in the current directory.
	Dir string

	// Stdin is stdin of the cmd. If nil, it reads from the null device.
	Stdin io.Reader

	stdoutWriter, stderrWriter io.Writer
	stdoutBuffer, stderrBuffer bytes.Buffer
}

// String returns an ID of the cmd.
func (c *Cmd) String() string {
	return c.ID
}

// Command returns a command line string.
func (c *Cmd) Command() string {
	if len(c.Args) == 3 && c.Args[0] == "/bin/sh" && c.Args[1] == "-c" {
		return c.Args[2]
	}
	return shutil.Join(c.Args)
}

// SetStdoutWriter sets w for stdout.
// Output is written to w only, and not captured.
// When w is an *os.File, the cmd writes to it directly.
func (c *Cmd) SetStdoutWriter(w io.Writer) {
	c.stdoutWriter = w
}

// SetStderrWriter sets w for stderr.
// Output is written to w only, and not captured.
func (c *Cmd) SetStderrWriter(w io.Writer) {
	c.stderrWriter = w
}

// StdoutWriter returns a writer for stdout.
// It is the writer set by SetStdoutWriter, or a capture buffer.
func (c *Cmd) StdoutWriter() io.Writer {
	c.stdoutBuffer.Reset()
	if c.stdoutWriter == nil {
		return &c.stdoutBuffer
	}
	return c.stdoutWriter
}

// StderrWriter returns a writer for stderr.
// It is the writer set by SetStderrWriter, or a capture buffer.
func (c *Cmd) StderrWriter() io.Writer {
	c.stderrBuffer.Reset()
	if c.stderrWriter == nil {
		return &c.stderrBuffer
	}
	return c.stderrWriter
}

// Stdout returns captured stdout output of the cmd.
// It is empty if a stdout writer is set.
func (c *Cmd) Stdout() []byte {
	return c.stdoutBuffer.Bytes()
}

// Stderr returns captured stderr output of the cmd.
// It is empty if a stderr writer is set.
func (c *Cmd) Stderr() []byte {
	return c.stderrBuffer.Bytes()
}

// ExitError is an error of cmd exit.
type ExitError struct {
	ExitCode int

	// Signal is a name of the signal that terminated the cmd,
	// e.g. "SIGSEGV". Empty if the cmd exited normally.
	Signal string
}

func (e *ExitError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("killed by %s", e.Signal)
	}
	return fmt.Sprintf("exit=%d", e.ExitCode)
}
