// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wrap is wrap subcommand to run a compiler and record its
// process events in a trace directory.
package wrap

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/compdb/event"
	"go.chromium.org/infra/build/compdb/execute"
	"go.chromium.org/infra/build/compdb/execute/localexec"
	"go.chromium.org/infra/build/compdb/o11y/clog"
)

// Environment variables set by `compdb intercept -mode wrapper`.
const (
	// TraceDirEnv is a trace directory to write event files in.
	TraceDirEnv = "COMPDB_TRACE_DIR"

	// WrapperDirEnv is a directory of compiler wrapper scripts.
	// It is removed from PATH to find the real compiler.
	WrapperDirEnv = "COMPDB_WRAPPER_DIR"
)

const usage = `run a compiler and record it

 $ compdb wrap [-trace_dir <dir>] -- <compiler> <args>...

It runs <compiler> found in PATH, except the wrapper directory
($` + WrapperDirEnv + `), and writes its events in <dir>
(default $` + TraceDirEnv + `). It exits with the compiler's exit code.
`

// Cmd returns the Command for the `wrap` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "wrap [-trace_dir <dir>] -- <compiler> <args>...",
		ShortDesc: "run a compiler and record it in trace directory",
		LongDesc:  usage,
		Advanced:  true,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	traceDir string
	compress bool
}

func (c *run) init() {
	c.Flags.StringVar(&c.traceDir, "trace_dir", "", "trace directory. default $"+TraceDirEnv)
	c.Flags.BoolVar(&c.compress, "compress", false, "compress event file with zstd")
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	code, err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return code
}

func (c *run) run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("no command: %w", flag.ErrHelp)
	}
	traceDir := c.traceDir
	if traceDir == "" {
		traceDir = os.Getenv(TraceDirEnv)
	}
	if wrapperDir := os.Getenv(WrapperDirEnv); wrapperDir != "" {
		// compilers run by the compiler (e.g. ccache) are not wrapped.
		os.Setenv("PATH", StripPath(os.Getenv("PATH"), wrapperDir))
	}
	compiler, err := exec.LookPath(args[0])
	if err != nil {
		return 127, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return 1, err
	}

	id := uuid.New().String()
	pid := os.Getpid()
	created := &event.Created{
		Pid:  pid,
		PPid: os.Getppid(),
		Cwd:  cwd,
		Cmd:  args,
		When: time.Now(),
	}
	cmd := &execute.Cmd{
		ID:    id,
		Args:  append([]string{compiler}, args[1:]...),
		Stdin: os.Stdin,
	}
	cmd.SetStdoutWriter(os.Stdout)
	cmd.SetStderrWriter(os.Stderr)
	err = localexec.Run(ctx, cmd)
	code := 0
	var terminated event.Event = &event.TerminatedNormally{Pid: pid, When: time.Now()}
	var eerr *execute.ExitError
	switch {
	case err == nil:
	case errors.As(err, &eerr):
		code = eerr.ExitCode
		if eerr.Signal != "" {
			terminated = &event.TerminatedAbnormally{Pid: pid, Signal: eerr.Signal, When: time.Now()}
		} else {
			terminated = &event.TerminatedNormally{Pid: pid, Code: code, When: time.Now()}
		}
	default:
		return 1, err
	}
	if traceDir == "" {
		clog.Warningf(ctx, "no trace directory. not recorded: %q", args)
		return code, nil
	}
	err = writeEvents(filepath.Join(traceDir, event.FileName(id, c.compress)), created, terminated)
	if err != nil {
		// the compile itself succeeded or failed as is.
		clog.Warningf(ctx, "failed to record %q: %v", args, err)
	}
	return code, nil
}

func writeEvents(fname string, events ...event.Event) error {
	fw, err := event.Create(fname)
	if err != nil {
		return err
	}
	for _, ev := range events {
		err = fw.Write(ev)
		if err != nil {
			fw.Close()
			return err
		}
	}
	return fw.Close()
}

// StripPath returns pathList without dir.
func StripPath(pathList, dir string) string {
	dir = filepath.Clean(dir)
	var dirs []string
	for _, d := range filepath.SplitList(pathList) {
		if d != "" && filepath.Clean(d) == dir {
			continue
		}
		dirs = append(dirs, d)
	}
	return strings.Join(dirs, string(filepath.ListSeparator))
}
