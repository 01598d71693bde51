// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package intercept is intercept subcommand to run a build under
// observation and build compilation database from its compiler calls.
package intercept

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/compdb/event"
	"go.chromium.org/infra/build/compdb/execute"
	"go.chromium.org/infra/build/compdb/execute/localexec"
	"go.chromium.org/infra/build/compdb/o11y/clog"
	"go.chromium.org/infra/build/compdb/subcmd/dbflags"
	"go.chromium.org/infra/build/compdb/subcmd/wrap"
	"go.chromium.org/infra/build/compdb/toolsupport/shutil"
	"go.chromium.org/infra/build/compdb/toolsupport/straceutil"
)

const usage = `run build and build compilation database

 $ compdb intercept [-mode strace|wrapper] [-o compile_commands.json] -- make -j8

It runs the build command, observes processes it runs, and writes
compilation database for the compiler calls.

mode:
  strace   trace processes with strace (linux only, default if available).
  wrapper  put compiler wrapper scripts in front of PATH. compilers run
           by absolute path are not observed.

It exits with the build command's exit code when the build failed.
`

// Cmd returns the Command for the `intercept` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "intercept [-mode strace|wrapper] [-o <output>] -- <build command>",
		ShortDesc: "run build and build compilation database",
		LongDesc:  usage,
		CommandRun: func() subcommands.CommandRun {
			c := &run{}
			c.init()
			return c
		},
	}
}

type run struct {
	subcommands.CommandRunBase

	mode      string
	traceDir  string
	eventsOut string
	opts      dbflags.Options
}

func (c *run) init() {
	c.Flags.StringVar(&c.mode, "mode", "", "observation mode: strace or wrapper. default strace if available")
	c.Flags.StringVar(&c.traceDir, "trace_dir", "", "trace directory for wrapper mode. default temporary directory")
	c.Flags.StringVar(&c.eventsOut, "events_out", "", "write observed events in the file (*.events.jsonl or *.events.jsonl.zst)")
	c.opts.RegisterFlags(&c.Flags)
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
		if code == 0 {
			code = 1
		}
	}
	return code
}

func (c *run) run(ctx context.Context, args []string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("no build command: %w", flag.ErrHelp)
	}
	mode := c.mode
	if mode == "" {
		mode = "wrapper"
		if straceutil.Available() {
			mode = "strace"
		}
	}
	ctx, b, db, err := c.opts.Setup(ctx)
	if err != nil {
		return 1, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return 1, err
	}
	var events []event.Event
	var buildErr error
	switch mode {
	case "strace":
		if !straceutil.Available() {
			return 1, errors.New("strace is not available")
		}
		events, buildErr, err = c.runStrace(ctx, cwd, args)
	case "wrapper":
		events, buildErr, err = c.runWrapper(ctx, cwd, args)
	default:
		return 1, fmt.Errorf("unknown mode %q: %w", mode, flag.ErrHelp)
	}
	if err != nil {
		return 1, err
	}
	clog.Infof(ctx, "observed %d events in %s mode", len(events), mode)
	if c.eventsOut != "" {
		err = writeEvents(c.eventsOut, events)
		if err != nil {
			return 1, fmt.Errorf("failed to write events: %w", err)
		}
	}
	// compilation database is written even if the build failed.
	st, err := b.Build(ctx, event.Seq(events), db)
	if err != nil {
		return 1, err
	}
	clog.Infof(ctx, "wrote %s: %s", db.Path(), st)
	var eerr *execute.ExitError
	if errors.As(buildErr, &eerr) {
		clog.Warningf(ctx, "build failed: %v", buildErr)
		return eerr.ExitCode, nil
	}
	return 0, nil
}

// runBuild runs the build command with stdio passthrough.
// It returns *execute.ExitError as buildErr if the build failed,
// or err if the build could not run.
func runBuild(ctx context.Context, cmd *execute.Cmd) (buildErr, err error) {
	cmd.Stdin = os.Stdin
	cmd.SetStdoutWriter(os.Stdout)
	cmd.SetStderrWriter(os.Stderr)
	err = localexec.Run(ctx, cmd)
	var eerr *execute.ExitError
	if errors.As(err, &eerr) {
		return err, nil
	}
	return nil, err
}

func (c *run) runStrace(ctx context.Context, cwd string, args []string) (events []event.Event, buildErr, err error) {
	id := uuid.New().String()
	s := straceutil.New(ctx, id, args, cwd)
	defer s.Close()
	cmd := &execute.Cmd{
		ID:   id,
		Args: s.Args(ctx),
		Dir:  cwd,
	}
	buildErr, err = runBuild(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	events, err = s.PostProcess(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse strace output: %w", err)
	}
	return events, buildErr, nil
}

// wrapperNames are compiler names wrapped in wrapper mode by default.
var wrapperNames = []string{
	"cc", "c++",
	"gcc", "g++",
	"clang", "clang++",
	"mpicc", "mpicxx", "mpic++", "mpiCC",
}

func (c *run) runWrapper(ctx context.Context, cwd string, args []string) (events []event.Event, buildErr, err error) {
	traceDir := c.traceDir
	if traceDir == "" {
		traceDir, err = os.MkdirTemp("", "compdb-trace-")
		if err != nil {
			return nil, nil, err
		}
		defer func() {
			err := os.RemoveAll(traceDir)
			if err != nil {
				clog.Warningf(ctx, "failed to remove %s: %v", traceDir, err)
			}
		}()
	} else {
		traceDir, err = filepath.Abs(traceDir)
		if err != nil {
			return nil, nil, err
		}
		err = os.MkdirAll(traceDir, 0o755)
		if err != nil {
			return nil, nil, err
		}
	}
	binDir, err := os.MkdirTemp(traceDir, "bin-")
	if err != nil {
		return nil, nil, err
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, nil, err
	}
	names := append(slices.Clone(wrapperNames), c.opts.Compilers()...)
	err = WriteWrappers(binDir, exe, traceDir, names)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to write compiler wrappers: %w", err)
	}
	clog.Debugf(ctx, "compiler wrappers in %s", binDir)
	env := os.Environ()
	env = SetEnv(env, "PATH", binDir+string(filepath.ListSeparator)+os.Getenv("PATH"))
	env = SetEnv(env, wrap.WrapperDirEnv, binDir)
	env = SetEnv(env, wrap.TraceDirEnv, traceDir)
	cmd := &execute.Cmd{
		ID:   uuid.New().String(),
		Args: args,
		Env:  env,
		Dir:  cwd,
	}
	buildErr, err = runBuild(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	events, err = event.ReadDir(ctx, traceDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read trace directory: %w", err)
	}
	return events, buildErr, nil
}

// WriteWrappers writes shell scripts in binDir for each compiler name
// to run `exe wrap`.
func WriteWrappers(binDir, exe, traceDir string, names []string) error {
	seen := make(map[string]bool)
	for _, name := range names {
		name = filepath.Base(name)
		if name == "" || name == "." || name == string(filepath.Separator) || seen[name] {
			continue
		}
		seen[name] = true
		var sb strings.Builder
		sb.WriteString("#!/bin/sh\n")
		fmt.Fprintf(&sb, "exec %s wrap -trace_dir %s -- %s \"$@\"\n",
			shutil.Quote(exe), shutil.Quote(traceDir), shutil.Quote(name))
		err := os.WriteFile(filepath.Join(binDir, name), []byte(sb.String()), 0o755)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetEnv sets key=value in env, replacing existing value of key.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	env = slices.DeleteFunc(slices.Clone(env), func(kv string) bool {
		return strings.HasPrefix(kv, prefix)
	})
	return append(env, prefix+value)
}

func writeEvents(fname string, events []event.Event) error {
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
