// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package generate is generate subcommand to build compilation database
// from recorded events.
package generate

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"iter"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/compdb/event"
	"go.chromium.org/infra/build/compdb/o11y/clog"
	"go.chromium.org/infra/build/compdb/subcmd/dbflags"
)

const usage = `build compilation database from recorded events

 $ compdb generate -events <file|dir> [-o compile_commands.json]

<file> is an events file (*.events.jsonl, or *.events.jsonl.zst),
e.g. written by "compdb intercept -events_out".
<dir> is a trace directory written by "compdb wrap".
`

// Cmd returns the Command for the `generate` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "generate -events <file|dir> [-o <output>]",
		ShortDesc: "build compilation database from recorded events",
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

	events string
	opts   dbflags.Options
}

func (c *run) init() {
	c.Flags.StringVar(&c.events, "events", "", "events file or trace directory")
	c.opts.RegisterFlags(&c.Flags)
}

func (c *run) Run(a subcommands.Application, args []string, env subcommands.Env) int {
	ctx := cli.GetContext(a, c, env)
	err := c.run(ctx, args)
	if err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, usage)
		default:
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (c *run) run(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("position arguments not expected: %w", flag.ErrHelp)
	}
	if c.events == "" {
		return fmt.Errorf("missing -events: %w", flag.ErrHelp)
	}
	ctx, b, db, err := c.opts.Setup(ctx)
	if err != nil {
		return err
	}
	events, done, err := Events(ctx, c.events)
	if err != nil {
		return err
	}
	defer done()
	st, err := b.Build(ctx, events, db)
	if err != nil {
		return err
	}
	clog.Infof(ctx, "wrote %s: %s", db.Path(), st)
	return nil
}

// Events returns events in an events file or a trace directory.
// done should be called after use.
func Events(ctx context.Context, fname string) (iter.Seq2[event.Event, error], func(), error) {
	fi, err := os.Stat(fname)
	if err != nil {
		return nil, nil, err
	}
	if fi.IsDir() {
		events, err := event.ReadDir(ctx, fname)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read trace directory %s: %w", fname, err)
		}
		return event.Seq(events), func() {}, nil
	}
	fr, err := event.Open(fname)
	if err != nil {
		return nil, nil, err
	}
	return fr.All(), func() {
		err := fr.Close()
		if err != nil {
			clog.Warningf(ctx, "failed to close %s: %v", fname, err)
		}
	}, nil
}
