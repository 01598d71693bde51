// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package transform is transform subcommand to filter and normalize
// an existing compilation database.
package transform

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"go.chromium.org/infra/build/compdb/o11y/clog"
	"go.chromium.org/infra/build/compdb/subcmd/dbflags"
)

const usage = `filter and normalize compilation database

 $ compdb transform [-o compile_commands.json] [-include_linking]

It reparses commands in the compilation database, and rewrites it
with entries of compiler calls, deduplicated by directory and file.
`

// Cmd returns the Command for the `transform` subcommand provided by this package.
func Cmd() *subcommands.Command {
	return &subcommands.Command{
		UsageLine: "transform [-o <output>]",
		ShortDesc: "filter and normalize compilation database",
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

	opts dbflags.Options
}

func (c *run) init() {
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
	ctx, b, db, err := c.opts.Setup(ctx)
	if err != nil {
		return err
	}
	st, err := b.Transform(ctx, db)
	if err != nil {
		return err
	}
	clog.Infof(ctx, "wrote %s: %s", db.Path(), st)
	return nil
}
