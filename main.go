// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// compdb generates compilation database (compile_commands.json) from
// compiler calls of a build.
package main

import (
	"context"
	"os"
	"runtime"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"
	"go.chromium.org/luci/common/system/signals"

	"go.chromium.org/infra/build/compdb/subcmd/generate"
	"go.chromium.org/infra/build/compdb/subcmd/help"
	"go.chromium.org/infra/build/compdb/subcmd/intercept"
	"go.chromium.org/infra/build/compdb/subcmd/transform"
	"go.chromium.org/infra/build/compdb/subcmd/version"
	"go.chromium.org/infra/build/compdb/subcmd/wrap"
)

const versionID = "v1.0.0"

func getApplication() *cli.Application {
	return &cli.Application{
		Name:  "compdb",
		Title: "Compilation database generator",
		Context: func(ctx context.Context) context.Context {
			ctx, cancel := context.WithCancel(ctx)
			signals.HandleInterrupt(cancel)
			return ctx
		},
		Commands: []*subcommands.Command{
			intercept.Cmd(),
			generate.Cmd(),
			transform.Cmd(),
			wrap.Cmd(),

			help.Cmd(),
			version.Cmd(versionID),
		},
	}
}

func main() {
	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()
	os.Exit(subcommands.Run(getApplication(), nil))
}
