// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package dbflags provides flags shared by subcommands that write
// compilation database.
package dbflags

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"go.chromium.org/infra/build/compdb/build"
	"go.chromium.org/infra/build/compdb/build/buildconfig"
	"go.chromium.org/infra/build/compdb/compdb"
	"go.chromium.org/infra/build/compdb/compilation"
	"go.chromium.org/infra/build/compdb/o11y/clog"
)

// DefaultOutput is a default filename of compilation database.
const DefaultOutput = "compile_commands.json"

// stringList is a flag value of comma separated strings.
// It may be given multiple times.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	for s := range strings.SplitSeq(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			*l = append(*l, s)
		}
	}
	return nil
}

// Options is options to build compilation database.
type Options struct {
	Output         string
	ConfigFile     string
	Append         bool
	IncludeLinking bool
	OnlyUse        bool
	DropOutput     bool
	CCompilers     stringList
	CXXCompilers   stringList

	Log clog.Options

	flags *flag.FlagSet
}

// RegisterFlags registers flags for the options.
func (o *Options) RegisterFlags(fs *flag.FlagSet) {
	o.flags = fs
	fs.StringVar(&o.Output, "o", DefaultOutput, "compilation database file to write")
	fs.StringVar(&o.ConfigFile, "config", "", "config file. default "+buildconfig.DefaultFilename+" if exists")
	fs.BoolVar(&o.Append, "append", false, "append to the existing compilation database")
	fs.BoolVar(&o.IncludeLinking, "include_linking", false, "also record compiler calls that link")
	fs.BoolVar(&o.OnlyUse, "only_use", false, "only use compilers given by -cc and -cxx")
	fs.BoolVar(&o.DropOutput, "drop_output", false, `omit "output" field in entries`)
	fs.Var(&o.CCompilers, "cc", "comma separated C compiler names to recognize in addition to well-known ones")
	fs.Var(&o.CXXCompilers, "cxx", "comma separated C++ compiler names to recognize in addition to well-known ones")
	o.Log.RegisterFlags(fs)
}

// Setup sets up logging, applies the config file, and returns a context,
// a builder and a database to write.
// Flags given explicitly take precedence over the config file.
func (o *Options) Setup(ctx context.Context) (context.Context, *build.Builder, *compdb.Database, error) {
	ctx, err := o.Log.Setup(ctx)
	if err != nil {
		return ctx, nil, nil, err
	}
	err = o.applyConfig(ctx)
	if err != nil {
		return ctx, nil, nil, err
	}
	b := &build.Builder{
		Policy: build.Policy{
			AppendToExisting: o.Append,
			IncludeLinking:   o.IncludeLinking,
		},
		Classifier: compilation.NewClassifier(compilation.Config{
			OnlyUse:      o.OnlyUse,
			CCompilers:   o.CCompilers,
			CXXCompilers: o.CXXCompilers,
		}, &compilation.ExecMPIResolver{}),
	}
	db := compdb.New(o.Output, compdb.Options{DropOutput: o.DropOutput})
	return ctx, b, db, nil
}

func (o *Options) applyConfig(ctx context.Context) error {
	fname := o.ConfigFile
	if fname == "" {
		_, err := os.Stat(buildconfig.DefaultFilename)
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		fname = buildconfig.DefaultFilename
	}
	cfg, err := buildconfig.Load(ctx, fname)
	if err != nil {
		return fmt.Errorf("failed to load config %s: %w", fname, err)
	}
	clog.Debugf(ctx, "config %s: %+v", fname, cfg)
	set := make(map[string]bool)
	if o.flags != nil {
		o.flags.Visit(func(f *flag.Flag) {
			set[f.Name] = true
		})
	}
	for _, v := range []struct {
		name string
		p    *bool
		cfg  bool
	}{
		{"append", &o.Append, cfg.Append},
		{"include_linking", &o.IncludeLinking, cfg.IncludeLinking},
		{"only_use", &o.OnlyUse, cfg.OnlyUse},
		{"drop_output", &o.DropOutput, cfg.DropOutput},
	} {
		if !set[v.name] {
			*v.p = v.cfg
		}
	}
	if !set["cc"] {
		o.CCompilers = cfg.CCompilers
	}
	if !set["cxx"] {
		o.CXXCompilers = cfg.CXXCompilers
	}
	return nil
}

// Compilers returns compiler names given by flags or config.
func (o *Options) Compilers() []string {
	var names []string
	names = append(names, o.CCompilers...)
	names = append(names, o.CXXCompilers...)
	return names
}
