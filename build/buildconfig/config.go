// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package buildconfig provides config for `compdb`.
//
// A config is a Starlark file that sets globals:
//
//	c_compilers = ["mycc"]       # additional C compilers
//	cxx_compilers = ["mycxx"]    # additional C++ compilers
//	only_use = False             # only use the compilers listed above
//	include_linking = False      # record compile-and-link calls
//	append = False               # append to the existing database
//	drop_output = False          # omit "output" in entries
package buildconfig

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"go.starlark.net/starlark"
)

// DefaultFilename is a filename of config looked up in the current directory.
const DefaultFilename = ".compdb.star"

// Config is a config of compdb.
type Config struct {
	CCompilers     []string
	CXXCompilers   []string
	OnlyUse        bool
	IncludeLinking bool
	Append         bool
	DropOutput     bool
}

// Load loads config from fname.
func Load(ctx context.Context, fname string) (*Config, error) {
	dir, base := filepath.Split(fname)
	if dir == "" {
		dir = "."
	}
	loader := &fileLoader{
		ctx:         ctx,
		fsys:        os.DirFS(dir),
		predeclared: builtinModule(),
		modules:     make(map[string]*loadEntry),
	}
	thread := &starlark.Thread{
		Name: "load",
		Print: func(thread *starlark.Thread, msg string) {
			log.Infof("thread:%s %s", thread.Name, msg)
		},
		Load: loader.Load,
	}
	globals, err := loader.Load(thread, base)
	if err != nil {
		log.Warnf("thread:%s failed to exec file %s: %v", thread.Name, fname, err)
		var eerr *starlark.EvalError
		if errors.As(err, &eerr) {
			log.Warnf("stacktrace:\n%s", eerr.Backtrace())
		}
		return nil, err
	}
	log.Debugf("config: %s", globals)
	cfg := &Config{}
	for _, v := range []struct {
		name string
		p    *[]string
	}{
		{"c_compilers", &cfg.CCompilers},
		{"cxx_compilers", &cfg.CXXCompilers},
	} {
		*v.p, err = stringList(globals, v.name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fname, err)
		}
	}
	for _, v := range []struct {
		name string
		p    *bool
	}{
		{"only_use", &cfg.OnlyUse},
		{"include_linking", &cfg.IncludeLinking},
		{"append", &cfg.Append},
		{"drop_output", &cfg.DropOutput},
	} {
		*v.p, err = boolValue(globals, v.name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fname, err)
		}
	}
	return cfg, nil
}

func stringList(globals starlark.StringDict, name string) ([]string, error) {
	v, ok := globals[name]
	if !ok || v == starlark.None {
		return nil, nil
	}
	iter, ok := v.(starlark.Iterable)
	if !ok {
		return nil, fmt.Errorf("%s=%s, want list of string", name, v.Type())
	}
	var list []string
	it := iter.Iterate()
	defer it.Done()
	var x starlark.Value
	for it.Next(&x) {
		s, ok := starlark.AsString(x)
		if !ok {
			return nil, fmt.Errorf("%s has %s, want string", name, x.Type())
		}
		list = append(list, s)
	}
	return list, nil
}

func boolValue(globals starlark.StringDict, name string) (bool, error) {
	v, ok := globals[name]
	if !ok || v == starlark.None {
		return false, nil
	}
	b, ok := v.(starlark.Bool)
	if !ok {
		return false, fmt.Errorf("%s=%s, want bool", name, v.Type())
	}
	return bool(b), nil
}
