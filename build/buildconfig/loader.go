// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"context"
	"fmt"
	"io/fs"
	"path"

	"github.com/charmbracelet/log"
	"go.starlark.net/starlark"
)

type loadEntry struct {
	globals starlark.StringDict
	err     error
}

// fileLoader is a Starlark module loader for files in the config directory.
type fileLoader struct {
	ctx         context.Context
	fsys        fs.FS
	predeclared starlark.StringDict

	// modules loaded. nil entry means the module is being loaded.
	modules map[string]*loadEntry
}

// Load loads a Starlark module.
// A module path is relative to the module that loads it.
func (l *fileLoader) Load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	fname := module
	if cur, ok := thread.Local("modulename").(string); ok && !path.IsAbs(module) {
		fname = path.Join(path.Dir(cur), module)
	}
	fname = path.Clean(fname)
	log.Debugf("load %s as %s", module, fname)
	if e, ok := l.modules[fname]; ok {
		if e == nil {
			return nil, fmt.Errorf("cycle in load %s", fname)
		}
		return e.globals, e.err
	}
	l.modules[fname] = nil
	buf, err := fs.ReadFile(l.fsys, fname)
	if err != nil {
		delete(l.modules, fname)
		return nil, err
	}
	t := &starlark.Thread{
		Name:  "load " + fname,
		Print: thread.Print,
		Load:  l.Load,
	}
	t.SetLocal("modulename", fname)
	globals, err := starlark.ExecFile(t, fname, buf, l.predeclared)
	l.modules[fname] = &loadEntry{globals: globals, err: err}
	return globals, err
}
