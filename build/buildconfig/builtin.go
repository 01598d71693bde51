// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"os"
	"runtime"

	starjson "go.starlark.net/lib/json"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
)

func builtinModule() starlark.StringDict {
	runtimeModule := &starlarkstruct.Module{
		Name: "runtime",
		Members: map[string]starlark.Value{
			"num_cpu": starlark.MakeInt(runtime.NumCPU()),
			"os":      starlark.String(runtime.GOOS),
			"arch":    starlark.String(runtime.GOARCH),
		},
	}
	runtimeModule.Freeze()

	return starlark.StringDict{
		"runtime": runtimeModule,
		"getenv":  starlark.NewBuiltin("getenv", starGetenv),
		"json":    starjson.Module,
		"struct":  starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
}

// starGetenv returns value of environment variable, or default.
//
//	getenv(name, default="")
func starGetenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, def string
	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &def)
	if err != nil {
		return starlark.None, err
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return starlark.String(def), nil
	}
	return starlark.String(v), nil
}
