// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package clog

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
)

// LogBuildInfo logs build information of the executable at debug level.
func LogBuildInfo(ctx context.Context) {
	buildinfo, ok := debug.ReadBuildInfo()
	if !ok {
		Debugf(ctx, "buildinfo: not available")
		return
	}
	Debugf(ctx, "main module: %s %s", moduleInfo(&buildinfo.Main), vcsInfo(buildinfo))
	for _, m := range buildinfo.Deps {
		Debugf(ctx, "deps module: %s", moduleInfo(m))
	}
}

func moduleInfo(m *debug.Module) string {
	if m == nil {
		return "<nil>"
	}
	return fmt.Sprintf("path:%s version:%s sum:%s replace:%s", m.Path, m.Version, m.Sum, moduleInfo(m.Replace))
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
