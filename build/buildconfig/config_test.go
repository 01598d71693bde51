// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package buildconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	t.Setenv("COMPDB_TEST_CC", "tc-gcc")

	for _, tc := range []struct {
		name  string
		files map[string]string
		want  *Config
	}{
		{
			name:  "empty",
			files: map[string]string{DefaultFilename: ""},
			want:  &Config{},
		},
		{
			name: "all",
			files: map[string]string{
				DefaultFilename: `
c_compilers = ["mycc", getenv("COMPDB_TEST_CC")]
cxx_compilers = ("mycxx",)
only_use = True
include_linking = runtime.os != ""
append = True
drop_output = False
`,
			},
			want: &Config{
				CCompilers:     []string{"mycc", "tc-gcc"},
				CXXCompilers:   []string{"mycxx"},
				OnlyUse:        true,
				IncludeLinking: true,
				Append:         true,
			},
		},
		{
			name: "load",
			files: map[string]string{
				DefaultFilename: `
load("toolchain.star", "compilers")
c_compilers = compilers.cc
cxx_compilers = compilers.cxx
`,
				"toolchain.star": `
compilers = struct(
    cc = [getenv("COMPDB_TEST_UNSET", "fallback-cc")],
    cxx = json.decode('["a++", "b++"]'),
)
`,
			},
			want: &Config{
				CCompilers:   []string{"fallback-cc"},
				CXXCompilers: []string{"a++", "b++"},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tc.files)
			got, err := Load(ctx, filepath.Join(dir, DefaultFilename))
			if err != nil {
				t.Fatalf("Load=_, %v; want nil", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Load diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestLoad_Error(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name  string
		files map[string]string
	}{
		{
			name:  "syntax",
			files: map[string]string{DefaultFilename: "c_compilers = [\n"},
		},
		{
			name:  "notList",
			files: map[string]string{DefaultFilename: "c_compilers = 1\n"},
		},
		{
			name:  "notString",
			files: map[string]string{DefaultFilename: "cxx_compilers = [1]\n"},
		},
		{
			name:  "notBool",
			files: map[string]string{DefaultFilename: `append = "yes"` + "\n"},
		},
		{
			name: "loadCycle",
			files: map[string]string{
				DefaultFilename: `load("a.star", "x")` + "\n",
				"a.star":        `load("b.star", "y")` + "\nx = y\n",
				"b.star":        `load("a.star", "x")` + "\ny = x\n",
			},
		},
		{
			name:  "missingLoad",
			files: map[string]string{DefaultFilename: `load("missing.star", "x")` + "\n"},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFiles(t, dir, tc.files)
			_, err := Load(ctx, filepath.Join(dir, DefaultFilename))
			if err == nil {
				t.Errorf("Load=_, nil; want error")
			}
		})
	}
	_, err := Load(ctx, filepath.Join(t.TempDir(), DefaultFilename))
	if err == nil {
		t.Errorf("Load(missing)=_, nil; want error")
	}
}
