// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/infra/build/compdb/compdb"
	"go.chromium.org/infra/build/compdb/event"
)

func created(pid int, cwd string, cmd ...string) event.Event {
	return &event.Created{
		Pid:  pid,
		PPid: 1,
		Cwd:  cwd,
		Cmd:  cmd,
		When: time.Unix(1700000000, int64(pid)),
	}
}

func loadEntries(t *testing.T, fname string) []compdb.Entry {
	t.Helper()
	entries, err := compdb.New(fname, compdb.Options{}).Load()
	if err != nil {
		t.Fatalf("Load(%q)=%v; want nil", fname, err)
	}
	return entries
}

func TestBuild_SingleEvent(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "compile_commands.json")
	events := []event.Event{
		created(10, "/proj", "gcc", "-c", "foo.c", "-o", "foo.o"),
		&event.TerminatedNormally{Pid: 10},
	}
	b := &Builder{}
	st, err := b.Build(ctx, event.Seq(events), compdb.New(fname, compdb.Options{}))
	if err != nil {
		t.Fatalf("Build=%v; want nil", err)
	}
	want := []compdb.Entry{
		{
			Directory: "/proj",
			File:      "foo.c",
			Arguments: []string{"gcc", "-c", "foo.c", "-o", "foo.o"},
			Output:    "foo.o",
		},
	}
	if diff := cmp.Diff(want, loadEntries(t, fname)); diff != "" {
		t.Errorf("entries diff -want +got:\n%s", diff)
	}
	wantStats := Stats{Events: 2, Calls: 1, Entries: 1}
	if diff := cmp.Diff(wantStats, st); diff != "" {
		t.Errorf("stats diff -want +got:\n%s", diff)
	}
}

func TestBuild_Policy(t *testing.T) {
	ctx := context.Background()
	events := []event.Event{
		created(10, "/proj", "make"),
		created(11, "/proj", "gcc", "-E", "foo.c"),
		created(12, "/proj", "cc", "a.c", "b.c", "-o", "prog", "-lm"),
		created(13, "/proj/sub", "ccache", "g++", "-MD", "-MF", "x.d", "-c", "x.cc"),
		created(14, "/proj", "clang", "-v"),
	}
	for _, tc := range []struct {
		name   string
		policy Policy
		want   []compdb.Entry
	}{
		{
			name: "compileOnly",
			want: []compdb.Entry{
				{
					Directory: "/proj/sub",
					File:      "x.cc",
					Arguments: []string{"g++", "-c", "x.cc", "-o", "x.o"},
					Output:    "x.o",
				},
			},
		},
		{
			name:   "includeLinking",
			policy: Policy{IncludeLinking: true},
			want: []compdb.Entry{
				{
					Directory: "/proj",
					File:      "a.c",
					Arguments: []string{"cc", "-c", "a.c", "-o", "a.o"},
					Output:    "a.o",
				},
				{
					Directory: "/proj",
					File:      "b.c",
					Arguments: []string{"cc", "-c", "b.c", "-o", "b.o"},
					Output:    "b.o",
				},
				{
					Directory: "/proj/sub",
					File:      "x.cc",
					Arguments: []string{"g++", "-c", "x.cc", "-o", "x.o"},
					Output:    "x.o",
				},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			fname := filepath.Join(t.TempDir(), "compile_commands.json")
			b := &Builder{Policy: tc.policy}
			_, err := b.Build(ctx, event.Seq(events), compdb.New(fname, compdb.Options{}))
			if err != nil {
				t.Fatalf("Build=%v; want nil", err)
			}
			if diff := cmp.Diff(tc.want, loadEntries(t, fname)); diff != "" {
				t.Errorf("entries diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestBuild_Idempotent(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "compile_commands.json")
	events := []event.Event{
		created(10, "/proj", "gcc", "-c", "a.c"),
		created(11, "/proj", "gcc", "-c", "b.c"),
		created(12, "/proj", "gcc", "-O2", "-c", "a.c"),
	}
	b := &Builder{Policy: Policy{AppendToExisting: true}}
	_, err := b.Build(ctx, event.Seq(events), compdb.New(fname, compdb.Options{}))
	if err != nil {
		t.Fatalf("first Build=%v; want nil", err)
	}
	once := loadEntries(t, fname)
	st, err := b.Build(ctx, event.Seq(events), compdb.New(fname, compdb.Options{}))
	if err != nil {
		t.Fatalf("second Build=%v; want nil", err)
	}
	twice := loadEntries(t, fname)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("entries diff -once +twice:\n%s", diff)
	}
	if len(twice) != 2 || st.Previous != 2 {
		t.Errorf("entries=%d previous=%d; want 2, 2", len(twice), st.Previous)
	}
	if diff := cmp.Diff([]string{"gcc", "-c", "-O2", "a.c", "-o", "a.o"}, twice[0].Arguments); diff != "" {
		t.Errorf("newest entry of a.c diff -want +got:\n%s", diff)
	}
}

func TestBuild_Append(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "compile_commands.json")
	existing := []compdb.Entry{
		{
			Directory: "/proj",
			File:      "old.c",
			Arguments: []string{"cc", "-c", "old.c", "-o", "old.o"},
			Output:    "old.o",
		},
	}
	events := []event.Event{created(10, "/proj", "cc", "-c", "new.c")}
	newEntry := compdb.Entry{
		Directory: "/proj",
		File:      "new.c",
		Arguments: []string{"cc", "-c", "new.c", "-o", "new.o"},
		Output:    "new.o",
	}

	for _, tc := range []struct {
		name   string
		policy Policy
		want   []compdb.Entry
	}{
		{
			name:   "append",
			policy: Policy{AppendToExisting: true},
			want:   append(existing, newEntry),
		},
		{
			name: "replace",
			want: []compdb.Entry{newEntry},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := compdb.New(fname, compdb.Options{}).Save(existing)
			if err != nil {
				t.Fatal(err)
			}
			b := &Builder{Policy: tc.policy}
			_, err = b.Build(ctx, event.Seq(events), compdb.New(fname, compdb.Options{}))
			if err != nil {
				t.Fatalf("Build=%v; want nil", err)
			}
			if diff := cmp.Diff(tc.want, loadEntries(t, fname)); diff != "" {
				t.Errorf("entries diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestBuild_LoadFailure(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "compile_commands.json")
	corrupt := []byte(`[{"directory":`)
	err := os.WriteFile(fname, corrupt, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	b := &Builder{Policy: Policy{AppendToExisting: true}}
	events := []event.Event{created(10, "/proj", "cc", "-c", "a.c")}
	_, err = b.Build(ctx, event.Seq(events), compdb.New(fname, compdb.Options{}))
	if err == nil {
		t.Fatalf("Build with corrupt database=nil; want error")
	}
	buf, err := os.ReadFile(fname)
	if err != nil || string(buf) != string(corrupt) {
		t.Errorf("database=%q, %v; want unchanged", buf, err)
	}
}

func TestBuild_EventError(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "compile_commands.json")
	errRead := errors.New("truncated event file")
	var events iter.Seq2[event.Event, error] = func(yield func(event.Event, error) bool) {
		if !yield(created(10, "/proj", "cc", "-c", "a.c"), nil) {
			return
		}
		yield(nil, errRead)
	}
	b := &Builder{}
	_, err := b.Build(ctx, events, compdb.New(fname, compdb.Options{}))
	if !errors.Is(err, errRead) {
		t.Errorf("Build=%v; want %v", err, errRead)
	}
	if _, err := os.Stat(fname); !os.IsNotExist(err) {
		t.Errorf("database exists after failure: %v", err)
	}
}

func TestTransform(t *testing.T) {
	ctx := context.Background()
	fname := filepath.Join(t.TempDir(), "compile_commands.json")
	err := os.WriteFile(fname, []byte(`[
  {"directory": "/proj", "file": "a.c", "command": "gcc -DX=1 -MD -MF a.d -c a.c -o out/a.o"},
  {"directory": "/proj", "file": "main.c", "arguments": ["gcc", "main.c", "-o", "prog"]},
  {"directory": "/proj", "file": "a.c", "arguments": ["gcc", "-DX=2", "-c", "a.c", "-o", "out/a.o"]},
  {"directory": "/proj", "file": "gen.c", "arguments": ["gcc", "-E", "gen.c"]}
]
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	b := &Builder{}
	st, err := b.Transform(ctx, compdb.New(fname, compdb.Options{}))
	if err != nil {
		t.Fatalf("Transform=%v; want nil", err)
	}
	want := []compdb.Entry{
		{
			Directory: "/proj",
			File:      "a.c",
			Arguments: []string{"gcc", "-c", "-DX=2", "a.c", "-o", "out/a.o"},
			Output:    "out/a.o",
		},
	}
	if diff := cmp.Diff(want, loadEntries(t, fname)); diff != "" {
		t.Errorf("entries diff -want +got:\n%s", diff)
	}
	wantStats := Stats{Events: 4, Calls: 2, Skipped: 1, Filtered: 1, Entries: 1}
	if diff := cmp.Diff(wantStats, st); diff != "" {
		t.Errorf("stats diff -want +got:\n%s", diff)
	}

	_, err = b.Transform(ctx, compdb.New(filepath.Join(t.TempDir(), "missing.json"), compdb.Options{}))
	if err == nil {
		t.Errorf("Transform(missing)=nil; want error")
	}
}
