// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package build builds compilation database from process events.
package build

import (
	"context"
	"fmt"
	"iter"

	"go.chromium.org/infra/build/compdb/compdb"
	"go.chromium.org/infra/build/compdb/compilation"
	"go.chromium.org/infra/build/compdb/event"
	"go.chromium.org/infra/build/compdb/o11y/clog"
	"go.chromium.org/infra/build/compdb/toolsupport/gccutil"
)

// Policy is a policy of which compiler calls are recorded.
type Policy struct {
	// AppendToExisting merges entries into the existing database,
	// instead of replacing it.
	AppendToExisting bool

	// IncludeLinking records compiler calls that compile and link
	// in one command, as well as compile only calls.
	IncludeLinking bool
}

func (p Policy) keep(call *compilation.CompilerCall) bool {
	return (p.IncludeLinking && call.Pass.IsCompiling()) || call.Pass == gccutil.Compilation
}

// Builder is a builder of compilation database.
type Builder struct {
	Policy Policy

	// Classifier recognizes compiler calls.
	// If nil, it uses default compiler name patterns without
	// MPI wrapper support.
	Classifier *compilation.Classifier
}

func (b *Builder) classifier() *compilation.Classifier {
	if b.Classifier == nil {
		b.Classifier = compilation.NewClassifier(compilation.Config{}, nil)
	}
	return b.Classifier
}

// Build builds compilation database from events and saves it in db.
// Commands other than compiler calls are skipped.
// It fails when it could not read events, load or save db.
func (b *Builder) Build(ctx context.Context, events iter.Seq2[event.Event, error], db *compdb.Database) (Stats, error) {
	var st Stats
	previous, err := b.load(db)
	if err != nil {
		return st, err
	}
	st.Previous = len(previous)

	var current []compdb.Entry
	for ev, err := range events {
		if err != nil {
			return st, fmt.Errorf("failed to read events: %w", err)
		}
		st.Events++
		created, ok := ev.(*event.Created)
		if !ok {
			continue
		}
		ctx := clog.With(ctx, "pid", created.Pid)
		current = append(current, b.entries(ctx, created.Cwd, created.Cmd, &st)...)
	}
	return st, b.save(db, compdb.Merge(previous, current), &st)
}

// Transform rebuilds db from commands in db itself, with the policy.
func (b *Builder) Transform(ctx context.Context, db *compdb.Database) (Stats, error) {
	var st Stats
	entries, err := db.Load()
	if err != nil {
		return st, fmt.Errorf("failed to load compilation database: %w", err)
	}
	var current []compdb.Entry
	for _, e := range entries {
		st.Events++
		ctx := clog.With(ctx, "file", e.File)
		current = append(current, b.entries(ctx, e.Directory, e.Arguments, &st)...)
	}
	return st, b.save(db, compdb.Merge(nil, current), &st)
}

func (b *Builder) load(db *compdb.Database) ([]compdb.Entry, error) {
	if !b.Policy.AppendToExisting || !db.Exists() {
		return nil, nil
	}
	entries, err := db.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load compilation database: %w", err)
	}
	return entries, nil
}

func (b *Builder) save(db *compdb.Database, entries []compdb.Entry, st *Stats) error {
	err := db.Save(entries)
	if err != nil {
		return fmt.Errorf("failed to save compilation database: %w", err)
	}
	st.Entries = len(entries)
	return nil
}

// entries returns database entries for argv run in dir, or nil
// if it is not a compiler call to record.
func (b *Builder) entries(ctx context.Context, dir string, argv []string, st *Stats) []compdb.Entry {
	call, err := compilation.ParseCommand(ctx, b.classifier(), dir, argv)
	if err != nil {
		st.Skipped++
		clog.Debugf(ctx, "skip %q: %v", argv, err)
		return nil
	}
	if !b.Policy.keep(call) {
		st.Filtered++
		clog.Debugf(ctx, "skip %s pass: %q", call.Pass, argv)
		return nil
	}
	st.Calls++
	return compilation.Entries(call)
}
