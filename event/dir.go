// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package event

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/infra/build/compdb/sync/semaphore"
)

// fileSema limits number of concurrently opened event files.
var fileSema = semaphore.New("event-file", runtime.NumCPU()*2)

// FileExt is an extension of event files in a trace directory.
const FileExt = ".events.jsonl"

// IsEventFile reports whether fname is an event file in a trace directory.
func IsEventFile(fname string) bool {
	return strings.HasSuffix(fname, FileExt) || strings.HasSuffix(fname, FileExt+compressedExt)
}

// FileName returns a filename of an event file for id.
func FileName(id string, compress bool) string {
	if compress {
		return id + FileExt + compressedExt
	}
	return id + FileExt
}

// ReadDir reads event files in dir, and returns events ordered by time.
// Events with the same time are kept in file name order.
// A file that can not be read, e.g. written by a process killed while
// writing, is skipped with a warning after its readable events.
func ReadDir(ctx context.Context, dir string) ([]Event, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var fnames []string
	for _, ent := range ents {
		if ent.IsDir() || !IsEventFile(ent.Name()) {
			continue
		}
		fnames = append(fnames, filepath.Join(dir, ent.Name()))
	}
	log.Debugf("read %d event files in %s", len(fnames), dir)

	results := make([][]Event, len(fnames))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.NumCPU())
	for i, fname := range fnames {
		eg.Go(func() error {
			return fileSema.Do(ctx, func(ctx context.Context) error {
				events, err := ReadFile(fname)
				if err != nil {
					log.Warnf("skip corrupt event file after %d events: %v", len(events), err)
				}
				results[i] = events
				return nil
			})
		})
	}
	err = eg.Wait()
	if err != nil {
		return nil, err
	}
	var events []Event
	for _, r := range results {
		events = append(events, r...)
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time().Before(events[j].Time())
	})
	return events, nil
}
