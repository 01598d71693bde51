// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package straceutil provides utilities for strace.
package straceutil

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/compdb/event"
)

var once sync.Once
var path string

// Available returns whether strace is available or not.
func Available() bool {
	once.Do(func() {
		if runtime.GOOS != "linux" {
			return
		}
		var err error
		path, err = exec.LookPath("strace")
		if err != nil {
			log.Warnf("strace is not found: %v", err)
			return
		}
	})
	return path != ""
}

// Strace represents a cmd traced by strace.
type Strace struct {
	id   string
	args []string
	dir  string

	// fname is filename of strace output file.
	fname string
}

// New creates a new Strace for cmd run in dir.
// It will be fatal error when not available, so check Available before New.
func New(ctx context.Context, id string, args []string, dir string) *Strace {
	if !Available() {
		panic("straceutil.New is called when !Available")
	}
	fname := filepath.Join(os.TempDir(), fmt.Sprintf("%s.trace", id))
	return &Strace{
		id:    id,
		args:  args,
		dir:   dir,
		fname: fname,
	}
}

// Close removes the strace output.
func (s *Strace) Close() {
	err := os.Remove(s.fname)
	if err != nil && !os.IsNotExist(err) {
		log.Warnf("failed to remove %s: %v", s.fname, err)
	}
}

// Args returns args to run under strace.
func (s *Strace) Args(ctx context.Context) []string {
	args := []string{
		path,
		"-f",
		"-q",
		"-ttt",
		"-y",
		"-v",
		"-s", "65536",
		"-e", "trace=execve,chdir,fchdir,clone,clone3,fork,vfork",
		"-e", "signal=none",
		"-o", s.fname,
		"--",
	}
	args = append(args, s.args...)
	return args
}

// PostProcess parses strace outputs and returns process events of the cmd
// and its descendants.
func (s *Strace) PostProcess(ctx context.Context) ([]event.Event, error) {
	f, err := os.Open(s.fname)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	events, err := Parse(f, s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.fname, err)
	}
	return events, nil
}
