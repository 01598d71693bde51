// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compdb

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Options is an output format option of the database.
type Options struct {
	// DropOutput drops "output" field from entries on save.
	DropOutput bool
}

// Database is a compilation database backed by a file.
// It is loaded at most once and saved at most once.
type Database struct {
	path string
	opt  Options

	loaded bool
	saved  bool
}

// New returns a database backed by path.
func New(path string, opt Options) *Database {
	return &Database{
		path: path,
		opt:  opt,
	}
}

// Path returns the path of the database file.
func (db *Database) Path() string {
	return db.path
}

// Exists reports whether the database file exists.
func (db *Database) Exists() bool {
	_, err := os.Stat(db.path)
	return err == nil
}

// Load loads entries from the database file.
func (db *Database) Load() ([]Entry, error) {
	if db.loaded {
		return nil, fmt.Errorf("%s is already loaded", db.path)
	}
	db.loaded = true
	buf, err := os.ReadFile(db.path)
	if err != nil {
		return nil, err
	}
	var entries []Entry
	err = json.Unmarshal(buf, &entries)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", db.path, err)
	}
	return entries, nil
}

// Save saves entries to the database file.
// The file is replaced atomically, so the existing file is kept
// intact if it fails.
func (db *Database) Save(entries []Entry) (err error) {
	if db.saved {
		return fmt.Errorf("%s is already saved", db.path)
	}
	db.saved = true
	if entries == nil {
		entries = []Entry{}
	}
	if db.opt.DropOutput {
		dropped := make([]Entry, len(entries))
		for i, e := range entries {
			e.Output = ""
			dropped[i] = e
		}
		entries = dropped
	}
	buf, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	buf = append(buf, '\n')

	dir := filepath.Dir(db.path)
	f, err := os.CreateTemp(dir, filepath.Base(db.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			rerr := os.Remove(f.Name())
			if rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
				err = errors.Join(err, rerr)
			}
		}
	}()
	_, err = f.Write(buf)
	if err != nil {
		return err
	}
	err = f.Sync()
	if err != nil {
		return err
	}
	err = f.Chmod(0o644)
	if err != nil {
		return err
	}
	err = f.Close()
	if err != nil {
		return err
	}
	return os.Rename(f.Name(), db.path)
}
