// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package event

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Writer writes events as JSON lines.
type Writer struct {
	w io.Writer
}

// NewWriter returns a writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes ev.
func (w *Writer) Write(ev Event) error {
	buf, err := Marshal(ev)
	if err != nil {
		return err
	}
	buf = append(buf, '\n')
	_, err = w.w.Write(buf)
	return err
}

// maxLineSize is a max size of a line.
// A command line of a compile may be long.
const maxLineSize = 16 << 20

// Reader reads events from JSON lines.
type Reader struct {
	s    *bufio.Scanner
	line int
}

// NewReader returns a reader reading from r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{s: s}
}

// Next returns the next event, or io.EOF at the end.
func (r *Reader) Next() (Event, error) {
	for r.s.Scan() {
		r.line++
		line := r.s.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		ev, err := Unmarshal(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return ev, nil
	}
	err := r.s.Err()
	if err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// All returns an iterator over remaining events.
// It stops after yielding the first error.
func (r *Reader) All() iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for {
			ev, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// compressedExt is an extension for zstd compressed event file.
const compressedExt = ".zst"

// FileWriter is a writer to an event file.
type FileWriter struct {
	*Writer
	f   *os.File
	enc *zstd.Encoder
}

// Create creates an event file.
// If fname ends with ".zst", the file is compressed with zstd.
func Create(fname string) (*FileWriter, error) {
	f, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{f: f}
	if !strings.HasSuffix(fname, compressedExt) {
		fw.Writer = NewWriter(f)
		return fw, nil
	}
	fw.enc, err = zstd.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	fw.Writer = NewWriter(fw.enc)
	return fw, nil
}

// Close flushes and closes the file.
func (fw *FileWriter) Close() error {
	var errs []error
	if fw.enc != nil {
		errs = append(errs, fw.enc.Close())
	}
	errs = append(errs, fw.f.Close())
	return errors.Join(errs...)
}

// FileReader is a reader of an event file.
type FileReader struct {
	*Reader
	f   *os.File
	dec *zstd.Decoder
}

// Open opens an event file.
// If fname ends with ".zst", the file is decompressed with zstd.
func Open(fname string) (*FileReader, error) {
	f, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	fr := &FileReader{f: f}
	if !strings.HasSuffix(fname, compressedExt) {
		fr.Reader = NewReader(bufio.NewReader(f))
		return fr, nil
	}
	fr.dec, err = zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	fr.Reader = NewReader(fr.dec)
	return fr, nil
}

// Close closes the file.
func (fr *FileReader) Close() error {
	if fr.dec != nil {
		fr.dec.Close()
	}
	return fr.f.Close()
}

// ReadFile reads all events in fname.
// On a decode error, it returns events read before the error.
func ReadFile(fname string) ([]Event, error) {
	fr, err := Open(fname)
	if err != nil {
		return nil, err
	}
	defer fr.Close()
	var events []Event
	for ev, err := range fr.All() {
		if err != nil {
			return events, fmt.Errorf("%s: %w", fname, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// Seq returns an iterator over events.
func Seq(events []Event) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for _, ev := range events {
			if !yield(ev, nil) {
				return
			}
		}
	}
}
