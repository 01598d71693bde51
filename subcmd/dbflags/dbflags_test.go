// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dbflags

import (
	"context"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSetup_ConfigAndFlags(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	config := filepath.Join(dir, "compdb.star")
	err := os.WriteFile(config, []byte(`
c_compilers = ["mycc"]
cxx_compilers = ["mycxx"]
append = True
include_linking = True
drop_output = True
`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	var o Options
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o.RegisterFlags(fs)
	err = fs.Parse([]string{
		"-config", config,
		"-o", filepath.Join(dir, "out.json"),
		"-include_linking=false",
		"-cxx", "a++,b++",
		"-cxx", "c++x",
	})
	if err != nil {
		t.Fatal(err)
	}
	_, b, db, err := o.Setup(ctx)
	if err != nil {
		t.Fatalf("Setup=%v; want nil", err)
	}
	if !b.Policy.AppendToExisting || b.Policy.IncludeLinking {
		t.Errorf("policy=%+v; want append from config and include_linking from flag", b.Policy)
	}
	if !o.DropOutput {
		t.Errorf("DropOutput=false; want true from config")
	}
	if got, want := db.Path(), filepath.Join(dir, "out.json"); got != want {
		t.Errorf("db.Path()=%q; want %q", got, want)
	}
	if diff := cmp.Diff([]string{"mycc", "a++", "b++", "c++x"}, o.Compilers()); diff != "" {
		t.Errorf("Compilers() diff -want +got:\n%s", diff)
	}
	_, _, ok := b.Classifier.Split(ctx, "/src", []string{"b++", "-c", "x.cc"})
	if !ok {
		t.Errorf("Split(b++) ok=false; want true")
	}
}

func TestSetup_BadConfig(t *testing.T) {
	ctx := context.Background()
	config := filepath.Join(t.TempDir(), "compdb.star")
	err := os.WriteFile(config, []byte("append = 1\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	o := Options{ConfigFile: config}
	_, _, _, err = o.Setup(ctx)
	if err == nil {
		t.Errorf("Setup with bad config=nil; want error")
	}
}
