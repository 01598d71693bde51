// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gccutil

import "testing"

func TestIsSourceFile(t *testing.T) {
	for _, tc := range []struct {
		arg  string
		want bool
	}{
		{"foo.c", true},
		{"../../base/version.cc", true},
		{"foo.cpp", true},
		{"foo.cxx", true},
		{"foo.C", true},
		{"foo.c++", true},
		{"foo.m", true},
		{"foo.mm", true},
		{"foo.S", true},
		{"foo.i", true},
		{"foo.h", false},
		{"foo.o", false},
		{"foo", false},
		{"libfoo.a", false},
		{"-foo.c", false},
		{"foo.Cc", false},
	} {
		if got := IsSourceFile(tc.arg); got != tc.want {
			t.Errorf("IsSourceFile(%q)=%t; want %t", tc.arg, got, tc.want)
		}
	}
}

func TestOptionArgs(t *testing.T) {
	for _, flag := range []string{"-D", "-I", "-include", "-isystem", "-x", "-Xclang"} {
		if !OptionArgs(flag) {
			t.Errorf("OptionArgs(%q)=false; want true", flag)
		}
	}
	for _, flag := range []string{"-DFOO", "-Ifoo", "-O2", "-c", "-o", "-Wall"} {
		if OptionArgs(flag) {
			t.Errorf("OptionArgs(%q)=true; want false", flag)
		}
	}
}
