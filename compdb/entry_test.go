// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package compdb

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEntryUnmarshalJSON(t *testing.T) {
	for _, tc := range []struct {
		name    string
		data    string
		want    Entry
		wantErr bool
	}{
		{
			name: "arguments",
			data: `{"directory":"/proj","file":"foo.c","arguments":["gcc","-c","foo.c","-o","foo.o"],"output":"foo.o"}`,
			want: Entry{
				Directory: "/proj",
				File:      "foo.c",
				Arguments: []string{"gcc", "-c", "foo.c", "-o", "foo.o"},
				Output:    "foo.o",
			},
		},
		{
			name: "command",
			data: `{"directory":"/proj","file":"foo.c","command":"gcc '-DNAME=\"x y\"' -c foo.c"}`,
			want: Entry{
				Directory: "/proj",
				File:      "foo.c",
				Arguments: []string{"gcc", `-DNAME="x y"`, "-c", "foo.c"},
			},
		},
		{
			name:    "badCommand",
			data:    `{"directory":"/proj","file":"foo.c","command":"gcc -c foo.c | tee log"}`,
			wantErr: true,
		},
		{
			name:    "noDirectory",
			data:    `{"file":"foo.c","arguments":["gcc","-c","foo.c"]}`,
			wantErr: true,
		},
		{
			name:    "noCommand",
			data:    `{"directory":"/proj","file":"foo.c"}`,
			wantErr: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var got Entry
			err := json.Unmarshal([]byte(tc.data), &got)
			if tc.wantErr {
				if err == nil {
					t.Errorf("Unmarshal(%s)=nil; want error", tc.data)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal(%s)=%v; want nil", tc.data, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Unmarshal(%s) diff -want +got:\n%s", tc.data, diff)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	entry := func(dir, file, output string) Entry {
		return Entry{
			Directory: dir,
			File:      file,
			Arguments: []string{"cc", "-c", file, "-o", output},
			Output:    output,
		}
	}
	for _, tc := range []struct {
		name     string
		previous []Entry
		current  []Entry
		want     []Entry
	}{
		{
			name: "empty",
			want: []Entry{},
		},
		{
			name:     "previousOnly",
			previous: []Entry{entry("/p", "a.c", "a.o")},
			want:     []Entry{entry("/p", "a.c", "a.o")},
		},
		{
			name:     "appendNew",
			previous: []Entry{entry("/p", "a.c", "a.o")},
			current:  []Entry{entry("/p", "b.c", "b.o")},
			want:     []Entry{entry("/p", "a.c", "a.o"), entry("/p", "b.c", "b.o")},
		},
		{
			name:     "newestWins",
			previous: []Entry{entry("/p", "a.c", "a.o"), entry("/p", "b.c", "b.o")},
			current:  []Entry{entry("/p", "a.c", "out/a.o")},
			want:     []Entry{entry("/p", "a.c", "out/a.o"), entry("/p", "b.c", "b.o")},
		},
		{
			name:    "nonAdjacentDuplicates",
			current: []Entry{entry("/p", "a.c", "1.o"), entry("/p", "b.c", "b.o"), entry("/p", "a.c", "2.o")},
			want:    []Entry{entry("/p", "a.c", "2.o"), entry("/p", "b.c", "b.o")},
		},
		{
			name:     "differentDirectory",
			previous: []Entry{entry("/p", "a.c", "a.o")},
			current:  []Entry{entry("/q", "a.c", "a.o")},
			want:     []Entry{entry("/p", "a.c", "a.o"), entry("/q", "a.c", "a.o")},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := Merge(tc.previous, tc.current)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Merge diff -want +got:\n%s", diff)
			}
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	current := []Entry{
		{Directory: "/p", File: "a.c", Arguments: []string{"cc", "-c", "a.c"}},
		{Directory: "/p", File: "b.c", Arguments: []string{"cc", "-c", "b.c"}},
	}
	once := Merge(nil, current)
	twice := Merge(once, current)
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("Merge twice diff -once +twice:\n%s", diff)
	}
}
