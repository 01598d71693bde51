// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package build

import "fmt"

// Stats keeps statistics about the build, such as the number of events, recorded or skipped calls.
type Stats struct {
	Events   int // events consumed, or database entries in transform
	Calls    int // compiler calls recorded
	Skipped  int // commands that are not compiler calls, or not compiling
	Filtered int // compiler calls excluded by policy, e.g. linking
	Previous int // entries loaded from the existing database
	Entries  int // entries saved
}

func (s Stats) String() string {
	return fmt.Sprintf("events=%d calls=%d skipped=%d filtered=%d previous=%d entries=%d", s.Events, s.Calls, s.Skipped, s.Filtered, s.Previous, s.Entries)
}
