// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil provides utilities for shell command lines.
package shutil

import "strings"

// Join joins a command line args to a single string.
// Args are quoted when needed, so the result can be rerun in shell.
func Join(args []string) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(Quote(arg))
	}
	return sb.String()
}

// Quote quotes arg for shell if it contains special characters.
func Quote(arg string) string {
	if arg == "" {
		return `''`
	}
	if !strings.ContainsAny(arg, " \t\n\r\"'\\;&|<>$#`()*?[]{}~!") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
