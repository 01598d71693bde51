// Copyright 2023 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package shutil

import (
	"fmt"
	"strings"
)

// Split splits a command line.
// It supports backslash escapes, double quotes and single quotes,
// and returns error for shell constructs such as pipes, redirects,
// variable expansions or comments.
func Split(cmdline string) ([]string, error) {
	var args []string
	var sb strings.Builder
	// inarg is true while an arg is being built, so that
	// `""` is kept as an empty arg.
	inarg := false
	escaped := false
	var quote rune
	for _, ch := range cmdline {
		if escaped {
			sb.WriteRune(ch)
			escaped = false
			continue
		}
		switch quote {
		case '\'':
			if ch == '\'' {
				quote = 0
				continue
			}
			sb.WriteRune(ch)
			continue
		case '"':
			switch ch {
			case '"':
				quote = 0
			case '\\':
				escaped = true
			default:
				sb.WriteRune(ch)
			}
			continue
		}
		switch ch {
		case '\\':
			inarg = true
			escaped = true
		case '"', '\'':
			inarg = true
			quote = ch
		case ' ', '\t', '\n', '\r':
			if inarg {
				args = append(args, sb.String())
				sb.Reset()
				inarg = false
			}
		case ';', '&', '|', '<', '>', '$', '#', '`', '(', ')':
			return nil, fmt.Errorf("failed to split: cmdline contains shell metachar %c", ch)
		default:
			inarg = true
			sb.WriteRune(ch)
		}
	}
	if escaped {
		return nil, fmt.Errorf("failed to split: cmdline ends with backslash")
	}
	if quote != 0 {
		return nil, fmt.Errorf("failed to split: unterminated quote %c", quote)
	}
	if inarg {
		args = append(args, sb.String())
	}
	if len(args) >= 1 && strings.Contains(args[0], "=") {
		// if initial args contains =, it would set env var and need to invoke via sh
		return nil, fmt.Errorf("argv[0] is env set %q", args[0])
	}
	return args, nil
}
