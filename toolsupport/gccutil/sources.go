// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gccutil

import (
	"path/filepath"
	"strings"
)

// sourceExts are extensions of files gcc/clang compile.
// It is case sensitive: .C is c++, .c is c.
var sourceExts = map[string]bool{
	".c":   true,
	".i":   true,
	".ii":  true,
	".m":   true,
	".mi":  true,
	".mm":  true,
	".mii": true,
	".C":   true,
	".cc":  true,
	".CC":  true,
	".cp":  true,
	".cpp": true,
	".CPP": true,
	".cxx": true,
	".c++": true,
	".C++": true,
	".txx": true,
	".s":   true,
	".S":   true,
	".sx":  true,
}

// IsSourceFile reports whether arg looks like a source file to compile.
func IsSourceFile(arg string) bool {
	if strings.HasPrefix(arg, "-") {
		return false
	}
	return sourceExts[filepath.Ext(arg)]
}

// optionArgs are flags that take the following arg as its value.
// https://clang.llvm.org/docs/ClangCommandLineReference.html
var optionArgs = map[string]bool{
	"-D":                      true,
	"-I":                      true,
	"-U":                      true,
	"-F":                      true,
	"-include":                true,
	"-imacros":                true,
	"-isystem":                true,
	"-iquote":                 true,
	"-idirafter":              true,
	"-iprefix":                true,
	"-iwithprefix":            true,
	"-iwithprefixbefore":      true,
	"-isysroot":               true,
	"-imultilib":              true,
	"-x":                      true,
	"-arch":                   true,
	"-target":                 true,
	"-aux-info":               true,
	"-Xclang":                 true,
	"-Xpreprocessor":          true,
	"-Xassembler":             true,
	"-Xcuda-ptxas":            true,
	"-Xarch_host":             true,
	"-Xarch_device":           true,
	"--sysroot":               true,
	"--include-directory":     true,
	"--param":                 true,
	"-ivfsoverlay":            true,
	"-working-directory":      true,
	"--serialize-diagnostics": true,
}

// OptionArgs reports whether flag takes the next arg as its value.
func OptionArgs(flag string) bool {
	return optionArgs[flag]
}
