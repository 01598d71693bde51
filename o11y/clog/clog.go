// Copyright 2023 The Chromium Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clog provides context aware logging.
// It can store arbitrary key/values to each context.
// The main use case is to add process context (pid, cwd) to each log
// entry automatically while a build log is processed.
package clog

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
)

type contextKeyType int

var contextKey contextKeyType

// NewContext sets the given logger to the context.
func NewContext(ctx context.Context, logger *log.Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// FromContext returns a logger in the context, or the default logger
// if it's not set.
func FromContext(ctx context.Context) *log.Logger {
	logger, ok := ctx.Value(contextKey).(*log.Logger)
	if !ok {
		return log.Default()
	}
	return logger
}

// With returns a context whose logger has additional key/values.
func With(ctx context.Context, keyvals ...any) context.Context {
	return NewContext(ctx, FromContext(ctx).With(keyvals...))
}

// Debugf logs at debug log level in the manner of fmt.Printf.
func Debugf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.Helper()
	logger.Debugf(format, args...)
}

// Infof logs at info log level in the manner of fmt.Printf.
func Infof(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.Helper()
	logger.Infof(format, args...)
}

// Warningf logs at warning log level in the manner of fmt.Printf.
func Warningf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.Helper()
	logger.Warnf(format, args...)
}

// Errorf logs at error log level in the manner of fmt.Printf.
func Errorf(ctx context.Context, format string, args ...any) {
	logger := FromContext(ctx)
	logger.Helper()
	logger.Errorf(format, args...)
}

// Options is logging options.
type Options struct {
	// Verbose enables debug logs.
	Verbose bool

	// Format is a log format: "text", "logfmt" or "json".
	Format string
}

// RegisterFlags registers flags for the options.
func (o *Options) RegisterFlags(flagSet *flag.FlagSet) {
	flagSet.BoolVar(&o.Verbose, "v", false, "enable verbose logging")
	flagSet.StringVar(&o.Format, "log_format", "text", `log format. "text", "logfmt" or "json"`)
}

// Setup configures the default logger by the options, and returns
// a context with the logger.
func (o Options) Setup(ctx context.Context) (context.Context, error) {
	var formatter log.Formatter
	switch o.Format {
	case "", "text":
		formatter = log.TextFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	case "json":
		formatter = log.JSONFormatter
	default:
		return ctx, fmt.Errorf("unknown log format %q", o.Format)
	}
	level := log.InfoLevel
	if o.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Formatter:       formatter,
	})
	log.SetDefault(logger)
	ctx = NewContext(ctx, logger)
	if o.Verbose {
		LogBuildInfo(ctx)
	}
	return ctx, nil
}
