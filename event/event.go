// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package event provides process lifecycle events observed in a build.
package event

import (
	"encoding/json"
	"errors"
	"time"
)

// Event is a process lifecycle event.
// It is one of *Created, *TerminatedNormally or *TerminatedAbnormally.
type Event interface {
	// ProcessID returns the pid of the process.
	ProcessID() int

	// Time returns when the event happened.
	Time() time.Time
}

// Created is an event of a process started to run a command.
type Created struct {
	Pid  int       `json:"pid"`
	PPid int       `json:"ppid"`
	Cwd  string    `json:"cwd"`
	Cmd  []string  `json:"cmd"`
	When time.Time `json:"when"`
}

func (e *Created) ProcessID() int  { return e.Pid }
func (e *Created) Time() time.Time { return e.When }

// TerminatedNormally is an event of a process exited with code.
type TerminatedNormally struct {
	Pid  int       `json:"pid"`
	Code int       `json:"code"`
	When time.Time `json:"when"`
}

func (e *TerminatedNormally) ProcessID() int  { return e.Pid }
func (e *TerminatedNormally) Time() time.Time { return e.When }

// TerminatedAbnormally is an event of a process killed by signal.
type TerminatedAbnormally struct {
	Pid    int       `json:"pid"`
	Signal string    `json:"signal"`
	When   time.Time `json:"when"`
}

func (e *TerminatedAbnormally) ProcessID() int  { return e.Pid }
func (e *TerminatedAbnormally) Time() time.Time { return e.When }

// envelope is JSON representation of an event.
// Exactly one field is set.
type envelope struct {
	Created              *Created              `json:"created,omitempty"`
	TerminatedNormally   *TerminatedNormally   `json:"terminated_normally,omitempty"`
	TerminatedAbnormally *TerminatedAbnormally `json:"terminated_abnormally,omitempty"`
}

var errUnknownEvent = errors.New("unknown event")

// Marshal returns JSON encoding of ev.
func Marshal(ev Event) ([]byte, error) {
	var env envelope
	switch ev := ev.(type) {
	case *Created:
		env.Created = ev
	case *TerminatedNormally:
		env.TerminatedNormally = ev
	case *TerminatedAbnormally:
		env.TerminatedAbnormally = ev
	default:
		return nil, errUnknownEvent
	}
	return json.Marshal(env)
}

// Unmarshal parses JSON encoded event.
func Unmarshal(b []byte) (Event, error) {
	var env envelope
	err := json.Unmarshal(b, &env)
	if err != nil {
		return nil, err
	}
	switch {
	case env.Created != nil:
		return env.Created, nil
	case env.TerminatedNormally != nil:
		return env.TerminatedNormally, nil
	case env.TerminatedAbnormally != nil:
		return env.TerminatedAbnormally, nil
	}
	return nil, errUnknownEvent
}
