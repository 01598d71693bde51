// Copyright 2025 The Chromium Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package straceutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"go.chromium.org/infra/build/compdb/event"
)

const (
	unfinishedSuffix = "<unfinished ...>"
	resumedPrefix    = "<... "
	resumedMarker    = " resumed>"

	// printed under the thread group leader when a non-leader
	// thread calls execve. the thread's execve resumes under the leader.
	supersededPrefix = "+++ superseded by execve in pid "
)

// record is a syscall or an exit of a process in strace output.
// A syscall interrupted by other processes is merged into one record,
// placed where the syscall started.
type record struct {
	pid  int
	when time.Time
	body string
}

// Parse parses strace output produced with `-f -ttt -y` and returns
// process events.
// dir is the working directory of the traced command.
//
// line:
//
//	<pid> <sec>.<usec> execve("/usr/bin/gcc", ["gcc", "-c", "a.c"], [...]) = 0
//	<pid> <sec>.<usec> chdir("src") = 0
//	<pid> <sec>.<usec> fchdir(3</path/to/dir>) = 0
//	<pid> <sec>.<usec> clone(child_stack=NULL, flags=...) = <child pid>
//	<pid> <sec>.<usec> vfork( <unfinished ...>
//	<pid> <sec>.<usec> <... vfork resumed>) = <child pid>
//	<pid> <sec>.<usec> +++ exited with 0 +++
//	<pid> <sec>.<usec> +++ killed by SIGSEGV (core dumped) +++
//	<pid> <sec>.<usec> +++ superseded by execve in pid <tid> +++
func Parse(r io.Reader, dir string) ([]event.Event, error) {
	records, err := scanRecords(r)
	if err != nil {
		return nil, err
	}
	p := &parser{
		dir:    dir,
		cwd:    make(map[int]string),
		parent: make(map[int]int),
	}
	for _, rec := range records {
		p.process(rec)
	}
	return p.events, nil
}

func scanRecords(r io.Reader) ([]*record, error) {
	var records []*record
	pending := make(map[int]*record)
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 64<<20)
	lineno := 0
	for s.Scan() {
		lineno++
		line := s.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
		switch {
		case strings.HasSuffix(rec.body, unfinishedSuffix):
			rec.body = strings.TrimSuffix(rec.body, unfinishedSuffix)
			pending[rec.pid] = rec
			records = append(records, rec)
		case strings.HasPrefix(rec.body, resumedPrefix):
			i := strings.Index(rec.body, resumedMarker)
			start, ok := pending[rec.pid]
			if i < 0 || !ok {
				log.Debugf("line %d: no unfinished syscall for %q", lineno, line)
				continue
			}
			delete(pending, rec.pid)
			start.body = strings.TrimRight(start.body, " ") + rec.body[i+len(resumedMarker):]
		case strings.HasPrefix(rec.body, supersededPrefix):
			tid, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(rec.body, supersededPrefix), " +++"))
			if err != nil {
				log.Warnf("line %d: bad superseded line %q", lineno, line)
				continue
			}
			start, ok := pending[tid]
			if !ok {
				continue
			}
			delete(pending, tid)
			start.pid = rec.pid
			pending[rec.pid] = start
		default:
			records = append(records, rec)
		}
	}
	return records, s.Err()
}

// parseLine parses "<pid> <sec>.<usec> <body>".
// "[pid <pid>]" is also accepted for pid.
func parseLine(line string) (*record, error) {
	line = strings.TrimSpace(line)
	if rest, ok := strings.CutPrefix(line, "[pid"); ok {
		pid, rest, ok := strings.Cut(strings.TrimLeft(rest, " "), "]")
		if !ok {
			return nil, fmt.Errorf("bad pid in %q", line)
		}
		line = pid + rest
	}
	pidstr, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("no timestamp in %q", line)
	}
	pid, err := strconv.Atoi(pidstr)
	if err != nil {
		return nil, fmt.Errorf("bad pid in %q: %w", line, err)
	}
	ts, body, ok := strings.Cut(strings.TrimLeft(rest, " "), " ")
	if !ok {
		return nil, fmt.Errorf("no syscall in %q", line)
	}
	when, err := parseTimestamp(ts)
	if err != nil {
		return nil, fmt.Errorf("bad timestamp in %q: %w", line, err)
	}
	return &record{pid: pid, when: when, body: body}, nil
}

func parseTimestamp(ts string) (time.Time, error) {
	secstr, fracstr, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secstr, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	var nsec int64
	if fracstr != "" {
		if len(fracstr) > 9 {
			fracstr = fracstr[:9]
		}
		nsec, err = strconv.ParseInt(fracstr+strings.Repeat("0", 9-len(fracstr)), 10, 64)
		if err != nil {
			return time.Time{}, err
		}
	}
	return time.Unix(sec, nsec), nil
}

type parser struct {
	dir    string
	cwd    map[int]string
	parent map[int]int
	events []event.Event
}

func (p *parser) cwdOf(pid int) string {
	if dir, ok := p.cwd[pid]; ok {
		return dir
	}
	// the traced command, or a child whose clone was not seen.
	p.cwd[pid] = p.dir
	return p.dir
}

func (p *parser) process(rec *record) {
	if exit, ok := strings.CutPrefix(rec.body, "+++ "); ok {
		p.exit(rec, strings.TrimSuffix(exit, " +++"))
		return
	}
	name, args, ok := strings.Cut(rec.body, "(")
	if !ok {
		return
	}
	ret, ok := returnValue(args)
	if !ok || strings.HasPrefix(ret, "-") {
		// failed or unknown result.
		return
	}
	switch name {
	case "clone", "clone3", "fork", "vfork":
		child, err := strconv.Atoi(ret)
		if err != nil || child <= 0 {
			return
		}
		p.parent[child] = rec.pid
		p.cwd[child] = p.cwdOf(rec.pid)

	case "chdir":
		dir, _, err := unquote(args)
		if err != nil {
			log.Warnf("pid=%d: bad chdir %q: %v", rec.pid, rec.body, err)
			return
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(p.cwdOf(rec.pid), dir)
		}
		p.cwd[rec.pid] = filepath.Clean(dir)

	case "fchdir":
		// -y prints fd with its path: 3</path/to/dir>
		i := strings.IndexByte(args, '<')
		j := strings.LastIndexByte(args, '>')
		if i < 0 || j <= i {
			log.Warnf("pid=%d: no path in fchdir %q", rec.pid, rec.body)
			return
		}
		p.cwd[rec.pid] = args[i+1 : j]

	case "execve":
		_, rest, err := unquote(args)
		if err != nil {
			log.Warnf("pid=%d: bad execve path %q: %v", rec.pid, rec.body, err)
			return
		}
		rest = strings.TrimPrefix(strings.TrimLeft(rest, " "), ",")
		argv, err := unquoteArray(strings.TrimLeft(rest, " "))
		if err != nil {
			log.Warnf("pid=%d: bad execve args %q: %v", rec.pid, rec.body, err)
			return
		}
		p.events = append(p.events, &event.Created{
			Pid:  rec.pid,
			PPid: p.parent[rec.pid],
			Cwd:  p.cwdOf(rec.pid),
			Cmd:  argv,
			When: rec.when,
		})
	}
}

// exit handles "exited with <code>" or "killed by <signal> ...".
func (p *parser) exit(rec *record, msg string) {
	if code, ok := strings.CutPrefix(msg, "exited with "); ok {
		n, err := strconv.Atoi(strings.TrimSpace(code))
		if err != nil {
			log.Warnf("pid=%d: bad exit %q", rec.pid, msg)
			return
		}
		p.events = append(p.events, &event.TerminatedNormally{
			Pid:  rec.pid,
			Code: n,
			When: rec.when,
		})
		return
	}
	if sig, ok := strings.CutPrefix(msg, "killed by "); ok {
		sig, _, _ = strings.Cut(sig, " ")
		p.events = append(p.events, &event.TerminatedAbnormally{
			Pid:    rec.pid,
			Signal: sig,
			When:   rec.when,
		})
	}
}

// returnValue returns the return value of a syscall from its args.
func returnValue(args string) (string, bool) {
	i := strings.LastIndex(args, ") = ")
	if i < 0 {
		return "", false
	}
	ret, _, _ := strings.Cut(args[i+len(") = "):], " ")
	return ret, ret != "" && ret != "?"
}

var errNotQuoted = errors.New("not a quoted string")

// unquote unquotes a C string at the beginning of s, and returns
// the rest after it. A truncated string ("..." after the quote) is
// accepted as is.
func unquote(s string) (string, string, error) {
	s = strings.TrimLeft(s, " ")
	if !strings.HasPrefix(s, `"`) {
		return "", s, errNotQuoted
	}
	var sb strings.Builder
	for i := 1; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			return sb.String(), strings.TrimPrefix(s[i+1:], "..."), nil
		case '\\':
			n, ch, err := unescape(s[i+1:])
			if err != nil {
				return "", s, err
			}
			sb.WriteByte(ch)
			i += n
		default:
			sb.WriteByte(ch)
		}
	}
	return "", s, fmt.Errorf("unterminated string %q", s)
}

// unescape decodes an escape sequence after a backslash,
// and returns the number of bytes consumed.
func unescape(s string) (int, byte, error) {
	if s == "" {
		return 0, 0, errors.New("backslash at end")
	}
	switch s[0] {
	case 'n':
		return 1, '\n', nil
	case 't':
		return 1, '\t', nil
	case 'r':
		return 1, '\r', nil
	case 'v':
		return 1, '\v', nil
	case 'f':
		return 1, '\f', nil
	case 'x':
		if len(s) < 3 {
			return 0, 0, fmt.Errorf("bad hex escape %q", s)
		}
		v, err := strconv.ParseUint(s[1:3], 16, 8)
		if err != nil {
			return 0, 0, err
		}
		return 3, byte(v), nil
	case '0', '1', '2', '3', '4', '5', '6', '7':
		n := 1
		for n < 3 && n < len(s) && s[n] >= '0' && s[n] <= '7' {
			n++
		}
		v, err := strconv.ParseUint(s[:n], 8, 8)
		if err != nil {
			return 0, 0, err
		}
		return n, byte(v), nil
	}
	return 1, s[0], nil
}

// unquoteArray unquotes `["a", "b", ...]` at the beginning of s.
func unquoteArray(s string) ([]string, error) {
	rest, ok := strings.CutPrefix(s, "[")
	if !ok {
		return nil, fmt.Errorf("not an array %q", s)
	}
	var elems []string
	for {
		rest = strings.TrimLeft(rest, " ")
		if strings.HasPrefix(rest, "]") || strings.HasPrefix(rest, "...") {
			// "..." is elided elements.
			return elems, nil
		}
		elem, r, err := unquote(rest)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		r = strings.TrimLeft(r, " ")
		switch {
		case strings.HasPrefix(r, ","):
			rest = r[1:]
		case strings.HasPrefix(r, "]"):
			return elems, nil
		default:
			return nil, fmt.Errorf("unexpected %q in array", r)
		}
	}
}
