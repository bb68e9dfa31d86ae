// Package spectest checks Scheme programs against expectations written in
// their leading comment lines:
//
//	;; expect: ok
//	;; expect: error contains "car"
//	;; expect: stdout "3\n"
//
// One outcome directive (ok, error, error contains) and one stdout
// directive (stdout, stdout contains, stdout file) may be given.
package spectest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Outcome int

const (
	ExpectOK Outcome = iota
	ExpectError
	ExpectErrorContains
)

type StdoutMode int

const (
	StdoutNone StdoutMode = iota
	StdoutExact
	StdoutContains
	StdoutFile
)

type StdoutExpectation struct {
	Mode  StdoutMode
	Value string
}

type Expectation struct {
	Outcome   Outcome
	Substring string
	Stdout    StdoutExpectation

	hasOutcome bool
	hasStdout  bool
}

// ParseExpectation reads directives from the comment lines at the top of
// src. Reading stops at the first line that is neither blank nor a comment.
func ParseExpectation(src string) (*Expectation, error) {
	exp := &Expectation{}
	sc := bufio.NewScanner(strings.NewReader(src))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, ";") {
			break
		}
		comment := strings.TrimSpace(strings.TrimLeft(line, ";"))
		if !strings.HasPrefix(strings.ToLower(comment), "expect:") {
			continue
		}
		if err := exp.directive(strings.TrimSpace(comment[len("expect:"):])); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return exp, sc.Err()
}

func (e *Expectation) directive(body string) error {
	lower := strings.ToLower(body)
	switch {
	case lower == "ok":
		return e.outcome(ExpectOK, "")
	case lower == "error":
		return e.outcome(ExpectError, "")
	case strings.HasPrefix(lower, "error contains"):
		sub, err := parseQuoted(body[len("error contains"):])
		if err != nil {
			return err
		}
		return e.outcome(ExpectErrorContains, sub)
	case strings.HasPrefix(lower, "stdout file"):
		return e.stdout(StdoutFile, body[len("stdout file"):])
	case strings.HasPrefix(lower, "stdout contains"):
		return e.stdout(StdoutContains, body[len("stdout contains"):])
	case strings.HasPrefix(lower, "stdout"):
		return e.stdout(StdoutExact, body[len("stdout"):])
	default:
		return fmt.Errorf("invalid expect directive %q", body)
	}
}

func (e *Expectation) outcome(o Outcome, sub string) error {
	if e.hasOutcome {
		return fmt.Errorf("multiple outcome expect directives")
	}
	e.hasOutcome = true
	e.Outcome = o
	e.Substring = sub
	return nil
}

func (e *Expectation) stdout(mode StdoutMode, rest string) error {
	if e.hasStdout {
		return fmt.Errorf("multiple stdout expect directives")
	}
	val, err := parseQuoted(rest)
	if err != nil {
		return err
	}
	e.hasStdout = true
	e.Stdout = StdoutExpectation{Mode: mode, Value: val}
	return nil
}

func parseQuoted(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] != '"' {
		return "", fmt.Errorf("expected quoted string")
	}
	return strconv.Unquote(raw)
}

// Check compares a run against the expectation. A nil result means the run
// passed. baseDir anchors relative stdout file paths.
func (e *Expectation) Check(r Result, baseDir string) error {
	msg := r.Message()
	switch e.Outcome {
	case ExpectOK:
		if r.Err != nil {
			return fmt.Errorf("expected ok, got error: %s", msg)
		}
	case ExpectError:
		if r.Err == nil {
			return fmt.Errorf("expected error, got ok")
		}
	case ExpectErrorContains:
		if r.Err == nil {
			return fmt.Errorf("expected error, got ok")
		}
		if !strings.Contains(msg, e.Substring) {
			return fmt.Errorf("error mismatch: expected to contain %q, got %q", e.Substring, msg)
		}
	}
	return MatchStdout(r.Stdout, e.Stdout, baseDir)
}

func NormalizeNewlines(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// MatchStdout returns a mismatch error, or nil when got satisfies exp.
func MatchStdout(got string, exp StdoutExpectation, baseDir string) error {
	got = NormalizeNewlines(got)
	switch exp.Mode {
	case StdoutNone:
		return nil
	case StdoutExact:
		if want := NormalizeNewlines(exp.Value); got != want {
			return fmt.Errorf("stdout mismatch: expected %q, got %q", want, got)
		}
	case StdoutContains:
		if want := NormalizeNewlines(exp.Value); !strings.Contains(got, want) {
			return fmt.Errorf("stdout mismatch: expected to contain %q, got %q", want, got)
		}
	case StdoutFile:
		path := exp.Value
		if path == "" {
			return fmt.Errorf("stdout file path is empty")
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if want := NormalizeNewlines(string(b)); got != want {
			return fmt.Errorf("stdout mismatch: expected file %q to match, got %q", exp.Value, got)
		}
	default:
		return fmt.Errorf("unknown stdout expectation")
	}
	return nil
}
