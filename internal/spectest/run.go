package spectest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"secd/internal/diag"
	"secd/internal/evaluator"
	"secd/internal/module"
	"secd/internal/vm"
)

type Result struct {
	Stdout string
	Err    error
}

// Message is the text error expectations match against: "CODE: message"
// for diagnostics, "exit N" for a non-zero exit.
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	var exit *vm.ExitError
	if errors.As(r.Err, &exit) {
		return exit.Error()
	}
	d := diag.FromError(r.Err)
	return FormatError(d.Code, d.Message)
}

// Code is the diagnostic code of the error, if any.
func (r Result) Code() string {
	if r.Err == nil {
		return ""
	}
	return diag.Code(r.Err)
}

func FormatError(code, msg string) string {
	if code == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", code, msg)
}

// RunFile loads path into a fresh evaluator that writes to a buffer and
// reads from empty input. (exit 0) counts as success.
func RunFile(path string, res *module.Resolver, opts ...evaluator.Option) Result {
	var out bytes.Buffer
	base := []evaluator.Option{
		evaluator.WithOutput(&out),
		evaluator.WithInput(strings.NewReader("")),
		evaluator.WithFile(path),
	}
	ev, err := evaluator.NewWithLibraries(res, append(base, opts...)...)
	if err != nil {
		return Result{Err: err}
	}
	_, err = ev.LoadFile(path)
	var exit *vm.ExitError
	if errors.As(err, &exit) && exit.Code == 0 {
		err = nil
	}
	return Result{Stdout: out.String(), Err: err}
}

// CheckFile runs a test program and checks it against its own directives.
func CheckFile(path string, res *module.Resolver, opts ...evaluator.Option) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	exp, err := ParseExpectation(string(src))
	if err != nil {
		return err
	}
	return exp.Check(RunFile(path, res, opts...), filepath.Dir(path))
}

// Collect finds test programs under the targets: files named *_test.scm,
// and any .scm file inside a tests directory except tests/fixtures.
// Explicitly named files are always taken.
func Collect(targets []string) ([]string, error) {
	var files []string
	seen := map[string]bool{}
	add := func(path string) error {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		if !seen[abs] {
			seen[abs] = true
			files = append(files, abs)
		}
		return nil
	}
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if err := add(target); err != nil {
				return nil, err
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				base := filepath.Base(path)
				if base == ".git" || base == "fixtures" {
					return filepath.SkipDir
				}
				return nil
			}
			if isTestFile(path) {
				return add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isTestFile(path string) bool {
	if !strings.HasSuffix(path, module.Ext) {
		return false
	}
	if strings.HasSuffix(path, "_test"+module.Ext) {
		return true
	}
	sep := string(os.PathSeparator)
	return strings.Contains(path, sep+"tests"+sep) || strings.HasPrefix(path, "tests"+sep)
}
