package spectest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"secd/internal/evaluator"
	"secd/internal/module"
)

// Options describes a throwaway project for Run: Source becomes the entry
// file, Files are written next to it.
type Options struct {
	Source    string
	Files     map[string]string
	Entry     string
	Input     string
	MaxSteps  int64
	MaxMemory int64
}

// Want is what a Run should produce. An empty ErrCode and ErrContains means
// the run must succeed.
type Want struct {
	Stdout      string
	ErrCode     string
	ErrContains string
}

func Run(t *testing.T, opts Options) Result {
	t.Helper()

	entryPath, tempDir := writeFiles(t, opts)
	res := module.NewResolver(StdRoot(t), []string{tempDir})
	return RunFile(entryPath, res,
		evaluator.WithInput(strings.NewReader(opts.Input)),
		evaluator.WithMaxSteps(opts.MaxSteps),
		evaluator.WithMaxMemory(opts.MaxMemory),
	)
}

func Assert(t *testing.T, res Result, want Want) {
	t.Helper()

	if err := MatchStdout(res.Stdout, StdoutExpectation{Mode: StdoutExact, Value: want.Stdout}, ""); err != nil {
		t.Fatal(err)
	}

	wantErr := want.ErrCode != "" || want.ErrContains != ""
	if wantErr && res.Err == nil {
		t.Fatalf("expected error %q/%q, got none", want.ErrCode, want.ErrContains)
	}
	if !wantErr && res.Err != nil {
		t.Fatalf("unexpected error: %s", res.Message())
	}

	if want.ErrCode != "" && res.Code() != want.ErrCode {
		t.Fatalf("error code mismatch: expected %q, got %q (%s)", want.ErrCode, res.Code(), res.Message())
	}
	if want.ErrContains != "" && !strings.Contains(res.Message(), want.ErrContains) {
		t.Fatalf("error message mismatch: expected to contain %q, got %q", want.ErrContains, res.Message())
	}
}

func writeFiles(t *testing.T, opts Options) (string, string) {
	t.Helper()

	entry := opts.Entry
	if entry == "" {
		entry = "main" + module.Ext
	}
	if filepath.IsAbs(entry) {
		t.Fatalf("entry path must be relative, got %q", entry)
	}

	root := t.TempDir()
	files := map[string]string{}
	for rel, contents := range opts.Files {
		files[rel] = contents
	}
	if opts.Source != "" {
		files[entry] = opts.Source
	}
	for rel, contents := range files {
		if filepath.IsAbs(rel) {
			t.Fatalf("file path must be relative, got %q", rel)
		}
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create file dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
			t.Fatalf("failed to write file %s: %v", rel, err)
		}
	}

	return filepath.Join(root, entry), root
}

// StdRoot finds the std directory at the repository root.
func StdRoot(t *testing.T) string {
	t.Helper()

	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get wd: %v", err)
	}
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "std")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("could not find repo root from %s", start)
		}
		dir = parent
	}
}
