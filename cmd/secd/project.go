package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"secd/internal/config"
	"secd/internal/evaluator"
	"secd/internal/module"
)

// project is where a program runs from: the directory that anchors
// relative paths, the manifest in effect and the entry file, if any.
type project struct {
	root     string
	entry    string
	manifest *config.Manifest
}

// loadProject resolves a run target. A directory must hold a manifest
// naming its entry; a file picks up the nearest manifest above it; an
// empty target uses the working directory.
func loadProject(target string) (*project, error) {
	if target == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		return nearest(cwd, "")
	}
	info, err := os.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path not found: %s", target)
		}
		return nil, err
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nearest(filepath.Dir(abs), abs)
	}
	manifestPath := filepath.Join(abs, config.ManifestName)
	man, err := config.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(man.Entry) == "" {
		return nil, fmt.Errorf("%s: missing entry", manifestPath)
	}
	return &project{root: abs, entry: filepath.Join(abs, man.Entry), manifest: man}, nil
}

func nearest(dir, entry string) (*project, error) {
	path, ok := config.FindManifest(dir)
	if !ok {
		return &project{root: dir, entry: entry, manifest: config.Default()}, nil
	}
	man, err := config.LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return &project{root: filepath.Dir(path), entry: entry, manifest: man}, nil
}

// resolver searches std, the manifest's module paths, then the project root.
func (p *project) resolver() (*module.Resolver, error) {
	std, paths, err := p.manifest.ResolvePaths(p.root, filepath.Join(p.root, "std"))
	if err != nil {
		return nil, err
	}
	return module.NewResolver(std, append(paths, p.root)), nil
}

// runOptions are the evaluator flags shared by run, repl and dis. Flags the
// user set win over the manifest.
type runOptions struct {
	exprs     []string
	dis       bool
	noPrelude bool
	maxSteps  int64
	maxMemory int64
	trace     bool
}

func (o *runOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVar(&o.noPrelude, "no-prelude", false, "start without the prelude macros and procedures")
	f.Int64Var(&o.maxSteps, "max-steps", 0, "instruction budget (0 = unlimited)")
	f.Int64Var(&o.maxMemory, "max-memory", 0, "allocation budget in bytes (0 = unlimited)")
	f.BoolVar(&o.trace, "trace", false, "log every executed instruction at debug level")
}

func (o *runOptions) evaluatorOptions(cmd *cobra.Command, m *config.Manifest) []evaluator.Option {
	f := cmd.Flags()
	prelude := m.Prelude
	if f.Changed("no-prelude") {
		prelude = !o.noPrelude
	}
	steps := m.MaxSteps
	if f.Changed("max-steps") {
		steps = o.maxSteps
	}
	memory := m.MaxMemory
	if f.Changed("max-memory") {
		memory = o.maxMemory
	}
	trace := m.Trace
	if f.Changed("trace") {
		trace = o.trace
	}
	opts := []evaluator.Option{
		evaluator.WithMaxSteps(steps),
		evaluator.WithMaxMemory(memory),
		evaluator.WithTrace(trace),
	}
	if !prelude {
		opts = append(opts, evaluator.WithoutPrelude())
	}
	return opts
}

// newEvaluator builds an instance wired to the project's libraries and the
// app's streams.
func (a *app) newEvaluator(cmd *cobra.Command, p *project, o *runOptions) (*evaluator.Evaluator, error) {
	a.configureLogging(p.manifest.Verbosity)
	res, err := p.resolver()
	if err != nil {
		return nil, err
	}
	opts := append([]evaluator.Option{
		evaluator.WithOutput(a.out),
		evaluator.WithInput(a.in),
	}, o.evaluatorOptions(cmd, p.manifest)...)
	if p.entry != "" {
		opts = append(opts, evaluator.WithFile(p.entry))
	}
	return evaluator.NewWithLibraries(res, opts...)
}
