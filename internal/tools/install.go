// Package tools builds the secd binaries from a checkout of this module.
package tools

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

type Binary struct {
	Name    string
	Package string
}

// Binaries are the commands installed by Install, relative to the module root.
var Binaries = []Binary{
	{Name: "secd", Package: "./cmd/secd"},
	{Name: "secd-lsp", Package: "./cmd/secd-lsp"},
}

type InstallOptions struct {
	BinDir string
	// Root is the module checkout; empty means the nearest go.mod above
	// the working directory.
	Root   string
	Stdout io.Writer
	Stderr io.Writer
}

// Install runs go build for every binary and returns the written paths.
func Install(opts InstallOptions) ([]string, error) {
	if opts.BinDir == "" {
		opts.BinDir = "bin"
	}
	if opts.Root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root, err := FindModuleRoot(cwd)
		if err != nil {
			return nil, err
		}
		opts.Root = root
	}
	bin, err := filepath.Abs(opts.BinDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(bin, 0o755); err != nil {
		return nil, err
	}

	var out []string
	for _, b := range Binaries {
		target := filepath.Join(bin, b.Name)
		if err := goBuild(opts, b.Package, target); err != nil {
			return out, fmt.Errorf("build %s: %w", b.Name, err)
		}
		out = append(out, target)
	}
	return out, nil
}

// FindModuleRoot walks up from dir to the first directory holding go.mod.
func FindModuleRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if st, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil && !st.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no go.mod found above %s", dir)
		}
		dir = parent
	}
}

func goBuild(opts InstallOptions, pkg, out string) error {
	cmd := exec.Command("go", "build", "-o", out, pkg)
	cmd.Dir = opts.Root
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}
