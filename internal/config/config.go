package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const ManifestName = "secd.toml"

type Manifest struct {
	Name        string
	Entry       string
	StdRoot     string
	ModulePaths []string
	Prelude     bool
	MaxSteps    int64
	MaxMemory   int64
	Verbosity   int
	Trace       bool
}

func Default() *Manifest {
	return &Manifest{Prelude: true}
}

// LoadManifest reads a line-oriented key = value file. Values are quoted
// strings, arrays of quoted strings, integers or booleans.
func LoadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := Default()
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}

		parts := strings.SplitN(s, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%s:%d: invalid line", path, lineNo)
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])

		switch key {
		case "name":
			m.Name, err = quoted(val)
		case "entry":
			m.Entry, err = quoted(val)
		case "std_root":
			m.StdRoot, err = quoted(val)
		case "module_paths":
			m.ModulePaths, err = array(val)
		case "prelude":
			m.Prelude, err = strconv.ParseBool(val)
		case "trace":
			m.Trace, err = strconv.ParseBool(val)
		case "max_steps":
			m.MaxSteps, err = strconv.ParseInt(val, 10, 64)
		case "max_memory":
			m.MaxMemory, err = strconv.ParseInt(val, 10, 64)
		case "verbosity":
			m.Verbosity, err = strconv.Atoi(val)
		default:
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %s: %v", path, lineNo, key, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

func quoted(val string) (string, error) {
	if len(val) < 2 || val[0] != '"' || val[len(val)-1] != '"' {
		return "", fmt.Errorf("value must be a quoted string")
	}
	return val[1 : len(val)-1], nil
}

func array(val string) ([]string, error) {
	if len(val) < 2 || val[0] != '[' || val[len(val)-1] != ']' {
		return nil, fmt.Errorf("value must be an array of quoted strings")
	}
	inner := strings.TrimSpace(val[1 : len(val)-1])
	if inner == "" {
		return nil, nil
	}
	var out []string
	for _, item := range strings.Split(inner, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		s, err := quoted(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ResolvePaths makes the library roots absolute relative to projectRoot.
func (m *Manifest) ResolvePaths(projectRoot, defaultStd string) (string, []string, error) {
	abs := func(p string) (string, error) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(projectRoot, p)
		}
		return filepath.Abs(p)
	}
	std := defaultStd
	if m.StdRoot != "" {
		p, err := abs(m.StdRoot)
		if err != nil {
			return "", nil, err
		}
		std = p
	}
	paths := make([]string, 0, len(m.ModulePaths))
	for _, mp := range m.ModulePaths {
		p, err := abs(mp)
		if err != nil {
			return "", nil, err
		}
		paths = append(paths, p)
	}
	return std, paths, nil
}

// FindManifest walks up from dir looking for secd.toml.
func FindManifest(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}
	for {
		p := filepath.Join(dir, ManifestName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Starter returns the manifest written by secd init.
func Starter(name string) string {
	return fmt.Sprintf("name = %q\nentry = \"main.scm\"\nmodule_paths = [\"lib\"]\nprelude = true\nmax_steps = 0\nmax_memory = 0\nverbosity = 0\n", name)
}
