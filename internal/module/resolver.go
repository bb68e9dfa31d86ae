package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const Ext = ".scm"

type Resolver struct {
	StdRoot string
	Paths   []string
}

// ResolveError reports an import that names no existing file.
type ResolveError struct {
	Spec string
	From string
	Path string
}

func (e *ResolveError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("missing module %q: %s does not exist", e.Spec, e.Path)
	}
	return fmt.Sprintf("missing module %q imported from %s", e.Spec, e.From)
}

func NewResolver(stdRoot string, extraPaths []string) *Resolver {
	return &Resolver{StdRoot: stdRoot, Paths: extraPaths}
}

// Resolve maps spec to an absolute file path. std:name looks only in the
// standard root; ./ and ../ are relative to fromFile; anything else tries
// the standard root and then each extra path.
func (r *Resolver) Resolve(fromFile string, spec string) (string, error) {
	addExt := func(p string) string {
		if filepath.Ext(p) == "" {
			return p + Ext
		}
		return p
	}

	if strings.HasPrefix(spec, "std:") {
		name := strings.TrimPrefix(spec, "std:")
		if name == "" {
			return "", fmt.Errorf("invalid std import: %q", spec)
		}
		p := filepath.Join(r.StdRoot, addExt(name))
		return mustExist(spec, p)
	}

	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || filepath.IsAbs(spec) {
		p := spec
		if !filepath.IsAbs(p) {
			base := "."
			if fromFile != "" {
				base = filepath.Dir(fromFile)
			}
			p = filepath.Join(base, p)
		}
		p = addExt(p)
		p, _ = filepath.Abs(p)
		return mustExist(spec, p)
	}

	if r.StdRoot != "" {
		p := filepath.Join(r.StdRoot, addExt(spec))
		if ok, _ := exists(p); ok {
			p, _ = filepath.Abs(p)
			return p, nil
		}
	}
	for _, root := range r.Paths {
		pp := filepath.Join(root, addExt(spec))
		if ok, _ := exists(pp); ok {
			pp, _ = filepath.Abs(pp)
			return pp, nil
		}
	}

	return "", &ResolveError{Spec: spec, From: fromFile}
}

func exists(p string) (bool, error) {
	st, err := os.Stat(p)
	if err == nil {
		return !st.IsDir(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func mustExist(spec, p string) (string, error) {
	ok, err := exists(p)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &ResolveError{Spec: spec, Path: p}
	}
	return p, nil
}
