package module

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secd/internal/diag"
	"secd/internal/object"
)

// fakeLibrary treats each line "import spec" as an import and each other
// line as an exported name bound to the file's base name.
type fakeLibrary struct {
	loader  *Loader
	exports []object.Binding
}

func (f *fakeLibrary) LoadFile(path string) (object.Object, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if spec, ok := strings.CutPrefix(line, "import "); ok {
			if _, _, err := f.loader.Load(path, spec); err != nil {
				return nil, err
			}
			continue
		}
		f.exports = append(f.exports, object.Binding{
			Name:  &object.Symbol{Name: line},
			Value: &object.String{Value: filepath.Base(path)},
		})
	}
	return object.Unspecified, nil
}

func (f *fakeLibrary) Exports() []object.Binding { return f.exports }

func newFakeLoader(dir string) (*Loader, *int) {
	created := 0
	l := NewLoader(NewResolver(filepath.Join(dir, "std"), []string{dir}), nil)
	l.SetFactory(func(path string) (Library, error) {
		created++
		return &fakeLibrary{loader: l}, nil
	})
	return l, &created
}

func TestLoaderCachesLibraries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.scm"), []byte("alpha\nbeta\n"), 0o644))

	l, created := newFakeLoader(dir)
	main := filepath.Join(dir, "main.scm")

	bindings, path, err := l.Load(main, "a")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.scm"), path)
	require.Len(t, bindings, 2)
	assert.Equal(t, "alpha", bindings[0].Name.Name)
	assert.Equal(t, "beta", bindings[1].Name.Name)

	_, _, err = l.Load(main, "./a")
	require.NoError(t, err)
	assert.Equal(t, 1, *created)
}

func TestLoaderDetectsCycles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.scm"), []byte("import b\nalpha\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.scm"), []byte("import a\nbeta\n"), 0o644))

	l, _ := newFakeLoader(dir)
	_, _, err := l.Load(filepath.Join(dir, "main.scm"), "a")
	require.Error(t, err)
	assert.True(t, errorx.IsOfType(err, diag.Import))
	assert.Contains(t, err.Error(), "import cycle")
	assert.Contains(t, err.Error(), filepath.Join(dir, "a.scm")+" -> "+filepath.Join(dir, "b.scm"))
}

func TestLoaderMissingModule(t *testing.T) {
	l, _ := newFakeLoader(t.TempDir())
	imp := &Importer{Loader: l}
	_, err := imp.Import("ghost")
	require.Error(t, err)
	assert.Equal(t, diag.CodeImport, diag.Code(err))
}
