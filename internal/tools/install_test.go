package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindModuleRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module secd\n"), 0o644))
	nested := filepath.Join(root, "internal", "x")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := FindModuleRoot(nested)
	require.NoError(t, err)
	want, _ := filepath.Abs(root)
	assert.Equal(t, want, got)
}

func TestFindModuleRootMissing(t *testing.T) {
	_, err := FindModuleRoot(t.TempDir())
	assert.ErrorContains(t, err, "no go.mod")
}

func TestBinariesAreCommands(t *testing.T) {
	root, err := FindModuleRoot(".")
	require.NoError(t, err)
	for _, b := range Binaries {
		_, err := os.Stat(filepath.Join(root, b.Package, "main.go"))
		assert.NoError(t, err, b.Name)
	}
}
