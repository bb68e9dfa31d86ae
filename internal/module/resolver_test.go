package module

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secd/internal/config"
)

func TestResolverUsesManifestPaths(t *testing.T) {
	tmp := t.TempDir()
	projectRoot := filepath.Join(tmp, "project")
	stdRoot := filepath.Join(projectRoot, "custom_std")
	modRoot := filepath.Join(projectRoot, "modules")
	require.NoError(t, os.MkdirAll(stdRoot, 0o755))
	require.NoError(t, os.MkdirAll(modRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stdRoot, "math.scm"), []byte("(define pi 3)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(modRoot, "util.scm"), []byte("(define answer 42)\n"), 0o644))

	manifestPath := filepath.Join(projectRoot, config.ManifestName)
	manifest := "entry = \"main.scm\"\nstd_root = \"custom_std\"\nmodule_paths = [\"modules\"]\n"
	require.NoError(t, os.WriteFile(manifestPath, []byte(manifest), 0o644))

	man, err := config.LoadManifest(manifestPath)
	require.NoError(t, err)
	stdPath, modulePaths, err := man.ResolvePaths(projectRoot, filepath.Join(projectRoot, "std"))
	require.NoError(t, err)

	res := NewResolver(stdPath, modulePaths)
	fromFile := filepath.Join(projectRoot, "main.scm")

	stdResolved, err := res.Resolve(fromFile, "std:math")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stdRoot, "math.scm"), stdResolved)

	utilResolved, err := res.Resolve(fromFile, "util")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(modRoot, "util.scm"), utilResolved)
}

func TestResolverRelativeAndMissing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.scm"), []byte("(define x 1)\n"), 0o644))

	res := NewResolver(filepath.Join(dir, "std"), nil)
	got, err := res.Resolve(filepath.Join(dir, "main.scm"), "./lib")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "lib.scm"), got)

	_, err = res.Resolve(filepath.Join(dir, "main.scm"), "nowhere")
	var re *ResolveError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "nowhere", re.Spec)
	assert.Contains(t, err.Error(), `missing module "nowhere"`)

	_, err = res.Resolve("", "std:")
	assert.Error(t, err)
}
