package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	root := t.TempDir()
	for _, rel := range []string{"a.hcl", "b.YAML", "notes.txt", "nested/c.yml", "nested/deeper/d.hcl"} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	// --- Act ---
	files, err := FindFilesByExtension(root, ".hcl", ".yaml", ".yml")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.YAML"),
		filepath.Join(root, "nested", "c.yml"),
		filepath.Join(root, "nested", "deeper", "d.hcl"),
	}, files)
}

func TestFindFilesByExtension_MissingRoot(t *testing.T) {
	t.Parallel()

	_, err := FindFilesByExtension(filepath.Join(t.TempDir(), "missing"), ".hcl")

	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestHasExtension(t *testing.T) {
	t.Parallel()

	assert.True(t, HasExtension("scene.HCL", ".hcl"))
	assert.False(t, HasExtension("scene.hcl.bak", ".hcl"))
	assert.False(t, HasExtension("Makefile", ".hcl"))
}
