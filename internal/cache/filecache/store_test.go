package filecache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const fp = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// --- Arrange ---
	s, err := New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	rec := &cache.Record{Fingerprint: fp, NodeID: "meshing", Output: cty.ObjectVal(map[string]cty.Value{"path": cty.StringVal("m.obj")})}

	// --- Act ---
	_, missErr := s.Load(ctx, fp)
	storeErr := s.Store(ctx, fp, rec)
	got, loadErr := s.Load(ctx, fp)

	// --- Assert ---
	assert.ErrorIs(t, missErr, cache.ErrNotFound)
	require.NoError(t, storeErr)
	require.NoError(t, loadErr)
	assert.True(t, rec.Output.RawEquals(got.Output))
	assert.FileExists(t, filepath.Join(s.Root(), "01", fp+".json"))
}

func TestStore_OverwriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec := &cache.Record{Fingerprint: fp, Output: cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(int64(i))})}
		require.NoError(t, s.Store(ctx, fp, rec))
	}

	entries, err := os.ReadDir(filepath.Join(s.Root(), "01"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, strings.HasPrefix(entries[0].Name(), ".tmp-"))

	got, err := s.Load(ctx, fp)
	require.NoError(t, err)
	assert.True(t, got.Output.GetAttr("n").RawEquals(cty.NumberIntVal(2)))
}

func TestStore_CorruptRecordIsAnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s, err := New(t.TempDir())
	require.NoError(t, err)
	dir := filepath.Join(s.Root(), "01")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, fp+".json"), []byte(`{"fingerprint":`), 0o600))

	_, err = s.Load(ctx, fp)

	require.Error(t, err)
	assert.NotErrorIs(t, err, cache.ErrNotFound)
}

func TestStore_RejectsPathLikeFingerprints(t *testing.T) {
	t.Parallel()

	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "../../etc/passwd")

	assert.ErrorContains(t, err, "invalid fingerprint")
}
