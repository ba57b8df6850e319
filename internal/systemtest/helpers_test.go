package systemtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/burstgraph/internal/app"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/scheduler"
	"github.com/specialistvlad/burstgraph/internal/testutil"
	"github.com/specialistvlad/burstgraph/modules/print"
	"github.com/stretchr/testify/require"
)

// harness runs scenes against one cache location. Every compute call builds
// a fresh App, the way separate invocations of the binary would.
type harness struct {
	t        *testing.T
	scene    string
	cacheURL string
	workers  int
	modules  []registry.Module
}

func newHarness(t *testing.T, hcl string, modules ...registry.Module) *harness {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		t:        t,
		scene:    filepath.Join(dir, "main.hcl"),
		cacheURL: filepath.Join(dir, "cache"),
		workers:  4,
		modules:  append([]registry.Module{&print.Module{}, testutil.FailModule{}}, modules...),
	}
	h.write(hcl)
	return h
}

func (h *harness) write(hcl string) {
	h.t.Helper()
	require.NoError(h.t, os.WriteFile(h.scene, []byte(hcl), 0o600), "failed to write scene")
}

func (h *harness) compute(ctx context.Context, target string, mode scheduler.Mode) (*scheduler.Result, string, error) {
	h.t.Helper()
	out := &testutil.SafeBuffer{}
	cfg := app.DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.CacheURL = h.cacheURL
	cfg.WorkerCount = h.workers

	a, err := app.New(ctx, out, cfg, app.WithModules(h.modules...))
	require.NoError(h.t, err)
	defer func() {
		require.NoError(h.t, a.Close(context.Background()))
		if os.Getenv("BURSTGRAPH_TEST_LOGS") == "true" {
			h.t.Logf("--- Full Log Output for %s ---\n%s", h.t.Name(), out.String())
		}
	}()

	res, err := a.ComputeGraph(ctx, h.scene, target, mode)
	return res, out.String(), err
}
