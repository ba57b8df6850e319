package app

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/specialistvlad/burstgraph/internal/graph"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/scheduler"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/specialistvlad/burstgraph/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const pipelineHCL = `
node "print" "camera_init" {
  images = "/data/images"
}

node "print" "features" {
  from   = node.camera_init.output.images
  preset = "normal"
}

node "print" "meshing" {
  from = "${node.features.output.from}/mesh.obj"
}
`

func writeScene(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func newTestApp(t *testing.T, opts ...Option) (*App, *testutil.SafeBuffer) {
	t.Helper()
	out := &testutil.SafeBuffer{}
	cfg := DefaultConfig()
	cfg.LogLevel = "debug"
	cfg.CacheURL = "mem://"

	a, err := New(context.Background(), out, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Close(context.Background()))
		if os.Getenv("BURSTGRAPH_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return a, out
}

func TestComputeGraph_RunsAndReuses(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// --- Arrange ---
	a, out := newTestApp(t)
	scene := writeScene(t, "scene.hcl", pipelineHCL)

	// --- Act ---
	first, err := a.ComputeGraph(ctx, scene, "", scheduler.Incremental)
	require.NoError(t, err)
	second, err := a.ComputeGraph(ctx, scene, "", scheduler.Incremental)
	require.NoError(t, err)

	// --- Assert ---
	assert.True(t, first.OK(), "%v", first.Err())
	assert.Equal(t, []string{"camera_init", "features", "meshing"}, first.Succeeded)
	assert.Contains(t, out.String(), `from = "/data/images/mesh.obj"`)

	assert.Empty(t, second.Succeeded)
	assert.Equal(t, []string{"camera_init", "features", "meshing"}, second.Skipped)

	evs := a.Recorder().ForNode("meshing")
	require.NotEmpty(t, evs)
	assert.Equal(t, node.Computed, evs[len(evs)-1].Status)
}

func TestComputeGraph_YAMLScene(t *testing.T) {
	t.Parallel()

	a, out := newTestApp(t)
	scene := writeScene(t, "scene.yaml", `
nodes:
  - name: greet
    type: print
    params:
      msg: hello
  - name: shout
    type: print
    params:
      msg: ${upper(node.greet.output.msg)}
`)

	res, err := a.ComputeGraph(context.Background(), scene, "shout", scheduler.Full)

	require.NoError(t, err)
	assert.True(t, res.OK(), "%v", res.Err())
	assert.Contains(t, out.String(), `msg = "HELLO"`)
}

func TestComputeGraph_NodeFailureIsReported(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, WithModules(failingModule{}, testutil.NoOpModule{}))
	scene := writeScene(t, "scene.hcl", `
node "fail" "broken" {}
node "noop" "after" {
  depends_on = [node.broken]
}
`)

	res, err := a.ComputeGraph(context.Background(), scene, "", scheduler.Full)

	require.NoError(t, err)
	assert.Equal(t, []string{"broken"}, res.Failed)
	assert.Equal(t, []string{"after"}, res.Blocked)
}

func TestComputeGraph_StructuralErrors(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)

	t.Run("missing scene", func(t *testing.T) {
		t.Parallel()
		_, err := a.ComputeGraph(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"), "", scheduler.Full)
		var loadErr *config.SceneLoadError
		assert.ErrorAs(t, err, &loadErr)
	})

	t.Run("unknown type", func(t *testing.T) {
		t.Parallel()
		scene := writeScene(t, "scene.hcl", `node "teleport" "x" {}`)
		_, err := a.ComputeGraph(context.Background(), scene, "", scheduler.Full)
		var typeErr *graph.UnknownTypeError
		assert.ErrorAs(t, err, &typeErr)
	})

	t.Run("cycle", func(t *testing.T) {
		t.Parallel()
		scene := writeScene(t, "scene.hcl", `
node "print" "a" { v = node.b.output }
node "print" "b" { v = node.a.output }
`)
		_, err := a.ComputeGraph(context.Background(), scene, "", scheduler.Full)
		var cycleErr *graph.CycleError
		assert.ErrorAs(t, err, &cycleErr)
	})

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()
		scene := writeScene(t, "scene.hcl", `node "print" "a" {}`)
		_, err := a.ComputeGraph(context.Background(), scene, "ghost", scheduler.Full)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("unmet dependency", func(t *testing.T) {
		t.Parallel()
		scene := writeScene(t, "scene.hcl", `
node "print" "a" { v = 1 }
node "print" "b" { v = node.a.output.v }
`)
		_, err := a.ComputeGraph(context.Background(), scene, "b", scheduler.SingleNode)
		var unmet *scheduler.UnmetDependencyError
		assert.ErrorAs(t, err, &unmet)
	})
}

func TestComputeNode(t *testing.T) {
	t.Parallel()
	a, out := newTestApp(t)

	res, err := a.ComputeNode(context.Background(), "print", []string{"msg=hi", "positional", "=odd"})

	require.NoError(t, err)
	assert.Equal(t, "hi", res.GetAttr("msg").AsString())
	assert.Contains(t, out.String(), "msg = \"hi\"\npositional\n=odd\n")
}

func TestComputeNode_UnknownType(t *testing.T) {
	t.Parallel()
	a, _ := newTestApp(t)

	_, err := a.ComputeNode(context.Background(), "teleport", nil)

	assert.ErrorIs(t, err, registry.ErrUnknownType)
}

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	params, positional := SplitArgs([]string{"a=1", "b=x=y", "--flag", "a=2", "bad key=v"})

	assert.Equal(t, map[string]cty.Value{"a": cty.StringVal("2"), "b": cty.StringVal("x=y")}, params)
	assert.Equal(t, []string{"--flag", "bad key=v"}, positional)
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "log level", mutate: func(c *Config) { c.LogLevel = "loud" }},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }},
		{name: "workers", mutate: func(c *Config) { c.WorkerCount = 0 }},
		{name: "cache", mutate: func(c *Config) { c.CacheURL = "" }},
		{name: "cache scheme", mutate: func(c *Config) { c.CacheURL = "ftp://cache" }},
		{name: "events", mutate: func(c *Config) { c.Events = "carrier-pigeon" }},
		{name: "status port", mutate: func(c *Config) { c.StatusPort = 70000 }},
		{name: "otel endpoint", mutate: func(c *Config) { c.OTelEndpoint = "not a url" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.CacheURL = "mem://"
			tc.mutate(&cfg)

			_, err := New(context.Background(), &testutil.SafeBuffer{}, cfg)

			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestNew_SetupFailuresAreReturned(t *testing.T) {
	t.Parallel()

	// An occupied port makes the status server fail after everything else
	// has been opened.
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	busyPort := ln.Addr().(*net.TCPAddr).Port

	testCases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "unsupported cache", mutate: func(c *Config) { c.CacheURL = "ftp://nope" }, want: "cache"},
		{name: "busy status port", mutate: func(c *Config) { c.StatusPort = busyPort }, want: "status server"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig()
			cfg.CacheURL = "mem://"
			tc.mutate(&cfg)

			var (
				a   *App
				err error
			)
			require.NotPanics(t, func() {
				a, err = New(context.Background(), &testutil.SafeBuffer{}, cfg)
			})

			assert.Nil(t, a)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNew_GochannelEvents(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CacheURL = "mem://"
	cfg.Events = "gochannel"
	a, err := New(context.Background(), &testutil.SafeBuffer{}, cfg, WithModules(testutil.NoOpModule{}))
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close(context.Background())) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sub, err := a.bus.Subscribe(ctx)
	require.NoError(t, err)

	scene := writeScene(t, "scene.hcl", `node "noop" "only" {}`)
	_, err = a.ComputeGraph(ctx, scene, "", scheduler.Full)
	require.NoError(t, err)

	select {
	case ev := <-sub:
		assert.Equal(t, "only", ev.NodeID)
	case <-ctx.Done():
		t.Fatal("no event received from the bus")
	}
}

type failingModule struct{}

func (failingModule) Register(r *registry.Registry) {
	r.Func("fail", "", func(context.Context, *task.Task) (cty.Value, error) {
		return cty.NilVal, errors.New("disk full")
	})
}
