package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/specialistvlad/burstgraph/internal/events"
	"github.com/specialistvlad/burstgraph/internal/graph"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func testGraph(t *testing.T) *graph.Graph {
	t.Helper()
	scene := &config.Scene{Nodes: []*config.NodeSpec{
		{Name: "camera_init", Type: "command"},
		{Name: "features", Type: "command", DependsOn: []string{"camera_init"}},
	}}
	g, err := graph.Build(context.Background(), scene, nil)
	require.NoError(t, err)
	return g
}

func get(t *testing.T, s *Server, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return resp.StatusCode, out
}

func TestServer_HealthBeforeAndAfterBind(t *testing.T) {
	t.Parallel()
	s := New(slog.Default(), nil)

	code, body := get(t, s, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["graph_loaded"])

	s.Bind(testGraph(t))
	_, body = get(t, s, "/health")
	assert.Equal(t, true, body["graph_loaded"])
}

func TestServer_NodesUnavailableWithoutGraph(t *testing.T) {
	t.Parallel()
	s := New(slog.Default(), nil)

	code, body := get(t, s, "/nodes")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unavailable", body["type"])
}

func TestServer_Nodes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	// --- Arrange ---
	g := testGraph(t)
	require.NoError(t, g.MarkComputed(ctx, "camera_init", cty.EmptyObjectVal))
	require.NoError(t, g.MarkBlocked(ctx, "features", errors.New("cancelled")))
	s := New(slog.Default(), nil)
	s.Bind(g)

	// --- Act ---
	code, body := get(t, s, "/nodes")

	// --- Assert ---
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, body["total_count"])
	nodes := body["nodes"].([]any)
	first := nodes[0].(map[string]any)
	second := nodes[1].(map[string]any)
	assert.Equal(t, "camera_init", first["id"])
	assert.Equal(t, node.Computed.String(), first["status"])
	assert.Equal(t, "features", second["id"])
	assert.Equal(t, node.Blocked.String(), second["status"])
	assert.Equal(t, "cancelled", second["error"])
}

func TestServer_GetNode(t *testing.T) {
	t.Parallel()
	s := New(slog.Default(), nil)
	s.Bind(testGraph(t))

	testCases := []struct {
		name     string
		path     string
		wantCode int
		wantType string
	}{
		{name: "existing node", path: "/nodes/features", wantCode: http.StatusOK},
		{name: "unknown node", path: "/nodes/ghost", wantCode: http.StatusNotFound, wantType: "node_not_found"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, body := get(t, s, tc.path)
			assert.Equal(t, tc.wantCode, code)
			if tc.wantType != "" {
				assert.Equal(t, tc.wantType, body["type"])
				assert.Equal(t, "/nodes/ghost", body["instance"])
				return
			}
			assert.Equal(t, "features", body["id"])
			assert.Equal(t, []any{"camera_init"}, body["inputs"])
		})
	}
}

func TestServer_Events(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	rec := events.NewRecorder(0)
	now := time.Now()
	require.NoError(t, rec.Publish(ctx, events.NodeStatusChanged{RunID: "r1", NodeID: "a", Status: node.Running, Timestamp: now}))
	require.NoError(t, rec.Publish(ctx, events.NodeStatusChanged{RunID: "r1", NodeID: "b", Status: node.Running, Timestamp: now}))
	s := New(slog.Default(), rec)

	_, all := get(t, s, "/events")
	_, onlyA := get(t, s, "/events?node=a")
	_, none := get(t, s, "/events?node=zzz")

	assert.Len(t, all["events"], 2)
	require.Len(t, onlyA["events"], 1)
	assert.Equal(t, "a", onlyA["events"].([]any)[0].(map[string]any)["node_id"])
	assert.Empty(t, none["events"])
}
