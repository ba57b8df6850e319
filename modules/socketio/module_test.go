package socketio

import (
	"context"
	"testing"
	"time"

	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func newTask(t *testing.T, params map[string]cty.Value) *task.Task {
	t.Helper()
	n, err := node.New("ws", "socketio", nil, nil)
	require.NoError(t, err)
	return &task.Task{Node: n, Params: params}
}

func TestParse(t *testing.T) {
	t.Parallel()

	in, err := parse(newTask(t, map[string]cty.Value{
		"url":        cty.StringVal("http://localhost:3000/socket.io/"),
		"on_event":   cty.StringVal("pong"),
		"emit_event": cty.StringVal("ping"),
		"emit_data": cty.ObjectVal(map[string]cty.Value{
			"n":    cty.NumberIntVal(1),
			"tags": cty.TupleVal([]cty.Value{cty.StringVal("a")}),
		}),
		"timeout": cty.StringVal("250ms"),
	}))

	require.NoError(t, err)
	assert.Equal(t, "/", in.namespace)
	assert.Equal(t, 250*time.Millisecond, in.timeout)
	assert.Equal(t, map[string]any{"n": float64(1), "tags": []any{"a"}}, in.emitData)
}

func TestParse_BadTimeout(t *testing.T) {
	t.Parallel()

	_, err := parse(newTask(t, map[string]cty.Value{
		"url":      cty.StringVal("http://localhost:3000"),
		"on_event": cty.StringVal("pong"),
		"timeout":  cty.StringVal("forever"),
	}))

	assert.ErrorContains(t, err, "timeout")
}

func TestRun_TimesOutWithoutServer(t *testing.T) {
	t.Parallel()

	_, err := run(context.Background(), newTask(t, map[string]cty.Value{
		"url":      cty.StringVal("http://127.0.0.1:1"),
		"on_event": cty.StringVal("pong"),
		"timeout":  cty.StringVal("200ms"),
	}))

	assert.Error(t, err)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	reg := registry.New()
	reg.RegisterAll(&Module{})

	assert.Error(t, reg.Validate("socketio", map[string]cty.Value{"url": cty.StringVal("http://x")}), "on_event is required")
	assert.NoError(t, reg.Validate("socketio", map[string]cty.Value{
		"url":      cty.StringVal("ws://x"),
		"on_event": cty.StringVal("pong"),
	}))
}
