package command

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func newTask(t *testing.T, params map[string]cty.Value, args ...string) *task.Task {
	t.Helper()
	n, err := node.New("cmd", "command", nil, nil)
	require.NoError(t, err)
	return &task.Task{Node: n, Params: params, Args: args, Stdout: &bytes.Buffer{}}
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestCommand_CapturesOutput(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	// --- Arrange ---
	tk := newTask(t, map[string]cty.Value{
		"command": cty.StringVal("sh"),
		"args":    cty.ListVal([]cty.Value{cty.StringVal("-c"), cty.StringVal(`echo "$GREETING"; echo oops >&2`)}),
		"env":     cty.MapVal(map[string]cty.Value{"GREETING": cty.StringVal("hello")}),
	})

	// --- Act ---
	out, err := run(context.Background(), tk)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out.GetAttr("stdout").AsString())
	assert.Equal(t, "oops\n", out.GetAttr("stderr").AsString())
	assert.True(t, out.GetAttr("exit_code").RawEquals(cty.NumberIntVal(0)))
	assert.True(t, out.GetAttr("truncated").False())
}

func TestCommand_PositionalArgs(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	tk := newTask(t, nil, "sh", "-c", "echo $0", "positional")

	out, err := run(context.Background(), tk)

	require.NoError(t, err)
	assert.Equal(t, "positional\n", out.GetAttr("stdout").AsString())
}

func TestCommand_Failures(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	testCases := []struct {
		name    string
		params  map[string]cty.Value
		args    []string
		wantErr string
	}{
		{name: "nothing to run", wantErr: "no command given"},
		{
			name:    "non-zero exit",
			params:  map[string]cty.Value{"command": cty.StringVal("sh")},
			args:    []string{"-c", "echo broken >&2; exit 3"},
			wantErr: "exited with code 3: broken",
		},
		{
			name:    "missing binary",
			params:  map[string]cty.Value{"command": cty.StringVal("burstgraph-no-such-binary")},
			wantErr: "start command",
		},
		{
			name:    "bad wait delay",
			params:  map[string]cty.Value{"command": cty.StringVal("true"), "wait_delay": cty.StringVal("soon")},
			wantErr: "wait_delay",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := run(context.Background(), newTask(t, tc.params, tc.args...))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestCommand_KilledOnCancel(t *testing.T) {
	t.Parallel()
	skipOnWindows(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	tk := newTask(t, map[string]cty.Value{"command": cty.StringVal("sleep"), "wait_delay": cty.StringVal("1s")}, "10")

	start := time.Now()
	_, err := run(ctx, tk)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCapped(t *testing.T) {
	t.Parallel()

	c := &capped{limit: 4}
	n, err := c.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, "abcd", c.String())
	assert.True(t, c.truncated)
}
