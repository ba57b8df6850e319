// Package command provides the "command" node kind, which runs an external
// process. The process is killed when the run is cancelled.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

const schema = `{
  "type": "object",
  "properties": {
    "command": {"type": "string", "minLength": 1},
    "args": {"type": "array", "items": {"type": "string"}},
    "dir": {"type": "string"},
    "env": {"type": "object", "additionalProperties": {"type": "string"}},
    "stdin": {"type": "string"},
    "echo": {"type": "boolean"},
    "wait_delay": {"type": "string"}
  }
}`

// maxCaptured bounds how much of each stream is kept in the node output.
const maxCaptured = 1 << 20

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Kind{
		Name:        "command",
		Description: "Runs an external process and captures its exit code and output.",
		Schema:      schema,
		New:         func() task.Runnable { return task.RunnableFunc(run) },
	})
}

type spec struct {
	name      string
	args      []string
	dir       string
	env       map[string]string
	stdin     string
	echo      bool
	waitDelay time.Duration
}

// parse reads the command line from params. Positional arguments are
// appended to args, and name the program when the command param is unset.
func parse(t *task.Task) (*spec, error) {
	s := &spec{}
	var err error
	if s.name, err = t.String("command", ""); err != nil {
		return nil, err
	}
	if s.args, err = t.StringList("args"); err != nil {
		return nil, err
	}
	extra := t.Args
	if s.name == "" {
		if len(extra) == 0 {
			return nil, errors.New("no command given")
		}
		s.name, extra = extra[0], extra[1:]
	}
	s.args = append(s.args, extra...)
	if s.dir, err = t.String("dir", ""); err != nil {
		return nil, err
	}
	if s.env, err = t.StringMap("env"); err != nil {
		return nil, err
	}
	if s.stdin, err = t.String("stdin", ""); err != nil {
		return nil, err
	}
	if s.echo, err = t.Bool("echo", false); err != nil {
		return nil, err
	}
	delay, err := t.String("wait_delay", "5s")
	if err != nil {
		return nil, err
	}
	if s.waitDelay, err = time.ParseDuration(delay); err != nil {
		return nil, fmt.Errorf("parameter \"wait_delay\": %w", err)
	}
	return s, nil
}

func run(ctx context.Context, t *task.Task) (cty.Value, error) {
	s, err := parse(t)
	if err != nil {
		return cty.NilVal, err
	}
	logger := ctxlog.FromContext(ctx).With("node", t.Node.ID, "command", s.name)

	cmd := exec.CommandContext(ctx, s.name, s.args...)
	cmd.Dir = s.dir
	cmd.WaitDelay = s.waitDelay
	if len(s.env) > 0 {
		cmd.Env = os.Environ()
		for _, k := range ctyutil.SortedKeys(s.env) {
			cmd.Env = append(cmd.Env, k+"="+s.env[k])
		}
	}
	if s.stdin != "" {
		cmd.Stdin = strings.NewReader(s.stdin)
	}

	stdout := &capped{limit: maxCaptured}
	stderr := &capped{limit: maxCaptured}
	cmd.Stdout, cmd.Stderr = io.Writer(stdout), io.Writer(stderr)
	if s.echo {
		cmd.Stdout = io.MultiWriter(stdout, t.Out())
		cmd.Stderr = io.MultiWriter(stderr, t.Out())
	}

	logger.Debug("Starting external process.", "args", s.args)
	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return cty.NilVal, fmt.Errorf("command %q interrupted: %w", s.name, ctxErr)
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return cty.NilVal, fmt.Errorf("start command %q: %w", s.name, err)
	}
	code := cmd.ProcessState.ExitCode()
	logger.Debug("External process exited.", "exit_code", code, "elapsed", elapsed)
	if code != 0 {
		return cty.NilVal, fmt.Errorf("command %q exited with code %d: %s", s.name, code, tail(stderr.String(), 512))
	}

	return cty.ObjectVal(map[string]cty.Value{
		"exit_code": cty.NumberIntVal(int64(code)),
		"stdout":    cty.StringVal(stdout.String()),
		"stderr":    cty.StringVal(stderr.String()),
		"truncated": cty.BoolVal(stdout.truncated || stderr.truncated),
	}), nil
}

// capped keeps at most limit bytes and silently drops the rest.
type capped struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (c *capped) Write(p []byte) (int, error) {
	room := c.limit - c.buf.Len()
	if room <= 0 {
		c.truncated = c.truncated || len(p) > 0
		return len(p), nil
	}
	if len(p) > room {
		c.buf.Write(p[:room])
		c.truncated = true
		return len(p), nil
	}
	return c.buf.Write(p)
}

func (c *capped) String() string { return c.buf.String() }

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
