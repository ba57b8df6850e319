// Package env_vars provides the "env_vars" node kind, which exposes the
// process environment to downstream nodes.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

const schema = `{
  "type": "object",
  "properties": {
    "prefix": {"type": "string"},
    "trim_prefix": {"type": "boolean"}
  },
  "additionalProperties": false
}`

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ replaces os.Environ, for tests.
	Environ func() []string
}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}
	r.Func("env_vars", schema, func(ctx context.Context, t *task.Task) (cty.Value, error) {
		return run(t, environ())
	})
}

// run returns {all = map(string)} with the variables whose name starts with
// prefix. With trim_prefix the prefix is removed from the keys.
func run(t *task.Task, environ []string) (cty.Value, error) {
	prefix, err := t.String("prefix", "")
	if err != nil {
		return cty.NilVal, err
	}
	trim, err := t.Bool("trim_prefix", false)
	if err != nil {
		return cty.NilVal, err
	}

	env := make(map[string]string)
	for _, e := range environ {
		key, val, ok := strings.Cut(e, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		if trim {
			key = strings.TrimPrefix(key, prefix)
			if key == "" {
				continue
			}
		}
		env[key] = val
	}
	return cty.ObjectVal(map[string]cty.Value{"all": ctyutil.StringMap(env)}), nil
}
