// Package print provides the "print" node kind, which writes its parameters
// to the run's output writer.
package print

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/ctyutil"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the kind with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register(registry.Kind{
		Name:        "print",
		Description: "Prints every parameter and positional argument, one per line.",
		New:         func() task.Runnable { return task.RunnableFunc(run) },
	})
}

// run prints "name = json" lines in name order followed by positional
// arguments. Its output echoes the printed parameters.
func run(ctx context.Context, t *task.Task) (cty.Value, error) {
	ctxlog.FromContext(ctx).Debug("Printing parameters.", "node", t.Node.ID, "count", len(t.Params))

	var b strings.Builder
	for _, name := range t.ParamNames() {
		v := t.Params[name]
		if v.IsNull() {
			fmt.Fprintf(&b, "%s = null\n", name)
			continue
		}
		raw, err := ctyutil.ToJSON(v)
		if err != nil {
			return cty.NilVal, fmt.Errorf("encode parameter %q: %w", name, err)
		}
		fmt.Fprintf(&b, "%s = %s\n", name, raw)
	}
	for _, arg := range t.Args {
		fmt.Fprintln(&b, arg)
	}
	if _, err := fmt.Fprint(t.Out(), b.String()); err != nil {
		return cty.NilVal, fmt.Errorf("write output: %w", err)
	}

	if len(t.Params) == 0 {
		return cty.EmptyObjectVal, nil
	}
	return cty.ObjectVal(t.Params), nil
}
