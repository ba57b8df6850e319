// Package task holds the unit handed to a node implementation when it runs.
package task

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Runnable is the capability every node kind implements.
type Runnable interface {
	Run(ctx context.Context, t *Task) (cty.Value, error)
}

// RunnableFunc adapts a function to the Runnable interface.
type RunnableFunc func(ctx context.Context, t *Task) (cty.Value, error)

// Run calls f(ctx, t).
func (f RunnableFunc) Run(ctx context.Context, t *Task) (cty.Value, error) {
	return f(ctx, t)
}

// Task represents a node that is fully prepared for execution.
type Task struct {
	// Node is the node definition from the graph.
	Node *node.Node
	// Fingerprint identifies the node's effective inputs. It is empty when
	// the output must not be persisted.
	Fingerprint string
	// Params holds the effective parameter values, with every deferred
	// expression already evaluated.
	Params map[string]cty.Value
	// Upstream maps each direct input id to its output.
	Upstream map[string]cty.Value
	// Args are positional arguments from the single node invocation path.
	Args []string
	// Stdout receives anything the node prints.
	Stdout io.Writer
}

// Out returns the writer for node output, falling back to os.Stdout.
func (t *Task) Out() io.Writer {
	if t.Stdout != nil {
		return t.Stdout
	}
	return os.Stdout
}

// Has reports whether a non-null parameter is set.
func (t *Task) Has(name string) bool {
	v, ok := t.Params[name]
	return ok && !v.IsNull()
}

// ParamNames returns the names of all parameters, sorted.
func (t *Task) ParamNames() []string {
	names := make([]string, 0, len(t.Params))
	for k := range t.Params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func (t *Task) convert(name string, ty cty.Type) (cty.Value, bool, error) {
	v, ok := t.Params[name]
	if !ok || v.IsNull() {
		return cty.NilVal, false, nil
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, false, fmt.Errorf("parameter %q is not known", name)
	}
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return cty.NilVal, false, fmt.Errorf("parameter %q: %w", name, err)
	}
	return converted, true, nil
}

// String returns a string parameter, or def when it is not set.
func (t *Task) String(name, def string) (string, error) {
	v, ok, err := t.convert(name, cty.String)
	if err != nil || !ok {
		return def, err
	}
	return v.AsString(), nil
}

// Bool returns a bool parameter, or def when it is not set.
func (t *Task) Bool(name string, def bool) (bool, error) {
	v, ok, err := t.convert(name, cty.Bool)
	if err != nil || !ok {
		return def, err
	}
	return v.True(), nil
}

// Int returns an integer parameter, or def when it is not set.
func (t *Task) Int(name string, def int64) (int64, error) {
	v, ok, err := t.convert(name, cty.Number)
	if err != nil || !ok {
		return def, err
	}
	i, acc := v.AsBigFloat().Int64()
	if acc != 0 {
		return def, fmt.Errorf("parameter %q: %s is not a whole number", name, v.AsBigFloat().String())
	}
	return i, nil
}

// StringList returns a list-of-strings parameter, nil when it is not set.
func (t *Task) StringList(name string) ([]string, error) {
	v, ok, err := t.convert(name, cty.List(cty.String))
	if err != nil || !ok {
		return nil, err
	}
	out := make([]string, 0, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		if el.IsNull() {
			return nil, fmt.Errorf("parameter %q: list contains null", name)
		}
		out = append(out, el.AsString())
	}
	return out, nil
}

// StringMap returns a map-of-strings parameter, nil when it is not set.
func (t *Task) StringMap(name string) (map[string]string, error) {
	v, ok, err := t.convert(name, cty.Map(cty.String))
	if err != nil || !ok {
		return nil, err
	}
	out := make(map[string]string, v.LengthInt())
	for it := v.ElementIterator(); it.Next(); {
		k, el := it.Element()
		if el.IsNull() {
			out[k.AsString()] = ""
			continue
		}
		out[k.AsString()] = el.AsString()
	}
	return out, nil
}
