package executor

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/burstgraph/internal/bggoexpr"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// EvalContext exposes upstream outputs as `node.<id>.output`.
func EvalContext(upstream map[string]cty.Value) *hcl.EvalContext {
	nodes := make(map[string]cty.Value, len(upstream))
	for id, out := range upstream {
		if out == cty.NilVal {
			out = cty.EmptyObjectVal
		}
		nodes[id] = cty.ObjectVal(map[string]cty.Value{"output": out})
	}
	return bggoexpr.EvalContext(map[string]cty.Value{
		node.RefRoot: cty.ObjectVal(nodes),
	})
}

// ResolveParams evaluates every parameter of n. Deferred parameters are
// evaluated against upstream, which must hold an output for each of them.
func ResolveParams(n *node.Node, upstream map[string]cty.Value) (map[string]cty.Value, error) {
	params := make(map[string]cty.Value, len(n.Params))
	var evalCtx *hcl.EvalContext
	for _, p := range n.Params {
		if !p.IsDeferred() {
			params[p.Name] = p.Value
			continue
		}
		for _, ref := range p.References() {
			if _, ok := upstream[ref]; !ok {
				return nil, fmt.Errorf("parameter %q: output of %q is not available", p.Name, ref)
			}
		}
		if evalCtx == nil {
			evalCtx = EvalContext(upstream)
		}
		v, diags := p.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, fmt.Errorf("parameter %q: %w", p.Name, diags)
		}
		if !v.IsWhollyKnown() {
			return nil, fmt.Errorf("parameter %q: value is not fully known", p.Name)
		}
		params[p.Name] = v
	}
	return params, nil
}
