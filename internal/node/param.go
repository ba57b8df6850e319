package node

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// RefRoot is the root variable through which parameters reference the
// outputs of other nodes, as in `node.<id>.output.<attr>`.
const RefRoot = "node"

// Param is a single named parameter of a node.
//
// A parameter is either a literal value known at load time, or a deferred
// expression over upstream outputs which is evaluated right before the node
// runs. Deferred parameters are what create edges in the graph.
type Param struct {
	Name string
	// Value is the literal value. It is ignored when Expr is set.
	Value cty.Value
	// Expr is the deferred expression, nil for literal parameters.
	Expr hcl.Expression
	// Source is the original text of Expr. It is part of the fingerprint.
	Source string
}

// Literal builds a literal parameter.
func Literal(name string, v cty.Value) Param {
	return Param{Name: name, Value: v}
}

// IsDeferred reports whether the parameter must be evaluated against
// upstream outputs.
func (p Param) IsDeferred() bool {
	return p.Expr != nil
}

// References returns the ids of the nodes the parameter reads from, in the
// order they first appear in the expression.
func (p Param) References() []string {
	if p.Expr == nil {
		return nil
	}
	var refs []string
	seen := make(map[string]bool)
	for _, traversal := range p.Expr.Variables() {
		id, ok := ReferencedNode(traversal)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		refs = append(refs, id)
	}
	return refs
}

// ReferencedNode extracts the node id from a `node.<id>...` traversal.
func ReferencedNode(traversal hcl.Traversal) (string, bool) {
	if len(traversal) < 2 || traversal.RootName() != RefRoot {
		return "", false
	}
	attr, ok := traversal[1].(hcl.TraverseAttr)
	if !ok {
		return "", false
	}
	return attr.Name, true
}
