// Package node defines the unit of work in a graph: its identity, its
// parameters, and the compute status it moves through during a run.
package node

import (
	"fmt"
	"regexp"
	"slices"
)

var idPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// Node is a single vertex of the graph.
//
// Nodes are treated as immutable once they belong to a graph; the graph
// replaces the whole value when a parameter changes.
type Node struct {
	// ID is unique within a graph.
	ID string
	// Type is the computation kind, resolved through the registry.
	Type string
	// Params are kept in declared order.
	Params []Param
	// Inputs are the direct upstream node ids in declared order: parameter
	// references first, then explicit dependencies.
	Inputs []string
}

// New builds a node and derives its inputs from the parameters and the
// explicit dependencies.
func New(id, typ string, params []Param, dependsOn []string) (*Node, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if typ == "" {
		return nil, fmt.Errorf("node %q: type is empty", id)
	}
	n := &Node{ID: id, Type: typ, Params: slices.Clone(params)}
	if err := n.deriveInputs(dependsOn); err != nil {
		return nil, err
	}
	return n, nil
}

// ValidateID checks that id can be used both as a node id and as an
// attribute name in `node.<id>` references.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("invalid node id %q: must match %s", id, idPattern.String())
	}
	return nil
}

func (n *Node) deriveInputs(dependsOn []string) error {
	seenParams := make(map[string]bool, len(n.Params))
	seen := make(map[string]bool)
	n.Inputs = n.Inputs[:0]
	add := func(id string) error {
		if id == n.ID {
			return fmt.Errorf("node %q references itself", n.ID)
		}
		if !seen[id] {
			seen[id] = true
			n.Inputs = append(n.Inputs, id)
		}
		return nil
	}
	for _, p := range n.Params {
		if seenParams[p.Name] {
			return fmt.Errorf("node %q: duplicate parameter %q", n.ID, p.Name)
		}
		seenParams[p.Name] = true
		for _, ref := range p.References() {
			if err := add(ref); err != nil {
				return err
			}
		}
	}
	for _, dep := range dependsOn {
		if err := add(dep); err != nil {
			return err
		}
	}
	return nil
}

// Param returns the parameter with the given name.
func (n *Node) Param(name string) (Param, bool) {
	for _, p := range n.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// DependsOn returns the explicit dependencies, that is the inputs which are
// not referenced by any parameter.
func (n *Node) DependsOn() []string {
	referenced := make(map[string]bool)
	for _, p := range n.Params {
		for _, ref := range p.References() {
			referenced[ref] = true
		}
	}
	var deps []string
	for _, in := range n.Inputs {
		if !referenced[in] {
			deps = append(deps, in)
		}
	}
	return deps
}

// WithParam returns a copy of the node with the parameter added or
// replaced. Inputs are derived again.
func (n *Node) WithParam(p Param) (*Node, error) {
	params := slices.Clone(n.Params)
	replaced := false
	for i := range params {
		if params[i].Name == p.Name {
			params[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		params = append(params, p)
	}
	return New(n.ID, n.Type, params, n.DependsOn())
}
