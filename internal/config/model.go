package config

import (
	"fmt"

	"github.com/specialistvlad/burstgraph/internal/node"
)

// Scene is the format-agnostic description of a graph, as read from one or
// more scene files.
type Scene struct {
	// Paths lists the files the scene was read from.
	Paths []string
	Nodes []*NodeSpec
}

// NodeSpec describes a single node before it is placed in a graph.
type NodeSpec struct {
	Name      string
	Type      string
	Params    []node.Param
	DependsOn []string
	// DeclRange is a human readable location, such as "scene.hcl:12".
	DeclRange string
}

// Merge appends the nodes of other to s. Duplicate names are rejected.
func (s *Scene) Merge(other *Scene) error {
	seen := make(map[string]*NodeSpec, len(s.Nodes))
	for _, n := range s.Nodes {
		seen[n.Name] = n
	}
	for _, n := range other.Nodes {
		if prev, ok := seen[n.Name]; ok {
			return fmt.Errorf("duplicate node %q declared at %s and %s", n.Name, prev.DeclRange, n.DeclRange)
		}
		seen[n.Name] = n
		s.Nodes = append(s.Nodes, n)
	}
	s.Paths = append(s.Paths, other.Paths...)
	return nil
}
