package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphFrozen is returned by topology mutations while a run holds the graph.
	ErrGraphFrozen = errors.New("graph is frozen by an active compute run")
	// ErrRunInProgress is returned by Acquire when another run holds the graph.
	ErrRunInProgress = errors.New("a compute run is already in progress on this graph")
	// ErrNodeNotFound is returned for ids that are not part of the graph.
	ErrNodeNotFound = errors.New("node not found")
)

// CycleError reports a dependency cycle. Nodes lists the cycle in dependency
// order, starting and ending with the same node.
type CycleError struct {
	Nodes []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Nodes, " -> "))
}

// UnknownTypeError reports a node whose type is not registered.
type UnknownTypeError struct {
	Node string
	Type string
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("node %q has unknown type %q", e.Node, e.Type)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %q", ErrNodeNotFound, id)
}
