package graph

import (
	"context"
	"fmt"

	"github.com/specialistvlad/burstgraph/internal/node"
)

// Acquire takes the single-writer lease for a compute run. The returned
// release function must be called once the run is over.
func (g *Graph) Acquire() (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leased {
		return nil, ErrRunInProgress
	}
	g.leased = true
	return func() {
		g.mu.Lock()
		g.leased = false
		g.mu.Unlock()
	}, nil
}

// AddNode inserts a new node. Its inputs must already be in the graph.
func (g *Graph) AddNode(ctx context.Context, n *node.Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leased {
		return ErrGraphFrozen
	}
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("duplicate node id %q", n.ID)
	}
	if err := g.checkType(n); err != nil {
		return err
	}
	if err := g.checkInputs(n); err != nil {
		return err
	}
	g.nodes[n.ID] = n
	if err := g.detectCycles(); err != nil {
		delete(g.nodes, n.ID)
		return err
	}
	g.reindex()
	g.version++
	return g.state.Reset(ctx, n.ID)
}

// RemoveNode deletes a node that has no dependents.
func (g *Graph) RemoveNode(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leased {
		return ErrGraphFrozen
	}
	if _, ok := g.nodes[id]; !ok {
		return notFound(id)
	}
	if deps := g.dependents[id]; len(deps) > 0 {
		return fmt.Errorf("node %q is still an input of %v", id, deps)
	}
	delete(g.nodes, id)
	g.reindex()
	g.version++
	return g.state.Reset(ctx, id)
}

// SetParam adds or replaces a parameter of a node. The node and everything
// downstream of it lose their compute state, since their outputs no longer
// match their inputs.
func (g *Graph) SetParam(ctx context.Context, id string, p node.Param) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.leased {
		return ErrGraphFrozen
	}
	prev, ok := g.nodes[id]
	if !ok {
		return notFound(id)
	}
	updated, err := prev.WithParam(p)
	if err != nil {
		return err
	}
	if err := g.checkInputs(updated); err != nil {
		return err
	}
	g.nodes[id] = updated
	if err := g.detectCycles(); err != nil {
		g.nodes[id] = prev
		return err
	}
	g.reindex()
	g.version++

	stale, err := g.closure(id, func(n string) []string { return g.dependents[n] })
	if err != nil {
		return err
	}
	for _, sid := range append([]string{id}, stale...) {
		if err := g.state.Reset(ctx, sid); err != nil {
			return fmt.Errorf("failed to reset state of %q: %w", sid, err)
		}
	}
	return nil
}
