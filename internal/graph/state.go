package graph

import (
	"context"
	"fmt"

	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// NodeState is a point-in-time view of one node, as served to observers.
type NodeState struct {
	ID     string      `json:"id"`
	Type   string      `json:"type"`
	Status node.Status `json:"status"`
	Inputs []string    `json:"inputs"`
	Error  string      `json:"error,omitempty"`
}

// Status returns the current status of a node.
func (g *Graph) Status(ctx context.Context, id string) (node.Status, error) {
	return g.state.GetStatus(ctx, id)
}

// Output returns the recorded output of a node.
func (g *Graph) Output(ctx context.Context, id string) (cty.Value, bool, error) {
	return g.state.GetOutput(ctx, id)
}

// Err returns the recorded failure or blocking cause of a node.
func (g *Graph) Err(ctx context.Context, id string) (error, error) {
	return g.state.GetError(ctx, id)
}

// MarkWaiting records that a node is planned and waits for its inputs.
func (g *Graph) MarkWaiting(ctx context.Context, id string) error {
	if err := g.state.SetError(ctx, id, nil); err != nil {
		return err
	}
	return g.state.SetStatus(ctx, id, node.WaitingOnDependency)
}

// MarkRunning records that a node was handed to an executor.
func (g *Graph) MarkRunning(ctx context.Context, id string) error {
	return g.state.SetStatus(ctx, id, node.Running)
}

// MarkComputed records the output of a node. The output is stored before
// the status, so a reader seeing Computed always finds the output.
func (g *Graph) MarkComputed(ctx context.Context, id string, output cty.Value) error {
	if err := g.state.SetOutput(ctx, id, output); err != nil {
		return err
	}
	if err := g.state.SetError(ctx, id, nil); err != nil {
		return err
	}
	return g.state.SetStatus(ctx, id, node.Computed)
}

// MarkError records the failure of a node's own execution.
func (g *Graph) MarkError(ctx context.Context, id string, cause error) error {
	return g.markWithCause(ctx, id, node.Error, cause)
}

// MarkBlocked records that a node will not be attempted in this run.
func (g *Graph) MarkBlocked(ctx context.Context, id string, cause error) error {
	return g.markWithCause(ctx, id, node.Blocked, cause)
}

func (g *Graph) markWithCause(ctx context.Context, id string, status node.Status, cause error) error {
	if cause == nil {
		return fmt.Errorf("marking %q as %s requires a cause", id, status)
	}
	if err := g.state.SetError(ctx, id, cause); err != nil {
		return err
	}
	return g.state.SetStatus(ctx, id, status)
}

// Snapshot returns the state of every node in ascending id order.
func (g *Graph) Snapshot(ctx context.Context) ([]NodeState, error) {
	g.mu.RLock()
	ids := append([]string(nil), g.ids...)
	nodes := make([]*node.Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	g.mu.RUnlock()

	out := make([]NodeState, 0, len(ids))
	for i, id := range ids {
		st, err := g.state.GetStatus(ctx, id)
		if err != nil {
			return nil, err
		}
		ns := NodeState{ID: id, Type: nodes[i].Type, Status: st, Inputs: nodes[i].Inputs}
		if nodeErr, err := g.state.GetError(ctx, id); err != nil {
			return nil, err
		} else if nodeErr != nil {
			ns.Error = nodeErr.Error()
		}
		out = append(out, ns)
	}
	return out, nil
}

// NodeSnapshot returns the state of a single node.
func (g *Graph) NodeSnapshot(ctx context.Context, id string) (NodeState, error) {
	n, ok := g.Node(id)
	if !ok {
		return NodeState{}, notFound(id)
	}
	st, err := g.state.GetStatus(ctx, id)
	if err != nil {
		return NodeState{}, err
	}
	ns := NodeState{ID: id, Type: n.Type, Status: st, Inputs: n.Inputs}
	nodeErr, err := g.state.GetError(ctx, id)
	if err != nil {
		return NodeState{}, err
	}
	if nodeErr != nil {
		ns.Error = nodeErr.Error()
	}
	return ns, nil
}
