// Package nodestore defines the interface for storing and retrieving the
// mutable compute state of nodes: status, output and error.
//
// # Why Node Store Exists
//
// The store separates **mutable compute state** from the **frozen topology**
// owned by graph.Graph. During a run the scheduler is the only writer; the
// status server and the event publisher read concurrently. Keeping the state
// behind an interface lets a session swap the backend without touching the
// scheduling code.
//
// # State Transitions
//
// Within one run a node moves through:
//
//	NotComputed → WaitingOnDependency → Running → Computed | Error
//	NotComputed → Computed                      (reused from the cache)
//	WaitingOnDependency → Blocked               (upstream failed or run cancelled)
package nodestore

import (
	"context"

	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Store manages the mutable compute state of nodes, keyed by node id.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads and writes.
type Store interface {
	// SetStatus updates the status of a node.
	SetStatus(ctx context.Context, id string, status node.Status) error

	// GetStatus returns NotComputed if no status has been set yet.
	GetStatus(ctx context.Context, id string) (node.Status, error)

	// SetOutput records the output of a computed node.
	SetOutput(ctx context.Context, id string, output cty.Value) error

	// GetOutput returns cty.NilVal and false if no output is recorded.
	GetOutput(ctx context.Context, id string) (cty.Value, bool, error)

	// SetError records why a node failed or was blocked. A nil error clears it.
	SetError(ctx context.Context, id string, nodeErr error) error

	// GetError returns nil if the node has no recorded error.
	GetError(ctx context.Context, id string) (error, error)

	// Reset forgets everything recorded for the node.
	Reset(ctx context.Context, id string) error
}
