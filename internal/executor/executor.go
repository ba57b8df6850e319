// Package executor defines how a single node run is carried out.
//
// The scheduler decides what runs and when; an Executor only turns one
// prepared task into an Outcome. Implementations must be safe for concurrent
// use, because the scheduler calls Run from several workers at once.
package executor

import (
	"context"
	"fmt"

	"github.com/specialistvlad/burstgraph/internal/stats"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Executor runs a single node.
type Executor interface {
	Run(ctx context.Context, t *task.Task) Outcome
}

// Outcome is the result of one node run. Output is only meaningful when Err
// is nil, and in that case it has already been persisted.
type Outcome struct {
	Output cty.Value
	Err    error
	Stats  stats.Usage
}

// Func adapts a function to the Executor interface.
type Func func(ctx context.Context, t *task.Task) Outcome

// Run calls f(ctx, t).
func (f Func) Run(ctx context.Context, t *task.Task) Outcome {
	return f(ctx, t)
}

// NodeExecutionError wraps any failure raised while running a node.
type NodeExecutionError struct {
	Node  string
	Type  string
	Cause error
}

// Error implements the error interface.
func (e *NodeExecutionError) Error() string {
	return fmt.Sprintf("node %q (%s) failed: %v", e.Node, e.Type, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *NodeExecutionError) Unwrap() error {
	return e.Cause
}
