package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/specialistvlad/burstgraph/internal/executor"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// Behavior decides the outcome of one fake node run.
type Behavior func(ctx context.Context, t *task.Task) (cty.Value, error)

// FakeExecutor is an executor.Executor that records every invocation and
// answers from per-node behaviors. Nodes without a behavior succeed with an
// object holding their id. Successful outputs are written to Store when set.
type FakeExecutor struct {
	Store cache.Store

	mu        sync.Mutex
	behaviors map[string]Behavior
	calls     []string
	tasks     map[string]*task.Task
}

var _ executor.Executor = (*FakeExecutor)(nil)

// NewFakeExecutor creates an executor with no behaviors.
func NewFakeExecutor() *FakeExecutor {
	return &FakeExecutor{behaviors: make(map[string]Behavior), tasks: make(map[string]*task.Task)}
}

// On sets the behavior of a node.
func (f *FakeExecutor) On(id string, b Behavior) *FakeExecutor {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.behaviors[id] = b
	return f
}

// Fail makes a node fail with msg.
func (f *FakeExecutor) Fail(id, msg string) *FakeExecutor {
	return f.On(id, func(context.Context, *task.Task) (cty.Value, error) {
		return cty.NilVal, errors.New(msg)
	})
}

// Run implements executor.Executor.
func (f *FakeExecutor) Run(ctx context.Context, t *task.Task) executor.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, t.Node.ID)
	f.tasks[t.Node.ID] = t
	b := f.behaviors[t.Node.ID]
	f.mu.Unlock()

	out := cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(t.Node.ID)})
	if b != nil {
		var err error
		if out, err = b(ctx, t); err != nil {
			return executor.Outcome{Err: &executor.NodeExecutionError{Node: t.Node.ID, Type: t.Node.Type, Cause: err}}
		}
	}
	if f.Store != nil && t.Fingerprint != "" {
		rec := &cache.Record{Fingerprint: t.Fingerprint, NodeID: t.Node.ID, NodeType: t.Node.Type, Output: out, CreatedAt: time.Now()}
		if err := f.Store.Store(ctx, t.Fingerprint, rec); err != nil {
			return executor.Outcome{Err: &executor.NodeExecutionError{Node: t.Node.ID, Type: t.Node.Type, Cause: err}}
		}
	}
	return executor.Outcome{Output: out}
}

// Calls returns the ids of invoked nodes in invocation order.
func (f *FakeExecutor) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Task returns the last task received for a node.
func (f *FakeExecutor) Task(id string) *task.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tasks[id]
}

// Reset forgets recorded calls. Behaviors are kept.
func (f *FakeExecutor) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.tasks = make(map[string]*task.Task)
}
