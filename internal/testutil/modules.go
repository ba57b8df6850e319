package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// NoOpModule registers a "noop" kind that takes anything and returns an
// empty object.
type NoOpModule struct{}

// Register implements registry.Module.
func (NoOpModule) Register(r *registry.Registry) {
	r.Func("noop", "", func(context.Context, *task.Task) (cty.Value, error) {
		return cty.EmptyObjectVal, nil
	})
}

// FailModule registers a "fail" kind that always returns an error. The
// message comes from the "message" parameter when set.
type FailModule struct{}

// Register implements registry.Module.
func (FailModule) Register(r *registry.Registry) {
	r.Func("fail", "", func(_ context.Context, t *task.Task) (cty.Value, error) {
		msg := "node failed on purpose"
		if v, ok := t.Params["message"]; ok && !v.IsNull() && v.Type() == cty.String {
			msg = v.AsString()
		}
		return cty.NilVal, errors.New(msg)
	})
}

// MockSleeperModule registers a "sleeper" kind that sleeps and records when
// each node ran. Its output echoes the node id.
type MockSleeperModule struct {
	mu             sync.Mutex
	executions     map[string]ExecutionRecord
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module. completionChan may be nil.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		executions:     make(map[string]ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register implements registry.Module.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.Func("sleeper", "", func(ctx context.Context, t *task.Task) (cty.Value, error) {
		start := time.Now()
		select {
		case <-time.After(m.sleepDuration):
		case <-ctx.Done():
			return cty.NilVal, ctx.Err()
		}
		end := time.Now()

		m.mu.Lock()
		m.executions[t.Node.ID] = ExecutionRecord{Start: start, End: end}
		m.mu.Unlock()

		if m.completionChan != nil {
			m.completionChan <- t.Node.ID
		}
		return cty.ObjectVal(map[string]cty.Value{"id": cty.StringVal(t.Node.ID)}), nil
	})
}

// Executions returns a copy of the recorded executions by node id.
func (m *MockSleeperModule) Executions() map[string]ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]ExecutionRecord, len(m.executions))
	for k, v := range m.executions {
		out[k] = v
	}
	return out
}
