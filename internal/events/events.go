// Package events publishes node status transitions to observers.
//
// Every status change made by the scheduler is described by a
// NodeStatusChanged event. Delivery is best effort: a failing publisher is
// logged and never changes the outcome of a run.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/specialistvlad/burstgraph/internal/node"
)

// Topic is the message topic node status events are published on.
const Topic = "burstgraph.node.status"

// Metadata keys set on every published message.
const (
	RunIDMetadataKey  = "run_id"
	NodeIDMetadataKey = "node_id"
	StatusMetadataKey = "status"
)

// NodeStatusChanged describes one status transition of one node.
type NodeStatusChanged struct {
	RunID     string      `json:"run_id"`
	NodeID    string      `json:"node_id"`
	NodeType  string      `json:"node_type"`
	Status    node.Status `json:"status"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, ev NodeStatusChanged) error
}

// Nop discards every event.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, NodeStatusChanged) error { return nil }

type multi []Publisher

// Multi fans an event out to every publisher and joins their errors.
func Multi(pubs ...Publisher) Publisher {
	out := make(multi, 0, len(pubs))
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (m multi) Publish(ctx context.Context, ev NodeStatusChanged) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps the most recent events in memory.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []NodeStatusChanged
}

// NewRecorder keeps at most limit events. A non-positive limit means 1000.
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 1000
	}
	return &Recorder{limit: limit}
}

// Publish implements Publisher.
func (r *Recorder) Publish(_ context.Context, ev NodeStatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if over := len(r.events) - r.limit; over > 0 {
		r.events = append(r.events[:0:0], r.events[over:]...)
	}
	return nil
}

// Recent returns the recorded events, oldest first.
func (r *Recorder) Recent() []NodeStatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NodeStatusChanged(nil), r.events...)
}

// ForNode returns the recorded events of one node, oldest first.
func (r *Recorder) ForNode(id string) []NodeStatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []NodeStatusChanged
	for _, ev := range r.events {
		if ev.NodeID == id {
			out = append(out, ev)
		}
	}
	return out
}
