package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/nodestore"
	"github.com/zclconf/go-cty/cty"
)

// Store is an in-memory implementation of nodestore.Store using sync.Map.
//
// The key space is stable for the lifetime of a graph while values change
// on every transition, which is the access pattern sync.Map is built for.
type Store struct {
	states  sync.Map // Key: node ID, Value: node.Status
	outputs sync.Map // Key: node ID, Value: cty.Value
	errors  sync.Map // Key: node ID, Value: error
}

var _ nodestore.Store = (*Store)(nil)

// New creates a new, empty in-memory node state store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the status of a specific node.
func (s *Store) SetStatus(ctx context.Context, id string, status node.Status) error {
	s.states.Store(id, status)
	return nil
}

// GetStatus retrieves the status of a specific node.
// If a status has not been set, it returns NotComputed.
func (s *Store) GetStatus(ctx context.Context, id string) (node.Status, error) {
	status, ok := s.states.Load(id)
	if !ok {
		return node.NotComputed, nil
	}
	return status.(node.Status), nil
}

// SetOutput records the output of a node.
func (s *Store) SetOutput(ctx context.Context, id string, output cty.Value) error {
	s.outputs.Store(id, output)
	return nil
}

// GetOutput retrieves the recorded output of a node.
func (s *Store) GetOutput(ctx context.Context, id string) (cty.Value, bool, error) {
	output, ok := s.outputs.Load(id)
	if !ok {
		return cty.NilVal, false, nil
	}
	return output.(cty.Value), true, nil
}

// SetError records the error of a node.
func (s *Store) SetError(ctx context.Context, id string, nodeErr error) error {
	if nodeErr == nil {
		s.errors.Delete(id)
		return nil
	}
	s.errors.Store(id, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a node.
func (s *Store) GetError(ctx context.Context, id string) (error, error) {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Reset drops the status, output and error of a node.
func (s *Store) Reset(ctx context.Context, id string) error {
	s.states.Delete(id)
	s.outputs.Delete(id)
	s.errors.Delete(id)
	return nil
}
