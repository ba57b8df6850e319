// Package cache defines the persistent output store and the record format
// shared by its backends.
//
// A record is keyed by the node fingerprint. Backends must make Store
// all-or-nothing: a reader sees either the previous record or the complete
// new one, never a partial write.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/burstgraph/internal/stats"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ErrNotFound is returned by Load when no record exists for a fingerprint.
var ErrNotFound = errors.New("cache record not found")

// Store persists node outputs by fingerprint.
type Store interface {
	Load(ctx context.Context, fingerprint string) (*Record, error)
	Store(ctx context.Context, fingerprint string, rec *Record) error
	Close() error
}

// Record is a persisted node output.
type Record struct {
	Fingerprint string
	NodeID      string
	NodeType    string
	Output      cty.Value
	Stats       stats.Usage
	CreatedAt   time.Time
}

type recordJSON struct {
	Fingerprint string          `json:"fingerprint"`
	NodeID      string          `json:"node_id"`
	NodeType    string          `json:"node_type"`
	Output      json.RawMessage `json:"output"`
	Stats       stats.Usage     `json:"stats"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Encode serializes a record. The output is stored together with its type
// so it decodes to an identical value.
func Encode(rec *Record) ([]byte, error) {
	out := rec.Output
	if out == cty.NilVal {
		out = cty.EmptyObjectVal
	}
	raw, err := ctyjson.Marshal(out, cty.DynamicPseudoType)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output of %q: %w", rec.NodeID, err)
	}
	return json.Marshal(recordJSON{
		Fingerprint: rec.Fingerprint,
		NodeID:      rec.NodeID,
		NodeType:    rec.NodeType,
		Output:      raw,
		Stats:       rec.Stats,
		CreatedAt:   rec.CreatedAt,
	})
}

// Decode is the inverse of Encode.
func Decode(data []byte) (*Record, error) {
	var rj recordJSON
	if err := json.Unmarshal(data, &rj); err != nil {
		return nil, fmt.Errorf("failed to decode cache record: %w", err)
	}
	out, err := ctyjson.Unmarshal(rj.Output, cty.DynamicPseudoType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode output of %q: %w", rj.NodeID, err)
	}
	return &Record{
		Fingerprint: rj.Fingerprint,
		NodeID:      rj.NodeID,
		NodeType:    rj.NodeType,
		Output:      out,
		Stats:       rj.Stats,
		CreatedAt:   rj.CreatedAt,
	}, nil
}

// Verify checks that a loaded record belongs to the requested fingerprint.
func Verify(fingerprint string, rec *Record) error {
	if rec.Fingerprint != fingerprint {
		return fmt.Errorf("record fingerprint %q does not match %q: %w", rec.Fingerprint, fingerprint, ErrNotFound)
	}
	return nil
}
