// Package fingerprint derives content fingerprints for nodes.
//
// A node's fingerprint covers its type, its effective parameters and the
// fingerprints of its direct inputs in declared order. Two nodes with equal
// fingerprints are interchangeable for caching purposes, whatever their ids.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"sync"

	"github.com/specialistvlad/burstgraph/internal/graph"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// scheme is mixed into every fingerprint so that an encoding change
// invalidates all previously persisted outputs.
const scheme = "burstgraph/fingerprint/v1"

// Compute derives the fingerprint of n given the fingerprints of its direct
// inputs, which must be in the order of n.Inputs.
func Compute(n *node.Node, upstream []string) (string, error) {
	if len(upstream) != len(n.Inputs) {
		return "", fmt.Errorf("node %q: got %d upstream fingerprints for %d inputs", n.ID, len(upstream), len(n.Inputs))
	}
	h := sha256.New()
	writeField(h, []byte(scheme))
	writeField(h, []byte(n.Type))

	params := make([]node.Param, len(n.Params))
	copy(params, n.Params)
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	writeCount(h, len(params))
	for _, p := range params {
		writeField(h, []byte(p.Name))
		if p.IsDeferred() {
			writeField(h, []byte("expr"))
			writeField(h, []byte(p.Source))
			continue
		}
		encoded, err := encodeValue(p.Value)
		if err != nil {
			return "", fmt.Errorf("node %q: parameter %q: %w", n.ID, p.Name, err)
		}
		writeField(h, []byte("value"))
		writeField(h, encoded)
	}

	writeCount(h, len(upstream))
	for _, fp := range upstream {
		writeField(h, []byte(fp))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// encodeValue renders a value with its type, so that "1" and 1 differ.
func encodeValue(v cty.Value) ([]byte, error) {
	if v == cty.NilVal {
		v = cty.NullVal(cty.DynamicPseudoType)
	}
	if !v.IsWhollyKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	return ctyjson.Marshal(v, cty.DynamicPseudoType)
}

func writeField(h hash.Hash, data []byte) {
	var lengthBytes [8]byte
	binary.BigEndian.PutUint64(lengthBytes[:], uint64(len(data)))
	h.Write(lengthBytes[:])
	h.Write(data)
}

func writeCount(h hash.Hash, n int) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(n))
	writeField(h, b[:])
}

// Fingerprinter memoizes fingerprints for one graph. The memo is dropped
// whenever the graph version changes, which invalidates every descendant of
// a changed node along with the node itself.
type Fingerprinter struct {
	mu      sync.Mutex
	graph   *graph.Graph
	version uint64
	memo    map[string]string
}

// New creates a Fingerprinter.
func New() *Fingerprinter {
	return &Fingerprinter{}
}

// Of returns the fingerprint of the node with the given id in g.
func (f *Fingerprinter) Of(g *graph.Graph, id string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if v := g.Version(); f.graph != g || f.version != v || f.memo == nil {
		f.graph = g
		f.version = v
		f.memo = make(map[string]string)
	}
	return f.of(g, id, nil)
}

func (f *Fingerprinter) of(g *graph.Graph, id string, path []string) (string, error) {
	if fp, ok := f.memo[id]; ok {
		return fp, nil
	}
	for _, p := range path {
		if p == id {
			return "", &graph.CycleError{Nodes: append(append([]string(nil), path...), id)}
		}
	}
	n, ok := g.Node(id)
	if !ok {
		return "", fmt.Errorf("%w: %q", graph.ErrNodeNotFound, id)
	}
	upstream := make([]string, len(n.Inputs))
	for i, in := range n.Inputs {
		fp, err := f.of(g, in, append(path, id))
		if err != nil {
			return "", err
		}
		upstream[i] = fp
	}
	fp, err := Compute(n, upstream)
	if err != nil {
		return "", err
	}
	f.memo[id] = fp
	return fp, nil
}
