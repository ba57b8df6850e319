package graph

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/specialistvlad/burstgraph/internal/config"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/inmemorystore"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/nodestore"
)

// TypeChecker reports whether a node type can be instantiated.
type TypeChecker interface {
	IsValidType(name string) bool
}

// Option configures a Graph at construction time.
type Option func(*Graph)

// WithStateStore replaces the default in-memory node state store.
func WithStateStore(s nodestore.Store) Option {
	return func(g *Graph) { g.state = s }
}

// Graph is a validated DAG of nodes plus their compute state.
type Graph struct {
	mu         sync.RWMutex
	nodes      map[string]*node.Node
	ids        []string
	dependents map[string][]string
	version    uint64
	leased     bool

	types TypeChecker
	state nodestore.Store
}

// New returns an empty graph. A nil TypeChecker accepts every type.
func New(types TypeChecker, opts ...Option) *Graph {
	g := &Graph{
		nodes:      make(map[string]*node.Node),
		dependents: make(map[string][]string),
		types:      types,
		state:      inmemorystore.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Build constructs a graph from a loaded scene. It fails without returning
// a partial graph if any node is invalid or the inputs contain a cycle.
func Build(ctx context.Context, scene *config.Scene, types TypeChecker, opts ...Option) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting graph build.", "nodes", len(scene.Nodes))

	g := New(types, opts...)
	for _, spec := range scene.Nodes {
		n, err := node.New(spec.Name, spec.Type, spec.Params, spec.DependsOn)
		if err != nil {
			return nil, withDecl(spec, err)
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, withDecl(spec, fmt.Errorf("duplicate node id %q", n.ID))
		}
		if err := g.checkType(n); err != nil {
			return nil, withDecl(spec, err)
		}
		g.nodes[n.ID] = n
	}
	logger.Debug("Graph build pass 1 complete: nodes created.")

	for _, spec := range scene.Nodes {
		if err := g.checkInputs(g.nodes[spec.Name]); err != nil {
			return nil, withDecl(spec, err)
		}
	}
	logger.Debug("Graph build pass 2 complete: references resolved.")

	if err := g.detectCycles(); err != nil {
		return nil, err
	}
	g.reindex()
	logger.Debug("Graph build pass 3 complete: no cycles found.")

	return g, nil
}

func withDecl(spec *config.NodeSpec, err error) error {
	if spec.DeclRange == "" {
		return err
	}
	return fmt.Errorf("%s: %w", spec.DeclRange, err)
}

func (g *Graph) checkType(n *node.Node) error {
	if g.types != nil && !g.types.IsValidType(n.Type) {
		return &UnknownTypeError{Node: n.ID, Type: n.Type}
	}
	return nil
}

func (g *Graph) checkInputs(n *node.Node) error {
	for _, in := range n.Inputs {
		if _, ok := g.nodes[in]; !ok {
			return fmt.Errorf("node %q depends on unknown node %q", n.ID, in)
		}
	}
	return nil
}

// detectCycles runs a depth-first search over the inputs of every node,
// visiting ids in ascending order so the reported cycle is deterministic.
func (g *Graph) detectCycles() error {
	const (
		unvisited = iota
		visiting
		visited
	)
	color := make(map[string]int, len(g.nodes))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = visiting
		stack = append(stack, id)
		for _, in := range g.nodes[id].Inputs {
			switch color[in] {
			case visiting:
				start := slices.Index(stack, in)
				cycle := append(slices.Clone(stack[start:]), in)
				return &CycleError{Nodes: cycle}
			case unvisited:
				if err := visit(in); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = visited
		return nil
	}

	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if color[id] == unvisited {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// reindex rebuilds the sorted id list and the dependents index.
func (g *Graph) reindex() {
	g.ids = g.ids[:0]
	g.dependents = make(map[string][]string, len(g.nodes))
	for id, n := range g.nodes {
		g.ids = append(g.ids, id)
		for _, in := range n.Inputs {
			g.dependents[in] = append(g.dependents[in], id)
		}
	}
	sort.Strings(g.ids)
	for _, deps := range g.dependents {
		sort.Strings(deps)
	}
}

// Version changes every time the topology or a parameter changes.
func (g *Graph) Version() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// IDs returns all node ids in ascending order.
func (g *Graph) IDs() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.ids)
}

// Node returns the node with the given id. The returned value must be
// treated as read-only.
func (g *Graph) Node(id string) (*node.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Inputs returns the direct upstream ids of a node in declared order.
func (g *Graph) Inputs(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.nodes[id]; ok {
		return slices.Clone(n.Inputs)
	}
	return nil
}

// Dependents returns the direct downstream ids of a node in ascending order.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.dependents[id])
}

// Sinks returns the nodes nothing depends on, in ascending order.
func (g *Graph) Sinks() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var sinks []string
	for _, id := range g.ids {
		if len(g.dependents[id]) == 0 {
			sinks = append(sinks, id)
		}
	}
	return sinks
}

// AncestorsOf returns the transitive upstream closure of a node, sorted by
// id. The node itself is not included.
func (g *Graph) AncestorsOf(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closure(id, func(n string) []string { return g.nodes[n].Inputs })
}

// DescendantsOf returns the transitive downstream closure of a node, sorted
// by id. The node itself is not included.
func (g *Graph) DescendantsOf(id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closure(id, func(n string) []string { return g.dependents[n] })
}

func (g *Graph) closure(id string, next func(string) []string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, notFound(id)
	}
	seen := map[string]bool{id: true}
	queue := []string{id}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next(cur) {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
				queue = append(queue, n)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// Order returns every node in topological order, ties broken by id.
func (g *Graph) Order() ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.topological(g.ids)
}

// TopologicalOrder orders the given subset so that every node comes after
// all of its inputs that are also in the subset. Ties are broken by
// ascending id. An empty subset yields an empty order.
func (g *Graph) TopologicalOrder(subset []string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.topological(subset)
}

func (g *Graph) topological(subset []string) ([]string, error) {
	in := make(map[string]bool, len(subset))
	for _, id := range subset {
		if _, ok := g.nodes[id]; !ok {
			return nil, notFound(id)
		}
		in[id] = true
	}

	indegree := make(map[string]int, len(in))
	var ready []string
	for id := range in {
		for _, dep := range g.nodes[id].Inputs {
			if in[dep] {
				indegree[id]++
			}
		}
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(in))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, dependent := range g.dependents[id] {
			if !in[dependent] {
				continue
			}
			indegree[dependent]--
			if indegree[dependent] == 0 {
				pos, _ := slices.BinarySearch(ready, dependent)
				ready = slices.Insert(ready, pos, dependent)
			}
		}
	}
	if len(order) != len(in) {
		// Build guarantees acyclicity, so this only trips on a corrupted graph.
		return nil, fmt.Errorf("topological order incomplete: %d of %d nodes ordered", len(order), len(in))
	}
	return order, nil
}
