package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/graph"
	"github.com/specialistvlad/burstgraph/internal/node"
)

// Plan is the ephemeral execution plan of one run.
type Plan struct {
	Target string
	Mode   Mode
	// Run lists the nodes to execute in topological order.
	Run []string
	// Reuse holds the cache records of nodes marked Computed without running.
	Reuse map[string]*cache.Record
	// Fingerprints covers every node in Run and Reuse.
	Fingerprints map[string]string
	// Waves partitions Run. Each wave is sorted by id.
	Waves [][]string
}

// ReuseOrder returns the reused node ids in ascending order.
func (p *Plan) ReuseOrder() []string {
	ids := make([]string, 0, len(p.Reuse))
	for id := range p.Reuse {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Plan computes the execution plan for the configured target and mode
// without running anything.
func (w *Worker) Plan(ctx context.Context) (*Plan, error) {
	w.mu.Lock()
	g, target, mode, ok := w.graph, w.target, w.mode, w.configured
	w.mu.Unlock()
	if !ok {
		return nil, ErrNotConfigured
	}
	return w.plan(ctx, g, target, mode)
}

func (w *Worker) plan(ctx context.Context, g *graph.Graph, target string, mode Mode) (*Plan, error) {
	p := &Plan{
		Target:       target,
		Mode:         mode,
		Reuse:        make(map[string]*cache.Record),
		Fingerprints: make(map[string]string),
	}

	var run []string
	var err error
	switch mode {
	case Full:
		run, err = closure(g, target)
	case Incremental:
		run, err = w.planIncremental(ctx, g, target, p)
	case SingleNode:
		run, err = w.planSingle(ctx, g, target, p)
	default:
		err = fmt.Errorf("unsupported build mode %s", mode)
	}
	if err != nil {
		return nil, err
	}

	if p.Run, err = g.TopologicalOrder(run); err != nil {
		return nil, err
	}
	for _, id := range p.Run {
		if _, ok := p.Fingerprints[id]; ok {
			continue
		}
		if p.Fingerprints[id], err = w.fp.Of(g, id); err != nil {
			return nil, err
		}
	}
	p.Waves = waves(g, p.Run)
	return p, nil
}

// closure returns the target and its ancestors, or every node for an empty
// target.
func closure(g *graph.Graph, target string) ([]string, error) {
	if target == "" {
		return g.IDs(), nil
	}
	ancestors, err := g.AncestorsOf(target)
	if err != nil {
		return nil, err
	}
	return append(ancestors, target), nil
}

// planIncremental walks upstream from the roots and stops at nodes whose
// cached output is valid. Their ancestors are not needed by this run.
func (w *Worker) planIncremental(ctx context.Context, g *graph.Graph, target string, p *Plan) ([]string, error) {
	roots := []string{target}
	if target == "" {
		roots = g.IDs()
	}

	var run []string
	seen := make(map[string]bool)
	stack := append([]string(nil), roots...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true

		fp, err := w.fp.Of(g, id)
		if err != nil {
			return nil, err
		}
		p.Fingerprints[id] = fp
		if rec := w.lookup(ctx, id, fp); rec != nil {
			p.Reuse[id] = rec
			continue
		}
		run = append(run, id)
		stack = append(stack, g.Inputs(id)...)
	}
	return run, nil
}

// planSingle runs only the target. Each direct input must be Computed in the
// graph or have a valid cached output, which is then reused.
func (w *Worker) planSingle(ctx context.Context, g *graph.Graph, target string, p *Plan) ([]string, error) {
	if target == "" {
		return nil, errors.New("single node mode requires a target node")
	}
	var unmet []string
	for _, in := range g.Inputs(target) {
		status, err := g.Status(ctx, in)
		if err != nil {
			return nil, err
		}
		if status == node.Computed {
			continue
		}
		fp, err := w.fp.Of(g, in)
		if err != nil {
			return nil, err
		}
		if rec := w.lookup(ctx, in, fp); rec != nil {
			p.Reuse[in] = rec
			p.Fingerprints[in] = fp
			continue
		}
		unmet = append(unmet, in)
	}
	if len(unmet) > 0 {
		sort.Strings(unmet)
		return nil, &UnmetDependencyError{Node: target, Inputs: unmet}
	}
	return []string{target}, nil
}

// lookup returns a valid cache record or nil. Read failures count as misses.
func (w *Worker) lookup(ctx context.Context, id, fp string) *cache.Record {
	logger := ctxlog.FromContext(ctx)
	rec, err := w.cache.Load(ctx, fp)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		logger.Debug("Cache miss.", "node", id, "fingerprint", fp)
		return nil
	case err != nil:
		logger.Warn("Cache read failed, recomputing node.", "node", id, "error", err)
		return nil
	}
	if err := cache.Verify(fp, rec); err != nil {
		logger.Warn("Discarding invalid cache record.", "node", id, "error", err)
		return nil
	}
	logger.Debug("Cache hit.", "node", id, "fingerprint", fp)
	return rec
}

// waves groups ordered nodes by the length of the longest chain of planned
// inputs leading to them.
func waves(g *graph.Graph, ordered []string) [][]string {
	level := make(map[string]int, len(ordered))
	var out [][]string
	for _, id := range ordered {
		lvl := 0
		for _, in := range g.Inputs(id) {
			if l, ok := level[in]; ok && l+1 > lvl {
				lvl = l + 1
			}
		}
		level[id] = lvl
		for len(out) <= lvl {
			out = append(out, nil)
		}
		out[lvl] = append(out[lvl], id)
	}
	for _, wave := range out {
		sort.Strings(wave)
	}
	return out
}
