package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/events"
	"github.com/specialistvlad/burstgraph/internal/executor"
	"github.com/specialistvlad/burstgraph/internal/graph"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/specialistvlad/burstgraph/internal/tracing"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/errgroup"
)

// Compute runs the configured target. Node failures, blocked nodes and
// cancellation are reported in the Result. The returned error is reserved
// for problems that prevent the run from starting, plus failures to record
// node state.
func (w *Worker) Compute(ctx context.Context) (*Result, error) {
	w.mu.Lock()
	g, target, mode, ok := w.graph, w.target, w.mode, w.configured
	w.mu.Unlock()
	if !ok {
		return nil, ErrNotConfigured
	}

	release, err := g.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	runID := uuid.NewString()
	ctx, span := tracing.StartSpan(ctx, w.tracer, "compute",
		tracing.RunIDKey.String(runID),
		tracing.RunModeKey.String(mode.String()),
		tracing.TargetKey.String(target),
	)
	defer span.End()

	logger := ctxlog.FromContext(ctx).With("run_id", runID)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Info("🚀 Starting compute run.", "target", target, "mode", mode.String(), "workers", w.workers)

	plan, err := w.plan(ctx, g, target, mode)
	if err != nil {
		tracing.SetError(span, err)
		logger.Error("❌ Compute run could not be planned.", "error", err)
		return nil, err
	}
	logger.Debug("Execution plan ready.", "run", len(plan.Run), "reuse", len(plan.Reuse), "waves", len(plan.Waves))

	r := &run{
		w:      w,
		g:      g,
		plan:   plan,
		res:    newResult(runID, target, mode),
		status: make(map[string]node.Status, len(plan.Run)),
		// Bookkeeping outlives cancellation of the caller's context.
		bg: context.WithoutCancel(ctx),
	}
	r.reuse()
	for _, id := range plan.Run {
		r.markWaiting(id)
	}
	r.execute(ctx)

	r.res.finish(time.Since(start))
	if err := r.res.Err(); err != nil {
		tracing.SetError(span, err)
	}
	logger.Info("🏁 Compute run finished.",
		"succeeded", len(r.res.Succeeded),
		"failed", len(r.res.Failed),
		"blocked", len(r.res.Blocked),
		"skipped", len(r.res.Skipped),
		"duration", r.res.Duration,
	)
	if len(r.stateErrs) > 0 {
		return r.res, fmt.Errorf("recording node state: %w", errors.Join(r.stateErrs...))
	}
	return r.res, nil
}

// run holds the bookkeeping of one Compute call. Only the goroutine running
// Compute touches it.
type run struct {
	w    *Worker
	g    *graph.Graph
	plan *Plan
	res  *Result
	bg   context.Context

	status    map[string]node.Status
	stateErrs []error
}

type completion struct {
	id      string
	started bool
	outcome executor.Outcome
}

func (r *run) reuse() {
	for _, id := range r.plan.ReuseOrder() {
		rec := r.plan.Reuse[id]
		r.record(r.g.MarkComputed(r.bg, id, rec.Output))
		r.res.Skipped = append(r.res.Skipped, id)
		r.publish(id, node.Computed, nil)
	}
}

// execute dispatches the plan wave by wave. A wave starts only once every
// node of the previous wave is terminal.
func (r *run) execute(ctx context.Context) {
	if len(r.plan.Run) == 0 {
		return
	}
	logger := ctxlog.FromContext(ctx)

	n := r.w.workers
	jobs := make(chan *task.Task)
	done := make(chan completion, n)

	var eg errgroup.Group
	for range n {
		eg.Go(func() error {
			for t := range jobs {
				if ctx.Err() != nil {
					done <- completion{id: t.Node.ID}
					continue
				}
				done <- completion{id: t.Node.ID, started: true, outcome: r.w.exec.Run(ctx, t)}
			}
			return nil
		})
	}
	defer func() {
		close(jobs)
		_ = eg.Wait()
	}()

	for i, wave := range r.plan.Waves {
		logger.Debug("Starting wave.", "wave", i, "nodes", len(wave))
		pending := append([]string(nil), wave...)
		inFlight := 0

		for len(pending) > 0 || inFlight > 0 {
			for len(pending) > 0 && inFlight < n && ctx.Err() == nil {
				id := pending[0]
				pending = pending[1:]
				t := r.prepare(id)
				if t == nil {
					continue
				}
				select {
				case jobs <- t:
					inFlight++
					r.res.DispatchOrder = append(r.res.DispatchOrder, id)
					r.markRunning(id)
				case <-ctx.Done():
					r.cancel(id, ctx.Err())
				}
			}
			if err := ctx.Err(); err != nil {
				for _, id := range pending {
					r.cancel(id, err)
				}
				pending = nil
			}
			if inFlight == 0 {
				break
			}
			c := <-done
			inFlight--
			r.complete(ctx, c)
		}

		if err := ctx.Err(); err != nil {
			logger.Warn("Compute run cancelled, blocking remaining nodes.", "error", err)
			for _, later := range r.plan.Waves[i+1:] {
				for _, id := range later {
					r.cancel(id, err)
				}
			}
			return
		}
	}
}

// prepare builds the task for a node, or returns nil when the node must not
// run because it is already blocked or an input is missing.
func (r *run) prepare(id string) *task.Task {
	if r.status[id].IsTerminal() {
		return nil
	}
	n, ok := r.g.Node(id)
	if !ok {
		r.block(id, fmt.Errorf("%w: %q", graph.ErrNodeNotFound, id))
		return nil
	}

	upstream := make(map[string]cty.Value, len(n.Inputs))
	for _, in := range n.Inputs {
		st, err := r.g.Status(r.bg, in)
		if err != nil {
			r.record(err)
			r.block(id, &UpstreamError{Upstream: in})
			return nil
		}
		if st != node.Computed {
			r.block(id, &UpstreamError{Upstream: in})
			return nil
		}
		out, _, err := r.g.Output(r.bg, in)
		if err != nil {
			r.record(err)
			r.block(id, &UpstreamError{Upstream: in})
			return nil
		}
		upstream[in] = out
	}

	return &task.Task{
		Node:        n,
		Fingerprint: r.plan.Fingerprints[id],
		Upstream:    upstream,
		Stdout:      r.w.stdout,
	}
}

func (r *run) complete(ctx context.Context, c completion) {
	logger := ctxlog.FromContext(ctx)
	switch err := c.outcome.Err; {
	case !c.started:
		r.cancel(c.id, ctx.Err())
	case err != nil && ctx.Err() != nil && isContextErr(err):
		logger.Debug("Node interrupted by cancellation.", "node", c.id)
		r.cancel(c.id, ctx.Err())
	case err != nil:
		r.fail(c.id, err)
	default:
		r.record(r.g.MarkComputed(r.bg, c.id, c.outcome.Output))
		r.status[c.id] = node.Computed
		r.res.Succeeded = append(r.res.Succeeded, c.id)
		r.res.Stats[c.id] = c.outcome.Stats
		r.publish(c.id, node.Computed, nil)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// fail records a node error and blocks every planned descendant that has
// not run yet.
func (r *run) fail(id string, cause error) {
	r.record(r.g.MarkError(r.bg, id, cause))
	r.status[id] = node.Error
	r.res.Failed = append(r.res.Failed, id)
	r.res.Errors[id] = cause
	r.publish(id, node.Error, cause)

	descendants, err := r.g.DescendantsOf(id)
	if err != nil {
		r.record(err)
		return
	}
	for _, d := range descendants {
		if r.status[d] == node.WaitingOnDependency {
			r.block(d, &UpstreamError{Upstream: id})
		}
	}
}

func (r *run) cancel(id string, cause error) {
	if r.status[id] != node.WaitingOnDependency && r.status[id] != node.Running {
		return
	}
	r.block(id, &CancelledError{Cause: cause})
}

func (r *run) block(id string, cause error) {
	r.record(r.g.MarkBlocked(r.bg, id, cause))
	r.status[id] = node.Blocked
	r.res.Blocked = append(r.res.Blocked, id)
	r.res.Errors[id] = cause
	r.publish(id, node.Blocked, cause)
}

func (r *run) markWaiting(id string) {
	r.record(r.g.MarkWaiting(r.bg, id))
	r.status[id] = node.WaitingOnDependency
	r.publish(id, node.WaitingOnDependency, nil)
}

func (r *run) markRunning(id string) {
	r.record(r.g.MarkRunning(r.bg, id))
	r.status[id] = node.Running
	r.publish(id, node.Running, nil)
}

func (r *run) record(err error) {
	if err != nil {
		r.stateErrs = append(r.stateErrs, err)
	}
}

func (r *run) publish(id string, status node.Status, cause error) {
	ev := events.NodeStatusChanged{
		RunID:     r.res.RunID,
		NodeID:    id,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
	if n, ok := r.g.Node(id); ok {
		ev.NodeType = n.Type
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	if err := r.w.events.Publish(r.bg, ev); err != nil {
		ctxlog.FromContext(r.bg).Warn("Failed to publish node status event.", "node", id, "status", status.String(), "error", err)
	}
}
