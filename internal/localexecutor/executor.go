// Package localexecutor runs nodes in the current process.
package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/executor"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/stats"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/specialistvlad/burstgraph/internal/tracing"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel/trace"
)

// Executor implements executor.Executor by resolving the node's kind from a
// registry and calling it directly.
type Executor struct {
	registry *registry.Registry
	cache    cache.Store
	sampler  *stats.Sampler
	tracer   trace.Tracer
	stdout   io.Writer
	now      func() time.Time
}

var _ executor.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithTracer sets the tracer used for node spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithStdout sets the writer given to tasks that do not carry one.
func WithStdout(w io.Writer) Option {
	return func(e *Executor) { e.stdout = w }
}

// WithClock overrides the time source for cache records.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates a local executor. A nil store disables persistence.
func New(reg *registry.Registry, store cache.Store, opts ...Option) *Executor {
	e := &Executor{
		registry: reg,
		cache:    store,
		sampler:  stats.NewSampler(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the task. The output is persisted before Run reports success;
// when persisting fails the whole run is reported as failed.
func (e *Executor) Run(ctx context.Context, t *task.Task) executor.Outcome {
	n := t.Node
	logger := ctxlog.FromContext(ctx).With("node", n.ID, "type", n.Type)
	ctx = ctxlog.WithLogger(ctx, logger)

	ctx, span := tracing.StartSpan(ctx, e.tracer, "node.run",
		tracing.NodeIDKey.String(n.ID),
		tracing.NodeTypeKey.String(n.Type),
		tracing.FPKey.String(t.Fingerprint),
	)
	defer span.End()

	logger.Info("▶️ Running node")
	m := e.sampler.Start(ctx)
	output, err := e.run(ctx, t)
	usage := m.Stop(ctx)

	if err == nil {
		err = e.persist(ctx, t, output, usage)
	}
	if err != nil {
		err = &executor.NodeExecutionError{Node: n.ID, Type: n.Type, Cause: err}
		tracing.SetError(span, err)
		logger.Error("❌ Node failed", "error", err, "duration", usage.WallTime)
		return executor.Outcome{Err: err, Stats: usage}
	}

	logger.Info("✅ Node computed", "duration", usage.WallTime)
	return executor.Outcome{Output: output, Stats: usage}
}

func (e *Executor) run(ctx context.Context, t *task.Task) (out cty.Value, err error) {
	logger := ctxlog.FromContext(ctx)

	runnable, err := e.registry.New(t.Node.Type)
	if err != nil {
		return cty.NilVal, err
	}
	if t.Params == nil {
		if t.Params, err = executor.ResolveParams(t.Node, t.Upstream); err != nil {
			return cty.NilVal, err
		}
	}
	if err := e.registry.Validate(t.Node.Type, t.Params); err != nil {
		return cty.NilVal, err
	}
	if t.Stdout == nil {
		t.Stdout = e.stdout
	}
	if err := ctx.Err(); err != nil {
		return cty.NilVal, err
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Debug("Recovered panic from node.", "stack", string(debug.Stack()))
			out, err = cty.NilVal, fmt.Errorf("panic: %v", r)
		}
	}()

	logger.Debug("Invoking node implementation.", "params", t.ParamNames())
	out, err = runnable.Run(ctx, t)
	if err != nil {
		return cty.NilVal, err
	}
	if out == cty.NilVal || out.IsNull() {
		out = cty.EmptyObjectVal
	}
	if !out.IsWhollyKnown() {
		return cty.NilVal, errors.New("output contains unknown values")
	}
	return out, nil
}

func (e *Executor) persist(ctx context.Context, t *task.Task, output cty.Value, usage stats.Usage) error {
	if e.cache == nil || t.Fingerprint == "" {
		return nil
	}
	rec := &cache.Record{
		Fingerprint: t.Fingerprint,
		NodeID:      t.Node.ID,
		NodeType:    t.Node.Type,
		Output:      output,
		Stats:       usage,
		CreatedAt:   e.now().UTC(),
	}
	if err := e.cache.Store(ctx, t.Fingerprint, rec); err != nil {
		return fmt.Errorf("persist output: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Persisted node output.", "fingerprint", t.Fingerprint)
	return nil
}
