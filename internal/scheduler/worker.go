package scheduler

import (
	"fmt"
	"io"
	"sync"

	"github.com/specialistvlad/burstgraph/internal/cache"
	"github.com/specialistvlad/burstgraph/internal/cache/memcache"
	"github.com/specialistvlad/burstgraph/internal/events"
	"github.com/specialistvlad/burstgraph/internal/executor"
	"github.com/specialistvlad/burstgraph/internal/fingerprint"
	"github.com/specialistvlad/burstgraph/internal/graph"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWorkers is the pool size used when none is configured.
const DefaultWorkers = 4

// Worker computes a configured graph target.
type Worker struct {
	exec    executor.Executor
	cache   cache.Store
	events  events.Publisher
	tracer  trace.Tracer
	workers int
	stdout  io.Writer
	fp      *fingerprint.Fingerprinter

	mu         sync.Mutex
	graph      *graph.Graph
	target     string
	mode       Mode
	configured bool
}

// Option configures a Worker.
type Option func(*Worker)

// WithWorkers sets the number of nodes executed concurrently.
func WithWorkers(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

// WithCache sets the store used to decide cache validity. It must be the
// store the executor persists to.
func WithCache(c cache.Store) Option {
	return func(w *Worker) { w.cache = c }
}

// WithEvents sets the publisher notified of every status transition.
func WithEvents(p events.Publisher) Option {
	return func(w *Worker) { w.events = p }
}

// WithTracer sets the tracer for run spans.
func WithTracer(t trace.Tracer) Option {
	return func(w *Worker) { w.tracer = t }
}

// WithStdout sets the writer handed to every task.
func WithStdout(out io.Writer) Option {
	return func(w *Worker) { w.stdout = out }
}

// New creates a Worker. Without WithCache an in-memory cache is used, so
// repeated runs of the same Worker still reuse outputs.
func New(exec executor.Executor, opts ...Option) *Worker {
	w := &Worker{
		exec:    exec,
		events:  events.Nop{},
		workers: DefaultWorkers,
		fp:      fingerprint.New(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.cache == nil {
		w.cache = memcache.New()
	}
	return w
}

// Configure binds the worker to a graph, a target node and a mode. An empty
// target selects the whole graph, which SingleNode mode does not allow.
func (w *Worker) Configure(g *graph.Graph, target string, mode Mode) error {
	if g == nil {
		return fmt.Errorf("configure: graph is nil")
	}
	if target != "" {
		if _, ok := g.Node(target); !ok {
			return fmt.Errorf("configure: target %q: %w", target, graph.ErrNodeNotFound)
		}
	}
	switch mode {
	case Full, Incremental:
	case SingleNode:
		if target == "" {
			return fmt.Errorf("configure: %s mode requires a target node", mode)
		}
	default:
		return fmt.Errorf("configure: unsupported build mode %s", mode)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.graph, w.target, w.mode, w.configured = g, target, mode, true
	return nil
}
