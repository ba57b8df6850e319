package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/burstgraph/internal/ctxlog"
	"github.com/specialistvlad/burstgraph/internal/graph"
	"github.com/specialistvlad/burstgraph/internal/node"
	"github.com/specialistvlad/burstgraph/internal/registry"
	"github.com/specialistvlad/burstgraph/internal/scheduler"
	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/zclconf/go-cty/cty"
)

// LoadGraph reads the scene at paths and builds a validated graph from it.
// Scene errors are *config.SceneLoadError; graph errors include
// *graph.CycleError and *graph.UnknownTypeError.
func (a *App) LoadGraph(ctx context.Context, paths ...string) (*graph.Graph, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	scene, err := a.loader.Load(ctx, paths...)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Scene loaded.", "files", len(scene.Paths), "nodes", len(scene.Nodes))

	g, err := graph.Build(ctx, scene, a.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to build dependency graph: %w", err)
	}
	return g, nil
}

// ComputeGraph loads a scene and computes target in the given mode. An empty
// target computes the whole graph. Node failures are reported in the Result,
// not as an error.
func (a *App) ComputeGraph(ctx context.Context, scenePath, target string, mode scheduler.Mode) (*scheduler.Result, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	g, err := a.LoadGraph(ctx, scenePath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("Dependency graph built.", "node_count", g.Len())
	if a.status != nil {
		a.status.Bind(g)
	}

	worker := scheduler.New(a.executor,
		scheduler.WithWorkers(a.config.WorkerCount),
		scheduler.WithCache(a.cache),
		scheduler.WithEvents(a.publisher()),
		scheduler.WithTracer(a.tracing.Tracer()),
		scheduler.WithStdout(a.outW),
	)
	if err := worker.Configure(g, target, mode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return worker.Compute(ctx)
}

// ComputeNode runs one node of the given type directly, without a graph or
// the scheduler. Arguments of the form key=value become string parameters;
// every other argument is passed through as a positional argument. Nothing
// is cached.
func (a *App) ComputeNode(ctx context.Context, typ string, args []string) (cty.Value, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if !a.registry.IsValidType(typ) {
		return cty.NilVal, fmt.Errorf("%w: %q", registry.ErrUnknownType, typ)
	}

	n, err := node.New("compute_node", typ, nil, nil)
	if err != nil {
		return cty.NilVal, err
	}
	params, positional := SplitArgs(args)
	t := &task.Task{
		Node:   n,
		Params: params,
		Args:   positional,
		Stdout: a.outW,
	}

	a.logger.Debug("Computing single node.", "type", typ, "params", len(params), "args", len(positional))
	outcome := a.executor.Run(ctx, t)
	if outcome.Err != nil {
		return cty.NilVal, outcome.Err
	}
	return outcome.Output, nil
}

// SplitArgs separates key=value arguments, whose key is a valid identifier,
// from positional ones. A later key overrides an earlier one.
func SplitArgs(args []string) (map[string]cty.Value, []string) {
	params := make(map[string]cty.Value)
	var positional []string
	for _, arg := range args {
		key, val, ok := strings.Cut(arg, "=")
		if ok && node.ValidateID(key) == nil {
			params[key] = cty.StringVal(val)
			continue
		}
		positional = append(positional, arg)
	}
	return params, positional
}
