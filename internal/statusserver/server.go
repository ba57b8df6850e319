// Package statusserver exposes the live state of a compute run over HTTP.
package statusserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
	"github.com/specialistvlad/burstgraph/internal/events"
	"github.com/specialistvlad/burstgraph/internal/graph"
)

// Server serves node status. The graph is bound once it has been loaded, so
// the server can start before the scene is read.
type Server struct {
	app      *fiber.App
	logger   *slog.Logger
	recorder *events.Recorder
	graph    atomic.Pointer[graph.Graph]
}

// New creates a server. A nil recorder disables the events endpoint.
func New(logger *slog.Logger, recorder *events.Recorder) *Server {
	s := &Server{
		app:      fiber.New(),
		logger:   logger,
		recorder: recorder,
	}
	s.app.Get("/health", s.health)
	s.app.Get("/nodes", s.listNodes)
	s.app.Get("/nodes/:id", s.getNode)
	s.app.Get("/events", s.listEvents)
	return s
}

// Bind makes g the graph served by the node endpoints.
func (s *Server) Bind(g *graph.Graph) {
	s.graph.Store(g)
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens on addr in the background and returns the bound address.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("status server listen on %s: %w", addr, err)
	}
	s.logger.Info("🩺 Status server listening.", "addr", ln.Addr().String())
	go func() {
		if err := s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
			s.logger.Error("Status server stopped.", "error", err)
		}
	}()
	return ln.Addr(), nil
}

// Shutdown stops the server and waits for open requests up to ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":       "ok",
		"graph_loaded": s.graph.Load() != nil,
	})
}

func (s *Server) listNodes(c fiber.Ctx) error {
	g := s.graph.Load()
	if g == nil {
		return unavailable(c, "no graph is loaded yet")
	}
	nodes, err := g.Snapshot(c.Context())
	if err != nil {
		return internalError(c, err)
	}
	return c.JSON(fiber.Map{"nodes": nodes, "total_count": len(nodes)})
}

func (s *Server) getNode(c fiber.Ctx) error {
	g := s.graph.Load()
	if g == nil {
		return unavailable(c, "no graph is loaded yet")
	}
	id := c.Params("id")
	state, err := g.NodeSnapshot(c.Context(), id)
	switch {
	case errors.Is(err, graph.ErrNodeNotFound):
		return notFound(c, fmt.Sprintf("node %q not found", id))
	case err != nil:
		return internalError(c, err)
	}
	return c.JSON(state)
}

func (s *Server) listEvents(c fiber.Ctx) error {
	if s.recorder == nil {
		return unavailable(c, "event recording is disabled")
	}
	evs := s.recorder.Recent()
	if id := c.Query("node"); id != "" {
		evs = s.recorder.ForNode(id)
	}
	if evs == nil {
		evs = []events.NodeStatusChanged{}
	}
	return c.JSON(fiber.Map{"events": evs})
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusNotFound).
		WithInstance(c.Path()).
		WithType("node_not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func unavailable(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(fiber.StatusServiceUnavailable).
		WithInstance(c.Path()).
		WithType("unavailable").
		WithDetail(detail)

	return c.Status(fiber.StatusServiceUnavailable).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(fiber.StatusInternalServerError).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}
