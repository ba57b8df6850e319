package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/burstgraph/internal/task"
	"github.com/xeipuuv/gojsonschema"
)

// ErrUnknownType is returned when a node type has no registered kind.
var ErrUnknownType = errors.New("unknown node type")

// Module is the interface that all node modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Kind describes a node type.
type Kind struct {
	Name        string
	Description string
	// Schema is an optional JSON schema the resolved parameters must satisfy.
	Schema string
	// New returns the implementation. It is called once per execution.
	New func() task.Runnable
}

type entry struct {
	kind   Kind
	schema *gojsonschema.Schema
}

// Registry holds every registered node kind for a single application instance.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]*entry)}
}

// Register adds a kind. It panics on a duplicate name, a missing constructor
// or a schema that does not compile, since all three are programming errors.
func (r *Registry) Register(k Kind) {
	if k.Name == "" {
		panic("registry: kind name is empty")
	}
	if k.New == nil {
		panic(fmt.Sprintf("registry: kind '%s' has no constructor", k.Name))
	}

	e := &entry{kind: k}
	if k.Schema != "" {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(k.Schema))
		if err != nil {
			panic(fmt.Sprintf("registry: kind '%s' has an invalid schema: %v", k.Name, err))
		}
		e.schema = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("registry: kind '%s' already registered", k.Name))
	}
	slog.Debug("Registering node kind.", "name", k.Name)
	r.kinds[k.Name] = e
}

// Func registers fn as a kind with no description.
func (r *Registry) Func(name, schema string, fn task.RunnableFunc) {
	r.Register(Kind{Name: name, Schema: schema, New: func() task.Runnable { return fn }})
}

// IsValidType reports whether name is a registered kind.
func (r *Registry) IsValidType(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.kinds[name]
	return ok
}

// New returns a fresh implementation of the named kind.
func (r *Registry) New(name string) (task.Runnable, error) {
	r.mu.RLock()
	e, ok := r.kinds[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, name)
	}
	return e.kind.New(), nil
}

// Kind returns the registered description of a kind.
func (r *Registry) Kind(name string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.kinds[name]
	if !ok {
		return Kind{}, false
	}
	return e.kind, true
}

// Kinds returns all registered kinds sorted by name.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for _, e := range r.kinds {
		out = append(out, e.kind)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterAll registers every module in order.
func (r *Registry) RegisterAll(modules ...Module) {
	for _, m := range modules {
		m.Register(r)
	}
}
