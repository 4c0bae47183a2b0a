package builder

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Options is the input a builder receives for one build.
type Options struct {
	WorkPath     string            `json:"workPath"`
	RepoRootPath string            `json:"repoRootPath"`
	Entrypoint   string            `json:"entrypoint"`
	Config       Config            `json:"config"`
	Meta         Meta              `json:"meta"`
	Env          map[string]string `json:"-"`
}

// Meta carries run-scoped facts shared by every build of a run.
type Meta struct {
	Target           string `json:"target"`
	InstallCompleted bool   `json:"installCompleted"`
}

// Builder turns one build's source into artifacts. A returned error fails
// the build; it does not stop the run.
type Builder interface {
	Build(ctx context.Context, opts Options) (*Result, error)
}

// Diagnoser is implemented by builders that can report diagnostics files
// after a build attempt, whether it succeeded or not.
type Diagnoser interface {
	Diagnostics(ctx context.Context, opts Options) (map[string][]byte, error)
}

// APIVersioner is implemented by builders that report a build API version.
// Builders that do not are recorded with DefaultAPIVersion.
type APIVersioner interface {
	APIVersion() int
}

// DefaultAPIVersion is recorded for builders without an explicit version.
const DefaultAPIVersion = 3

// APIVersionOf returns the API version of b.
func APIVersionOf(b Builder) int {
	if v, ok := b.(APIVersioner); ok {
		return v.APIVersion()
	}
	return DefaultAPIVersion
}

// Func adapts a function to the Builder interface.
type Func func(ctx context.Context, opts Options) (*Result, error)

// Build calls f.
func (f Func) Build(ctx context.Context, opts Options) (*Result, error) {
	return f(ctx, opts)
}

// Registry resolves builder identifiers to implementations.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates a new empty builder registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a builder under id.
// Returns an error if the id is empty or already taken.
func (r *Registry) Register(id string, b Builder) error {
	if id == "" {
		return fmt.Errorf("builder id is required")
	}
	if b == nil {
		return fmt.Errorf("cannot register nil builder %s", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[id]; exists {
		return fmt.Errorf("builder %s already registered", id)
	}
	r.builders[id] = b
	return nil
}

// Lookup resolves use, first exactly and then with any version suffix
// stripped ("@vercel/node@3.0.0" falls back to "@vercel/node").
func (r *Registry) Lookup(use string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if b, ok := r.builders[use]; ok {
		return b, true
	}
	b, ok := r.builders[Name(use)]
	return b, ok
}

// IDs returns the registered identifiers in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.builders))
	for id := range r.builders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
