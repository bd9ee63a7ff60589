package analysis

import (
	"fmt"
	"sort"
	"sync"
)

// StandardAnalyzerName is the analyzer used when a text field names none.
const StandardAnalyzerName = "standard"

// Registry manages analyzer instances by name.
type Registry struct {
	analyzers map[string]Analyzer
	mu        sync.RWMutex
}

// NewRegistry creates a Registry with the built-in analyzers registered.
func NewRegistry() *Registry {
	r := &Registry{
		analyzers: make(map[string]Analyzer),
	}
	r.analyzers[StandardAnalyzerName] = NewStandardAnalyzer()
	return r
}

// Get returns the analyzer registered under the given name.
func (r *Registry) Get(name string) (Analyzer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.analyzers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAnalyzer, name)
	}
	return a, nil
}

// Has reports whether an analyzer is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.analyzers[name]
	return ok
}

// Register adds a custom analyzer to the registry.
func (r *Registry) Register(name string, a Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.analyzers[name]; exists {
		return fmt.Errorf("%w: %q", ErrAnalyzerExists, name)
	}
	r.analyzers[name] = a
	return nil
}

// RegisterAll adds every analyzer in set, or none of them if any name is taken.
func (r *Registry) RegisterAll(set map[string]Analyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name := range set {
		if _, exists := r.analyzers[name]; exists {
			return fmt.Errorf("%w: %q", ErrAnalyzerExists, name)
		}
	}
	for name, a := range set {
		r.analyzers[name] = a
	}
	return nil
}

// Names returns the sorted names of all registered analyzers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.analyzers))
	for name := range r.analyzers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Analyze runs the named analyzer over text. A nil text is rejected with
// ErrInvalidArgument; an empty one yields no tokens.
func (r *Registry) Analyze(name, field string, text *string) ([]Token, error) {
	if text == nil {
		return nil, ErrInvalidArgument
	}
	a, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return a.Analyze(field, *text), nil
}
