// Package plugin binds analysis plugins into a host's analyzer registry.
//
// Plugins are registered explicitly by the host at startup. A plugin
// contributes named analyzers; registering it builds every analyzer first
// and only then binds them, so a failing plugin leaves the host untouched.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"ViSearch/internal/analysis"
)

var (
	ErrPluginExists   = errors.New("plugin already registered")
	ErrPluginNotFound = errors.New("plugin not found")
	ErrInvalidPlugin  = errors.New("invalid plugin")
)

// AnalyzerProvider builds one named analyzer.
type AnalyzerProvider struct {
	Name string
	New  func() (analysis.Analyzer, error)
}

// Plugin is an installable bundle of analyzers.
type Plugin interface {
	Name() string
	Description() string
	Version() string
	Classname() string
	Analyzers() []AnalyzerProvider
}

// Closer is implemented by plugins that hold resources until shutdown.
type Closer interface {
	Close() error
}

// Info describes an installed plugin.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Classname   string   `json:"classname"`
	Analyzers   []string `json:"analyzers"`
}

type entry struct {
	plugin    Plugin
	analyzers []string
}

// Registry holds the installed plugins of one host.
type Registry struct {
	analyzers *analysis.Registry
	logger    *zap.Logger

	mu      sync.RWMutex
	plugins map[string]*entry
	order   []string
}

// NewRegistry creates a plugin registry that binds analyzers into analyzers.
func NewRegistry(analyzers *analysis.Registry, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		analyzers: analyzers,
		logger:    logger.With(zap.String("component", "plugins")),
		plugins:   make(map[string]*entry),
	}
}

// Register installs p and binds its analyzers. Either all of the plugin's
// analyzers become available or none do.
func (r *Registry) Register(p Plugin) error {
	if p == nil || p.Name() == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidPlugin)
	}
	name := p.Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.plugins[name]; ok {
		return fmt.Errorf("%w: %q", ErrPluginExists, name)
	}

	providers := p.Analyzers()
	built := make(map[string]analysis.Analyzer, len(providers))
	names := make([]string, 0, len(providers))
	for _, prov := range providers {
		if prov.Name == "" || prov.New == nil {
			return fmt.Errorf("%w: plugin %q has an incomplete analyzer provider", ErrInvalidPlugin, name)
		}
		if _, dup := built[prov.Name]; dup {
			return fmt.Errorf("plugin %q: %w: %q", name, analysis.ErrAnalyzerExists, prov.Name)
		}
		a, err := prov.New()
		if err != nil {
			r.logger.Error("analyzer construction failed",
				zap.String("plugin", name),
				zap.String("analyzer", prov.Name),
				zap.Error(err),
			)
			return fmt.Errorf("plugin %q: analyzer %q: %w", name, prov.Name, err)
		}
		built[prov.Name] = a
		names = append(names, prov.Name)
	}

	if err := r.analyzers.RegisterAll(built); err != nil {
		return fmt.Errorf("plugin %q: %w", name, err)
	}

	sort.Strings(names)
	r.plugins[name] = &entry{plugin: p, analyzers: names}
	r.order = append(r.order, name)

	r.logger.Info("plugin loaded",
		zap.String("plugin", name),
		zap.String("version", p.Version()),
		zap.Strings("analyzers", names),
	)
	return nil
}

// Get returns the plugin installed under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[name]
	if !ok {
		return nil, false
	}
	return e.plugin, true
}

// Info returns the description of one installed plugin.
func (r *Registry) Info(name string) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.plugins[name]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrPluginNotFound, name)
	}
	return e.info(), nil
}

// Infos describes every installed plugin, sorted by name.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.plugins))
	for _, e := range r.plugins {
		infos = append(infos, e.info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Len returns the number of installed plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Close releases plugin resources in reverse registration order. All
// plugins are closed even if some fail; the errors are joined.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for i := len(r.order) - 1; i >= 0; i-- {
		c, ok := r.plugins[r.order[i]].plugin.(Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("plugin %q: %w", r.order[i], err))
		}
	}
	return errors.Join(errs...)
}

func (e *entry) info() Info {
	return Info{
		Name:        e.plugin.Name(),
		Description: e.plugin.Description(),
		Version:     e.plugin.Version(),
		Classname:   e.plugin.Classname(),
		Analyzers:   append([]string(nil), e.analyzers...),
	}
}
