// Package server is the HTTP host: it exposes installed analysis plugins,
// the analyze API, and single-node in-memory indexes with full-text search.
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/metrics"
	"ViSearch/internal/plugin"
)

const (
	DefaultName        = "visearch"
	DefaultClusterName = "visearch"
)

// Options configures a Server. Zero values get defaults.
type Options struct {
	Version     string
	NodeName    string
	ClusterName string

	Analyzers *analysis.Registry
	Plugins   *plugin.Registry
	Metrics   *metrics.Metrics
	Logger    *zap.Logger

	// QueryCacheSize bounds cached match query analyses per analyzer.
	// Zero disables the cache.
	QueryCacheSize  int
	SearchTimeout   time.Duration
	MaxBufferedDocs int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	BodyLimit    int
}

// Server is a single search node.
type Server struct {
	app       *fiber.App
	indexes   *IndexManager
	analyzers *analysis.Registry
	plugins   *plugin.Registry
	metrics   *metrics.Metrics
	logger    *zap.Logger

	version     string
	nodeID      string
	nodeName    string
	clusterName string
}

// New builds the server and registers its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Analyzers == nil {
		opts.Analyzers = analysis.NewRegistry()
	}
	if opts.Plugins == nil {
		opts.Plugins = plugin.NewRegistry(opts.Analyzers, opts.Logger)
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.NodeName == "" {
		opts.NodeName = DefaultName
	}
	if opts.ClusterName == "" {
		opts.ClusterName = DefaultClusterName
	}

	var lookup analysis.Lookup = opts.Analyzers
	if opts.QueryCacheSize > 0 {
		lookup = analysis.NewCachedLookup(opts.Analyzers, opts.QueryCacheSize)
	}

	s := &Server{
		indexes:     NewIndexManager(opts.Analyzers, lookup, opts.Logger),
		analyzers:   opts.Analyzers,
		plugins:     opts.Plugins,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With(zap.String("component", "http")),
		version:     opts.Version,
		nodeID:      uuid.NewString(),
		nodeName:    opts.NodeName,
		clusterName: opts.ClusterName,
	}
	s.indexes.SearchTimeout = opts.SearchTimeout
	s.indexes.MaxBufferedDocs = opts.MaxBufferedDocs

	s.app = fiber.New(fiber.Config{
		AppName:               opts.NodeName,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		IdleTimeout:           opts.IdleTimeout,
		BodyLimit:             opts.BodyLimit,
		Immutable:             true,
		CaseSensitive:         true,
		DisableStartupMessage: true,
		JSONEncoder:           encodeJSON,
		JSONDecoder:           decodeJSON,
		ErrorHandler:          errorHandler(s.logger),
	})
	s.useMiddleware()
	s.routes()

	s.metrics.SetPlugins(s.plugins.Len())
	s.metrics.SetIndexes(0)

	infos := s.plugins.Infos()
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	s.logger.Info("server ready",
		zap.String("node", s.nodeName),
		zap.Strings("plugins", names),
		zap.Strings("analyzers", s.analyzers.Names()),
	)
	return s
}

func (s *Server) routes() {
	s.app.Get("/", s.handleRoot)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))

	s.app.Get("/_cluster/health", s.handleHealth)
	s.app.Get("/_cluster/health/:index", s.handleHealth)
	s.app.Get("/_nodes/plugins", s.handleNodePlugins)
	s.app.Get("/_cat/plugins", s.handleCatPlugins)
	s.app.Get("/_cat/indices", s.handleCatIndices)

	s.app.Get("/_analyze", s.handleAnalyze)
	s.app.Post("/_analyze", s.handleAnalyze)
	s.app.Post("/_refresh", s.handleRefreshAll)

	// Index lifecycle.
	s.app.Put("/:index", s.handleCreateIndex)
	s.app.Get("/:index", s.handleGetIndex)
	s.app.Delete("/:index", s.handleDeleteIndex)
	s.app.Get("/:index/_mapping", s.handleGetMapping)
	s.app.Put("/:index/_mapping", s.handlePutMapping)
	s.app.Post("/:index/_mapping", s.handlePutMapping)

	s.app.Get("/:index/_analyze", s.handleAnalyze)
	s.app.Post("/:index/_analyze", s.handleAnalyze)

	// Documents.
	s.app.Post("/:index/_doc", s.handleIndexDocument)
	s.app.Put("/:index/_doc/:id", s.handleIndexDocument)
	s.app.Post("/:index/_doc/:id", s.handleIndexDocument)
	s.app.Get("/:index/_doc/:id", s.handleGetDocument)
	s.app.Delete("/:index/_doc/:id", s.handleDeleteDocument)

	s.app.Post("/:index/_refresh", s.handleRefresh)
	s.app.Get("/:index/_refresh", s.handleRefresh)

	// Search.
	s.app.Get("/:index/_search", s.handleSearch)
	s.app.Post("/:index/_search", s.handleSearch)
	s.app.Get("/:index/_count", s.handleCount)
	s.app.Post("/:index/_count", s.handleCount)
}

// App returns the underlying fiber app, for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Indexes returns the index manager.
func (s *Server) Indexes() *IndexManager {
	return s.indexes
}

// Listen serves HTTP on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening",
		zap.String("addr", addr),
		zap.String("node", s.nodeName),
		zap.String("version", s.version),
	)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
