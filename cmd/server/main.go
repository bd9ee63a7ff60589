package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/config"
	"ViSearch/internal/plugin"
	"ViSearch/internal/plugin/analysisvi"
	"ViSearch/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	envPath := flag.String("env", ".env", "path to dotenv file")
	flag.Parse()

	if err := config.LoadDotEnv(*envPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := cfg.Log.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting ViSearch",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
	)

	analyzers := analysis.NewRegistry()
	plugins := plugin.NewRegistry(analyzers, logger)
	defer func() {
		if err := plugins.Close(); err != nil {
			logger.Warn("closing plugins", zap.Error(err))
		}
	}()

	extra := make([]analysisvi.AnalyzerConfig, 0, len(cfg.Analysis.Vietnamese))
	for _, a := range cfg.Analysis.Vietnamese {
		extra = append(extra, analysisvi.AnalyzerConfig{
			Name:          a.Name,
			Dictionary:         a.Dictionary,
			DictionaryChecksum: a.DictionaryChecksum,
			MaxSyllables:       a.MaxSyllables,
			Stopwords:          a.Stopwords,
			StopwordsPath:      a.StopwordsPath,
		})
	}
	if err := plugins.Register(analysisvi.New(logger, extra...)); err != nil {
		return fmt.Errorf("install vietnamese plugin: %w", err)
	}

	srv := server.New(server.Options{
		Version:         Version,
		Analyzers:       analyzers,
		Plugins:         plugins,
		Logger:          logger,
		QueryCacheSize:  cfg.Analysis.QueryCacheSize,
		SearchTimeout:   cfg.Server.SearchTimeout,
		MaxBufferedDocs: cfg.Server.MaxBufferedDocs,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		BodyLimit:       cfg.Server.BodyLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
