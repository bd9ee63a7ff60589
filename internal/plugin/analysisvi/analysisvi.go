// Package analysisvi is the Vietnamese analysis plugin. It contributes the
// vi_analyzer analyzer plus any extra Vietnamese analyzers configured by the
// host, each with its own dictionary and settings.
package analysisvi

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/analysis/vietnamese"
	"ViSearch/internal/plugin"
	"ViSearch/internal/storage"
)

const (
	PluginName  = "analysis-vietnamese"
	Classname   = "org.opensearch.plugin.analysis.vi.AnalysisVietnamesePlugin"
	Version     = "1.0.0"
	Description = "Vietnamese analysis: dictionary-based longest-match word segmentation"
)

var ErrInvalidAnalyzerConfig = errors.New("invalid vietnamese analyzer config")

// AnalyzerConfig describes an extra Vietnamese analyzer.
type AnalyzerConfig struct {
	Name       string
	Dictionary string
	// DictionaryChecksum is the expected "sha256:<hex>" of the dictionary file.
	DictionaryChecksum string
	MaxSyllables       int
	Stopwords          bool
	StopwordsPath      string
}

// Plugin provides the Vietnamese analyzers.
type Plugin struct {
	extra  []AnalyzerConfig
	logger *zap.Logger
}

var _ plugin.Plugin = (*Plugin)(nil)

// New creates the plugin. vi_analyzer is always provided; extra adds more
// analyzers under their own names.
func New(logger *zap.Logger, extra ...AnalyzerConfig) *Plugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Plugin{
		extra:  extra,
		logger: logger.With(zap.String("plugin", PluginName)),
	}
}

func (p *Plugin) Name() string        { return PluginName }
func (p *Plugin) Description() string { return Description }
func (p *Plugin) Version() string     { return Version }
func (p *Plugin) Classname() string   { return Classname }

// Analyzers returns the providers for vi_analyzer and each configured analyzer.
func (p *Plugin) Analyzers() []plugin.AnalyzerProvider {
	providers := make([]plugin.AnalyzerProvider, 0, len(p.extra)+1)
	providers = append(providers, p.provider(vietnamese.AnalyzerName, vietnamese.DefaultOptions()))

	for _, cfg := range p.extra {
		cfg := cfg
		if cfg.Name == "" {
			providers = append(providers, plugin.AnalyzerProvider{
				Name: "<unnamed>",
				New: func() (analysis.Analyzer, error) {
					return nil, fmt.Errorf("%w: analyzer name is required", ErrInvalidAnalyzerConfig)
				},
			})
			continue
		}
		providers = append(providers, p.provider(cfg.Name, vietnamese.Options{
			DictionaryPath:     cfg.Dictionary,
			DictionaryChecksum: storage.Checksum(cfg.DictionaryChecksum),
			MaxSyllables:       cfg.MaxSyllables,
			Stopwords:          cfg.Stopwords,
			StopwordsPath:      cfg.StopwordsPath,
		}))
	}
	return providers
}

func (p *Plugin) provider(name string, opts vietnamese.Options) plugin.AnalyzerProvider {
	return plugin.AnalyzerProvider{
		Name: name,
		New: func() (analysis.Analyzer, error) {
			opts.Logger = p.logger.With(zap.String("analyzer", name))
			a, err := vietnamese.New(opts)
			if err != nil {
				return nil, err
			}
			return a, nil
		},
	}
}
