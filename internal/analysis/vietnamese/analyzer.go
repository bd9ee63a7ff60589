package vietnamese

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ViSearch/internal/analysis"
	"ViSearch/internal/storage"
)

// Options configures an Analyzer.
type Options struct {
	// Dictionary is used as-is when set. Otherwise the dictionary is loaded
	// from DictionaryPath, or from the packaged resource if that is empty.
	Dictionary     *Dictionary
	DictionaryPath string

	// DictionaryChecksum, when set, pins the dictionary content.
	DictionaryChecksum storage.Checksum

	// MaxSyllables bounds the match window. Default: DefaultMaxSyllables.
	MaxSyllables int

	// Stopwords enables the packaged stop list; StopwordsPath overrides it
	// with a custom list. Stop filtering is off by default.
	Stopwords     bool
	StopwordsPath string

	// Logger for construction events. If nil, logging is disabled.
	Logger *zap.Logger
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxSyllables: DefaultMaxSyllables,
	}
}

// Analyzer segments Vietnamese text into words using greedy longest match
// over a dictionary.
type Analyzer struct {
	dict   *Dictionary
	window int
	stop   *StopSet
}

var _ analysis.Analyzer = (*Analyzer)(nil)

// New builds an Analyzer. It fails with ErrDictionaryLoad or ErrStopwordsLoad
// if a resource cannot be read; no partially loaded analyzer is returned.
func New(opts Options) (*Analyzer, error) {
	if opts.MaxSyllables <= 0 {
		opts.MaxSyllables = DefaultMaxSyllables
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dict := opts.Dictionary
	if dict == nil {
		var err error
		if opts.DictionaryPath != "" {
			dict, err = LoadDictionaryFile(opts.DictionaryPath, opts.MaxSyllables)
		} else {
			dict, err = DefaultDictionary(opts.MaxSyllables)
		}
		if err != nil {
			return nil, err
		}
	}
	if opts.DictionaryChecksum != "" {
		if err := storage.Expect(dict.Checksum(), opts.DictionaryChecksum); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDictionaryLoad, err)
		}
	}

	var stop *StopSet
	switch {
	case opts.StopwordsPath != "":
		s, err := LoadStopwordsFile(opts.StopwordsPath)
		if err != nil {
			return nil, err
		}
		stop = s
	case opts.Stopwords:
		s, err := DefaultStopwords()
		if err != nil {
			return nil, err
		}
		stop = s
	}

	window := min(opts.MaxSyllables, dict.MaxSyllables())

	logger.Debug("vietnamese analyzer ready",
		zap.Int("entries", dict.Len()),
		zap.Int("window", window),
		zap.Int("stopwords", stop.Len()),
		zap.String("dictionary_checksum", string(dict.Checksum())),
	)

	return &Analyzer{dict: dict, window: window, stop: stop}, nil
}

// Dictionary returns the analyzer's dictionary.
func (a *Analyzer) Dictionary() *Dictionary {
	return a.dict
}

// Window returns the longest syllable run the analyzer will try to match.
func (a *Analyzer) Window() int {
	return a.window
}

// Analyze segments text. Punctuation and whitespace only separate syllables;
// terms are lowercase NFC and multi-syllable terms are joined by single spaces.
// Positions count every segmented word, so stop filtering leaves gaps.
func (a *Analyzer) Analyze(_ string, text string) []analysis.Token {
	sylls := scan(text, newNormalizer())
	if len(sylls) == 0 {
		return nil
	}

	tokens := make([]analysis.Token, 0, len(sylls))
	pos := 0
	for i := 0; i < len(sylls); {
		k := a.dict.longestMatch(sylls, i, a.window)
		if k < 2 {
			k = 1
		}

		term := sylls[i].term
		if k > 1 {
			term = strings.Join(terms(sylls[i:i+k]), " ")
		}

		if !a.stop.Contains(term) {
			tokens = append(tokens, analysis.Token{
				Term:      term,
				Position:  pos,
				StartByte: sylls[i].start,
				EndByte:   sylls[i+k-1].end,
			})
		}
		pos++
		i += k
	}

	return tokens
}
