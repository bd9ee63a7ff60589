package analysis

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of cached analysis results.
const DefaultCacheSize = 1024

type cacheKey struct {
	field string
	text  string
}

// CachedAnalyzer memoizes the output of another analyzer. It is meant for
// search-time analysis, where the same query strings repeat.
type CachedAnalyzer struct {
	next  Analyzer
	cache *lru.Cache[cacheKey, []Token]
}

// NewCachedAnalyzer wraps next with an LRU of the given size.
// A non-positive size selects DefaultCacheSize.
func NewCachedAnalyzer(next Analyzer, size int) (*CachedAnalyzer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[cacheKey, []Token](size)
	if err != nil {
		return nil, err
	}
	return &CachedAnalyzer{next: next, cache: c}, nil
}

// Analyze returns a copy of the cached tokens, analyzing on a miss.
func (c *CachedAnalyzer) Analyze(field string, text string) []Token {
	key := cacheKey{field: field, text: text}
	if tokens, ok := c.cache.Get(key); ok {
		return cloneTokens(tokens)
	}
	tokens := c.next.Analyze(field, text)
	c.cache.Add(key, cloneTokens(tokens))
	return tokens
}

// Len returns the number of cached entries.
func (c *CachedAnalyzer) Len() int {
	return c.cache.Len()
}

func cloneTokens(tokens []Token) []Token {
	if tokens == nil {
		return nil
	}
	out := make([]Token, len(tokens))
	copy(out, tokens)
	return out
}

// Lookup resolves analyzers by name.
type Lookup interface {
	Get(name string) (Analyzer, error)
}

// CachedLookup hands out one CachedAnalyzer per registered analyzer,
// created on first use.
type CachedLookup struct {
	next Lookup
	size int

	mu     sync.Mutex
	cached map[string]*CachedAnalyzer
}

// NewCachedLookup wraps the analyzers of next, caching up to size results each.
func NewCachedLookup(next Lookup, size int) *CachedLookup {
	return &CachedLookup{
		next:   next,
		size:   size,
		cached: make(map[string]*CachedAnalyzer),
	}
}

// Get returns the cached wrapper of the named analyzer.
func (l *CachedLookup) Get(name string) (Analyzer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if c, ok := l.cached[name]; ok {
		return c, nil
	}
	a, err := l.next.Get(name)
	if err != nil {
		return nil, err
	}
	c, err := NewCachedAnalyzer(a, l.size)
	if err != nil {
		return nil, err
	}
	l.cached[name] = c
	return c, nil
}
