package vietnamese

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// StopSet holds normalized terms that the analyzer drops after segmentation.
// Entries may span several syllables ("bởi vì") and match whole tokens only.
type StopSet struct {
	terms map[string]struct{}
}

// LoadStopwords reads a newline-delimited stop list in the dictionary format.
func LoadStopwords(r io.Reader) (*StopSet, error) {
	s := &StopSet{terms: make(map[string]struct{})}
	n := newNormalizer()

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if lineNo == 1 {
			line = strings.TrimPrefix(line, utf8BOM)
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts, err := parseEntry(line, n, DefaultMaxSyllables)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrStopwordsLoad, lineNo, err)
		}
		s.terms[strings.Join(parts, " ")] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStopwordsLoad, err)
	}
	return s, nil
}

// LoadStopwordsFile loads a stop list from a file on disk.
func LoadStopwordsFile(path string) (*StopSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStopwordsLoad, err)
	}
	defer f.Close()
	return LoadStopwords(f)
}

// DefaultStopwords loads the stop list packaged with this module.
func DefaultStopwords() (*StopSet, error) {
	f, err := packaged.Open(packagedStopwords)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStopwordsLoad, err)
	}
	defer f.Close()
	return LoadStopwords(f)
}

// Len returns the number of stop terms.
func (s *StopSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.terms)
}

// Contains reports whether term is a stop term. A nil set contains nothing.
func (s *StopSet) Contains(term string) bool {
	if s == nil {
		return false
	}
	_, ok := s.terms[term]
	return ok
}
