package vietnamese

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"ViSearch/internal/storage"
)

const utf8BOM = "\ufeff"

// Dictionary is an immutable set of known Vietnamese words stored as a trie
// keyed by syllable. Entries are lowercase, NFC, with diacritics preserved,
// and hold between 1 and MaxSyllables syllables separated by single spaces.
type Dictionary struct {
	root     *trieNode
	size     int
	longest  int
	limit    int
	checksum storage.Checksum
}

type trieNode struct {
	children map[string]*trieNode
	terminal bool
}

func newDictionary(limit int) *Dictionary {
	if limit <= 0 {
		limit = DefaultMaxSyllables
	}
	return &Dictionary{root: &trieNode{}, limit: limit}
}

// NewDictionary builds a dictionary from an in-memory word list.
// Every word must already be in normalized form.
func NewDictionary(words []string, maxSyllables int) (*Dictionary, error) {
	d := newDictionary(maxSyllables)
	n := newNormalizer()
	for i, w := range words {
		if err := d.addEntry(w, n); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrDictionaryLoad, i, err)
		}
	}
	d.checksum = storage.ComputeChecksum([]byte(strings.Join(words, "\n")))
	return d, nil
}

// LoadDictionary reads a newline-delimited word list. Blank lines and lines
// starting with '#' are skipped. Any malformed line fails the whole load.
func LoadDictionary(r io.Reader, maxSyllables int) (*Dictionary, error) {
	d := newDictionary(maxSyllables)
	n := newNormalizer()

	cr := storage.NewChecksumReader(r)
	sc := bufio.NewScanner(cr)
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
		if err := d.addEntry(line, n); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrDictionaryLoad, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}
	d.checksum = cr.Sum()
	return d, nil
}

// LoadDictionaryFile loads a dictionary from a file on disk.
func LoadDictionaryFile(path string, maxSyllables int) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}
	defer f.Close()
	return LoadDictionary(f, maxSyllables)
}

// LoadDictionaryFS loads a dictionary from name within fsys.
func LoadDictionaryFS(fsys fs.FS, name string, maxSyllables int) (*Dictionary, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDictionaryLoad, err)
	}
	defer f.Close()
	return LoadDictionary(f, maxSyllables)
}

// DefaultDictionary loads the dictionary packaged with this module.
// Each call returns a fresh value.
func DefaultDictionary(maxSyllables int) (*Dictionary, error) {
	return LoadDictionaryFS(packaged, packagedDictionary, maxSyllables)
}

// Len returns the number of distinct entries.
func (d *Dictionary) Len() int {
	return d.size
}

// MaxSyllables returns the syllable count of the longest entry.
func (d *Dictionary) MaxSyllables() int {
	return d.longest
}

// Checksum fingerprints the source the dictionary was built from.
func (d *Dictionary) Checksum() storage.Checksum {
	return d.checksum
}

// Contains reports whether word, after normalization, is a dictionary entry.
func (d *Dictionary) Contains(word string) bool {
	sylls := scan(word, newNormalizer())
	if len(sylls) == 0 {
		return false
	}
	node := d.root
	for _, s := range sylls {
		node = node.children[s.term]
		if node == nil {
			return false
		}
	}
	return node.terminal
}

// longestMatch returns the syllable count of the longest entry that equals
// sylls[i:i+k] for some k <= window, or 0 if none does.
func (d *Dictionary) longestMatch(sylls []syllable, i, window int) int {
	best := 0
	node := d.root
	for k := 0; k < window && i+k < len(sylls); k++ {
		node = node.children[sylls[i+k].term]
		if node == nil {
			break
		}
		if node.terminal {
			best = k + 1
		}
	}
	return best
}

func (d *Dictionary) addEntry(entry string, n *normalizer) error {
	parts, err := parseEntry(entry, n, d.limit)
	if err != nil {
		return err
	}
	node := d.root
	for _, p := range parts {
		if node.children == nil {
			node.children = make(map[string]*trieNode)
		}
		child, ok := node.children[p]
		if !ok {
			child = &trieNode{}
			node.children[p] = child
		}
		node = child
	}
	if !node.terminal {
		node.terminal = true
		d.size++
	}
	if len(parts) > d.longest {
		d.longest = len(parts)
	}
	return nil
}

// parseEntry splits a dictionary line into syllables, rejecting anything that
// would not survive a round trip through the scanner unchanged.
func parseEntry(entry string, n *normalizer, limit int) ([]string, error) {
	if !utf8.ValidString(entry) {
		return nil, fmt.Errorf("entry %q is not valid UTF-8", entry)
	}
	parts := terms(scan(entry, n))
	if len(parts) == 0 {
		return nil, fmt.Errorf("entry %q has no syllables", entry)
	}
	if want := strings.Join(parts, " "); want != entry {
		return nil, fmt.Errorf("entry %q is not normalized, want %q", entry, want)
	}
	if len(parts) > limit {
		return nil, fmt.Errorf("entry %q has %d syllables, max %d", entry, len(parts), limit)
	}
	return parts, nil
}
