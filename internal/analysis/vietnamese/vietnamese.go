// Package vietnamese implements a dictionary-driven word segmenter for
// Vietnamese text.
//
// Vietnamese is written as space-separated syllables, and most words span
// two or more of them ("công nghệ", "thông tin"). The Analyzer splits input
// into normalized syllables and then greedily joins the longest run that
// forms a known dictionary word, scanning left to right without
// backtracking. Syllables that start no known word are emitted on their own.
//
// A Dictionary is immutable once loaded and an Analyzer holds no mutable
// state, so one Analyzer may serve any number of goroutines.
package vietnamese

import (
	"embed"
	"errors"
)

// AnalyzerName is the name under which the default Vietnamese analyzer is registered.
const AnalyzerName = "vi_analyzer"

// DefaultMaxSyllables bounds the length of a dictionary word, and so the
// longest window the segmenter will try to match.
const DefaultMaxSyllables = 6

var (
	ErrDictionaryLoad = errors.New("vietnamese: dictionary load failure")
	ErrStopwordsLoad  = errors.New("vietnamese: stopwords load failure")
)

// Packaged resources.
const (
	packagedDictionary = "data/dictionary.txt"
	packagedStopwords  = "data/stopwords.txt"
)

//go:embed data/*.txt
var packaged embed.FS
