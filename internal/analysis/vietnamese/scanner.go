package vietnamese

import (
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// syllable is one separator-delimited run of the input.
// start and end are byte offsets into the original text; term is normalized.
type syllable struct {
	term  string
	start int
	end   int
}

// normalizer folds case with the Vietnamese mapping and composes to NFC.
// A cases.Caser keeps state between calls, so a normalizer must not be shared
// across goroutines.
type normalizer struct {
	lower cases.Caser
}

func newNormalizer() *normalizer {
	return &normalizer{lower: cases.Lower(language.Vietnamese)}
}

func (n *normalizer) normalize(s string) string {
	return norm.NFC.String(n.lower.String(s))
}

// isSeparator reports whether r ends a syllable. Separators never appear in terms.
func isSeparator(r rune) bool {
	return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsControl(r)
}

// scan splits text into syllables. Each invalid UTF-8 byte becomes its own
// syllable with the replacement character as its term.
func scan(text string, n *normalizer) []syllable {
	var out []syllable
	start := -1

	flush := func(end int) {
		if start < 0 {
			return
		}
		out = append(out, syllable{
			term:  n.normalize(text[start:end]),
			start: start,
			end:   end,
		})
		start = -1
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case r == utf8.RuneError && size == 1:
			flush(i)
			out = append(out, syllable{term: string(utf8.RuneError), start: i, end: i + 1})
		case isSeparator(r):
			flush(i)
		default:
			if start < 0 {
				start = i
			}
		}
		i += size
	}
	flush(len(text))

	return out
}

func terms(sylls []syllable) []string {
	out := make([]string, len(sylls))
	for i, s := range sylls {
		out[i] = s.term
	}
	return out
}
