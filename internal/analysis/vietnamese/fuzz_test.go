package vietnamese

import (
	"strings"
	"testing"
	"unicode/utf8"

	"ViSearch/internal/analysis"
)

func FuzzAnalyzer(f *testing.F) {
	f.Add("công nghệ thông tin Việt Nam")
	f.Add("")
	f.Add("  spaces,,  everywhere!! ")
	f.Add("Thành phố Hồ Chí Minh")
	f.Add("a\xffb")
	f.Add("e-mail 2024 $5")

	d, err := NewDictionary([]string{"công nghệ", "thông tin", "việt nam", "thành phố hồ chí minh", "a b"}, DefaultMaxSyllables)
	if err != nil {
		f.Fatal(err)
	}
	a, err := New(Options{Dictionary: d})
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		tokens := a.Analyze("field", input)
		sylls := scan(input, newNormalizer())

		if len(tokens) > len(sylls) {
			t.Fatalf("%d tokens from %d syllables", len(tokens), len(sylls))
		}
		joined := strings.Join(analysis.Terms(tokens), " ")
		if want := strings.Join(terms(sylls), " "); joined != want {
			t.Fatalf("joined tokens %q, want %q", joined, want)
		}

		end := 0
		for i, tok := range tokens {
			if tok.Position != i {
				t.Errorf("token %d position = %d", i, tok.Position)
			}
			if tok.StartByte < end || tok.EndByte > len(input) || tok.StartByte >= tok.EndByte {
				t.Errorf("invalid offsets: start=%d end=%d prev_end=%d input_len=%d", tok.StartByte, tok.EndByte, end, len(input))
			}
			end = tok.EndByte
		}

		if utf8.ValidString(input) {
			again := analysis.Terms(a.Analyze("field", joined))
			if strings.Join(again, " ") != joined || len(again) != len(tokens) {
				t.Errorf("re-analysis of %q gave %q", joined, again)
			}
		}
	})
}
