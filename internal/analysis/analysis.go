package analysis

import "errors"

var (
	// ErrInvalidArgument is returned when analysis is requested without input text.
	ErrInvalidArgument = errors.New("invalid argument: text is required")
	ErrUnknownAnalyzer = errors.New("unknown analyzer")
	ErrAnalyzerExists  = errors.New("analyzer already registered")
)

// Token represents a single token produced by an analyzer.
// StartByte and EndByte are offsets into the original input text.
type Token struct {
	Term      string
	Position  int
	StartByte int
	EndByte   int
}

// Analyzer processes text into a stream of tokens.
// Implementations MUST be safe for concurrent use once constructed.
type Analyzer interface {
	// Analyze tokenizes the input text and returns tokens with positions.
	Analyze(field string, text string) []Token
}

// Terms returns the terms of tokens in order.
func Terms(tokens []Token) []string {
	if len(tokens) == 0 {
		return nil
	}
	terms := make([]string, len(tokens))
	for i, t := range tokens {
		terms[i] = t.Term
	}
	return terms
}
