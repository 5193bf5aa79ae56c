package intelligence

import "strings"

// stopWords are common English words that carry no retrieval signal.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		the a an is are was were be been being
		have has had do does did will would could
		should may might can shall to of in for
		on with at by from as into through during
		before after above below between out off over
		under again further then once here there when
		where why how all each every both few more
		most other some such no nor not only own
		same so than too very just because but and
		or if while about up it he she they we
		you me him her his my your its our their
		this that these those am what which who whom
		i like also really know think want get got`) {
		stopWords[w] = struct{}{}
	}
}

// IsStopWord reports whether w is in the fixed stop-word set.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Tokenize lowercases text, treats anything other than ASCII letters, digits
// and underscore as whitespace, and drops one-character tokens and stop words.
//
// Example:
//
//	Tokenize("Hi, I LOVE it!") // ["hi", "love"]
func Tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return ' '
		}
	}, strings.ToLower(text))

	fields := strings.Fields(cleaned)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 1 || IsStopWord(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}
