package enrich

import (
	"strings"
	"unicode"
)

// Lexicon-based polarity scoring. Each word carries a valence in [-1, 1];
// the score is the mean valence of matched words, with simple negation
// handling ("not good" flips the valence of "good"). Unmatched text scores
// neutral. The analyzer is deliberately small: the contract is range and
// determinism, not parity with any particular NLP library.

var valence = map[string]float64{
	"amazing":     0.9,
	"awesome":     0.9,
	"excellent":   0.9,
	"fantastic":   0.9,
	"love":        0.8,
	"great":       0.8,
	"best":        0.8,
	"wonderful":   0.8,
	"happy":       0.7,
	"win":         0.6,
	"good":        0.6,
	"nice":        0.6,
	"like":        0.4,
	"cool":        0.4,
	"interesting": 0.3,
	"ok":          0.1,
	"okay":        0.1,

	"boring":     -0.3,
	"slow":       -0.3,
	"bad":        -0.6,
	"sad":        -0.6,
	"broken":     -0.6,
	"fail":       -0.7,
	"angry":      -0.7,
	"hate":       -0.8,
	"awful":      -0.8,
	"terrible":   -0.9,
	"horrible":   -0.9,
	"worst":      -0.9,
	"disgusting": -0.9,
}

var negators = map[string]bool{
	"not":    true,
	"no":     true,
	"never":  true,
	"nobody": true,
	"dont":   true,
	"don't":  true,
	"cant":   true,
	"can't":  true,
	"isnt":   true,
	"isn't":  true,
	"wont":   true,
	"won't":  true,
}

// Sentiment returns a polarity score in [-1, 1] for content. Empty text and
// text with no lexicon hits score 0.
func Sentiment(content string) float64 {
	if content == "" {
		return 0
	}
	var sum float64
	var hits int
	negate := false
	for _, tok := range strings.Fields(content) {
		word := normalizeWord(tok)
		if word == "" {
			continue
		}
		if negators[word] {
			negate = true
			continue
		}
		if v, ok := valence[word]; ok {
			if negate {
				v = -v
			}
			sum += v
			hits++
		}
		negate = false
	}
	if hits == 0 {
		return 0
	}
	score := sum / float64(hits)
	if score > 1 {
		score = 1
	}
	if score < -1 {
		score = -1
	}
	return score
}

func normalizeWord(tok string) string {
	tok = strings.ToLower(tok)
	return strings.TrimFunc(tok, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}
