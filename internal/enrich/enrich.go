// Package enrich derives secondary facts from tweet text: a sentiment
// polarity score, mentioned usernames, hashtags, and referenced tweet ids.
// Everything here is pure and deterministic.
package enrich

import (
	"strings"
	"unicode"
)

// Result holds everything derived from one tweet's text
type Result struct {
	Sentiment          float64
	Mentions           []string
	Hashtags           []string
	ReferencedTweetIDs []string
}

// Enrich computes all derived facts for one tweet. refs are the explicit
// back-references carried by the source; flat records never have any and the
// list passes through empty.
func Enrich(content string, refs []string) Result {
	return Result{
		Sentiment:          Sentiment(content),
		Mentions:           ExtractMentions(content),
		Hashtags:           ExtractHashtags(content),
		ReferencedTweetIDs: refs,
	}
}

// ExtractMentions returns every whitespace-delimited token beginning with @,
// stripped of the marker and of trailing punctuation. Punctuation-only tokens
// are dropped.
func ExtractMentions(content string) []string {
	return extractTagged(content, '@')
}

// ExtractHashtags returns every whitespace-delimited token beginning with #,
// stripped of the marker, case preserved.
func ExtractHashtags(content string) []string {
	return extractTagged(content, '#')
}

func extractTagged(content string, marker byte) []string {
	out := []string{}
	for _, tok := range strings.Fields(content) {
		if len(tok) < 2 || tok[0] != marker {
			continue
		}
		body := strings.TrimLeft(tok, string(marker))
		body = strings.TrimRightFunc(body, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
		})
		if body == "" {
			continue
		}
		out = append(out, body)
	}
	return out
}
