package window

import (
	"strings"
	"unicode"
)

// #region stopwords
// stopwords are common English words that never count as significant, even
// when longer than the length threshold.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "their": true, "there": true, "these": true, "those": true,
	"after": true, "before": true, "while": true, "again": true, "other": true,
	"every": true, "under": true, "above": true, "because": true, "through": true,
	"himself": true, "herself": true, "itself": true, "themselves": true, "against": true,
}

// significantLen is the length a word must exceed to be tracked.
const significantLen = 4

// words splits text into lowercase words. Apostrophes inside a word are kept.
func words(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, "'")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// IsSignificant reports whether w is tracked for overuse.
func IsSignificant(w string) bool {
	return len([]rune(w)) > significantLen && !stopwords[w]
}

// #endregion stopwords
