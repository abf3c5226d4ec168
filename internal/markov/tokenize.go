package markov

import (
	"strings"
)

// #region tokens

const (
	StartToken    = "<S>"
	BoundaryToken = "</S>"
)

const punctuation = ".!?,;:\"'"

func isPunct(tok string) bool {
	return len(tok) == 1 && strings.IndexByte(punctuation, tok[0]) >= 0
}

func isSentenceEnd(tok string) bool {
	return tok == "." || tok == "!" || tok == "?"
}

// Tokenize splits text on whitespace and separates punctuation into tokens of
// their own.
func Tokenize(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		for word != "" {
			if strings.IndexByte(punctuation, word[0]) >= 0 {
				tokens = append(tokens, word[:1])
				word = word[1:]
				continue
			}
			pos := strings.IndexAny(word, punctuation)
			if pos < 0 {
				tokens = append(tokens, word)
				break
			}
			tokens = append(tokens, word[:pos])
			word = word[pos:]
		}
	}
	return tokens
}

// splitSentences groups tokens into sentences ending at . ! or ?. Trailing
// tokens without an ender still form a sentence.
func splitSentences(tokens []string) [][]string {
	var out [][]string
	var cur []string
	for _, t := range tokens {
		cur = append(cur, t)
		if isSentenceEnd(t) {
			out = append(out, cur)
			cur = nil
		}
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// Join reassembles tokens into text. Punctuation attaches to the previous
// word, apostrophes join both sides and double quotes alternate between
// opening and closing.
func Join(tokens []string) string {
	var b strings.Builder
	glue := true
	quoteOpen := false
	for _, t := range tokens {
		if t == StartToken || t == BoundaryToken {
			continue
		}
		switch {
		case t == "\"":
			if quoteOpen {
				b.WriteString(t)
				glue = false
			} else {
				if !glue {
					b.WriteByte(' ')
				}
				b.WriteString(t)
				glue = true
			}
			quoteOpen = !quoteOpen
			continue
		case t == "'":
			b.WriteString(t)
			glue = true
			continue
		case isPunct(t):
			b.WriteString(t)
		default:
			if !glue {
				b.WriteByte(' ')
			}
			b.WriteString(t)
		}
		glue = false
	}
	return b.String()
}

// #endregion
