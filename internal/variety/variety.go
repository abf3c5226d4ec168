// Package variety applies the post-expansion transforms: vocabulary
// substitution, tic injection and repetition remediation.
package variety

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

// #region apply

// Apply runs substitution, then tics, then remediation of whatever the window
// flags. A nil voice behaves as the empty voice; a nil window skips
// remediation.
func Apply(text string, v *voice.Resolved, w *window.Window, r *rng.Source) string {
	if v == nil {
		v = voice.Empty()
	}
	text = Substitute(text, v, r)
	text = InjectTics(text, v, r)
	if w == nil {
		return text
	}
	if issues := w.CheckRepetition(text); len(issues) > 0 {
		text = Remediate(text, issues, v, r)
	}
	return text
}

// #endregion

// #region substitute

// Substitute replaces every avoided word with a synonym. Preferred words win
// when any are among the candidates.
func Substitute(text string, v *voice.Resolved, r *rng.Source) string {
	if len(v.Avoided) == 0 {
		return text
	}
	return mapWords(text, func(word string) string {
		lower := strings.ToLower(word)
		if !v.Avoids(lower) {
			return word
		}
		choice, ok := pickSynonym(lower, v, r)
		if !ok {
			return word
		}
		return matchCase(word, choice)
	})
}

func candidates(lower string, v *voice.Resolved) []string {
	var out []string
	for _, src := range [][]string{v.Synonyms[lower], synonyms[lower]} {
		for _, c := range src {
			if !v.Avoids(c) && c != lower {
				out = append(out, c)
			}
		}
		if len(out) > 0 {
			break
		}
	}
	return out
}

func pickSynonym(lower string, v *voice.Resolved, r *rng.Source) (string, bool) {
	cands := candidates(lower, v)
	if len(cands) == 0 {
		return "", false
	}
	var preferred []string
	for _, c := range cands {
		if v.Prefers(c) {
			preferred = append(preferred, c)
		}
	}
	if len(preferred) > 0 {
		cands = preferred
	}
	return cands[r.IntN(len(cands))], true
}

// mapWords calls fn on each run of letters and apostrophes, leaving
// everything else untouched.
func mapWords(text string, fn func(string) string) string {
	var b strings.Builder
	b.Grow(len(text))
	start := -1
	for i, c := range text {
		isWord := unicode.IsLetter(c) || (c == '\'' && start >= 0)
		switch {
		case isWord && start < 0:
			start = i
		case !isWord && start >= 0:
			b.WriteString(fn(text[start:i]))
			start = -1
		}
		if !isWord {
			b.WriteRune(c)
		}
	}
	if start >= 0 {
		b.WriteString(fn(text[start:]))
	}
	return b.String()
}

func matchCase(orig, repl string) string {
	if orig == "" || repl == "" {
		return repl
	}
	first, _ := utf8.DecodeRuneInString(orig)
	if !unicode.IsUpper(first) {
		return repl
	}
	if len(orig) > 1 && strings.ToUpper(orig) == orig {
		return strings.ToUpper(repl)
	}
	return capitalize(repl)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// decapitalize lowercases a leading function word so it can follow a
// connective or clause.
func decapitalize(s string) string {
	first := s
	if i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) }); i >= 0 {
		first = s[:i]
	}
	if !functionWords[strings.ToLower(first)] {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

// #endregion

// #region tics

// InjectTics makes one Bernoulli draw per quirk and inserts the quirk's
// pattern after the first comma, or before the trailing period.
func InjectTics(text string, v *voice.Resolved, r *rng.Source) string {
	for _, q := range v.Quirks {
		if !r.Bernoulli(q.Frequency) {
			continue
		}
		text = insertTic(text, q.Pattern)
	}
	return text
}

func insertTic(text, tic string) string {
	if i := strings.IndexByte(text, ','); i >= 0 {
		return text[:i+1] + " " + tic + "," + text[i+1:]
	}
	trimmed := strings.TrimRight(text, " ")
	if n := len(trimmed); n > 0 && strings.IndexByte(".!?", trimmed[n-1]) >= 0 {
		return trimmed[:n-1] + ", " + tic + trimmed[n-1:]
	}
	if trimmed == "" {
		return text
	}
	return trimmed + ", " + tic
}

// #endregion

// #region remediate

// Remediate reworks text against the flagged issues: a new opening for a
// repeated one, a synonym for the most overused word, and a split or merge
// for monotonous sentence lengths.
func Remediate(text string, issues []window.Issue, v *voice.Resolved, r *rng.Source) string {
	var opening, monotony bool
	var overused *window.Issue
	for i := range issues {
		switch issues[i].Kind {
		case window.RepeatedOpening:
			opening = true
		case window.OverusedWord:
			// issues arrive sorted by descending count
			if overused == nil {
				overused = &issues[i]
			}
		case window.StructuralMonotony:
			monotony = true
		}
	}

	if opening {
		text = reopen(text, r)
	}
	if overused != nil {
		text = replaceWord(text, overused.Word, v, r)
	}
	if monotony {
		text = reshape(text, v.TargetAverage())
	}
	return text
}

// reopen swaps the leading clause of the first sentence behind the rest, or
// puts a seeded connective in front when there is no clause to swap.
func reopen(text string, r *rng.Source) string {
	sentences := window.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	first := sentences[0]
	rest := strings.TrimPrefix(strings.TrimSpace(text), first)

	if swapped, ok := swapClause(first); ok {
		return swapped + rest
	}
	opener := connectives[r.IntN(len(connectives))]
	return opener + ", " + decapitalize(strings.TrimSpace(text))
}

func swapClause(sentence string) (string, bool) {
	i := strings.Index(sentence, ", ")
	if i < 0 {
		return "", false
	}
	lead := sentence[:i]
	tail := sentence[i+2:]
	if len(strings.Fields(lead)) < 2 || len(strings.Fields(tail)) < 2 {
		return "", false
	}
	tailFirst := strings.ToLower(strings.Fields(tail)[0])
	for _, c := range conjunctions {
		if tailFirst == c {
			return "", false
		}
	}
	end := ""
	if n := len(tail); n > 0 && strings.IndexByte(".!?", tail[n-1]) >= 0 {
		end = tail[n-1:]
		tail = tail[:n-1]
	}
	if strings.ContainsAny(tail, "\"") || strings.ContainsAny(lead, "\"") {
		return "", false
	}
	return capitalize(tail) + ", " + decapitalize(lead) + end, true
}

func replaceWord(text, word string, v *voice.Resolved, r *rng.Source) string {
	choice, ok := pickSynonym(word, v, r)
	if !ok {
		return text
	}
	return mapWords(text, func(w string) string {
		if strings.ToLower(w) == word {
			return matchCase(w, choice)
		}
		return w
	})
}

// reshape splits the first conjunction-joined sentence, or failing that
// merges the first pair of adjacent sentences both shorter than half the
// target average.
func reshape(text string, targetAvg float64) string {
	sentences := window.Sentences(text)
	for i, s := range sentences {
		if split, ok := splitAtConjunction(s); ok {
			sentences[i] = split
			return strings.Join(sentences, " ")
		}
	}

	short := targetAvg / 2
	for i := 0; i+1 < len(sentences); i++ {
		a, b := sentences[i], sentences[i+1]
		if float64(len(strings.Fields(a))) >= short || float64(len(strings.Fields(b))) >= short {
			continue
		}
		if !strings.HasSuffix(a, ".") {
			continue
		}
		merged := strings.TrimSuffix(a, ".") + ", and " + decapitalize(b)
		out := append([]string{}, sentences[:i]...)
		out = append(out, merged)
		out = append(out, sentences[i+2:]...)
		return strings.Join(out, " ")
	}
	return text
}

func splitAtConjunction(sentence string) (string, bool) {
	for _, c := range conjunctions {
		sep := ", " + c + " "
		i := strings.Index(sentence, sep)
		if i <= 0 {
			continue
		}
		head := sentence[:i]
		tail := sentence[i+len(sep):]
		if len(strings.Fields(head)) < 2 || len(strings.Fields(tail)) < 2 {
			continue
		}
		return head + ". " + capitalize(c) + " " + tail, true
	}
	return "", false
}

// #endregion
