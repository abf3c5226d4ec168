package grammar

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

// #region constants

const (
	DefaultMaxDepth = 20
	DefaultMinWords = 3
	DefaultMaxWords = 20
)

// #endregion

// #region state

// PhraseSource produces a free-text fragment for a {markov:corpus:tag} slot.
type PhraseSource interface {
	Phrase(corpus, tag string, minWords, maxWords int, r *rng.Source) (string, error)
}

// SelectionState is the mutable context of a single expansion call.
type SelectionState struct {
	ActiveTags map[string]struct{}
	Bindings   map[string]*schema.Entity
	Depth      int
	MaxDepth   int
}

// NewSelectionState builds a state with the given tags and role bindings and
// the default depth bound.
func NewSelectionState(tags []string, bindings map[string]*schema.Entity) *SelectionState {
	active := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		active[t] = struct{}{}
	}
	if bindings == nil {
		bindings = map[string]*schema.Entity{}
	}
	return &SelectionState{ActiveTags: active, Bindings: bindings, MaxDepth: DefaultMaxDepth}
}

// #endregion

// #region expander

// Expander realizes rules from a Store.
type Expander struct {
	store       *Store
	phrases     PhraseSource
	multipliers map[string]float64
	minWords    int
	maxWords    int
}

// Option configures an Expander.
type Option func(*Expander)

// WithPhrases sets the source for phrase slots.
func WithPhrases(p PhraseSource) Option {
	return func(x *Expander) { x.phrases = p }
}

// WithMultipliers sets per-rule weight multipliers, keyed by the rule an
// alternative leads with.
func WithMultipliers(m map[string]float64) Option {
	return func(x *Expander) { x.multipliers = m }
}

// WithWordRange sets the word bounds passed to phrase slots.
func WithWordRange(minWords, maxWords int) Option {
	return func(x *Expander) {
		if minWords > 0 && maxWords >= minWords {
			x.minWords, x.maxWords = minWords, maxWords
		}
	}
}

// NewExpander creates an expander over store.
func NewExpander(store *Store, opts ...Option) *Expander {
	x := &Expander{store: store, minWords: DefaultMinWords, maxWords: DefaultMaxWords}
	for _, o := range opts {
		o(x)
	}
	return x
}

// Expand realizes the named rule. On any error no text is returned.
func (x *Expander) Expand(name string, st *SelectionState, r *rng.Source) (string, error) {
	if st.MaxDepth <= 0 {
		st.MaxDepth = DefaultMaxDepth
	}
	var buf strings.Builder
	if err := x.expand(name, st, r, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (x *Expander) expand(name string, st *SelectionState, r *rng.Source, buf *strings.Builder) error {
	rule, ok := x.store.Get(name)
	if !ok {
		return &RuleNotFoundError{Name: name}
	}
	if !rule.Eligible(st.ActiveTags) {
		return fmt.Errorf("%w: %q (requires %v, excludes %v)", ErrPreconditionFailed, name, rule.Requires, rule.Excludes)
	}

	alt := x.choose(rule, r)

	for _, t := range rule.Requires {
		st.ActiveTags[t] = struct{}{}
	}

	for _, seg := range alt.Segments {
		switch s := seg.(type) {
		case Literal:
			buf.WriteString(s.Text)
		case RuleRef:
			st.Depth++
			if st.Depth > st.MaxDepth {
				return fmt.Errorf("%w: %d at %q", ErrMaxDepthExceeded, st.MaxDepth, s.Name)
			}
			if err := x.expand(s.Name, st, r, buf); err != nil {
				return err
			}
			st.Depth--
		case PhraseRef:
			if x.phrases == nil {
				return fmt.Errorf("phrase slot %q: no phrase source", s.Corpus)
			}
			text, err := x.phrases.Phrase(s.Corpus, s.Tag, x.minWords, x.maxWords, r)
			if err != nil {
				return fmt.Errorf("phrase slot %q in rule %q: %w", s.Corpus, name, err)
			}
			buf.WriteString(text)
		case EntityField:
			e, ok := st.Bindings[s.Role]
			if !ok || e == nil {
				return fmt.Errorf("%w: no entity bound to role %q", ErrEntityNotFound, s.Role)
			}
			v, ok := e.Field(s.Field)
			if !ok {
				return fmt.Errorf("%w: %s has no field %q", ErrEntityNotFound, e.Name, s.Field)
			}
			buf.WriteString(v)
		case PronounRef:
			role := s.Case.Role()
			e, ok := st.Bindings[role]
			if !ok || e == nil {
				return fmt.Errorf("%w: no entity bound to role %q for pronoun %q", ErrEntityNotFound, role, s.Case)
			}
			buf.WriteString(pronoun(e.Pronouns, s.Case))
		}
	}
	return nil
}

// choose draws one alternative with a single Float64 against cumulative
// effective weights.
func (x *Expander) choose(rule *Rule, r *rng.Source) *Alternative {
	weights := make([]float64, len(rule.Alternatives))
	total := 0.0
	for i := range rule.Alternatives {
		w := float64(rule.Alternatives[i].Weight) * x.multiplier(&rule.Alternatives[i])
		weights[i] = w
		total += w
	}
	if total <= 0 {
		// every multiplier zeroed out; fall back to base weights
		total = 0
		for i := range rule.Alternatives {
			weights[i] = float64(rule.Alternatives[i].Weight)
			total += weights[i]
		}
	}

	draw := r.Float64() * total
	cum := 0.0
	for i, w := range weights {
		cum += w
		if draw < cum {
			return &rule.Alternatives[i]
		}
	}
	return &rule.Alternatives[len(rule.Alternatives)-1]
}

func (x *Expander) multiplier(alt *Alternative) float64 {
	for _, seg := range alt.Segments {
		ref, ok := seg.(RuleRef)
		if !ok {
			continue
		}
		m, ok := x.multipliers[ref.Name]
		if !ok {
			return 1.0
		}
		if m < 0 {
			return 0
		}
		return m
	}
	return 1.0
}

func pronoun(p schema.Pronouns, c PronounCase) string {
	switch c {
	case CaseObject:
		return p.Object()
	case CasePossessive:
		return p.Possessive()
	default:
		return p.Subject()
	}
}

// #endregion

// #region finalize

// Finalize collapses runs of whitespace, trims the ends and upper-cases the
// first letter.
func Finalize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = tidyPunctuation(text)
	for i, r := range text {
		if unicode.IsLetter(r) {
			return text[:i] + string(unicode.ToUpper(r)) + text[i+len(string(r)):]
		}
		if !unicode.IsPunct(r) {
			break
		}
	}
	return text
}

// tidyPunctuation removes spaces left before closing punctuation when a slot
// rendered empty or a phrase came back space-separated.
func tidyPunctuation(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' && i+1 < len(text) && strings.IndexByte(".,!?;:", text[i+1]) >= 0 {
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

// #endregion
