package markov

import (
	"fmt"
	"sort"
	"strings"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
)

// #region candidates

type candidate struct {
	token  string
	weight float64
}

// options returns the transitions for ctx, preferring the tag table and
// falling back to the unfiltered table for this step when the tag has none.
func (m *Model) options(ctx, tag string) []Transition {
	if tag != "" {
		if tt, ok := m.Tagged[tag]; ok {
			if opts := tt[ctx]; len(opts) > 0 {
				return opts
			}
		}
	}
	return m.Transitions[ctx]
}

func draw(cands []candidate, r *rng.Source) (string, bool) {
	total := 0.0
	for _, c := range cands {
		total += c.weight
	}
	if total <= 0 {
		return "", false
	}
	x := r.Float64() * total
	cum := 0.0
	for _, c := range cands {
		cum += c.weight
		if x < cum {
			return c.token, true
		}
	}
	return cands[len(cands)-1].token, true
}

// #endregion

// #region walk

// walk runs the chain from the sentence-start context. next supplies the
// candidate distribution for a context key.
func walk(order int, next func(ctx string) []candidate, r *rng.Source, minWords, maxWords int) ([]string, error) {
	if minWords < 1 {
		minWords = 1
	}
	if maxWords < minWords {
		maxWords = minWords
	}

	start := make([]string, order-1)
	for i := range start {
		start[i] = StartToken
	}
	state := append([]string(nil), start...)

	var tokens []string
	words := 0
	lastEnd := -1

	finish := func() ([]string, error) {
		if lastEnd <= 0 {
			return nil, ErrInsufficientCorpus
		}
		out := append(tokens[:lastEnd:lastEnd], BoundaryToken)
		return out, nil
	}

	limit := maxWords*4 + 16
	for step := 0; step < limit; step++ {
		tok, ok := draw(next(strings.Join(state, " ")), r)
		if !ok {
			return finish()
		}

		if tok == BoundaryToken {
			lastEnd = len(tokens)
			if words >= minWords {
				return finish()
			}
			state = append(state[:0], start...)
			continue
		}

		if !isPunct(tok) {
			// at the ceiling only punctuation or a boundary may follow
			if words == maxWords {
				return finish()
			}
			words++
		}
		tokens = append(tokens, tok)
		state = append(state[1:], tok)
	}
	return finish()
}

// #endregion

// #region single

// GenerateTokens samples one fragment and returns its tokens. The boundary
// token appears exactly once, as the last element.
func (m *Model) GenerateTokens(r *rng.Source, tag string, minWords, maxWords int) ([]string, error) {
	next := func(ctx string) []candidate {
		opts := m.options(ctx, tag)
		cands := make([]candidate, len(opts))
		for i, o := range opts {
			cands[i] = candidate{token: o.Token, weight: float64(o.Count)}
		}
		return cands
	}
	return walk(m.Order, next, r, minWords, maxWords)
}

// Generate samples one fragment of at least minWords words, truncated at the
// last completed sentence when maxWords is reached first.
func (m *Model) Generate(r *rng.Source, tag string, minWords, maxWords int) (string, error) {
	tokens, err := m.GenerateTokens(r, tag, minWords, maxWords)
	if err != nil {
		return "", err
	}
	return Join(tokens), nil
}

// #endregion

// #region blend

// Weighted pairs a model with its blend weight.
type Weighted struct {
	Model  *Model
	Weight float64
}

// BlendTokens samples from several models at once. At each step every model's
// distribution is normalised, scaled by its weight and summed; one draw picks
// the token.
func BlendTokens(models []Weighted, r *rng.Source, tag string, minWords, maxWords int) ([]string, error) {
	if len(models) == 0 {
		return nil, ErrNoModels
	}
	order := models[0].Model.Order
	for _, w := range models[1:] {
		if w.Model.Order != order {
			return nil, fmt.Errorf("%w: %d and %d", ErrMixedOrder, order, w.Model.Order)
		}
	}

	next := func(ctx string) []candidate {
		var cands []candidate
		index := map[string]int{}
		for _, w := range models {
			if w.Weight <= 0 {
				continue
			}
			opts := w.Model.options(ctx, tag)
			total := 0
			for _, o := range opts {
				total += o.Count
			}
			if total == 0 {
				continue
			}
			for _, o := range opts {
				p := float64(o.Count) / float64(total) * w.Weight
				if i, ok := index[o.Token]; ok {
					cands[i].weight += p
					continue
				}
				index[o.Token] = len(cands)
				cands = append(cands, candidate{token: o.Token, weight: p})
			}
		}
		return cands
	}
	return walk(order, next, r, minWords, maxWords)
}

// Blend is BlendTokens rendered as text.
func Blend(models []Weighted, r *rng.Source, tag string, minWords, maxWords int) (string, error) {
	tokens, err := BlendTokens(models, r, tag, minWords, maxWords)
	if err != nil {
		return "", err
	}
	return Join(tokens), nil
}

func sortedStrings(s []string) []string {
	sort.Strings(s)
	return s
}

// #endregion
