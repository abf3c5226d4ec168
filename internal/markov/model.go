// Package markov trains n-gram phrase models from tagged corpus text and
// samples bounded fragments from them.
package markov

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// #region errors

var (
	ErrInsufficientCorpus = errors.New("insufficient corpus: no sentence completed")
	ErrCorpusNotFound     = errors.New("corpus not found")
	ErrInvalidOrder       = errors.New("n-gram order must be between 2 and 4")
	ErrMixedOrder         = errors.New("blended models must share one order")
	ErrNoModels           = errors.New("no models to generate from")
)

// #endregion

// #region types

// Transition is an observed next token and how often it followed a context.
type Transition struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Table maps a context key (the last order-1 tokens joined by a space) to
// next-token transitions in first-seen order.
type Table map[string][]Transition

func (t Table) add(ctx []string, next string) {
	key := strings.Join(ctx, " ")
	list := t[key]
	for i := range list {
		if list[i].Token == next {
			list[i].Count++
			return
		}
	}
	t[key] = append(list, Transition{Token: next, Count: 1})
}

// Model is a trained phrase model. It is never mutated after Train returns.
type Model struct {
	Order       int              `json:"order"`
	Transitions Table            `json:"transitions"`
	Tagged      map[string]Table `json:"tagged,omitempty"`
}

// Tags returns the tags the model has tables for.
func (m *Model) Tags() []string {
	out := make([]string, 0, len(m.Tagged))
	for t := range m.Tagged {
		out = append(out, t)
	}
	return sortedStrings(out)
}

// #endregion

// #region train

// Train builds a model of the given order from corpus text. A line of the
// form [tag] marks the text after it with tag until the next marker.
func Train(text string, order int) (*Model, error) {
	if order < 2 || order > 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}
	m := &Model{Order: order, Transitions: Table{}, Tagged: map[string]Table{}}

	tag := ""
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 2 && line[0] == '[' && line[len(line)-1] == ']' {
			tag = line[1 : len(line)-1]
			continue
		}
		if line == "" {
			continue
		}

		for _, sentence := range splitSentences(Tokenize(line)) {
			padded := make([]string, 0, order-1+len(sentence)+1)
			for i := 0; i < order-1; i++ {
				padded = append(padded, StartToken)
			}
			padded = append(padded, sentence...)
			padded = append(padded, BoundaryToken)

			for i := order - 1; i < len(padded); i++ {
				ctx := padded[i-order+1 : i]
				m.Transitions.add(ctx, padded[i])
				if tag != "" {
					tt, ok := m.Tagged[tag]
					if !ok {
						tt = Table{}
						m.Tagged[tag] = tt
					}
					tt.add(ctx, padded[i])
				}
			}
		}
	}
	return m, nil
}

// #endregion

// #region persistence

// Save writes the model as JSON.
func (m *Model) Save(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model: %w", err)
	}
	return nil
}

// Load reads a model written by Save.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	return Decode(data)
}

// Decode parses a JSON-encoded model.
func Decode(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if m.Order < 2 || m.Order > 4 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, m.Order)
	}
	if m.Transitions == nil {
		m.Transitions = Table{}
	}
	if m.Tagged == nil {
		m.Tagged = map[string]Table{}
	}
	return &m, nil
}

// #endregion
