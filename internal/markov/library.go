package markov

import (
	"fmt"
	"os"
	"sort"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
)

// #region library

// Binding ties a voice to a corpus with a blend weight. An empty Tags list
// applies the binding to every slot; otherwise only to slots whose tag is
// listed.
type Binding struct {
	CorpusID string   `json:"corpus_id" yaml:"corpus_id" validate:"required"`
	Weight   float64  `json:"weight" yaml:"weight" validate:"gt=0"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Library is a read-only set of trained models keyed by corpus id.
type Library struct {
	models map[string]*Model
}

// NewLibrary returns an empty library.
func NewLibrary() *Library {
	return &Library{models: map[string]*Model{}}
}

// Add registers a model under id, replacing any previous one.
func (l *Library) Add(id string, m *Model) {
	l.models[id] = m
}

// Model looks up a corpus.
func (l *Library) Model(id string) (*Model, bool) {
	m, ok := l.models[id]
	return m, ok
}

// IDs returns corpus ids in sorted order.
func (l *Library) IDs() []string {
	out := make([]string, 0, len(l.models))
	for id := range l.models {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// TrainFile trains a model from a corpus file and registers it under id.
func (l *Library) TrainFile(id, path string, order int) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus %s: %w", id, err)
	}
	m, err := Train(string(data), order)
	if err != nil {
		return nil, fmt.Errorf("train corpus %s: %w", id, err)
	}
	l.Add(id, m)
	return m, nil
}

// Source returns a phrase source that blends the slot's corpus with the
// voice's bound corpora.
func (l *Library) Source(bindings []Binding) *Source {
	return &Source{lib: l, bindings: bindings}
}

// #endregion

// #region source

// Source answers phrase slots for one resolved voice.
type Source struct {
	lib      *Library
	bindings []Binding
}

// Phrase generates a fragment for {markov:corpus:tag}. The slot's corpus is
// always included; other bound corpora of the same order join the blend when
// their tags admit the slot tag.
func (s *Source) Phrase(corpus, tag string, minWords, maxWords int, r *rng.Source) (string, error) {
	base, ok := s.lib.models[corpus]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrCorpusNotFound, corpus)
	}

	weight := 1.0
	var extra []Weighted
	for _, b := range s.bindings {
		if b.CorpusID == corpus {
			weight = b.Weight
			continue
		}
		if !admits(b.Tags, tag) {
			continue
		}
		m, ok := s.lib.models[b.CorpusID]
		if !ok || m.Order != base.Order {
			continue
		}
		extra = append(extra, Weighted{Model: m, Weight: b.Weight})
	}

	if len(extra) == 0 {
		return base.Generate(r, tag, minWords, maxWords)
	}
	models := append([]Weighted{{Model: base, Weight: weight}}, extra...)
	return Blend(models, r, tag, minWords, maxWords)
}

func admits(tags []string, tag string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// #endregion
