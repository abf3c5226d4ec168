// Package voice holds persona bundles that shape generated text and resolves
// their inheritance chains into a single flattened bundle.
package voice

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

var validate = validator.New()

// #region errors

var (
	ErrInheritanceCycle = errors.New("voice inheritance cycle")
	ErrUnknownParent    = errors.New("voice parent not registered")
	ErrVoiceNotFound    = errors.New("voice not found")
)

// #endregion

// #region types

// Vocabulary lists words a voice leans toward or steers away from.
type Vocabulary struct {
	Preferred []string `json:"preferred,omitempty" yaml:"preferred,omitempty"`
	Avoided   []string `json:"avoided,omitempty" yaml:"avoided,omitempty"`
}

// StructurePrefs shapes sentence length. AvgSentenceLength is a [min, max]
// word range.
type StructurePrefs struct {
	AvgSentenceLength []int   `json:"avg_sentence_length" yaml:"avg_sentence_length" validate:"len=2,dive,gte=1"`
	ClauseComplexity  float64 `json:"clause_complexity" yaml:"clause_complexity" validate:"gte=0,lte=1"`
	QuestionFrequency float64 `json:"question_frequency" yaml:"question_frequency" validate:"gte=0,lte=1"`
}

// Quirk is a verbal tic inserted with the given per-passage probability.
type Quirk struct {
	Pattern   string  `json:"pattern" yaml:"pattern" validate:"required"`
	Frequency float64 `json:"frequency" yaml:"frequency" validate:"gte=0,lte=1"`
}

// Voice is one registered persona. Parent links form the inheritance chain.
type Voice struct {
	ID             schema.VoiceID      `json:"id" yaml:"id"`
	Name           string              `json:"name" yaml:"name" validate:"required"`
	Parent         *schema.VoiceID     `json:"parent,omitempty" yaml:"parent,omitempty"`
	GrammarWeights map[string]float64  `json:"grammar_weights,omitempty" yaml:"grammar_weights,omitempty" validate:"dive,gte=0"`
	Vocabulary     Vocabulary          `json:"vocabulary" yaml:"vocabulary"`
	MarkovBindings []markov.Binding    `json:"markov_bindings,omitempty" yaml:"markov_bindings,omitempty" validate:"dive"`
	Structure      *StructurePrefs     `json:"structure_prefs,omitempty" yaml:"structure_prefs,omitempty"`
	Quirks         []Quirk             `json:"quirks,omitempty" yaml:"quirks,omitempty" validate:"dive"`
	Synonyms       map[string][]string `json:"synonyms,omitempty" yaml:"synonyms,omitempty"`
}

// Resolved is a voice with its whole chain merged. Vocabulary sets are sorted.
type Resolved struct {
	ID             schema.VoiceID
	Name           string
	GrammarWeights map[string]float64
	Preferred      []string
	Avoided        []string
	MarkovBindings []markov.Binding
	Structure      *StructurePrefs
	Quirks         []Quirk
	Synonyms       map[string][]string
}

// Empty is the bundle used when no voice applies.
func Empty() *Resolved {
	return &Resolved{GrammarWeights: map[string]float64{}, Synonyms: map[string][]string{}}
}

const (
	defaultSlotMin   = 3
	defaultSlotMax   = 20
	defaultTargetMin = 8
	defaultTargetMax = 18
)

// WordRange is the [min, max] word bound for phrase slots.
func (r *Resolved) WordRange() (int, int) {
	if r == nil || r.Structure == nil || len(r.Structure.AvgSentenceLength) != 2 {
		return defaultSlotMin, defaultSlotMax
	}
	return r.Structure.AvgSentenceLength[0], r.Structure.AvgSentenceLength[1]
}

// TargetAverage is the sentence length the voice aims for.
func (r *Resolved) TargetAverage() float64 {
	lo, hi := defaultTargetMin, defaultTargetMax
	if r != nil && r.Structure != nil && len(r.Structure.AvgSentenceLength) == 2 {
		lo, hi = r.Structure.AvgSentenceLength[0], r.Structure.AvgSentenceLength[1]
	}
	return float64(lo+hi) / 2
}

// Avoids reports whether word is in the avoided set.
func (r *Resolved) Avoids(word string) bool {
	return contains(r.Avoided, word)
}

// Prefers reports whether word is in the preferred set.
func (r *Resolved) Prefers(word string) bool {
	return contains(r.Preferred, word)
}

func contains(sorted []string, w string) bool {
	i := sort.SearchStrings(sorted, w)
	return i < len(sorted) && sorted[i] == w
}

// #endregion

// #region registry

// Registry is a flat table of voices keyed by id.
type Registry struct {
	voices map[schema.VoiceID]*Voice
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{voices: map[schema.VoiceID]*Voice{}}
}

// Register validates and stores v, replacing any voice with the same id.
func (g *Registry) Register(v Voice) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("voice %q: %w", v.Name, err)
	}
	if v.Structure != nil {
		if err := validate.Struct(v.Structure); err != nil {
			return fmt.Errorf("voice %q structure: %w", v.Name, err)
		}
		if s := v.Structure.AvgSentenceLength; s[0] > s[1] {
			return fmt.Errorf("voice %q: sentence length min %d above max %d", v.Name, s[0], s[1])
		}
	}
	g.voices[v.ID] = &v
	return nil
}

// Get looks up an unresolved voice.
func (g *Registry) Get(id schema.VoiceID) (*Voice, bool) {
	v, ok := g.voices[id]
	return v, ok
}

// IDs returns registered ids in ascending order.
func (g *Registry) IDs() []schema.VoiceID {
	out := make([]schema.VoiceID, 0, len(g.voices))
	for id := range g.voices {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Check walks every chain and reports the first cycle or dangling parent.
func (g *Registry) Check() error {
	for _, id := range g.IDs() {
		if _, err := g.chain(id); err != nil {
			return err
		}
	}
	return nil
}

// chain returns the voice followed by its ancestors.
func (g *Registry) chain(id schema.VoiceID) ([]*Voice, error) {
	v, ok := g.voices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrVoiceNotFound, id)
	}
	seen := map[schema.VoiceID]bool{id: true}
	chain := []*Voice{v}
	for v.Parent != nil {
		pid := *v.Parent
		if seen[pid] {
			return nil, fmt.Errorf("%w: %d reaches %d again", ErrInheritanceCycle, id, pid)
		}
		parent, ok := g.voices[pid]
		if !ok {
			return nil, fmt.Errorf("%w: %q names parent %d", ErrUnknownParent, v.Name, pid)
		}
		seen[pid] = true
		chain = append(chain, parent)
		v = parent
	}
	return chain, nil
}

// Resolve merges the chain from the root ancestor down to id. Child grammar
// weights and synonyms override, vocabulary sets union, bindings and quirks
// concatenate root first, and the nearest structure prefs win.
func (g *Registry) Resolve(id schema.VoiceID) (*Resolved, error) {
	chain, err := g.chain(id)
	if err != nil {
		return nil, err
	}

	out := Empty()
	out.ID = chain[0].ID
	out.Name = chain[0].Name
	preferred := map[string]struct{}{}
	avoided := map[string]struct{}{}

	for i := len(chain) - 1; i >= 0; i-- {
		v := chain[i]
		for k, w := range v.GrammarWeights {
			out.GrammarWeights[k] = w
		}
		for _, w := range v.Vocabulary.Preferred {
			preferred[w] = struct{}{}
		}
		for _, w := range v.Vocabulary.Avoided {
			avoided[w] = struct{}{}
		}
		out.MarkovBindings = append(out.MarkovBindings, v.MarkovBindings...)
		if v.Structure != nil {
			s := *v.Structure
			out.Structure = &s
		}
		out.Quirks = append(out.Quirks, v.Quirks...)
		for k, syn := range v.Synonyms {
			out.Synonyms[k] = syn
		}
	}
	out.Preferred = setToSorted(preferred)
	out.Avoided = setToSorted(avoided)
	return out, nil
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// #endregion

// #region load

// File is the on-disk shape of a voice set.
type File struct {
	Voices []Voice `json:"voices" yaml:"voices"`
}

// ParseYAML registers every voice in a YAML document.
func (g *Registry) ParseYAML(data []byte) error {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("decode voices: %w", err)
	}
	for _, v := range f.Voices {
		if err := g.Register(v); err != nil {
			return err
		}
	}
	return nil
}

// LoadFiles builds a registry from YAML files and checks every chain.
func LoadFiles(paths ...string) (*Registry, error) {
	g := NewRegistry()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read voices: %w", err)
		}
		if err := g.ParseYAML(data); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

// Voices returns registered voices in id order.
func (g *Registry) Voices() []Voice {
	out := make([]Voice, 0, len(g.voices))
	for _, id := range g.IDs() {
		out = append(out, *g.voices[id])
	}
	return out
}

// #endregion
