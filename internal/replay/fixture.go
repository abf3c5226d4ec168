package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/logging"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: the content,
// the seed and the sequence of events fed to one engine.
type Fixture struct {
	Description    string               `json:"description"`
	Seed           uint64               `json:"seed,string"`
	MaxDepth       int                  `json:"max_depth,omitempty"`
	WindowCapacity int                  `json:"window_capacity,omitempty"`
	DefaultVoice   *schema.VoiceID      `json:"default_voice,omitempty"`
	Rules          grammar.File         `json:"rules"`
	Voices         voice.File           `json:"voices"`
	Corpora        []FixtureCorpus      `json:"corpora,omitempty"`
	Entities       []*schema.Entity     `json:"entities"`
	Interactions   []FixtureInteraction `json:"interactions"`
}

// FixtureCorpus is raw corpus text trained when the fixture is loaded.
type FixtureCorpus struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
	Text  string `json:"text"`
}

// FixtureInteraction is one event with what it is expected to produce. An
// interaction with neither expectation is replayed but not checked.
type FixtureInteraction struct {
	Event         schema.Event `json:"event"`
	ExpectedText  string       `json:"expected_text,omitempty"`
	ExpectedError string       `json:"expected_error,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// Save writes the fixture as indented JSON.
func (f *Fixture) Save(path string) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encode fixture: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// World indexes the fixture's entities.
func (f *Fixture) World() schema.World {
	return schema.NewWorld(f.Entities...)
}

// Engine builds a fresh engine from the fixture's content.
func (f *Fixture) Engine(opts ...orchestrator.Option) (*orchestrator.Engine, error) {
	rules, err := grammar.FromFile(f.Rules)
	if err != nil {
		return nil, fmt.Errorf("fixture rules: %w", err)
	}
	voices := voice.NewRegistry()
	for _, v := range f.Voices.Voices {
		if err := voices.Register(v); err != nil {
			return nil, fmt.Errorf("fixture voices: %w", err)
		}
	}
	if err := voices.Check(); err != nil {
		return nil, fmt.Errorf("fixture voices: %w", err)
	}
	lib := markov.NewLibrary()
	for _, c := range f.Corpora {
		m, err := markov.Train(c.Text, c.Order)
		if err != nil {
			return nil, fmt.Errorf("fixture corpus %q: %w", c.ID, err)
		}
		lib.Add(c.ID, m)
	}

	cfg := orchestrator.Config{Seed: f.Seed, MaxDepth: f.MaxDepth, WindowCapacity: f.WindowCapacity, DefaultVoice: f.DefaultVoice}
	opts = append([]orchestrator.Option{orchestrator.WithVoices(voices), orchestrator.WithLibrary(lib)}, opts...)
	return orchestrator.New(rules, cfg, opts...), nil
}

// #endregion fixture-loader

// #region fixture-export

// Content is the authored material a fixture carries alongside recorded
// events.
type Content struct {
	Rules   *grammar.Store
	Voices  *voice.Registry
	Corpora []FixtureCorpus
}

// FromRecords builds a fixture from the provenance records of one engine.
// Records must share a seed and be in counter order; the recorded text and
// error become the expectations.
func FromRecords(description string, records []logging.NarrationRecord, content Content) (*Fixture, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no records")
	}
	f := &Fixture{
		Description: description,
		Seed:        records[0].Seed,
		Rules:       content.Rules.File(),
		Corpora:     content.Corpora,
	}
	if content.Voices != nil {
		f.Voices = voice.File{Voices: content.Voices.Voices()}
	}

	entities := map[schema.EntityID]*schema.Entity{}
	var order []schema.EntityID
	for i, rec := range records {
		if rec.Seed != f.Seed || rec.EngineID != records[0].EngineID {
			return nil, fmt.Errorf("record %d belongs to another engine", i)
		}
		if rec.Counter != uint64(i) {
			return nil, fmt.Errorf("record %d has counter %d; records must start at 0 without gaps", i, rec.Counter)
		}
		for _, e := range rec.Entities {
			if _, seen := entities[e.ID]; !seen {
				order = append(order, e.ID)
			}
			entities[e.ID] = e
		}
		inter := FixtureInteraction{Event: rec.Event}
		switch rec.Outcome {
		case "done":
			inter.ExpectedText = rec.Text
		default:
			inter.ExpectedError = rec.ErrorKind
		}
		f.Interactions = append(f.Interactions, inter)
	}
	for _, id := range order {
		f.Entities = append(f.Entities, entities[id])
	}
	return f, nil
}

// #endregion fixture-export
