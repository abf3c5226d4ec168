// Package content assembles the rules, voices and phrase models an engine
// runs on from the files named in a configuration.
package content

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/config"
	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/replay"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
)

// Content is everything an engine reads but never mutates. One Content can
// back any number of engines.
type Content struct {
	Rules   *grammar.Store
	Voices  *voice.Registry
	Library *markov.Library

	cfg *config.Config
}

// #region load

// Load reads grammars, voices and corpora named by cfg. Corpora with a cache
// path reuse the cached model when it is newer than the corpus file and
// refresh it otherwise.
func Load(cfg *config.Config, log *zap.Logger) (*Content, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("content")

	rules, err := grammar.LoadFiles(cfg.Grammars...)
	if err != nil {
		return nil, fmt.Errorf("load grammars: %w", err)
	}
	voices, err := voice.LoadFiles(cfg.Voices...)
	if err != nil {
		return nil, fmt.Errorf("load voices: %w", err)
	}

	lib := markov.NewLibrary()
	for _, c := range cfg.Corpora {
		m, cached, err := loadCorpus(lib, c)
		if err != nil {
			return nil, err
		}
		log.Debug("corpus ready",
			zap.String("corpus", c.ID),
			zap.Int("order", m.Order),
			zap.Bool("cached", cached))
	}

	log.Info("content loaded",
		zap.Int("rules", rules.Len()),
		zap.Int("voices", len(voices.IDs())),
		zap.Strings("corpora", lib.IDs()))
	return &Content{Rules: rules, Voices: voices, Library: lib, cfg: cfg}, nil
}

func loadCorpus(lib *markov.Library, c config.Corpus) (*markov.Model, bool, error) {
	if c.Cache != "" && fresh(c.Cache, c.Path) {
		m, err := markov.Load(c.Cache)
		if err == nil && m.Order == c.Order {
			lib.Add(c.ID, m)
			return m, true, nil
		}
	}
	m, err := lib.TrainFile(c.ID, c.Path, c.Order)
	if err != nil {
		return nil, false, err
	}
	if c.Cache != "" {
		if err := m.Save(c.Cache); err != nil {
			return nil, false, fmt.Errorf("cache corpus %s: %w", c.ID, err)
		}
	}
	return m, false, nil
}

// fresh reports whether cache exists and is at least as new as src.
func fresh(cache, src string) bool {
	ci, err := os.Stat(cache)
	if err != nil {
		return false
	}
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	return !ci.ModTime().Before(si.ModTime())
}

// #endregion load

// #region engines

// NewEngine builds an engine over the content with the configured depth,
// window and default voice.
func (c *Content) NewEngine(seed uint64, opts ...orchestrator.Option) *orchestrator.Engine {
	cfg := orchestrator.Config{Seed: seed}
	if c.cfg != nil {
		cfg.MaxDepth = c.cfg.MaxDepth
		cfg.WindowCapacity = c.cfg.WindowCapacity
		cfg.DefaultVoice = c.cfg.DefaultVoiceID()
	}
	opts = append([]orchestrator.Option{
		orchestrator.WithVoices(c.Voices),
		orchestrator.WithLibrary(c.Library),
	}, opts...)
	return orchestrator.New(c.Rules, cfg, opts...)
}

// Replay returns the content in the shape a replay fixture embeds, with the
// raw corpus texts so the fixture retrains identical models.
func (c *Content) Replay() (replay.Content, error) {
	out := replay.Content{Rules: c.Rules, Voices: c.Voices}
	if c.cfg == nil {
		return out, nil
	}
	for _, corp := range c.cfg.Corpora {
		data, err := os.ReadFile(corp.Path)
		if err != nil {
			return out, fmt.Errorf("read corpus %s: %w", corp.ID, err)
		}
		out.Corpora = append(out.Corpora, replay.FixtureCorpus{ID: corp.ID, Order: corp.Order, Text: string(data)})
	}
	return out, nil
}

// #endregion engines
