// Package orchestrator drives one narration end to end: classify the event,
// pick a voice, expand the entry rule, run the variety pass, check the result
// against the context window and retry with a derived seed when it repeats.
package orchestrator

// #region imports
import (
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/rng"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
	"github.com/danielpatrickdp/narrative-engine/internal/variety"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

// #endregion

// #region config

// Config holds the engine's tunables.
type Config struct {
	Seed           uint64
	MaxDepth       int
	WindowCapacity int
	DefaultVoice   *schema.VoiceID
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l.Named("orch")
		}
	}
}

// WithObserver adds an observer for attempts and narrations.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithVoices sets the voice registry.
func WithVoices(r *voice.Registry) Option {
	return func(e *Engine) { e.voices = r }
}

// WithLibrary sets the phrase models available to {markov:...} slots.
func WithLibrary(l *markov.Library) Option {
	return func(e *Engine) { e.library = l }
}

// WithWindow replaces the fresh context window, e.g. with a restored one.
func WithWindow(w *window.Window) Option {
	return func(e *Engine) {
		if w != nil {
			e.window = w
		}
	}
}

// WithID sets the engine id used in reports instead of a random one.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// #endregion

// #region engine-struct

// Engine owns one random source and one context window. Rule store and
// phrase models are shared read-only. An Engine is not safe for concurrent
// use; run independent engines in parallel instead.
type Engine struct {
	id        string
	cfg       Config
	rules     *grammar.Store
	library   *markov.Library
	voices    *voice.Registry
	selector  *VoiceSelector
	retry     *RetryEngine
	rng       *rng.Source
	window    *window.Window
	counter   uint64
	observers []Observer
	log       *zap.Logger
}

// #endregion

// #region constructor

// New creates an engine over rules.
func New(rules *grammar.Store, cfg Config, opts ...Option) *Engine {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = grammar.DefaultMaxDepth
	}
	e := &Engine{
		id:      uuid.New().String(),
		cfg:     cfg,
		rules:   rules,
		library: markov.NewLibrary(),
		rng:     rng.New(cfg.Seed),
		window:  window.New(cfg.WindowCapacity),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	e.selector = NewVoiceSelector(e.voices, cfg.DefaultVoice)
	e.retry = NewRetryEngine(cfg.Seed)
	return e
}

// ID returns the engine id.
func (e *Engine) ID() string { return e.id }

// Seed returns the base seed.
func (e *Engine) Seed() uint64 { return e.cfg.Seed }

// Counter returns how many narrations have been started.
func (e *Engine) Counter() uint64 { return e.counter }

// Window exposes the context window, e.g. for snapshots.
func (e *Engine) Window() *window.Window { return e.window }

// #endregion

// #region narrate

// Narrate turns an event into text.
func (e *Engine) Narrate(ev schema.Event, world schema.World) (string, error) {
	res, err := e.NarrateDetailed(ev, world)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// NarrateDetailed is Narrate with the bookkeeping of the accepted attempt.
// Content and data errors abort at once; only repetition triggers a retry.
func (e *Engine) NarrateDetailed(ev schema.Event, world schema.World) (*Result, error) {
	start := time.Now()
	counter := e.counter
	e.counter++

	report := NarrationReport{
		EngineID: e.id,
		Seed:     e.cfg.Seed,
		Counter:  counter,
		Event:    ev,
		Entities: worldEntities(world),
	}
	finish := func(outcome string, err error) {
		report.Outcome = outcome
		report.Err = err
		report.Duration = time.Since(start)
		for _, o := range e.observers {
			o.NarrationFinished(report)
		}
	}

	bundle, err := Classify(ev, world)
	if err != nil {
		e.log.Warn("classify failed", zap.Uint64("counter", counter), zap.Error(err))
		finish("error", err)
		return nil, err
	}
	entry, err := EntryRule(e.rules, bundle.Function)
	if err != nil {
		e.log.Warn("no entry rule", zap.String("fn", bundle.Function), zap.Error(err))
		finish("error", err)
		return nil, err
	}
	v, err := e.selector.Select(bundle)
	if err != nil {
		finish("error", err)
		return nil, err
	}
	report.Rule = entry
	report.Voice = v.Name

	minWords, maxWords := v.WordRange()
	exp := grammar.NewExpander(e.rules,
		grammar.WithPhrases(e.library.Source(v.MarkovBindings)),
		grammar.WithMultipliers(v.GrammarWeights),
		grammar.WithWordRange(minWords, maxWords),
	)

	e.log.Debug("narrate",
		zap.Uint64("counter", counter),
		zap.String("rule", entry),
		zap.String("voice", v.Name),
		zap.Strings("tags", bundle.Tags))

	var (
		state   = StateGenerate
		src     = e.rng
		seed    = e.cfg.Seed
		retries = 0
		text    string
		eval    Evaluation
	)

	for {
		switch state {
		case StateGenerate:
			st := grammar.NewSelectionState(bundle.Tags, bundle.Bindings)
			st.MaxDepth = e.cfg.MaxDepth
			raw, err := exp.Expand(entry, st, src)
			if err != nil {
				e.log.Warn("expansion failed", zap.String("rule", entry), zap.Int("attempt", retries), zap.Error(err))
				finish("error", err)
				return nil, err
			}
			text = grammar.Finalize(variety.Apply(grammar.Finalize(raw), v, e.window, src))
			state = StateRecheck

		case StateRecheck:
			eval = Evaluate(e.window.CheckRepetition(text))
			accepted := !eval.ShouldRetry
			e.notifyAttempt(AttemptReport{
				EngineID:   e.id,
				Counter:    counter,
				Attempt:    retries,
				Seed:       seed,
				Rule:       entry,
				Voice:      v.Name,
				Text:       text,
				Evaluation: eval,
				Accepted:   accepted,
			})
			switch {
			case accepted:
				state = StateDone
			case e.retry.ShouldRetry(eval, retries):
				e.log.Debug("repetition detected",
					zap.String("failure", string(eval.FailureType)),
					zap.Float32("quality", eval.Quality),
					zap.Int("retry", retries+1))
				state = StateRemediate
			default:
				state = StateFailed
			}

		case StateRemediate:
			retries++
			seed, src = e.retry.Reseed(counter, retries)
			state = StateGenerate

		case StateDone:
			e.window.Record(text)
			report.Retries = retries
			report.Text = text
			finish("done", nil)
			e.log.Info("narrated",
				zap.Uint64("counter", counter),
				zap.String("rule", entry),
				zap.Int("retries", retries))
			return &Result{Text: text, Rule: entry, Voice: v.Name, Retries: retries, Counter: counter}, nil

		case StateFailed:
			err := &GenerationFailedError{Retries: retries, Issues: eval.Issues}
			report.Retries = retries
			finish("failed", err)
			e.log.Warn("generation failed",
				zap.Uint64("counter", counter),
				zap.String("rule", entry),
				zap.String("failure", string(eval.FailureType)))
			return nil, err
		}
	}
}

func (e *Engine) notifyAttempt(rep AttemptReport) {
	for _, o := range e.observers {
		o.AttemptFinished(rep)
	}
}

func worldEntities(w schema.World) []*schema.Entity {
	out := make([]*schema.Entity, 0, len(w.Entities))
	for _, ent := range w.Entities {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// #endregion
