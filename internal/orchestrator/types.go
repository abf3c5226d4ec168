package orchestrator

// #region imports
import (
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

// #endregion

// #region state

// State is a step of the narration state machine.
type State string

const (
	StateGenerate  State = "generate"
	StateRemediate State = "remediate"
	StateRecheck   State = "recheck"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

// #endregion

// #region failure-type

// FailureType names the dominant problem with an attempt.
type FailureType string

const (
	FailureNone            FailureType = "none"
	FailureRepeatedOpening FailureType = "repeated_opening"
	FailureOverusedWord    FailureType = "overused_word"
	FailureMonotony        FailureType = "structural_monotony"
)

// #endregion

// #region bundle

// Bundle is everything the expander needs from an event: the active tags, the
// role bindings and the rule-name stem of the narrative function.
type Bundle struct {
	Tags     []string
	Bindings map[string]*schema.Entity
	Function string
}

// #endregion

// #region evaluation

// Evaluation is the verdict on one attempt.
type Evaluation struct {
	Issues      []window.Issue
	Quality     float32
	FailureType FailureType
	ShouldRetry bool
}

// #endregion

// #region result

// Result is a successful narration with its bookkeeping.
type Result struct {
	Text    string
	Rule    string
	Voice   string
	Retries int
	Counter uint64
}

// #endregion

// #region reports

// AttemptReport describes one pass through Generate and Recheck.
type AttemptReport struct {
	EngineID   string
	Counter    uint64
	Attempt    int
	Seed       uint64
	Rule       string
	Voice      string
	Text       string
	Evaluation Evaluation
	Accepted   bool
}

// NarrationReport describes a finished Narrate call. Outcome is one of
// "done", "failed" or "error".
type NarrationReport struct {
	EngineID string
	Seed     uint64
	Counter  uint64
	Event    schema.Event
	Entities []*schema.Entity
	Rule     string
	Voice    string
	Outcome  string
	Retries  int
	Text     string
	Err      error
	Duration time.Duration
}

// Observer receives reports as the engine works. Implementations must not
// call back into the engine.
type Observer interface {
	AttemptFinished(AttemptReport)
	NarrationFinished(NarrationReport)
}

// #endregion

// #region errors

// ErrGenerationFailed matches every GenerationFailedError.
var ErrGenerationFailed = errors.New("generation failed")

// GenerationFailedError is returned when the retry budget runs out with the
// text still flagged as repetitive.
type GenerationFailedError struct {
	Retries int
	Issues  []window.Issue
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation failed after %d retries", e.Retries)
}

// Is matches ErrGenerationFailed.
func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// #endregion

// #region error-kind

// ErrorKind names the class of a narration error for logs and fixtures.
// A nil error is "".
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, grammar.ErrRuleNotFound):
		return "rule_not_found"
	case errors.Is(err, grammar.ErrTemplateParse):
		return "template_parse"
	case errors.Is(err, grammar.ErrMaxDepthExceeded):
		return "max_depth_exceeded"
	case errors.Is(err, grammar.ErrPreconditionFailed):
		return "precondition_failed"
	case errors.Is(err, grammar.ErrEntityNotFound):
		return "entity_not_found"
	case errors.Is(err, markov.ErrInsufficientCorpus):
		return "insufficient_corpus"
	case errors.Is(err, markov.ErrCorpusNotFound):
		return "corpus_not_found"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	default:
		return "other"
	}
}

// #endregion
