package orchestrator

import "github.com/danielpatrickdp/narrative-engine/internal/rng"

// #region constants

const maxRetries = 3 // max 3 retries = 4 total attempts

// #endregion

// #region engine

// RetryEngine decides whether to retry and derives the source for each retry.
type RetryEngine struct {
	base uint64
}

// NewRetryEngine creates a retry engine for the given base seed.
func NewRetryEngine(base uint64) *RetryEngine {
	return &RetryEngine{base: base}
}

// #endregion

// #region should-retry

// ShouldRetry reports whether another attempt is allowed after retries
// retries have already been spent.
func (r *RetryEngine) ShouldRetry(eval Evaluation, retries int) bool {
	return eval.ShouldRetry && retries < maxRetries
}

// Reseed returns the seed and source for retry number retry of the
// narration with the given generation counter.
func (r *RetryEngine) Reseed(counter uint64, retry int) (uint64, *rng.Source) {
	seed := rng.Derive(r.base, counter, retry)
	return seed, rng.New(seed)
}

// #endregion
