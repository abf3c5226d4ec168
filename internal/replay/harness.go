// Package replay reruns recorded event sequences against content and reports
// where the output drifted from what was recorded.
package replay

import (
	"fmt"

	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
)

// #region types

// Verdict classifies one replayed interaction.
type Verdict string

const (
	VerdictMatch     Verdict = "match"
	VerdictDrift     Verdict = "drift"
	VerdictUnchecked Verdict = "unchecked"
)

// ReplayResult captures the outcome of replaying one interaction.
type ReplayResult struct {
	Index     int
	Text      string
	ErrorKind string
	Err       error
	Retries   int
	Rule      string
	Verdict   Verdict
	Reason    string
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	Total     int
	Matches   int
	Drifts    int
	Unchecked int
	Errors    int
	Retries   int
}

// #endregion types

// #region replay

// Replay feeds the fixture's interactions through one fresh engine, in
// order, and compares each outcome with the recorded expectation.
func Replay(f *Fixture, opts ...orchestrator.Option) ([]ReplayResult, error) {
	e, err := f.Engine(opts...)
	if err != nil {
		return nil, err
	}
	world := f.World()
	results := make([]ReplayResult, 0, len(f.Interactions))

	for i, inter := range f.Interactions {
		r := ReplayResult{Index: i}
		res, err := e.NarrateDetailed(inter.Event, world)
		if err != nil {
			r.Err = err
			r.ErrorKind = orchestrator.ErrorKind(err)
		} else {
			r.Text = res.Text
			r.Retries = res.Retries
			r.Rule = res.Rule
		}
		r.Verdict, r.Reason = judge(inter, r)
		results = append(results, r)
	}
	return results, nil
}

func judge(inter FixtureInteraction, r ReplayResult) (Verdict, string) {
	switch {
	case inter.ExpectedError != "":
		if r.ErrorKind == inter.ExpectedError {
			return VerdictMatch, ""
		}
		if r.Err == nil {
			return VerdictDrift, fmt.Sprintf("expected %s error, got text %q", inter.ExpectedError, r.Text)
		}
		return VerdictDrift, fmt.Sprintf("expected %s error, got %s: %v", inter.ExpectedError, r.ErrorKind, r.Err)
	case inter.ExpectedText != "":
		if r.Err != nil {
			return VerdictDrift, fmt.Sprintf("expected text, got %s: %v", r.ErrorKind, r.Err)
		}
		if r.Text != inter.ExpectedText {
			return VerdictDrift, fmt.Sprintf("text changed: %q -> %q", inter.ExpectedText, r.Text)
		}
		return VerdictMatch, ""
	default:
		return VerdictUnchecked, ""
	}
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult) ReplaySummary {
	s := ReplaySummary{Total: len(results)}
	for _, r := range results {
		switch r.Verdict {
		case VerdictMatch:
			s.Matches++
		case VerdictDrift:
			s.Drifts++
		case VerdictUnchecked:
			s.Unchecked++
		}
		if r.Err != nil {
			s.Errors++
		}
		s.Retries += r.Retries
	}
	return s
}

// #endregion replay
