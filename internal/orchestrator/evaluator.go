package orchestrator

// #region imports
import (
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

// #endregion

// #region penalties

var issuePenalty = map[window.IssueKind]float32{
	window.RepeatedOpening:    0.4,
	window.OverusedWord:       0.15,
	window.StructuralMonotony: 0.3,
}

// #endregion

// #region evaluate

// Evaluate scores a candidate from its repetition issues. Any issue means a
// retry is wanted; the first issue names the failure type.
func Evaluate(issues []window.Issue) Evaluation {
	quality := float32(1.0)
	for _, is := range issues {
		quality -= issuePenalty[is.Kind]
	}
	if quality < 0 {
		quality = 0
	}

	failure := FailureNone
	if len(issues) > 0 {
		failure = failureFor(issues[0].Kind)
	}

	return Evaluation{
		Issues:      issues,
		Quality:     quality,
		FailureType: failure,
		ShouldRetry: len(issues) > 0,
	}
}

func failureFor(k window.IssueKind) FailureType {
	switch k {
	case window.RepeatedOpening:
		return FailureRepeatedOpening
	case window.OverusedWord:
		return FailureOverusedWord
	case window.StructuralMonotony:
		return FailureMonotony
	default:
		return FailureNone
	}
}

// #endregion
