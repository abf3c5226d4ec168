package eval

import "github.com/danielpatrickdp/narrative-engine/internal/schema"

// #region lint-config
// LintConfig holds the thresholds and reference sets for content linting.
type LintConfig struct {
	MinAlternatives int      // warn below this many alternatives
	Functions       []string // rule stems that should have an _opening rule
	KnownCorpora    []string // corpus ids available to {markov:...} slots; empty skips the check
}

// DefaultLintConfig checks the core narrative functions.
func DefaultLintConfig() LintConfig {
	fns := make([]string, len(schema.CoreFunctions))
	for i, f := range schema.CoreFunctions {
		fns[i] = f.RuleName()
	}
	return LintConfig{
		MinAlternatives: 3,
		Functions:       fns,
	}
}

// #endregion lint-config

// #region finding
// Severity ranks a finding. Errors make content unshippable.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding captures a single lint check result.
type Finding struct {
	Severity Severity
	Check    string // "missing_rule" | "no_base_case" | "coverage" | "low_variety" | "unknown_corpus" | "voice"
	Rule     string
	Message  string
}

// #endregion finding

// #region report
// Report is the output of a lint run.
type Report struct {
	Passed   bool
	Findings []Finding
	Reason   string
}

// Errors returns the error findings.
func (r Report) Errors() []Finding { return r.filter(SeverityError) }

// Warnings returns the warning findings.
func (r Report) Warnings() []Finding { return r.filter(SeverityWarning) }

func (r Report) filter(s Severity) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

// #endregion report
