// Package eval lints authored content before it ships: dangling rule
// references, rules that can only recurse, thin rules and coverage gaps.
package eval

import (
	"fmt"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
)

// #region linter
// Linter runs static checks over a rule store and optional voices.
type Linter struct {
	config LintConfig
}

// NewLinter creates a linter with the given configuration.
func NewLinter(config LintConfig) *Linter {
	return &Linter{config: config}
}

// Run checks rules and, when voices is non-nil, the voice registry.
func (l *Linter) Run(rules *grammar.Store, voices *voice.Registry) Report {
	var findings []Finding
	add := func(sev Severity, check, rule, format string, args ...any) {
		findings = append(findings, Finding{Severity: sev, Check: check, Rule: rule, Message: fmt.Sprintf(format, args...)})
	}
	known := map[string]bool{}
	for _, c := range l.config.KnownCorpora {
		known[c] = true
	}

	// 1. Coverage: every function should have an _opening rule
	for _, fn := range l.config.Functions {
		name := fn + "_opening"
		if _, ok := rules.Get(name); !ok {
			add(SeverityWarning, "coverage", name, "no %q rule for narrative function %q", name, fn)
		}
	}

	for _, r := range rules.Rules() {
		// 2. Low variety
		if n := len(r.Alternatives); n < l.config.MinAlternatives {
			add(SeverityWarning, "low_variety", r.Name, "rule %q has only %d alternatives (minimum %d recommended)", r.Name, n, l.config.MinAlternatives)
		}

		allSelf := len(r.Alternatives) > 0
		for _, alt := range r.Alternatives {
			// 3. Dangling references
			self := false
			for _, ref := range grammar.RuleRefs(alt.Segments) {
				if ref == r.Name {
					self = true
				}
				if _, ok := rules.Get(ref); !ok {
					add(SeverityError, "missing_rule", r.Name, "rule %q references non-existent rule %q", r.Name, ref)
				}
			}
			if !self {
				allSelf = false
			}

			// 4. Unknown corpora
			if len(known) > 0 {
				for _, p := range grammar.PhraseRefs(alt.Segments) {
					if !known[p.Corpus] {
						add(SeverityWarning, "unknown_corpus", r.Name, "rule %q references corpus %q which is not loaded", r.Name, p.Corpus)
					}
				}
			}
		}

		// 5. No base case
		if allSelf {
			add(SeverityError, "no_base_case", r.Name, "rule %q has no non-recursive alternative", r.Name)
		}
	}

	if voices != nil {
		if err := voices.Check(); err != nil {
			add(SeverityError, "voice", "", "%v", err)
		}
		if len(known) > 0 {
			for _, v := range voices.Voices() {
				for _, b := range v.MarkovBindings {
					if !known[b.CorpusID] {
						add(SeverityWarning, "unknown_corpus", "", "voice %q binds corpus %q which is not loaded", v.Name, b.CorpusID)
					}
				}
			}
		}
	}

	return summarize(findings)
}

// #endregion linter

// #region helpers
func summarize(findings []Finding) Report {
	var errs []Finding
	for _, f := range findings {
		if f.Severity == SeverityError {
			errs = append(errs, f)
		}
	}
	reason := "all checks passed"
	switch {
	case len(errs) == 1:
		reason = fmt.Sprintf("lint failed: %s", errs[0].Message)
	case len(errs) > 1:
		reason = fmt.Sprintf("lint failed: %d errors: %s", len(errs), errs[0].Message)
	case len(findings) > 0:
		reason = fmt.Sprintf("%d warnings", len(findings))
	}
	return Report{Passed: len(errs) == 0, Findings: findings, Reason: reason}
}

// #endregion helpers
