package eval

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/markov"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
)

// #region helpers
func store(t *testing.T, rules map[string][]string) *grammar.Store {
	t.Helper()
	s := grammar.NewStore()
	for name, templates := range rules {
		r := grammar.Rule{Name: name}
		for _, tmpl := range templates {
			r.Alternatives = append(r.Alternatives, grammar.Alternative{Weight: 1, Template: tmpl})
		}
		if err := s.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

func checks(r Report) map[string]int {
	out := map[string]int{}
	for _, f := range r.Findings {
		out[f.Check]++
	}
	return out
}

// #endregion helpers

// #region run-tests
func TestLint_Clean(t *testing.T) {
	rules := map[string][]string{}
	for _, fn := range schema.CoreFunctions {
		rules[fn.RuleName()+"_opening"] = []string{"One {detail}.", "Two {detail}.", "Three."}
	}
	rules["detail"] = []string{"a", "b", "c"}

	r := NewLinter(DefaultLintConfig()).Run(store(t, rules), nil)
	if !r.Passed || len(r.Findings) != 0 {
		t.Errorf("expected clean report, got %+v", r)
	}
	if r.Reason != "all checks passed" {
		t.Errorf("reason %q", r.Reason)
	}
}

func TestLint_Problems(t *testing.T) {
	s := store(t, map[string][]string{
		"loss_opening": {"{grief}", "{missing}.", "The end."},
		"grief":        {"{grief} and {grief}"},
		"tavern_talk":  {"{markov:tavern:gossip}", "{markov:docks}", "Quiet."},
	})
	cfg := DefaultLintConfig()
	cfg.KnownCorpora = []string{"tavern"}

	r := NewLinter(cfg).Run(s, nil)
	if r.Passed {
		t.Fatal("expected failure")
	}
	got := checks(r)
	if got["missing_rule"] != 1 || got["no_base_case"] != 1 || got["unknown_corpus"] != 1 {
		t.Errorf("checks %v", got)
	}
	if got["coverage"] != len(schema.CoreFunctions)-1 {
		t.Errorf("coverage warnings %d", got["coverage"])
	}
	if got["low_variety"] != 1 {
		t.Errorf("low variety warnings %d", got["low_variety"])
	}
	if len(r.Errors()) != 2 || !strings.HasPrefix(r.Reason, "lint failed: 2 errors") {
		t.Errorf("errors %+v, reason %q", r.Errors(), r.Reason)
	}
}

func TestLint_WarningsOnly(t *testing.T) {
	r := NewLinter(DefaultLintConfig()).Run(store(t, map[string][]string{"greet": {"Hi."}}), nil)
	if !r.Passed {
		t.Errorf("warnings must not fail: %+v", r.Errors())
	}
	if len(r.Warnings()) != len(schema.CoreFunctions)+1 {
		t.Errorf("warnings %d", len(r.Warnings()))
	}
}

func TestLint_Voices(t *testing.T) {
	reg := voice.NewRegistry()
	parent := schema.VoiceID(2)
	for _, v := range []voice.Voice{
		{ID: 1, Name: "sailor", Parent: &parent, MarkovBindings: []markov.Binding{{CorpusID: "sea", Weight: 1}}},
	} {
		if err := reg.Register(v); err != nil {
			t.Fatal(err)
		}
	}
	cfg := LintConfig{MinAlternatives: 1, KnownCorpora: []string{"tavern"}}
	r := NewLinter(cfg).Run(store(t, map[string][]string{"greet": {"Hi."}}), reg)
	got := checks(r)
	if r.Passed || got["voice"] != 1 || got["unknown_corpus"] != 1 {
		t.Errorf("report %+v", r)
	}
}

// #endregion run-tests
