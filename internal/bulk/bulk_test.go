package bulk

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/danielpatrickdp/narrative-engine/internal/grammar"
	"github.com/danielpatrickdp/narrative-engine/internal/orchestrator"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func factory(t *testing.T) Factory {
	t.Helper()
	rules := grammar.NewStore()
	for _, r := range []grammar.Rule{
		{Name: "discovery_opening", Alternatives: []grammar.Alternative{
			{Weight: 1, Template: "{subject.name} {verb} a {thing}."},
		}},
		{Name: "verb", Alternatives: []grammar.Alternative{
			{Weight: 1, Template: "found"}, {Weight: 1, Template: "uncovered"}, {Weight: 1, Template: "spotted"},
		}},
		{Name: "thing", Alternatives: []grammar.Alternative{
			{Weight: 1, Template: "rusted key"}, {Weight: 1, Template: "sealed letter"},
			{Weight: 1, Template: "hidden stair"}, {Weight: 1, Template: "cracked map"},
		}},
	} {
		if err := rules.Add(r); err != nil {
			t.Fatal(err)
		}
	}
	return func(seed uint64) (*orchestrator.Engine, error) {
		return orchestrator.New(rules, orchestrator.Config{Seed: seed}), nil
	}
}

func jobs(n int, fn schema.NarrativeFunction) []Job {
	world := schema.NewWorld(&schema.Entity{ID: 1, Name: "Tamsin"})
	out := make([]Job, n)
	for i := range out {
		out[i] = Job{
			Event: schema.Event{NarrativeFn: fn, Participants: []schema.EntityRef{{EntityID: 1, Role: "subject"}}},
			World: world,
		}
	}
	return out
}

func TestRun_MatchesSequential(t *testing.T) {
	f := factory(t)
	js := jobs(16, schema.FnDiscovery)

	got, err := Run(context.Background(), f, js, Options{BaseSeed: 100, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(js) {
		t.Fatalf("got %d results", len(got))
	}
	for i, r := range got {
		e, _ := f(100 + uint64(i))
		want, err := e.Narrate(js[i].Event, js[i].World)
		if err != nil {
			t.Fatal(err)
		}
		if r.Index != i || r.Seed != 100+uint64(i) || r.Text != want {
			t.Errorf("job %d: got %+v, want text %q", i, r, want)
		}
	}

	again, err := Run(context.Background(), f, js, Options{BaseSeed: 100, Workers: 7})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(got, again); diff != "" {
		t.Errorf("worker count changed results (-4 +7):\n%s", diff)
	}
}

func TestRun_FirstErrorAborts(t *testing.T) {
	js := append(jobs(3, schema.FnDiscovery), jobs(1, schema.FnBetrayal)...)
	_, err := Run(context.Background(), factory(t), js, Options{Workers: 2})
	if !errors.Is(err, grammar.ErrRuleNotFound) {
		t.Fatalf("expected rule not found, got %v", err)
	}
}

func TestRun_KeepGoing(t *testing.T) {
	js := append(jobs(2, schema.FnDiscovery), jobs(1, schema.FnBetrayal)...)
	got, err := Run(context.Background(), factory(t), js, Options{Workers: 2, KeepGoing: true})
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Err != nil || got[1].Err != nil || !errors.Is(got[2].Err, grammar.ErrRuleNotFound) {
		t.Errorf("results %+v", got)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, factory(t), jobs(5, schema.FnDiscovery), Options{Workers: 2}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
