package orchestrator

import (
	"errors"
	"testing"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
	"github.com/danielpatrickdp/narrative-engine/internal/schema"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

func lossEvent() schema.Event {
	return schema.Event{
		NarrativeFn:  schema.FnLoss,
		Participants: []schema.EntityRef{{EntityID: 1, Role: "subject"}},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		issues  []window.Issue
		quality float32
		failure FailureType
		retry   bool
	}{
		{"clean", nil, 1.0, FailureNone, false},
		{"opening", []window.Issue{{Kind: window.RepeatedOpening}}, 0.6, FailureRepeatedOpening, true},
		{"word", []window.Issue{{Kind: window.OverusedWord, Word: "shadow", Count: 5}}, 0.85, FailureOverusedWord, true},
		{"everything", []window.Issue{
			{Kind: window.RepeatedOpening},
			{Kind: window.OverusedWord},
			{Kind: window.OverusedWord},
			{Kind: window.StructuralMonotony},
		}, 0.0, FailureRepeatedOpening, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.issues)
			if d := got.Quality - tt.quality; d > 0.001 || d < -0.001 {
				t.Errorf("quality %v, want %v", got.Quality, tt.quality)
			}
			if got.FailureType != tt.failure || got.ShouldRetry != tt.retry {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestRetryEngine(t *testing.T) {
	r := NewRetryEngine(100)
	bad := Evaluate([]window.Issue{{Kind: window.StructuralMonotony}})

	for retries := 0; retries < maxRetries; retries++ {
		if !r.ShouldRetry(bad, retries) {
			t.Errorf("retry %d refused", retries)
		}
	}
	if r.ShouldRetry(bad, maxRetries) {
		t.Error("budget exceeded")
	}
	if r.ShouldRetry(Evaluate(nil), 0) {
		t.Error("clean text retried")
	}

	seed, src := r.Reseed(4, 2)
	if seed != rng.Derive(100, 4, 2) || src.Seed() != seed {
		t.Errorf("reseed %d / %d", seed, src.Seed())
	}
	other, _ := r.Reseed(4, 3)
	if other == seed {
		t.Error("retries share a seed")
	}
}

func TestGenerationFailedError(t *testing.T) {
	var err error = &GenerationFailedError{Retries: 3}
	if !errors.Is(err, ErrGenerationFailed) {
		t.Error("should match sentinel")
	}
	if err.Error() != "generation failed after 3 retries" {
		t.Errorf("message %q", err.Error())
	}
}

func TestVoiceSelector(t *testing.T) {
	reg := voice.NewRegistry()
	for _, v := range []voice.Voice{{ID: 1, Name: "narrator"}, {ID: 2, Name: "bard"}} {
		if err := reg.Register(v); err != nil {
			t.Fatal(err)
		}
	}
	bard, narrator, ghost := schema.VoiceID(2), schema.VoiceID(1), schema.VoiceID(9)

	withVoice := Bundle{Bindings: map[string]*schema.Entity{"subject": {ID: 1, VoiceID: &bard}}}
	noVoice := Bundle{Bindings: map[string]*schema.Entity{"subject": {ID: 1}}}

	s := NewVoiceSelector(reg, &narrator)
	if v, err := s.Select(withVoice); err != nil || v.Name != "bard" {
		t.Errorf("subject voice: %+v %v", v, err)
	}
	if v, err := s.Select(noVoice); err != nil || v.Name != "narrator" {
		t.Errorf("fallback voice: %+v %v", v, err)
	}

	if v, err := NewVoiceSelector(reg, nil).Select(noVoice); err != nil || v.Name != "" {
		t.Errorf("empty voice: %+v %v", v, err)
	}
	if v, err := NewVoiceSelector(nil, &bard).Select(withVoice); err != nil || v.Name != "" {
		t.Errorf("no registry: %+v %v", v, err)
	}

	_, err := NewVoiceSelector(reg, &ghost).Select(noVoice)
	if !errors.Is(err, voice.ErrVoiceNotFound) {
		t.Errorf("unknown voice: %v", err)
	}
}
