package variety

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
	"github.com/danielpatrickdp/narrative-engine/internal/voice"
	"github.com/danielpatrickdp/narrative-engine/internal/window"
)

func resolved(t *testing.T, v voice.Voice) *voice.Resolved {
	t.Helper()
	g := voice.NewRegistry()
	if err := g.Register(v); err != nil {
		t.Fatal(err)
	}
	r, err := g.Resolve(v.ID)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// #region substitute

func TestSubstitute(t *testing.T) {
	v := resolved(t, voice.Voice{ID: 1, Name: "formal", Vocabulary: voice.Vocabulary{
		Avoided:   []string{"hello", "dark"},
		Preferred: []string{"greetings"},
	}})

	for seed := uint64(0); seed < 10; seed++ {
		got := Substitute("Hello, friend. It was DARK.", v, rng.New(seed))
		if !strings.HasPrefix(got, "Greetings, friend.") {
			t.Fatalf("preferred synonym should win: %q", got)
		}
		if strings.Contains(strings.ToLower(got), "dark") {
			t.Fatalf("avoided word kept: %q", got)
		}
		if !strings.Contains(got, "DIM") && !strings.Contains(got, "SHADOWED") && !strings.Contains(got, "GLOOMY") {
			t.Fatalf("upper case not preserved: %q", got)
		}
	}
}

func TestSubstitute_VoiceSynonymsFirst(t *testing.T) {
	v := resolved(t, voice.Voice{ID: 1, Name: "sailor",
		Vocabulary: voice.Vocabulary{Avoided: []string{"hello"}},
		Synonyms:   map[string][]string{"hello": {"ahoy"}},
	})
	if got := Substitute("hello there", v, rng.New(1)); got != "ahoy there" {
		t.Errorf("got %q", got)
	}
}

func TestSubstitute_NoCandidates(t *testing.T) {
	v := resolved(t, voice.Voice{ID: 1, Name: "odd", Vocabulary: voice.Vocabulary{Avoided: []string{"zyzzyva"}}})
	if got := Substitute("A zyzzyva crawled.", v, rng.New(1)); got != "A zyzzyva crawled." {
		t.Errorf("got %q", got)
	}
}

// #endregion

// #region tics

func TestInjectTics(t *testing.T) {
	always := resolved(t, voice.Voice{ID: 1, Name: "chatty", Quirks: []voice.Quirk{{Pattern: "mind you", Frequency: 1}}})
	never := resolved(t, voice.Voice{ID: 2, Name: "terse", Quirks: []voice.Quirk{{Pattern: "mind you", Frequency: 0}}})

	tests := []struct {
		in, want string
	}{
		{"Well, he left.", "Well, mind you, he left."},
		{"He left.", "He left, mind you."},
		{"He left", "He left, mind you"},
	}
	for _, tt := range tests {
		if got := InjectTics(tt.in, always, rng.New(1)); got != tt.want {
			t.Errorf("InjectTics(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := InjectTics(tt.in, never, rng.New(1)); got != tt.in {
			t.Errorf("zero-frequency tic inserted: %q", got)
		}
	}
}

func TestInjectTics_Frequency(t *testing.T) {
	v := resolved(t, voice.Voice{ID: 1, Name: "sometimes", Quirks: []voice.Quirk{{Pattern: "as it were", Frequency: 0.3}}})
	r := rng.New(11)
	hits := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if strings.Contains(InjectTics("The hall was empty.", v, r), "as it were") {
			hits++
		}
	}
	if frac := float64(hits) / n; frac < 0.25 || frac > 0.35 {
		t.Errorf("tic rate %.3f far from 0.3", frac)
	}
}

// #endregion

// #region remediate

func TestRemediate_Opening(t *testing.T) {
	v := voice.Empty()
	issues := []window.Issue{{Kind: window.RepeatedOpening}}

	got := Remediate("The door creaked open.", issues, v, rng.New(4))
	if strings.HasPrefix(got, "The door creaked") {
		t.Errorf("opening unchanged: %q", got)
	}
	if !strings.HasSuffix(got, ", the door creaked open.") {
		t.Errorf("expected connective opener, got %q", got)
	}

	got = Remediate("Under the old bridge, the river ran black. Nobody came.", issues, v, rng.New(4))
	if got != "The river ran black, under the old bridge. Nobody came." {
		t.Errorf("clause swap: got %q", got)
	}

	got = Remediate("Margaret stood up.", issues, v, rng.New(4))
	if !strings.HasSuffix(got, ", Margaret stood up.") {
		t.Errorf("names keep their case: %q", got)
	}
}

func TestRemediate_OverusedWord(t *testing.T) {
	issues := []window.Issue{
		{Kind: window.OverusedWord, Word: "shadows", Count: 6},
		{Kind: window.OverusedWord, Word: "quiet", Count: 4},
	}
	got := Remediate("Shadows moved; the shadows were quiet.", issues, voice.Empty(), rng.New(2))
	if strings.Contains(strings.ToLower(got), "shadows") {
		t.Errorf("most overused word kept: %q", got)
	}
	if !strings.Contains(got, "quiet") {
		t.Errorf("only the most overused word is replaced: %q", got)
	}
}

func TestRemediate_Monotony(t *testing.T) {
	issues := []window.Issue{{Kind: window.StructuralMonotony}}

	got := Remediate("The wind howled, and the shutters banged.", issues, voice.Empty(), rng.New(1))
	if got != "The wind howled. And the shutters banged." {
		t.Errorf("split: got %q", got)
	}

	got = Remediate("He ran. She hid. They waited.", issues, voice.Empty(), rng.New(1))
	if got != "He ran, and she hid. They waited." {
		t.Errorf("merge: got %q", got)
	}

	long := "The procession wound slowly through the narrow streets of the old town. Bells rang from every tower above the square."
	if got := Remediate(long, issues, voice.Empty(), rng.New(1)); got != long {
		t.Errorf("long sentences should be left alone: %q", got)
	}
}

// #endregion

// #region apply

func TestApply_Deterministic(t *testing.T) {
	v := resolved(t, voice.Voice{ID: 1, Name: "v",
		Vocabulary: voice.Vocabulary{Avoided: []string{"said"}},
		Quirks:     []voice.Quirk{{Pattern: "of course", Frequency: 0.5}},
	})
	w := window.New(10)
	w.Record("The guard said nothing at all.")

	text := "The guard said nothing, then left."
	for seed := uint64(0); seed < 20; seed++ {
		a := Apply(text, v, w, rng.New(seed))
		b := Apply(text, v, w, rng.New(seed))
		if a != b {
			t.Fatalf("seed %d: %q != %q", seed, a, b)
		}
		if strings.Contains(a, " said ") {
			t.Fatalf("seed %d: avoided word survived: %q", seed, a)
		}
	}
}

func TestApply_NilWindowSkipsRemediation(t *testing.T) {
	got := Apply("The door creaked open.", nil, nil, rng.New(1))
	if got != "The door creaked open." {
		t.Errorf("got %q", got)
	}
}

// #endregion
