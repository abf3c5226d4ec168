package markov

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/narrative-engine/internal/rng"
)

func loadCorpus(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/corpus.txt")
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func mustTrain(t *testing.T, text string, order int) *Model {
	t.Helper()
	m, err := Train(text, order)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// #region tokenize

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Hello, world.", []string{"Hello", ",", "world", "."}},
		{`She said, "What?" He replied.`, []string{"She", "said", ",", `"`, "What", "?", `"`, "He", "replied", "."}},
		{"don't", []string{"don", "'", "t"}},
		{"   ", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, Tokenize(tt.in)); diff != "" {
			t.Errorf("Tokenize(%q) (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		tokens []string
		want   string
	}{
		{[]string{"Hello", ",", "world", ".", BoundaryToken}, "Hello, world."},
		{[]string{"She", "said", ",", `"`, "What", "?", `"`, "He", "left", "."}, `She said, "What?" He left.`},
		{[]string{"don", "'", "t", "go"}, "don't go"},
	}
	for _, tt := range tests {
		if got := Join(tt.tokens); got != tt.want {
			t.Errorf("Join(%v) = %q, want %q", tt.tokens, got, tt.want)
		}
	}
}

// #endregion

// #region train

func TestTrain_InvalidOrder(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		if _, err := Train("a b c.", n); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("order %d: expected ErrInvalidOrder, got %v", n, err)
		}
	}
}

func TestTrain_Tables(t *testing.T) {
	m := mustTrain(t, "[greeting]\nHello there. Hello friend.\n", 2)

	start := m.Transitions[StartToken]
	if len(start) != 1 || start[0] != (Transition{Token: "Hello", Count: 2}) {
		t.Errorf("start transitions: %+v", start)
	}
	hello := m.Transitions["Hello"]
	want := []Transition{{Token: "there", Count: 1}, {Token: "friend", Count: 1}}
	if diff := cmp.Diff(want, hello); diff != "" {
		t.Errorf("first-seen order not kept (-want +got):\n%s", diff)
	}
	if got := m.Transitions["."]; len(got) != 1 || got[0].Token != BoundaryToken || got[0].Count != 2 {
		t.Errorf("boundary after period: %+v", got)
	}
	if diff := cmp.Diff(m.Transitions, m.Tagged["greeting"]); diff != "" {
		t.Errorf("tag table should mirror fully tagged corpus:\n%s", diff)
	}
	if diff := cmp.Diff([]string{"greeting"}, m.Tags()); diff != "" {
		t.Error(diff)
	}
}

func TestTrain_TrailingTokensFormSentence(t *testing.T) {
	m := mustTrain(t, "no ender here", 3)
	got := m.Transitions["ender here"]
	if len(got) != 1 || got[0].Token != BoundaryToken {
		t.Errorf("expected boundary after trailing tokens, got %+v", got)
	}
}

func TestTrain_Deterministic(t *testing.T) {
	corpus := loadCorpus(t)
	a := mustTrain(t, corpus, 3)
	b := mustTrain(t, corpus, 3)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("training not deterministic:\n%s", diff)
	}
}

// #endregion

// #region generate

func TestGenerate_Deterministic(t *testing.T) {
	m := mustTrain(t, loadCorpus(t), 2)
	for seed := uint64(0); seed < 20; seed++ {
		a, errA := m.Generate(rng.New(seed), "", 3, 20)
		b, errB := m.Generate(rng.New(seed), "", 3, 20)
		if a != b || (errA == nil) != (errB == nil) {
			t.Fatalf("seed %d: %q/%v vs %q/%v", seed, a, errA, b, errB)
		}
	}
}

func TestGenerate_BoundaryOnlyTerminal(t *testing.T) {
	corpus := loadCorpus(t)
	for _, order := range []int{2, 3, 4} {
		m := mustTrain(t, corpus, order)
		for seed := uint64(0); seed < 100; seed++ {
			tokens, err := m.GenerateTokens(rng.New(seed), "", 3, 20)
			if errors.Is(err, ErrInsufficientCorpus) {
				continue
			}
			if err != nil {
				t.Fatal(err)
			}
			if tokens[len(tokens)-1] != BoundaryToken {
				t.Fatalf("order %d seed %d: last token %q", order, seed, tokens[len(tokens)-1])
			}
			for i, tok := range tokens[:len(tokens)-1] {
				if tok == BoundaryToken || tok == StartToken {
					t.Fatalf("order %d seed %d: reserved token %q at %d of %d", order, seed, tok, i, len(tokens))
				}
			}
		}
	}
}

func TestGenerate_WordBounds(t *testing.T) {
	m := mustTrain(t, loadCorpus(t), 2)
	for seed := uint64(0); seed < 100; seed++ {
		tokens, err := m.GenerateTokens(rng.New(seed), "", 4, 12)
		if errors.Is(err, ErrInsufficientCorpus) {
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		words := 0
		for _, tok := range tokens {
			if tok != BoundaryToken && !isPunct(tok) {
				words++
			}
		}
		if words > 12 {
			t.Errorf("seed %d: %d words exceeds max", seed, words)
		}
	}
}

func TestGenerate_TagFilteredDivergence(t *testing.T) {
	m := mustTrain(t, loadCorpus(t), 2)
	tavernOnly := []string{"ale", "barkeep", "tavern", "fiddler", "cider", "gossip", "merchant", "hearth"}
	battleOnly := []string{"steel", "captain", "cavalry", "arrows", "soldier", "cannons", "banner", "shield"}

	collect := func(tag string) map[string]int {
		counts := map[string]int{}
		for seed := uint64(0); seed < 60; seed++ {
			text, err := m.Generate(rng.New(seed), tag, 3, 25)
			if err != nil {
				continue
			}
			for _, w := range Tokenize(strings.ToLower(text)) {
				counts[w]++
			}
		}
		return counts
	}
	tavern := collect("tavern")
	battle := collect("battle")

	for _, w := range battleOnly {
		if tavern[w] > 0 {
			t.Errorf("tavern output contains battle word %q", w)
		}
	}
	for _, w := range tavernOnly {
		if battle[w] > 0 {
			t.Errorf("battle output contains tavern word %q", w)
		}
	}
	hits := func(counts map[string]int, words []string) int {
		n := 0
		for _, w := range words {
			n += counts[w]
		}
		return n
	}
	if hits(tavern, tavernOnly) == 0 || hits(battle, battleOnly) == 0 {
		t.Errorf("expected tag vocabulary in output: tavern=%d battle=%d",
			hits(tavern, tavernOnly), hits(battle, battleOnly))
	}
}

func TestGenerate_UnknownTagFallsBack(t *testing.T) {
	m := mustTrain(t, loadCorpus(t), 2)
	for seed := uint64(0); seed < 5; seed++ {
		a, errA := m.Generate(rng.New(seed), "no-such-tag", 3, 20)
		b, errB := m.Generate(rng.New(seed), "", 3, 20)
		if a != b || (errA == nil) != (errB == nil) {
			t.Errorf("seed %d: unknown tag should behave as unfiltered: %q vs %q", seed, a, b)
		}
	}
}

func TestGenerate_InsufficientCorpus(t *testing.T) {
	m := mustTrain(t, "alpha beta gamma delta epsilon", 2)
	for seed := uint64(0); seed < 10; seed++ {
		if _, err := m.Generate(rng.New(seed), "", 1, 3); !errors.Is(err, ErrInsufficientCorpus) {
			t.Fatalf("seed %d: expected ErrInsufficientCorpus, got %v", seed, err)
		}
	}
}

func TestGenerate_SentenceAtCeiling(t *testing.T) {
	m := mustTrain(t, "Alpha beta gamma delta epsilon.", 2)
	for seed := uint64(0); seed < 10; seed++ {
		text, err := m.Generate(rng.New(seed), "", 5, 5)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		if text != "Alpha beta gamma delta epsilon." {
			t.Errorf("seed %d: got %q", seed, text)
		}
	}
}

func TestGenerate_TruncatesAtLastSentence(t *testing.T) {
	m := mustTrain(t, "Run. Alpha beta gamma delta epsilon zeta.", 2)
	truncated := 0
	for seed := uint64(0); seed < 60; seed++ {
		text, err := m.Generate(rng.New(seed), "", 3, 5)
		if errors.Is(err, ErrInsufficientCorpus) {
			continue
		}
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(text, "Alpha") {
			t.Fatalf("seed %d: unfinished sentence kept: %q", seed, text)
		}
		if strings.Count(text, "Run.") < 3 {
			truncated++
		}
	}
	if truncated == 0 {
		t.Error("expected at least one truncated fragment")
	}
}

// #endregion

// #region blend

func TestBlend(t *testing.T) {
	tavern := mustTrain(t, "The ale was warm. The barkeep smiled. The fiddler played on.", 2)
	battle := mustTrain(t, "The steel rang out. The captain fell. The cavalry charged again.", 2)

	only := []Weighted{{Model: tavern, Weight: 1}, {Model: battle, Weight: 0}}
	for seed := uint64(0); seed < 20; seed++ {
		text, err := Blend(only, rng.New(seed), "", 3, 10)
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(text, "steel") || strings.Contains(text, "captain") || strings.Contains(text, "cavalry") {
			t.Fatalf("zero-weight model leaked into output: %q", text)
		}
	}

	both := []Weighted{{Model: tavern, Weight: 1}, {Model: battle, Weight: 1}}
	sawTavern, sawBattle := false, false
	for seed := uint64(0); seed < 60; seed++ {
		text, err := Blend(both, rng.New(seed), "", 3, 10)
		if err != nil {
			t.Fatal(err)
		}
		sawTavern = sawTavern || strings.Contains(text, "ale") || strings.Contains(text, "barkeep") || strings.Contains(text, "fiddler")
		sawBattle = sawBattle || strings.Contains(text, "steel") || strings.Contains(text, "captain") || strings.Contains(text, "cavalry")
		again, _ := Blend(both, rng.New(seed), "", 3, 10)
		if again != text {
			t.Fatalf("seed %d: blend not deterministic", seed)
		}
	}
	if !sawTavern || !sawBattle {
		t.Errorf("expected both corpora represented: tavern=%v battle=%v", sawTavern, sawBattle)
	}
}

func TestBlend_Errors(t *testing.T) {
	if _, err := Blend(nil, rng.New(1), "", 3, 10); !errors.Is(err, ErrNoModels) {
		t.Errorf("expected ErrNoModels, got %v", err)
	}
	a := mustTrain(t, "a b c.", 2)
	b := mustTrain(t, "a b c.", 3)
	if _, err := Blend([]Weighted{{a, 1}, {b, 1}}, rng.New(1), "", 1, 5); !errors.Is(err, ErrMixedOrder) {
		t.Errorf("expected ErrMixedOrder, got %v", err)
	}
}

// #endregion

// #region persistence

func TestModel_RoundTrip(t *testing.T) {
	m := mustTrain(t, loadCorpus(t), 3)
	path := filepath.Join(t.TempDir(), "model.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(m, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	a, _ := m.Generate(rng.New(5), "tavern", 3, 20)
	b, _ := back.Generate(rng.New(5), "tavern", 3, 20)
	if a != b {
		t.Errorf("reloaded model generates differently: %q vs %q", a, b)
	}
}

// #endregion

// #region library

func TestLibrary_Source(t *testing.T) {
	lib := NewLibrary()
	path := filepath.Join("testdata", "corpus.txt")
	if _, err := lib.TrainFile("world", path, 2); err != nil {
		t.Fatal(err)
	}
	lib.Add("other", mustTrain(t, "The moon rose slowly. The moon set slowly.", 2))
	lib.Add("deep", mustTrain(t, "The moon rose slowly.", 3))

	src := lib.Source(nil)
	if _, err := src.Phrase("missing", "", 3, 10, rng.New(1)); !errors.Is(err, ErrCorpusNotFound) {
		t.Errorf("expected ErrCorpusNotFound, got %v", err)
	}
	text, err := src.Phrase("world", "tavern", 3, 20, rng.New(1))
	if err != nil || text == "" {
		t.Fatalf("phrase: %q, %v", text, err)
	}

	blended := lib.Source([]Binding{
		{CorpusID: "other", Weight: 5},
		{CorpusID: "deep", Weight: 5},
	})
	sawMoon := false
	for seed := uint64(0); seed < 40; seed++ {
		text, err := blended.Phrase("world", "", 3, 20, rng.New(seed))
		if err != nil {
			continue
		}
		if strings.Contains(text, "moon") {
			sawMoon = true
		}
	}
	if !sawMoon {
		t.Error("bound corpus never contributed to blended phrases")
	}
	if diff := cmp.Diff([]string{"deep", "other", "world"}, lib.IDs()); diff != "" {
		t.Error(diff)
	}
}

// #endregion
