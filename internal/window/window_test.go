package window

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func kinds(issues []Issue) map[IssueKind]int {
	out := map[IssueKind]int{}
	for _, is := range issues {
		out[is.Kind]++
	}
	return out
}

func TestExtract(t *testing.T) {
	f := Extract(`The storm broke over the harbor. "Hold fast!" shouted the captain, whose voice cracked.`)
	if f.Opening != "the storm broke" {
		t.Errorf("opening %q", f.Opening)
	}
	want := map[string]int{"storm": 1, "broke": 1, "harbor": 1, "shouted": 1, "captain": 1, "whose": 1, "voice": 1, "cracked": 1}
	if diff := cmp.Diff(want, f.Words); diff != "" {
		t.Errorf("words (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{6, 2, 6}, f.SentenceLengths); diff != "" {
		t.Errorf("sentence lengths (-want +got):\n%s", diff)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences(`He left. "Why?" she asked. And then`)
	want := []string{"He left.", `"Why?"`, "she asked.", "And then"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestCheckRepetition_EmptyWindow(t *testing.T) {
	w := New(0)
	if w.Capacity() != DefaultCapacity {
		t.Errorf("capacity %d", w.Capacity())
	}
	if issues := w.CheckRepetition("One two six. One two six. One two six. One two six. One two six."); len(issues) != 0 {
		t.Errorf("empty window should flag nothing for a fresh passage, got %+v", issues)
	}
}

func TestCheckRepetition_RepeatedOpening(t *testing.T) {
	w := New(10)
	w.Record("The door creaked open slowly.")
	issues := w.CheckRepetition("The door creaked again in the wind.")
	if kinds(issues)[RepeatedOpening] != 1 {
		t.Errorf("expected repeated opening, got %+v", issues)
	}
	if kinds(w.CheckRepetition("A door creaked somewhere."))[RepeatedOpening] != 0 {
		t.Error("different opening flagged")
	}
}

func TestCheckRepetition_OverusedWord(t *testing.T) {
	w := New(10)
	w.Record("Shadows gathered near the wall.")
	w.Record("More shadows crept along the floor.")
	issues := w.CheckRepetition("Shadows everywhere, shadows on the ceiling.")
	found := false
	for _, is := range issues {
		if is.Kind == OverusedWord && is.Word == "shadows" {
			found = true
			if is.Count != 4 {
				t.Errorf("count: got %d, want 4", is.Count)
			}
		}
	}
	if !found {
		t.Errorf("expected overused 'shadows', got %+v", issues)
	}

	// three occurrences is still within the threshold
	for _, is := range w.CheckRepetition("The shadows lengthened.") {
		if is.Kind == OverusedWord {
			t.Errorf("three occurrences reported as overuse: %+v", is)
		}
	}

	// words absent from the candidate are never reported
	for _, is := range w.CheckRepetition("Silence fell.") {
		if is.Kind == OverusedWord {
			t.Errorf("unexpected overuse report %+v", is)
		}
	}
}

func TestCheckRepetition_Monotony(t *testing.T) {
	w := New(10)
	w.Record("Birds sang loudly today. Rivers ran swiftly there.")
	w.Record("Lamps burned softly inside.")
	issues := w.CheckRepetition("Wolves howled quite far. Snow fell very hard.")
	if kinds(issues)[StructuralMonotony] != 1 {
		t.Errorf("expected monotony with all four-word sentences, got %+v", issues)
	}

	varied := w.CheckRepetition("Run. The long road wound beneath the ancient hills toward the sea.")
	if kinds(varied)[StructuralMonotony] != 0 {
		t.Errorf("varied lengths flagged: %+v", varied)
	}
}

func TestRecord_EvictsOldest(t *testing.T) {
	w := New(3)
	for _, s := range []string{"Alpha one two.", "Bravo one two.", "Charlie one two.", "Delta one two."} {
		w.Record(s)
	}
	if w.Len() != 3 {
		t.Fatalf("len %d", w.Len())
	}
	if kinds(w.CheckRepetition("Alpha one two."))[RepeatedOpening] != 0 {
		t.Error("oldest record should have been evicted")
	}
	if kinds(w.CheckRepetition("Delta one two."))[RepeatedOpening] != 1 {
		t.Error("newest record missing")
	}
}

func TestSnapshot_RoundTrip(t *testing.T) {
	w := New(4)
	w.Record("The wind rose over the marsh.")
	w.Record("Lanterns flickered in the windows.")

	data, err := json.Marshal(w.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatal(err)
	}
	back := Restore(snap)
	if diff := cmp.Diff(w.Snapshot(), back.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
	cand := "The wind rose again."
	if diff := cmp.Diff(w.CheckRepetition(cand), back.CheckRepetition(cand)); diff != "" {
		t.Errorf("restored window behaves differently:\n%s", diff)
	}
}
