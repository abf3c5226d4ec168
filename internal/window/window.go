// Package window keeps a bounded history of generated passages and flags
// candidates that would repeat it.
package window

import (
	"math"
	"sort"
	"strings"
)

// #region constants

const (
	DefaultCapacity  = 10
	overuseThreshold = 3
	monotonyStdDev   = 1.0
	monotonyMinCount = 5
)

// #endregion

// #region types

// IssueKind classifies a repetition problem.
type IssueKind string

const (
	RepeatedOpening    IssueKind = "repeated_opening"
	OverusedWord       IssueKind = "overused_word"
	StructuralMonotony IssueKind = "structural_monotony"
)

// Issue is one detected repetition. Word and Count are set for OverusedWord,
// StdDev for StructuralMonotony.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Word   string    `json:"word,omitempty"`
	Count  int       `json:"count,omitempty"`
	StdDev float64   `json:"std_dev,omitempty"`
}

// Features is what the window remembers about one passage.
type Features struct {
	Opening         string         `json:"opening"`
	Words           map[string]int `json:"words"`
	SentenceLengths []int          `json:"sentence_lengths"`
}

// #endregion

// #region extract

// Extract computes the opening trigram, significant-word histogram and
// per-sentence word counts of text.
func Extract(text string) Features {
	all := words(text)
	n := len(all)
	if n > 3 {
		n = 3
	}
	f := Features{
		Opening: strings.Join(all[:n], " "),
		Words:   map[string]int{},
	}
	for _, w := range all {
		if IsSignificant(w) {
			f.Words[w]++
		}
	}
	for _, s := range Sentences(text) {
		if c := len(words(s)); c > 0 {
			f.SentenceLengths = append(f.SentenceLengths, c)
		}
	}
	return f
}

// Sentences splits text after each . ! or ? and trims the pieces. Trailing
// text without an ender is its own sentence.
func Sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			end := i + 1
			// keep closing quotes with their sentence
			for end < len(text) && (text[end] == '"' || text[end] == '\'') {
				end++
			}
			if s := strings.TrimSpace(text[start:end]); s != "" {
				out = append(out, s)
			}
			start = end
			i = end - 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// #endregion

// #region window

// Window is a fixed-capacity ring of passage features. It is owned by one
// engine and is not safe for concurrent use.
type Window struct {
	capacity int
	records  []Features
}

// New creates a window; capacity <= 0 uses DefaultCapacity.
func New(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{capacity: capacity}
}

// Len returns the number of stored records.
func (w *Window) Len() int { return len(w.records) }

// Capacity returns the maximum number of records.
func (w *Window) Capacity() int { return w.capacity }

// Record stores the features of text, evicting the oldest at capacity.
func (w *Window) Record(text string) {
	w.records = append(w.records, Extract(text))
	if len(w.records) > w.capacity {
		w.records = w.records[len(w.records)-w.capacity:]
	}
}

// CheckRepetition compares a candidate against the stored history.
func (w *Window) CheckRepetition(text string) []Issue {
	cand := Extract(text)
	var issues []Issue

	if cand.Opening != "" {
		for _, r := range w.records {
			if r.Opening == cand.Opening {
				issues = append(issues, Issue{Kind: RepeatedOpening})
				break
			}
		}
	}

	var overused []Issue
	for word, c := range cand.Words {
		total := c
		for _, r := range w.records {
			total += r.Words[word]
		}
		if total > overuseThreshold {
			overused = append(overused, Issue{Kind: OverusedWord, Word: word, Count: total})
		}
	}
	sort.Slice(overused, func(i, j int) bool {
		if overused[i].Count != overused[j].Count {
			return overused[i].Count > overused[j].Count
		}
		return overused[i].Word < overused[j].Word
	})
	issues = append(issues, overused...)

	if len(w.records) > 0 {
		var lengths []int
		for _, r := range w.records {
			lengths = append(lengths, r.SentenceLengths...)
		}
		lengths = append(lengths, cand.SentenceLengths...)
		if len(lengths) >= monotonyMinCount {
			if sd := stdDev(lengths); sd < monotonyStdDev {
				issues = append(issues, Issue{Kind: StructuralMonotony, StdDev: sd})
			}
		}
	}
	return issues
}

func stdDev(xs []int) float64 {
	mean := 0.0
	for _, x := range xs {
		mean += float64(x)
	}
	mean /= float64(len(xs))
	v := 0.0
	for _, x := range xs {
		d := float64(x) - mean
		v += d * d
	}
	return math.Sqrt(v / float64(len(xs)))
}

// #endregion

// #region snapshot

// Snapshot is the persisted form of a window.
type Snapshot struct {
	Capacity int        `json:"capacity"`
	Records  []Features `json:"records"`
}

// Snapshot copies the window's state.
func (w *Window) Snapshot() Snapshot {
	recs := make([]Features, len(w.records))
	copy(recs, w.records)
	return Snapshot{Capacity: w.capacity, Records: recs}
}

// Restore rebuilds a window from a snapshot.
func Restore(s Snapshot) *Window {
	w := New(s.Capacity)
	recs := s.Records
	if len(recs) > w.capacity {
		recs = recs[len(recs)-w.capacity:]
	}
	w.records = append([]Features(nil), recs...)
	return w
}

// #endregion
