package schema

import (
	"strings"
	"unicode"
)

// #region mood

// Mood is the emotional tone of an event.
type Mood string

const (
	MoodNeutral  Mood = "neutral"
	MoodTense    Mood = "tense"
	MoodWarm     Mood = "warm"
	MoodDread    Mood = "dread"
	MoodEuphoric Mood = "euphoric"
	MoodSomber   Mood = "somber"
	MoodChaotic  Mood = "chaotic"
	MoodIntimate Mood = "intimate"
)

// #endregion

// #region stakes

// Stakes is the level of consequence at play.
type Stakes string

const (
	StakesTrivial  Stakes = "trivial"
	StakesLow      Stakes = "low"
	StakesMedium   Stakes = "medium"
	StakesHigh     Stakes = "high"
	StakesCritical Stakes = "critical"
)

// #endregion

// #region outcome

// Outcome is the result of an event, when it has one.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomePartial   Outcome = "partial"
	OutcomeAmbiguous Outcome = "ambiguous"
)

// #endregion

// #region narrative-function

// NarrativeFunction names what is happening narratively, independent of genre.
// Any string is accepted; the constants are the core taxonomy.
type NarrativeFunction string

const (
	FnRevelation    NarrativeFunction = "revelation"
	FnEscalation    NarrativeFunction = "escalation"
	FnConfrontation NarrativeFunction = "confrontation"
	FnBetrayal      NarrativeFunction = "betrayal"
	FnAlliance      NarrativeFunction = "alliance"
	FnDiscovery     NarrativeFunction = "discovery"
	FnLoss          NarrativeFunction = "loss"
	FnComicRelief   NarrativeFunction = "comic_relief"
	FnForeshadowing NarrativeFunction = "foreshadowing"
	FnStatusChange  NarrativeFunction = "status_change"
)

// CoreFunctions lists the built-in taxonomy in a stable order.
var CoreFunctions = []NarrativeFunction{
	FnRevelation, FnEscalation, FnConfrontation, FnBetrayal, FnAlliance,
	FnDiscovery, FnLoss, FnComicRelief, FnForeshadowing, FnStatusChange,
}

// RuleName converts the function name to the snake_case stem used for grammar
// rule lookup: "Confrontation" → "confrontation", "ComicRelief" → "comic_relief".
func (f NarrativeFunction) RuleName() string {
	var b strings.Builder
	prevLower := false
	for _, r := range strings.TrimSpace(string(f)) {
		switch {
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// #endregion

// #region event

// EntityRef points at an entity and names the role it plays in an event.
type EntityRef struct {
	EntityID EntityID `json:"entity_id"`
	Role     string   `json:"role"`
}

// Event is a structured record of something that happened in the simulation.
// Events are the sole input to narration.
type Event struct {
	Type         string            `json:"event_type"`
	Participants []EntityRef       `json:"participants"`
	Location     *EntityRef        `json:"location,omitempty"`
	Mood         Mood              `json:"mood"`
	Stakes       Stakes            `json:"stakes"`
	Outcome      *Outcome          `json:"outcome,omitempty"`
	NarrativeFn  NarrativeFunction `json:"narrative_fn"`
	Metadata     map[string]Value  `json:"metadata,omitempty"`
}

// #endregion
