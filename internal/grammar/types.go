package grammar

// #region segments

// Segment is one parsed unit of a template. The set of implementations is
// closed: Literal, RuleRef, PhraseRef, EntityField and PronounRef.
type Segment interface {
	segment()
}

// Literal is text emitted verbatim.
type Literal struct {
	Text string
}

// RuleRef expands another rule by name.
type RuleRef struct {
	Name string
}

// PhraseRef asks the phrase model for a fragment from Corpus, optionally
// filtered by Tag.
type PhraseRef struct {
	Corpus string
	Tag    string
}

// EntityField reads Field from the entity bound to Role.
type EntityField struct {
	Role  string
	Field string
}

// PronounCase selects a pronoun form.
type PronounCase string

const (
	CaseSubject    PronounCase = "subject"
	CaseObject     PronounCase = "object"
	CasePossessive PronounCase = "possessive"
)

// Role names the binding a pronoun case reads. {object} reads the object
// role; {subject} and {possessive} read the subject role.
func (c PronounCase) Role() string {
	if c == CaseObject {
		return "object"
	}
	return "subject"
}

// PronounRef renders a pronoun of the entity bound to its case's role.
type PronounRef struct {
	Case PronounCase
}

func (Literal) segment()     {}
func (RuleRef) segment()     {}
func (PhraseRef) segment()   {}
func (EntityField) segment() {}
func (PronounRef) segment()  {}

// #endregion

// #region rules

// Alternative is one weighted realization of a rule. Segments is derived from
// Template when the rule is added to a Store.
type Alternative struct {
	Weight   int       `json:"weight" yaml:"weight" validate:"gte=1"`
	Template string    `json:"template" yaml:"template"`
	Segments []Segment `json:"-" yaml:"-"`
}

// Rule is a named, tag-gated set of alternatives.
type Rule struct {
	Name         string        `json:"name" yaml:"name" validate:"required"`
	Requires     []string      `json:"requires,omitempty" yaml:"requires,omitempty"`
	Excludes     []string      `json:"excludes,omitempty" yaml:"excludes,omitempty"`
	Alternatives []Alternative `json:"alternatives" yaml:"alternatives" validate:"min=1,dive"`
}

// Eligible reports whether the rule may fire under the active tag set.
func (r *Rule) Eligible(active map[string]struct{}) bool {
	for _, t := range r.Requires {
		if _, ok := active[t]; !ok {
			return false
		}
	}
	for _, t := range r.Excludes {
		if _, ok := active[t]; ok {
			return false
		}
	}
	return true
}

// File is the on-disk shape of a rule set.
type File struct {
	Rules []Rule `json:"rules" yaml:"rules"`
}

// #endregion
