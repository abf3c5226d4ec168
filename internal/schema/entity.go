// Package schema holds the plain data handed to the narrative engine:
// entities, events and the relationships between them. Nothing here has
// behaviour beyond normalisation and rendering.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// #region ids

// EntityID identifies an entity within a World.
type EntityID uint64

// VoiceID identifies a voice definition.
type VoiceID uint64

// #endregion

// #region pronouns

// Pronouns selects the pronoun set used for {subject}, {object} and {possessive}.
type Pronouns string

const (
	PronounsSheHer   Pronouns = "she/her"
	PronounsHeHim    Pronouns = "he/him"
	PronounsTheyThem Pronouns = "they/them"
	PronounsItIts    Pronouns = "it/its"
)

var pronounForms = map[Pronouns][3]string{
	PronounsSheHer:   {"she", "her", "her"},
	PronounsHeHim:    {"he", "him", "his"},
	PronounsTheyThem: {"they", "them", "their"},
	PronounsItIts:    {"it", "it", "its"},
}

func (p Pronouns) forms() [3]string {
	if f, ok := pronounForms[p]; ok {
		return f
	}
	return pronounForms[PronounsTheyThem]
}

// Subject returns the nominative form ("she").
func (p Pronouns) Subject() string { return p.forms()[0] }

// Object returns the accusative form ("her").
func (p Pronouns) Object() string { return p.forms()[1] }

// Possessive returns the possessive determiner ("her").
func (p Pronouns) Possessive() string { return p.forms()[2] }

// #endregion

// #region value

// ValueKind tags the dynamic type held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindFloat
	KindInt
	KindBool
)

// Value is a dynamic entity property. It encodes to and from a bare JSON scalar.
type Value struct {
	Kind  ValueKind
	Str   string
	Float float64
	Int   int64
	Bool  bool
}

// StringValue wraps s.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// FloatValue wraps f.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// IntValue wraps i.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// String renders the value as it appears in generated text.
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindFloat:
		return json.Marshal(v.Float)
	case KindInt:
		return json.Marshal(v.Int)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON implements json.Unmarshaler. Integral numbers decode as KindInt.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case string:
		*v = StringValue(x)
	case bool:
		*v = BoolValue(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1<<53 {
			*v = IntValue(int64(x))
		} else {
			*v = FloatValue(x)
		}
	default:
		return fmt.Errorf("unsupported property value %s", string(data))
	}
	return nil
}

// #endregion

// #region entity

// Entity is anything that can take part in an event: a person, creature,
// place, object or abstract concept.
type Entity struct {
	ID            EntityID         `json:"id"`
	Name          string           `json:"name"`
	Pronouns      Pronouns         `json:"pronouns,omitempty"`
	Tags          []string         `json:"tags,omitempty"`
	Relationships []Relationship   `json:"relationships,omitempty"`
	VoiceID       *VoiceID         `json:"voice_id,omitempty"`
	Properties    map[string]Value `json:"properties,omitempty"`
}

// Field resolves a template field. "name" is the entity name; anything else
// reads Properties.
func (e *Entity) Field(name string) (string, bool) {
	if name == "name" {
		return e.Name, true
	}
	v, ok := e.Properties[name]
	if !ok {
		return "", false
	}
	return v.String(), true
}

// #endregion

// #region world

// World is the read-only view of entities an event refers to.
type World struct {
	Entities map[EntityID]*Entity
}

// NewWorld indexes entities by ID.
func NewWorld(entities ...*Entity) World {
	w := World{Entities: make(map[EntityID]*Entity, len(entities))}
	for _, e := range entities {
		w.Entities[e.ID] = e
	}
	return w
}

// Entity looks up id.
func (w World) Entity(id EntityID) (*Entity, bool) {
	e, ok := w.Entities[id]
	return e, ok
}

// #endregion
