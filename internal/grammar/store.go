// Package grammar holds the rule store and the expansion engine that turns a
// named rule into text.
package grammar

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// #region store

// Store is a name-keyed table of rules. It is built at load time and only
// read afterwards.
type Store struct {
	rules map[string]*Rule
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{rules: make(map[string]*Rule)}
}

// Add validates r, parses its templates and inserts it, replacing any rule
// with the same name.
func (s *Store) Add(r Rule) error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "Weight" {
					return fmt.Errorf("rule %q: %w (got %v)", r.Name, ErrInvalidWeight, fe.Value())
				}
			}
		}
		return fmt.Errorf("rule %q: %w", r.Name, err)
	}

	alts := make([]Alternative, len(r.Alternatives))
	for i, alt := range r.Alternatives {
		segs, err := ParseTemplate(alt.Template)
		if err != nil {
			return fmt.Errorf("rule %q alternative %d: %w", r.Name, i, err)
		}
		alts[i] = Alternative{Weight: alt.Weight, Template: alt.Template, Segments: segs}
	}
	r.Alternatives = alts
	s.rules[r.Name] = &r
	return nil
}

// Get looks up a rule by name.
func (s *Store) Get(name string) (*Rule, bool) {
	r, ok := s.rules[name]
	return r, ok
}

// Len returns the number of rules.
func (s *Store) Len() int {
	return len(s.rules)
}

// Names returns all rule names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.rules))
	for n := range s.rules {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rules returns all rules sorted by name.
func (s *Store) Rules() []*Rule {
	out := make([]*Rule, 0, len(s.rules))
	for _, n := range s.Names() {
		out = append(out, s.rules[n])
	}
	return out
}

// Matching returns the names of rules eligible under the active tag set.
func (s *Store) Matching(active map[string]struct{}) []string {
	var out []string
	for _, r := range s.Rules() {
		if r.Eligible(active) {
			out = append(out, r.Name)
		}
	}
	return out
}

// Merge copies every rule of other into s. Rules from other win on name
// collisions.
func (s *Store) Merge(other *Store) {
	for name, r := range other.rules {
		s.rules[name] = r
	}
}

// #endregion

// #region encoding

// File returns the store's rules in their on-disk shape, sorted by name.
func (s *Store) File() File {
	f := File{Rules: make([]Rule, 0, len(s.rules))}
	for _, r := range s.Rules() {
		f.Rules = append(f.Rules, *r)
	}
	return f
}

// FromFile builds a store from a decoded rule file.
func FromFile(f File) (*Store, error) {
	s := NewStore()
	for _, r := range f.Rules {
		if err := s.Add(r); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MarshalJSON encodes the store as a rule file.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.File())
}

// UnmarshalJSON decodes and validates a rule file.
func (s *Store) UnmarshalJSON(data []byte) error {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	loaded, err := FromFile(f)
	if err != nil {
		return err
	}
	s.rules = loaded.rules
	return nil
}

// ParseYAML decodes a YAML rule file.
func ParseYAML(data []byte) (*Store, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	return FromFile(f)
}

// EncodeYAML encodes the store as a YAML rule file.
func (s *Store) EncodeYAML() ([]byte, error) {
	return yaml.Marshal(s.File())
}

// LoadFiles reads YAML rule files in order and merges them, so later files
// override earlier ones.
func LoadFiles(paths ...string) (*Store, error) {
	out := NewStore()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		s, err := ParseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		out.Merge(s)
	}
	return out, nil
}

// #endregion
