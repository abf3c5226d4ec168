package grammar

import (
	"strings"
	"unicode"
)

// #region parse

// ParseTemplate splits a template string into segments. Adjacent literal
// text, including {{ and }} escapes, is merged into a single Literal.
func ParseTemplate(src string) ([]Segment, error) {
	var segs []Segment
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, Literal{Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		c := src[i]
		switch c {
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := -1
			for j := i + 1; j < len(src); j++ {
				if src[j] == '{' {
					return nil, &TemplateParseError{Template: src, Offset: j, Reason: "nested '{'"}
				}
				if src[j] == '}' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, &TemplateParseError{Template: src, Offset: i, Reason: "unmatched '{'"}
			}
			seg, reason := parseSlot(src[i+1 : end])
			if reason != "" {
				return nil, &TemplateParseError{Template: src, Offset: i, Reason: reason}
			}
			flush()
			segs = append(segs, seg)
			i = end + 1
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, &TemplateParseError{Template: src, Offset: i, Reason: "unmatched '}'"}
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return segs, nil
}

// parseSlot classifies the text between braces. A non-empty reason means the
// slot is malformed.
func parseSlot(body string) (Segment, string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, "empty placeholder"
	}

	if strings.HasPrefix(body, "markov:") {
		parts := strings.Split(body, ":")
		if len(parts) > 3 {
			return nil, "phrase slot takes at most corpus and tag"
		}
		corpus := strings.TrimSpace(parts[1])
		if corpus == "" {
			return nil, "phrase slot missing corpus"
		}
		ref := PhraseRef{Corpus: corpus}
		if len(parts) == 3 {
			ref.Tag = strings.TrimSpace(parts[2])
		}
		return ref, ""
	}

	switch PronounCase(body) {
	case CaseSubject, CaseObject, CasePossessive:
		return PronounRef{Case: PronounCase(body)}, ""
	}

	if role, field, ok := strings.Cut(body, "."); ok {
		if !isIdent(role) || !isIdent(field) {
			return nil, "malformed entity field"
		}
		if role == "entity" {
			role = "subject"
		}
		return EntityField{Role: role, Field: field}, ""
	}

	if !isIdent(body) {
		return nil, "invalid rule name"
	}
	return RuleRef{Name: body}, ""
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return false
		}
	}
	return true
}

// #endregion

// #region references

// RuleRefs lists rule names referenced by the template segments, in order.
func RuleRefs(segs []Segment) []string {
	var out []string
	for _, s := range segs {
		if ref, ok := s.(RuleRef); ok {
			out = append(out, ref.Name)
		}
	}
	return out
}

// PhraseRefs lists phrase slots referenced by the template segments, in order.
func PhraseRefs(segs []Segment) []PhraseRef {
	var out []PhraseRef
	for _, s := range segs {
		if ref, ok := s.(PhraseRef); ok {
			out = append(out, ref)
		}
	}
	return out
}

// #endregion
