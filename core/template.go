package core

import (
	"fmt"
	"go/token"
	"strings"
)

// Template is a parsed string with {identifier} placeholders. "{{" and "}}"
// stand for literal braces.
type Template struct {
	raw      string
	segments []segment
}

type segment struct {
	text        string // literal text, or the placeholder name
	placeholder bool
}

// ParseTemplate parses raw into a Template.
func ParseTemplate(raw string) (*Template, error) {
	var (
		segments []segment
		literal  strings.Builder
	)
	flush := func() {
		if literal.Len() > 0 {
			segments = append(segments, segment{text: literal.String()})
			literal.Reset()
		}
	}
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				literal.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unclosed placeholder at offset %d in %q", i, raw)
			}
			name := strings.TrimSpace(raw[i+1 : i+1+end])
			if name == "" {
				return nil, fmt.Errorf("empty placeholder at offset %d in %q", i, raw)
			}
			if !IsIdentifier(name) {
				return nil, fmt.Errorf("placeholder {%s} in %q is not an identifier", name, raw)
			}
			flush()
			segments = append(segments, segment{text: name, placeholder: true})
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				literal.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("unmatched '}' at offset %d in %q", i, raw)
		default:
			literal.WriteByte(raw[i])
		}
	}
	flush()
	return &Template{raw: raw, segments: segments}, nil
}

// Placeholders returns the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	var (
		names []string
		seen  = make(map[string]struct{})
	)
	for _, s := range t.segments {
		if !s.placeholder {
			continue
		}
		if _, ok := seen[s.text]; ok {
			continue
		}
		seen[s.text] = struct{}{}
		names = append(names, s.text)
	}
	return names
}

func (t *Template) String() string {
	return t.raw
}

// Expand substitutes every placeholder with the value returned by lookup.
// It fails on the first name lookup cannot resolve.
func (t *Template) Expand(lookup func(name string) (string, bool)) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.placeholder {
			b.WriteString(s.text)
			continue
		}
		value, ok := lookup(s.text)
		if !ok {
			return "", fmt.Errorf("no value for placeholder {%s}", s.text)
		}
		b.WriteString(value)
	}
	return b.String(), nil
}

// IsIdentifier reports whether s is a Go identifier that is not a keyword.
func IsIdentifier(s string) bool {
	return token.IsIdentifier(s)
}
