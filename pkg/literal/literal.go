// Package literal implements the self-describing textual notation values
// travel in between the probe and etcdctl. Values are written in literal
// form into the transaction text and come back base64-wrapped inside JSON
// range responses, so Format and Parse must round-trip exactly.
//
// The notation quotes everything, integers included; that is a quirk of the
// target grammar, not a formatting choice. A consequence is that an integer
// and the string spelled with the same digits collide, so numeric-looking
// strings are outside the supported value domain.
package literal

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is one supported literal value: a small integer or a short string.
type Value interface {
	literalValue()
}

type Int int64

type String string

func (Int) literalValue()    {}
func (String) literalValue() {}

// Format renders v in literal notation. Deterministic: the same value
// always yields the same text.
func Format(v Value) string {
	switch v := v.(type) {
	case Int:
		return `"` + strconv.FormatInt(int64(v), 10) + `"`
	case String:
		return quote(string(v))
	default:
		panic("unhandled default case")
	}
}

// Parse is the inverse of Format. Quoted all-digit content (with an
// optional leading minus) parses as Int, everything else as String.
func Parse(s string) (Value, error) {
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return nil, fmt.Errorf("literal: %q is not a quoted literal", s)
	}

	inner, err := unquote(s[1 : len(s)-1])
	if err != nil {
		return nil, err
	}

	if isDigits(inner) {
		n, err := strconv.ParseInt(inner, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("literal: integer %q out of range", inner)
		}
		return Int(n), nil
	}
	return String(inner), nil
}

// quote escapes conservatively: backslash, double quote, newline and tab.
// Anything it cannot encode safely is outside the supported domain.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func unquote(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			if c == '"' {
				return "", fmt.Errorf("literal: unescaped quote inside %q", s)
			}
			b.WriteByte(c)
			continue
		}

		i++
		if i == len(s) {
			return "", fmt.Errorf("literal: trailing backslash in %q", s)
		}
		switch s[i] {
		case '\\':
			b.WriteByte('\\')
		case '"':
			b.WriteByte('"')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Errorf("literal: unknown escape \\%c in %q", s[i], s)
		}
	}
	return b.String(), nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' {
		s = s[1:]
		if s == "" {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
