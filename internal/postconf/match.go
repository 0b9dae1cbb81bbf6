package postconf

import (
	"fmt"
	"strings"
)

// Matcher decides membership in, and removal from, a multi-value string.
type Matcher interface {
	Contains(current, value string) bool
	Remove(current, value string) string
}

const (
	MatchSubstring = "substring"
	MatchToken     = "token"
)

// ParseMatcher resolves a matcher name; empty selects SubstringMatcher.
func ParseMatcher(name string) (Matcher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", MatchSubstring:
		return SubstringMatcher{}, nil
	case MatchToken:
		return TokenMatcher{}, nil
	default:
		return nil, fmt.Errorf("unknown matcher %q (want %s or %s)", name, MatchSubstring, MatchToken)
	}
}

// SubstringMatcher treats value as present anywhere inside current and
// removes only its first literal occurrence, leaving surrounding whitespace
// untouched.
type SubstringMatcher struct{}

func (SubstringMatcher) Contains(current, value string) bool {
	return strings.Contains(current, value)
}

func (SubstringMatcher) Remove(current, value string) string {
	return strings.Replace(current, value, "", 1)
}

// TokenMatcher compares whole whitespace or comma separated tokens.
// Remove rejoins the remaining tokens with single spaces.
type TokenMatcher struct{}

func (TokenMatcher) Contains(current, value string) bool {
	value = strings.TrimSpace(value)
	for _, tok := range tokens(current) {
		if tok == value {
			return true
		}
	}
	return false
}

func (TokenMatcher) Remove(current, value string) string {
	value = strings.TrimSpace(value)
	toks := tokens(current)
	for i, tok := range toks {
		if tok == value {
			toks = append(toks[:i], toks[i+1:]...)
			break
		}
	}
	return strings.Join(toks, " ")
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
}
