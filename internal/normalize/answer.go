package normalize

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-content/internal/content"
)

// ResolveIndex maps a raw correct-answer value onto a 0-based option index.
//
// Resolution order: a whole number is the index itself; a string is matched
// case-insensitively against the trimmed option texts, then parsed as an
// integer, then parsed as a single letter label ("B", "b.", "C)"). Anything
// else, or an index outside the options, is an UnresolvedAnswerError.
func ResolveIndex(raw any, options []string) (int, error) {
	idx, ok := resolveIndex(raw, options)
	if !ok || idx < 0 || idx >= len(options) {
		return 0, &content.UnresolvedAnswerError{Raw: raw}
	}
	return idx, nil
}

func resolveIndex(raw any, options []string) (int, bool) {
	if isNumeric(raw) {
		return integralFromAny(raw)
	}
	s, ok := raw.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, ok := matchOption(s, options); ok {
		return i, true
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	return letterIndex(s)
}

func matchOption(s string, options []string) (int, bool) {
	fold := cases.Fold()
	want := fold.String(s)
	for i, opt := range options {
		if fold.String(strings.TrimSpace(opt)) == want {
			return i, true
		}
	}
	return 0, false
}

// letterIndex accepts exactly one letter, optionally followed by a single
// "." or ")". Longer labels such as "AA" or "(B)" are not interpreted.
func letterIndex(s string) (int, bool) {
	if len(s) == 2 && (s[1] == '.' || s[1] == ')') {
		s = s[:1]
	}
	if len(s) != 1 {
		return 0, false
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return 0, false
	}
	return int(c - 'A'), true
}

// ResolveBool maps a raw true/false answer onto a boolean.
func ResolveBool(raw any) (bool, error) {
	switch t := raw.(type) {
	case bool:
		return t, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, &content.UnresolvedAnswerError{Raw: raw}
}
