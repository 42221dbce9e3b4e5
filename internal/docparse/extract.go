// Package docparse recovers a single JSON object from free-form model output.
//
// Model responses are expected to contain one JSON object but routinely wrap
// it in a fenced code block or surround it with commentary. Extract strips
// the fences and slices out the first balanced object; Decode additionally
// unmarshals it and checks it against a JSON Schema.
package docparse

import (
	"errors"
	"strings"
)

// ErrNoObject is returned when the text contains no balanced {...} object.
var ErrNoObject = errors.New("no balanced JSON object found")

const fence = "```"

// Extract returns the first balanced JSON object in raw.
func Extract(raw string) (string, error) {
	text := stripFences(raw)

	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if start < 0 {
			if c == '{' {
				start = i
				depth = 1
			}
			continue
		}

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrNoObject
}

// stripFences removes a leading fence marker (with an optional language tag
// on the same line) and a trailing fence marker. Commentary before the
// opening fence is dropped along with it.
func stripFences(raw string) string {
	text := strings.TrimSpace(raw)

	brace := strings.IndexByte(text, '{')
	if idx := strings.Index(text, fence); idx >= 0 && (brace < 0 || idx < brace) {
		rest := text[idx+len(fence):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && isFenceTag(rest[:nl]) {
			rest = rest[nl+1:]
		}
		text = rest
	}

	if idx := strings.LastIndex(text, fence); idx >= 0 && idx > strings.LastIndexByte(text, '}') {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

// isFenceTag reports whether s is a plausible info string such as "json".
func isFenceTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
