package ai

import "encoding/json"

// FirstJSONObject returns the first balanced top-level {...} span in text.
// Braces inside JSON strings are ignored. When several balanced spans exist,
// the first one that is valid JSON wins; if none is valid, the first balanced
// span is returned so the caller can report the decoding error.
func FirstJSONObject(text string) (string, bool) {
	firstBalanced := ""
	found := false
	closes := make(map[int]int)

	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		end, seen := closes[start]
		if !seen {
			pairBraces(text, start, closes)
			end = closes[start]
		}
		if end < 0 {
			continue
		}
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, true
		}
		if !found {
			firstBalanced, found = candidate, true
		}
		start = end
	}

	return firstBalanced, found
}

// pairBraces scans from start to the end of text and records, for every brace
// opened outside a string, the index of its closing brace, or -1 when it never
// closes. A later brace seen outside a string shares the string state a fresh
// scan from it would have, so one pass settles all of them.
func pairBraces(text string, start int, closes map[int]int) {
	var open []int
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

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
			open = append(open, i)
		case '}':
			if len(open) == 0 {
				continue
			}
			closes[open[len(open)-1]] = i
			open = open[:len(open)-1]
		}
	}

	for _, i := range open {
		closes[i] = -1
	}
}
