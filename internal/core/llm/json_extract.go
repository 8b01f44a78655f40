package llm

import (
	"encoding/json"
	"regexp"
)

// extractJSON pulls a JSON object or array out of a response that may
// wrap it in prose. It tries both array and object extraction, checks
// validity with json.Valid, and prefers the longest valid match so an
// outer structure wins over an inner fragment.
func extractJSON(text string) string {
	arrayResult := extractValidJSONByBracket(text, '[', findMatchingBracket)
	objectResult := extractValidJSONByBracket(text, '{', findMatchingBrace)

	switch {
	case arrayResult != "" && objectResult != "":
		if len(objectResult) >= len(arrayResult) {
			return objectResult
		}

		return arrayResult
	case arrayResult != "":
		return arrayResult
	case objectResult != "":
		return objectResult
	default:
		return text
	}
}

// trailingCommaRe matches trailing commas before closing brackets/braces,
// a common LLM formatting mistake.
var trailingCommaRe = regexp.MustCompile(`,\s*([\]\}])`)

// extractValidJSONByBracket scans text for the given opening bracket and
// uses matchFn to find its closing counterpart, trying each occurrence
// until a valid (optionally trailing-comma-repaired) JSON substring is found.
func extractValidJSONByBracket(text string, open byte, matchFn func(string, int) int) string {
	for i := 0; i < len(text); i++ {
		if text[i] != open {
			continue
		}

		end := matchFn(text, i)
		if end == -1 {
			continue
		}

		candidate := text[i : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate
		}

		sanitized := trailingCommaRe.ReplaceAllString(candidate, "$1")
		if sanitized != candidate && json.Valid([]byte(sanitized)) {
			return sanitized
		}
	}

	return ""
}

// findMatchingBrace finds the index of the closing '}' matching the
// opening '{' at start, ignoring braces inside string literals.
func findMatchingBrace(text string, start int) int {
	return findMatchingBracketLike(text, start, '{', '}')
}

// findMatchingBracket finds the index of the closing ']' matching the
// opening '[' at start, ignoring brackets inside string literals.
func findMatchingBracket(text string, start int) int {
	return findMatchingBracketLike(text, start, '[', ']')
}

func findMatchingBracketLike(text string, start int, open, close byte) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if escaped {
			escaped = false

			continue
		}

		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
			// skip characters inside strings
		case c == open:
			depth++
		case c == close:
			depth--

			if depth == 0 {
				return i
			}
		}
	}

	return -1
}
