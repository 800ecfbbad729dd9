package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when the text holds no decodable JSON object.
var ErrNoJSON = errors.New("llm: no JSON object in output")

// ExtractJSONObject returns the first top-level JSON object found in text.
// Braces inside string literals (including escaped quotes) do not count.
// A balanced candidate that fails to decode is skipped and scanning resumes
// after its closing brace, so prose such as "{note}" before the payload is
// tolerated. Objects nested in a candidate are never returned on their own,
// and an opening brace that is never closed ends the search.
func ExtractJSONObject(text string) (map[string]any, error) {
	for start := strings.IndexByte(text, '{'); start >= 0; {
		end := matchBrace(text, start)
		if end < 0 {
			break
		}
		var out map[string]any
		if err := json.Unmarshal([]byte(text[start:end+1]), &out); err == nil {
			return out, nil
		}
		next := strings.IndexByte(text[end+1:], '{')
		if next < 0 {
			break
		}
		start = end + 1 + next
	}
	return nil, ErrNoJSON
}

// matchBrace returns the index of the brace closing the one at start, or -1.
func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
