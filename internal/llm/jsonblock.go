package llm

import (
	"encoding/json"
	"strings"
)

// ExtractJSONObject finds the JSON object in a model answer. The widest span
// from the first '{' to the last '}' is tried first, then the first balanced
// object.
func ExtractJSONObject(content string) ([]byte, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	if wide := content[start : end+1]; json.Valid([]byte(wide)) {
		return []byte(wide), true
	}
	if obj, ok := firstBalanced(content[start:]); ok && json.Valid([]byte(obj)) {
		return []byte(obj), true
	}
	return nil, false
}

func firstBalanced(s string) (string, bool) {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
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
				return s[:i+1], true
			}
		}
	}
	return "", false
}
