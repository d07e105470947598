package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// fencePattern matches markdown code fences with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```([A-Za-z]*)[ \t]*\r?\n(.*?)\r?\n?```")

// ExtractJSONObject pulls the first JSON object out of a model response.
// Models asked for "JSON only" still wrap it in ```json fences or add a
// sentence before it; both are tolerated. Fenced blocks tagged with a
// language other than json are ignored.
func ExtractJSONObject(response string) (string, error) {
	for _, m := range fencePattern.FindAllStringSubmatch(response, -1) {
		lang := strings.ToLower(m[1])
		if lang != "" && lang != "json" {
			continue
		}
		body := strings.TrimSpace(m[2])
		if obj, ok := scanObject(body); ok {
			return obj, nil
		}
	}

	if obj, ok := scanObject(response); ok {
		return obj, nil
	}
	return "", fmt.Errorf("no valid JSON object found in response")
}

// scanObject returns the first balanced, valid {...} span in s.
func scanObject(s string) (string, bool) {
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s[start:]); end > 0 {
			candidate := s[start : start+end]
			if json.Valid([]byte(candidate)) {
				return candidate, true
			}
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}

// matchBrace returns the length of the object starting at s[0], honouring
// string literals and escapes, or -1 if it never closes.
func matchBrace(s string) int {
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
