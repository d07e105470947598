package prompt

import (
	"encoding/json"
	"strings"
	"text/template"
)

// FuncMap returns the functions available to every prompt template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"toUpper": strings.ToUpper,
		"toLower": strings.ToLower,
		"trim":    strings.TrimSpace,
		"indent":  indent,
		"toJSON":  toJSON,
		"default": defaultFunc,
	}
}

// indent prefixes every non-empty line of s with the given number of spaces.
func indent(spaces int, s string) string {
	if s == "" {
		return s
	}

	padding := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = padding + line
		}
	}
	return strings.Join(lines, "\n")
}

func toJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// defaultFunc returns value unless it is the zero string, in which case def.
func defaultFunc(def string, value string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return value
}
