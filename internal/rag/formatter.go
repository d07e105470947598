package rag

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	// NoResultsText is returned when a result carries no records.
	NoResultsText = "No results found in database."
	// FormatErrorText is returned when a payload cannot be decoded.
	FormatErrorText = "Error processing database response"
	// ResultsHeader starts every rendered block.
	ResultsHeader = "Database Results:\n"
)

// FormatOutcome classifies a formatted result.
type FormatOutcome string

const (
	OutcomeNoResults   FormatOutcome = "no_results"
	OutcomeFormatError FormatOutcome = "format_error"
	OutcomeRendered    FormatOutcome = "rendered"
)

// Formatted is the text produced for one raw result.
type Formatted struct {
	Outcome FormatOutcome
	Text    string
}

// Usable reports whether the text holds records worth accumulating.
func (f Formatted) Usable() bool {
	return f.Outcome == OutcomeRendered
}

// FormatContext turns a raw tool result into LLM-facing text. It never
// fails: undecodable payloads become FormatErrorText and empty ones
// NoResultsText. Records are indented two spaces and keep their order and
// their key order.
func FormatContext(raw RawResult) Formatted {
	if len(raw) == 0 || raw[0].Type != "text" {
		return noResults()
	}

	payload := strings.TrimSpace(raw[0].Text)
	if payload == "" || payload == "null" {
		return noResults()
	}

	var records []json.RawMessage
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return formatError()
	}
	if len(records) == 0 {
		return noResults()
	}

	var b strings.Builder
	b.WriteString(ResultsHeader)
	for _, rec := range records {
		trimmed := bytes.TrimSpace(rec)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return formatError()
		}

		var buf bytes.Buffer
		if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
			return formatError()
		}
		b.Write(buf.Bytes())
		b.WriteString("\n\n")
	}

	return Formatted{Outcome: OutcomeRendered, Text: b.String()}
}

func noResults() Formatted {
	return Formatted{Outcome: OutcomeNoResults, Text: NoResultsText}
}

func formatError() Formatted {
	return Formatted{Outcome: OutcomeFormatError, Text: FormatErrorText}
}
