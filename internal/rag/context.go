package rag

import (
	"strings"
)

// Section is one labeled block of accumulated context.
type Section struct {
	Aspect string `json:"aspect"`
	Text   string `json:"text"`
}

// AccumulatedContext is the append-only context buffer of one turn.
type AccumulatedContext struct {
	sections []Section
	buf      strings.Builder
}

// SectionHeader renders the label placed above an aspect's records.
func SectionHeader(aspect string) string {
	return "=== " + strings.ToUpper(aspect) + " ==="
}

// Append adds a labeled section.
func (c *AccumulatedContext) Append(aspect, text string) {
	c.sections = append(c.sections, Section{Aspect: aspect, Text: text})
	c.buf.WriteString("\n")
	c.buf.WriteString(SectionHeader(aspect))
	c.buf.WriteString("\n")
	c.buf.WriteString(text)
}

// Empty reports whether nothing has been appended.
func (c *AccumulatedContext) Empty() bool {
	return len(c.sections) == 0
}

// Sections returns a copy of the appended sections.
func (c *AccumulatedContext) Sections() []Section {
	return append([]Section(nil), c.sections...)
}

func (c *AccumulatedContext) String() string {
	return c.buf.String()
}
