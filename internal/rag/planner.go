package rag

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kg-road/roadrag/internal/types"
)

//go:embed aspects.yaml
var defaultAspectsYAML []byte

// Aspect is a topic of investigation and the keywords that select it.
type Aspect struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// FollowUpRule enqueues aspects once After has produced text containing Marker.
type FollowUpRule struct {
	After   string   `yaml:"after"`
	Marker  string   `yaml:"marker"`
	Enqueue []string `yaml:"enqueue"`
}

// AspectTable is the planner's rule data.
type AspectTable struct {
	Fallback  string         `yaml:"fallback"`
	Aspects   []Aspect       `yaml:"aspects"`
	FollowUps []FollowUpRule `yaml:"follow_ups"`
}

// DefaultAspectTable returns the built-in table for the traffic graph.
func DefaultAspectTable() AspectTable {
	table, err := ParseAspectTable(defaultAspectsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded aspect table is invalid: %v", err))
	}
	return table
}

// LoadAspectTable reads a YAML aspect table from path.
func LoadAspectTable(path string) (AspectTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AspectTable{}, types.WrapError(ErrCodeInvalidTable, "failed to read aspect table "+path, err)
	}
	return ParseAspectTable(data)
}

// ParseAspectTable decodes and validates a YAML aspect table.
func ParseAspectTable(data []byte) (AspectTable, error) {
	var table AspectTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return AspectTable{}, types.WrapError(ErrCodeInvalidTable, "failed to parse aspect table", err)
	}
	if err := table.Validate(); err != nil {
		return AspectTable{}, err
	}
	return table, nil
}

// Validate checks that names are unique and that the fallback and every
// follow-up refer to declared aspects.
func (t AspectTable) Validate() error {
	if len(t.Aspects) == 0 {
		return types.NewError(ErrCodeInvalidTable, "aspect table declares no aspects")
	}

	known := make(map[string]bool, len(t.Aspects))
	for i, a := range t.Aspects {
		if a.Name == "" {
			return types.NewError(ErrCodeInvalidTable, fmt.Sprintf("aspect %d has no name", i))
		}
		if known[a.Name] {
			return types.NewError(ErrCodeInvalidTable, "duplicate aspect "+a.Name)
		}
		known[a.Name] = true
	}

	if !known[t.Fallback] {
		return types.NewError(ErrCodeInvalidTable, fmt.Sprintf("fallback aspect %q is not declared", t.Fallback))
	}

	for _, r := range t.FollowUps {
		if !known[r.After] {
			return types.NewError(ErrCodeInvalidTable, fmt.Sprintf("follow-up refers to unknown aspect %q", r.After))
		}
		if r.Marker == "" {
			return types.NewError(ErrCodeInvalidTable, "follow-up after "+r.After+" has no marker")
		}
		for _, name := range r.Enqueue {
			if !known[name] {
				return types.NewError(ErrCodeInvalidTable, fmt.Sprintf("follow-up enqueues unknown aspect %q", name))
			}
		}
	}
	return nil
}

// Planner maps questions to aspects using an AspectTable.
type Planner struct {
	table    AspectTable
	keywords [][]string
}

// NewPlanner validates table and lowercases its keywords once.
func NewPlanner(table AspectTable) (*Planner, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}

	keywords := make([][]string, len(table.Aspects))
	for i, a := range table.Aspects {
		for _, kw := range a.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords[i] = append(keywords[i], kw)
			}
		}
	}
	return &Planner{table: table, keywords: keywords}, nil
}

// Table returns the planner's rule data.
func (p *Planner) Table() AspectTable {
	return p.table
}

// Plan returns every aspect with a keyword occurring in question, in table
// order. When nothing matches it returns the fallback aspect alone.
func (p *Planner) Plan(question string) []string {
	q := strings.ToLower(question)

	var aspects []string
	for i, a := range p.table.Aspects {
		for _, kw := range p.keywords[i] {
			if strings.Contains(q, kw) {
				aspects = append(aspects, a.Name)
				break
			}
		}
	}

	if len(aspects) == 0 {
		return []string{p.table.Fallback}
	}
	return aspects
}

// Extend returns the follow-up aspects triggered by text, the formatted
// result of aspect. The result depends only on its arguments and holds no
// duplicates; filtering against what is already queued or visited is the
// WorkQueue's job.
func (p *Planner) Extend(aspect, text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range p.table.FollowUps {
		if r.After != aspect || !strings.Contains(text, r.Marker) {
			continue
		}
		for _, name := range r.Enqueue {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
