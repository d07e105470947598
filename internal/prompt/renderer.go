package prompt

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed templates/*.tmpl
var embedded embed.FS

// Names of the top-level templates.
const (
	CypherInitial  = "cypher_initial"
	CypherFollowUp = "cypher_followup"
	Answer         = "answer"
)

// CypherData feeds the query-generation templates.
type CypherData struct {
	Schema   string
	Question string
	// Context and Aspect are only rendered by the follow-up template.
	Context string
	Aspect  string
}

// AnswerData feeds the answer template.
type AnswerData struct {
	Question string
	Context  string
}

// Renderer executes named prompt templates.
type Renderer struct {
	tmpl *template.Template
}

// RendererOption configures a Renderer.
type RendererOption func(*rendererConfig)

type rendererConfig struct {
	overrideDir string
}

// WithTemplateDir layers the *.tmpl files in dir over the embedded set.
// A file named answer.tmpl replaces the "answer" template, and so on.
func WithTemplateDir(dir string) RendererOption {
	return func(c *rendererConfig) {
		c.overrideDir = dir
	}
}

// NewRenderer parses the embedded templates and any overrides.
func NewRenderer(opts ...RendererOption) (*Renderer, error) {
	cfg := &rendererConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	tmpl := template.New("prompts").Funcs(FuncMap()).Option("missingkey=error")
	if err := parseEmbedded(tmpl); err != nil {
		return nil, err
	}

	if cfg.overrideDir != "" {
		matches, err := filepath.Glob(filepath.Join(cfg.overrideDir, "*.tmpl"))
		if err != nil {
			return nil, NewInvalidTemplateError(cfg.overrideDir, err)
		}
		for _, path := range matches {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, NewInvalidTemplateError(path, err)
			}
			if _, err := tmpl.New(templateName(path)).Parse(string(data)); err != nil {
				return nil, NewInvalidTemplateError(path, err)
			}
		}
	}

	return &Renderer{tmpl: tmpl}, nil
}

func parseEmbedded(tmpl *template.Template) error {
	entries, err := embedded.ReadDir("templates")
	if err != nil {
		return NewInvalidTemplateError("embedded templates", err)
	}
	for _, entry := range entries {
		data, err := embedded.ReadFile("templates/" + entry.Name())
		if err != nil {
			return NewInvalidTemplateError(entry.Name(), err)
		}
		if _, err := tmpl.New(templateName(entry.Name())).Parse(string(data)); err != nil {
			return NewInvalidTemplateError(entry.Name(), err)
		}
	}
	return nil
}

func templateName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return "", NewTemplateNotFoundError(name)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", NewTemplateRenderError(name, err)
	}
	return buf.String(), nil
}

// Cypher renders the initial or follow-up query-generation prompt.
func (r *Renderer) Cypher(followUp bool, data CypherData) (string, error) {
	if followUp {
		return r.Render(CypherFollowUp, data)
	}
	return r.Render(CypherInitial, data)
}

// AnswerPrompt renders the synthesis prompt.
func (r *Renderer) AnswerPrompt(data AnswerData) (string, error) {
	return r.Render(Answer, data)
}
