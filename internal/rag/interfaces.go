package rag

import "context"

// ContentBlock is one element of a tool result. Only blocks of type "text"
// carry a payload the formatter can decode.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// TextBlock builds a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: "text", Text: text}
}

// RawResult is what a QueryExecutor returns: the content blocks of one
// tool call, untouched.
type RawResult []ContentBlock

// QueryExecutor runs an operation against the graph store.
type QueryExecutor interface {
	Execute(ctx context.Context, kind OperationKind, query string, params map[string]any) (RawResult, error)
}

// AnswerGenerator is a language model completion.
type AnswerGenerator interface {
	Complete(ctx context.Context, prompt, system string, maxTokens int, temperature float64) (string, error)
}

// SchemaProvider describes the graph schema as text for prompts.
type SchemaProvider interface {
	DescribeSchema(ctx context.Context) (string, error)
}

// SchemaFunc adapts a function to SchemaProvider.
type SchemaFunc func(ctx context.Context) (string, error)

func (f SchemaFunc) DescribeSchema(ctx context.Context) (string, error) {
	return f(ctx)
}
