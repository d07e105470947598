package tool

import (
	"context"

	"github.com/kg-road/roadrag/internal/types"
)

// ArgType is the JSON type of a tool argument.
type ArgType string

const (
	ArgString ArgType = "string"
	ArgObject ArgType = "object"
)

// Argument declares one named tool argument.
type Argument struct {
	Name        string
	Type        ArgType
	Description string
	Required    bool
}

// Tool is an operation exposed to tool-calling clients.
type Tool interface {
	// Name returns the unique identifier for this tool
	Name() string

	// Description returns a human-readable description of what this tool does
	Description() string

	// Tags returns a list of tags for categorization and discovery
	Tags() []string

	// Arguments declares the accepted arguments
	Arguments() []Argument

	// ReadOnly reports whether the tool never modifies state
	ReadOnly() bool

	// Execute runs the tool. The returned text is handed to the caller as is.
	Execute(ctx context.Context, args map[string]any) (string, error)

	// Health returns the current health status of this tool
	Health(ctx context.Context) types.HealthStatus
}
