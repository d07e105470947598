package prompt

import (
	"fmt"

	"github.com/kg-road/roadrag/internal/types"
)

const (
	ErrCodeTemplateNotFound types.ErrorCode = "PROMPT_TEMPLATE_NOT_FOUND"
	ErrCodeInvalidTemplate  types.ErrorCode = "PROMPT_INVALID_TEMPLATE"
	ErrCodeTemplateRender   types.ErrorCode = "PROMPT_RENDER_FAILED"
)

// NewTemplateNotFoundError creates an error for an unknown template name.
func NewTemplateNotFoundError(name string) error {
	return types.NewError(ErrCodeTemplateNotFound, fmt.Sprintf("prompt template not found: %s", name))
}

// NewInvalidTemplateError creates an error for template parse failures.
func NewInvalidTemplateError(source string, cause error) error {
	return types.WrapError(ErrCodeInvalidTemplate, fmt.Sprintf("failed to parse prompt templates from %s", source), cause)
}

// NewTemplateRenderError creates an error for template execution failures.
func NewTemplateRenderError(name string, cause error) error {
	return types.WrapError(ErrCodeTemplateRender, fmt.Sprintf("failed to render prompt %s", name), cause)
}
