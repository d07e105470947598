package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kg-road/roadrag/internal/types"
)

// Exit code constants for the CLI
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitError indicates a general error
	ExitError = 1
	// ExitNoAnswer indicates a turn finished without usable graph data
	ExitNoAnswer = 2
	// ExitTimeout indicates the operation timed out
	ExitTimeout = 3
	// ExitCancelled indicates the operation was cancelled
	ExitCancelled = 4
	// ExitConfigError indicates a configuration error
	ExitConfigError = 10
	// ExitGraphError indicates the graph store could not be reached
	ExitGraphError = 11
	// ExitLLMError indicates the model provider could not be set up
	ExitLLMError = 12
	// ExitToolError indicates the tool server could not be reached
	ExitToolError = 13
	// ExitTurnFailed indicates a question could not be answered
	ExitTurnFailed = 14
)

// CLIError represents a CLI-specific error with an exit code
type CLIError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// WrapError creates a new CLIError wrapping an existing error
func WrapError(code int, message string, err error) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// NewCLIError creates a new CLIError with the given code and message
func NewCLIError(code int, message string) *CLIError {
	return &CLIError{
		Code:    code,
		Message: message,
	}
}

// HandleError prints err to the command's error output and returns the
// exit code for it.
func HandleError(cmd *cobra.Command, err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		cmd.PrintErrln("Operation cancelled")
		return ExitCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		cmd.PrintErrln("Operation timed out")
		return ExitTimeout
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		cmd.PrintErrln("Error:", cliErr.Message)
		if cliErr.Cause != nil && verboseFlag(cmd) {
			cmd.PrintErrln("Cause:", cliErr.Cause)
		}
		return cliErr.Code
	}

	cmd.PrintErrln("Error:", err)
	return ExitCodeFor(err)
}

// ExitCodeFor maps a coded error to its exit code.
func ExitCodeFor(err error) int {
	code := types.CodeOf(err)
	switch {
	case code == "":
		return ExitError
	case strings.HasPrefix(string(code), "CONFIG_"):
		return ExitConfigError
	case code == types.INIT_GRAPH_FAILED, strings.HasPrefix(string(code), "GRAPH_"):
		return ExitGraphError
	case code == types.INIT_LLM_FAILED, strings.HasPrefix(string(code), "LLM_"):
		return ExitLLMError
	case code == types.INIT_MCP_FAILED, strings.HasPrefix(string(code), "MCP_"):
		return ExitToolError
	case strings.HasPrefix(string(code), "RAG_"):
		return ExitTurnFailed
	default:
		return ExitError
	}
}

func verboseFlag(cmd *cobra.Command) bool {
	f := cmd.Flag("verbose")
	return f != nil && f.Changed
}

// IsVerbose checks if verbose mode is enabled via environment variable or flag
// This is used for panic recovery to determine if stack traces should be shown
func IsVerbose() bool {
	if os.Getenv("ROADRAG_VERBOSE") != "" {
		return true
	}
	for _, arg := range os.Args {
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
