package rag

import (
	"fmt"

	"github.com/kg-road/roadrag/internal/types"
)

const (
	ErrCodeMalformedOutput  types.ErrorCode = "RAG_MALFORMED_MODEL_OUTPUT"
	ErrCodeExecutionFailed  types.ErrorCode = "RAG_EXECUTION_FAILED"
	ErrCodeGenerationFailed types.ErrorCode = "RAG_GENERATION_FAILED"
	ErrCodeSynthesisFailed  types.ErrorCode = "RAG_SYNTHESIS_FAILED"
	ErrCodeSchemaFailed     types.ErrorCode = "RAG_SCHEMA_FAILED"
	ErrCodeInvalidTable     types.ErrorCode = "RAG_INVALID_ASPECT_TABLE"
	ErrCodeInvalidQuestion  types.ErrorCode = "RAG_INVALID_QUESTION"
	ErrCodeTurnCanceled     types.ErrorCode = "RAG_TURN_CANCELED"
	ErrCodeInvalidConfig    types.ErrorCode = "RAG_INVALID_CONFIG"
)

// TurnError is returned by Controller.Run when a turn cannot produce an
// answer. It keeps the question so the caller can retry the whole turn.
type TurnError struct {
	TurnID   string
	Question string
	Err      error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn %s failed: %v", e.TurnID, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

func newTurnError(turnID, question string, code types.ErrorCode, msg string, cause error) *TurnError {
	return &TurnError{
		TurnID:   turnID,
		Question: question,
		Err:      types.WrapError(code, msg, cause),
	}
}
