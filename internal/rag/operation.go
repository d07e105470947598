package rag

import (
	"encoding/json"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/kg-road/roadrag/internal/llm"
	"github.com/kg-road/roadrag/internal/types"
)

// OperationKind selects the execution path of an Operation.
type OperationKind string

const (
	KindRead  OperationKind = "read"
	KindWrite OperationKind = "write"
)

// FallbackQuery is guaranteed to return zero rows.
const FallbackQuery = "MATCH (n) RETURN n LIMIT 0"

// ParseKind maps s onto a known kind. Anything that is not exactly "write"
// (ignoring case and surrounding space) is a read.
func ParseKind(s string) OperationKind {
	if strings.EqualFold(strings.TrimSpace(s), string(KindWrite)) {
		return KindWrite
	}
	return KindRead
}

// Operation is a single graph instruction generated for an aspect.
// Parameters is never nil.
type Operation struct {
	Kind       OperationKind  `json:"operation"`
	Query      string         `json:"query"`
	Parameters map[string]any `json:"parameters"`
}

// FallbackOperation is the no-op read used whenever model output cannot be
// trusted.
func FallbackOperation() Operation {
	return Operation{
		Kind:       KindRead,
		Query:      FallbackQuery,
		Parameters: map[string]any{},
	}
}

// IsFallback reports whether op is the fallback operation.
func (op Operation) IsFallback() bool {
	return op.Kind == KindRead && op.Query == FallbackQuery && len(op.Parameters) == 0
}

// operationFields must all be present in model output. A null parameters
// value still counts as present and decodes as empty.
var operationFields = []string{"operation", "query", "parameters"}

type operationWire struct {
	Operation  string         `mapstructure:"operation"`
	Query      string         `mapstructure:"query"`
	Parameters map[string]any `mapstructure:"parameters"`
}

// ParseOperation decodes model output into an Operation. The output may wrap
// the JSON object in prose or a markdown fence. Fields other than
// operation, query and parameters are rejected, as is output missing any
// of the three or carrying an empty query. Unknown operation kinds decode
// as reads.
func ParseOperation(output string) (Operation, error) {
	obj, err := llm.ExtractJSONObject(output)
	if err != nil {
		return Operation{}, types.WrapError(ErrCodeMalformedOutput, "no JSON object in model output", err)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return Operation{}, types.WrapError(ErrCodeMalformedOutput, "model output is not a JSON object", err)
	}

	for _, key := range operationFields {
		if _, ok := fields[key]; !ok {
			return Operation{}, types.NewError(ErrCodeMalformedOutput, "model output has no "+key+" field")
		}
	}

	var wire operationWire
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		Result:      &wire,
	})
	if err != nil {
		return Operation{}, types.WrapError(ErrCodeMalformedOutput, "failed to build operation decoder", err)
	}
	if err := decoder.Decode(fields); err != nil {
		return Operation{}, types.WrapError(ErrCodeMalformedOutput, "model output does not match the operation shape", err)
	}

	if strings.TrimSpace(wire.Query) == "" {
		return Operation{}, types.NewError(ErrCodeMalformedOutput, "model output has no query")
	}

	params := wire.Parameters
	if params == nil {
		params = map[string]any{}
	}
	return Operation{
		Kind:       ParseKind(wire.Operation),
		Query:      wire.Query,
		Parameters: params,
	}, nil
}
