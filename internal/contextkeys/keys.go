// Package contextkeys defines the context values shared by the controller,
// the tool executor and the logger. It has no dependencies so any of them
// can import it.
package contextkeys

import "context"

// Key is the type for all roadrag context keys.
type Key string

const (
	// TurnID identifies one question-answering turn.
	TurnID Key = "roadrag.turn_id"

	// Aspect names the aspect whose query is in flight.
	Aspect Key = "roadrag.aspect"
)

// WithTurnID returns a new context with the turn ID set.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, TurnID, turnID)
}

// GetTurnID returns the turn ID, or "" if not set.
func GetTurnID(ctx context.Context) string {
	return get(ctx, TurnID)
}

// WithAspect returns a new context with the aspect name set.
func WithAspect(ctx context.Context, aspect string) context.Context {
	return context.WithValue(ctx, Aspect, aspect)
}

// GetAspect returns the aspect name, or "" if not set.
func GetAspect(ctx context.Context) string {
	return get(ctx, Aspect)
}

func get(ctx context.Context, key Key) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
