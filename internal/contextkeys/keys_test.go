package contextkeys

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTurnID(ctx))
	assert.Empty(t, GetAspect(ctx))

	ctx = WithAspect(WithTurnID(ctx, "turn-1"), "vms_details")
	assert.Equal(t, "turn-1", GetTurnID(ctx))
	assert.Equal(t, "vms_details", GetAspect(ctx))

	// A value stored under a plain string key is not ours.
	ctx = context.WithValue(context.Background(), "roadrag.turn_id", "other") //nolint:staticcheck
	assert.Empty(t, GetTurnID(ctx))
}
