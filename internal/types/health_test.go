package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthState_UnmarshalJSON(t *testing.T) {
	var s HealthState
	require.NoError(t, json.Unmarshal([]byte(`"degraded"`), &s))
	assert.Equal(t, HealthStateDegraded, s)

	assert.Error(t, json.Unmarshal([]byte(`"sleepy"`), &s))
}

func TestWorst(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		got := Worst(map[string]HealthStatus{
			"graph": Healthy("ok"),
			"llm":   Healthy("ok"),
		})
		assert.True(t, got.IsHealthy())
	})

	t.Run("unhealthy beats degraded", func(t *testing.T) {
		got := Worst(map[string]HealthStatus{
			"graph": Degraded("slow"),
			"llm":   Unhealthy("no key"),
		})
		assert.Equal(t, HealthStateUnhealthy, got.State)
		assert.Equal(t, "llm: no key", got.Message)
	})

	t.Run("degraded", func(t *testing.T) {
		got := Worst(map[string]HealthStatus{"graph": Degraded("slow")})
		assert.Equal(t, HealthStateDegraded, got.State)
	})
}
