package tool

import (
	"time"
)

// ToolDescriptor contains tool metadata for discovery and introspection.
type ToolDescriptor struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tags        []string   `json:"tags"`
	Arguments   []Argument `json:"arguments"`
	ReadOnly    bool       `json:"read_only"`
}

// NewToolDescriptor creates a ToolDescriptor from a Tool.
func NewToolDescriptor(t Tool) ToolDescriptor {
	return ToolDescriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Tags:        t.Tags(),
		Arguments:   t.Arguments(),
		ReadOnly:    t.ReadOnly(),
	}
}

// ToolMetrics tracks tool execution statistics. The registry updates it
// under its own lock.
type ToolMetrics struct {
	TotalCalls     int64         `json:"total_calls"`
	SuccessCalls   int64         `json:"success_calls"`
	FailedCalls    int64         `json:"failed_calls"`
	TotalDuration  time.Duration `json:"total_duration"`
	AvgDuration    time.Duration `json:"avg_duration"`
	LastExecutedAt *time.Time    `json:"last_executed_at,omitempty"`
}

// RecordSuccess records a successful execution.
func (m *ToolMetrics) RecordSuccess(duration time.Duration) {
	m.record(duration)
	m.SuccessCalls++
}

// RecordFailure records a failed execution.
func (m *ToolMetrics) RecordFailure(duration time.Duration) {
	m.record(duration)
	m.FailedCalls++
}

func (m *ToolMetrics) record(duration time.Duration) {
	m.TotalCalls++
	m.TotalDuration += duration
	m.AvgDuration = m.TotalDuration / time.Duration(m.TotalCalls)
	now := time.Now()
	m.LastExecutedAt = &now
}

// SuccessRate returns the share of successful calls, 0 when there were none.
func (m *ToolMetrics) SuccessRate() float64 {
	if m.TotalCalls == 0 {
		return 0.0
	}
	return float64(m.SuccessCalls) / float64(m.TotalCalls)
}

// FailureRate returns the share of failed calls, 0 when there were none.
func (m *ToolMetrics) FailureRate() float64 {
	if m.TotalCalls == 0 {
		return 0.0
	}
	return float64(m.FailedCalls) / float64(m.TotalCalls)
}
