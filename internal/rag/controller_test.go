package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kg-road/roadrag/internal/types"
)

const incidentRecord = `[{"event_no":"E1","event_desc":"Collision","road_name":"Sheikh Zayed Road"}]`

func newController(t *testing.T, exec QueryExecutor, gen AnswerGenerator, opts ...ControllerOption) (*Controller, *mockSchema) {
	t.Helper()
	schema := &mockSchema{}
	schema.On("DescribeSchema", mock.Anything).Return(`{"nodes":{"event_record":{}}}`, nil)

	c, err := NewController(Dependencies{Executor: exec, Generator: gen, Schema: schema}, opts...)
	require.NoError(t, err)
	return c, schema
}

func aspectNames(outcomes []AspectOutcome) []string {
	names := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		names = append(names, o.Aspect)
	}
	return names
}

func TestNewController_RequiresCollaborators(t *testing.T) {
	_, err := NewController(Dependencies{Generator: newFakeGenerator("")})
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidConfig, types.CodeOf(err))
}

func TestController_IncidentTriggersFollowUps(t *testing.T) {
	exec := (&fakeExecutor{}).then(records(incidentRecord), nil)
	gen := newFakeGenerator(`{"vms_commands":[]}`)
	c, _ := newController(t, exec, gen)

	res, err := c.Run(t.Context(), "What incidents are on Sheikh Zayed Road?")
	require.NoError(t, err)

	assert.True(t, res.Found)
	assert.Equal(t, `{"vms_commands":[]}`, res.Answer)
	assert.Equal(t, []string{"incident_details", "road_network", "response_plans", "vms_details"}, aspectNames(res.Aspects))
	assert.Equal(t, []string{"response_plans", "vms_details"}, res.Aspects[0].Enqueued)
	assert.Contains(t, res.Context, "=== INCIDENT_DETAILS ===")
	assert.Contains(t, res.Context, `"road_name": "Sheikh Zayed Road"`)
	assert.NotContains(t, res.Context, "=== ROAD_NETWORK ===")
	require.Len(t, res.Sections, 1)

	// the first call uses the initial prompt, every later one the follow-up prompt
	calls := gen.queryCalls()
	require.Len(t, calls, 4)
	assert.NotContains(t, calls[0].Prompt, "Previous findings")
	assert.Contains(t, calls[1].Prompt, "Next focus: road_network")
	assert.Contains(t, calls[1].Prompt, "=== INCIDENT_DETAILS ===")
	assert.Contains(t, calls[3].Prompt, "Next focus: vms_details")

	answers := gen.answerCalls()
	require.Len(t, answers, 1)
	assert.Equal(t, 0.3, answers[0].Temperature)
	assert.Equal(t, 1000, answers[0].MaxTokens)
	assert.Equal(t, JSONOnlyInstruction, answers[0].System)
	assert.Contains(t, answers[0].Prompt, "Question: What incidents are on Sheikh Zayed Road?")
	assert.Contains(t, answers[0].Prompt, "=== INCIDENT_DETAILS ===")

	assert.Equal(t, []State{StateInit, StatePlanning, StateAspectQuery, StateSynthesis, StateDone}, res.States)
}

func TestController_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	exec := (&fakeExecutor{}).then(records(`[{"vms_id":"VMS-12"}]`), nil)
	c, _ := newController(t, exec, newFakeGenerator(`{"vms_commands":[]}`), WithTracer(tp.Tracer("test")))

	res, err := c.Run(t.Context(), "Which sign shows a message?")
	require.NoError(t, err)

	var names []string
	var turnID string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
		if span.Name() == "rag.turn" {
			for _, kv := range span.Attributes() {
				if kv.Key == "rag.turn_id" {
					turnID = kv.Value.AsString()
				}
			}
		}
	}
	assert.Equal(t, []string{"rag.aspect", "rag.turn"}, names)
	assert.Equal(t, res.TurnID, turnID)
}

func TestController_AllEmptySkipsSynthesis(t *testing.T) {
	exec := (&fakeExecutor{}).
		then(records("[]"), nil).
		then(nil, nil).
		then(records("not json"), nil)
	gen := newFakeGenerator("should not be used")
	c, _ := newController(t, exec, gen)

	res, err := c.Run(t.Context(), "incident plan message")
	require.NoError(t, err)

	assert.False(t, res.Found)
	assert.Equal(t, NoInformationFound, res.Answer)
	assert.Empty(t, res.Context)
	assert.Empty(t, gen.answerCalls())
	assert.Equal(t, []string{"incident_details", "response_plans", "vms_details"}, aspectNames(res.Aspects))
	assert.Equal(t, OutcomeNoResults, res.Aspects[0].Outcome)
	assert.Equal(t, OutcomeNoResults, res.Aspects[1].Outcome)
	assert.Equal(t, OutcomeFormatError, res.Aspects[2].Outcome)
	assert.Equal(t, StateDone, res.States[len(res.States)-1])
	assert.NotContains(t, res.States, StateSynthesis)
}

func TestController_ExecutorFailureIsRecovered(t *testing.T) {
	exec := (&fakeExecutor{}).
		then(nil, errors.New("connection reset")).
		then(records(`[{"EQT_NO":"E11DMSG08N"}]`), nil)
	gen := newFakeGenerator("answer")
	c, _ := newController(t, exec, gen)

	res, err := c.Run(t.Context(), "Which incident needs a sign?")
	require.NoError(t, err)

	require.Len(t, res.Aspects, 2)
	assert.True(t, res.Aspects[0].Failed())
	assert.Contains(t, res.Aspects[0].Error, "connection reset")
	assert.False(t, res.Aspects[1].Failed())

	assert.True(t, res.Found)
	assert.Equal(t, "answer", res.Answer)
	assert.NotContains(t, res.Context, "INCIDENT_DETAILS")
	assert.Contains(t, res.Context, "=== VMS_DETAILS ===")
	assert.Contains(t, res.States, StateErrorRecovered)

	answers := gen.answerCalls()
	require.Len(t, answers, 1)
	assert.NotContains(t, answers[0].Prompt, "INCIDENT_DETAILS")
}

func TestController_GenerationFailureIsRecovered(t *testing.T) {
	exec := (&fakeExecutor{}).then(records(`[{"plan_type":"closure"}]`), nil)
	gen := newFakeGenerator("answer")
	gen.queryErrs = []error{errors.New("overloaded"), nil}
	c, _ := newController(t, exec, gen)

	res, err := c.Run(t.Context(), "incident response")
	require.NoError(t, err)

	assert.Equal(t, []string{"incident_details", "response_plans", "vms_details"}, aspectNames(res.Aspects))
	assert.True(t, res.Aspects[0].Failed())
	assert.Nil(t, res.Aspects[0].Operation)
	assert.Equal(t, []string{"vms_details"}, res.Aspects[1].Enqueued)
	require.Len(t, exec.calls, 2)
	assert.True(t, res.Found)
}

func TestController_FallbackOperationIsExecuted(t *testing.T) {
	exec := &fakeExecutor{}
	gen := newFakeGenerator("")
	gen.queryOutputs = []string{"sorry, no"}
	c, _ := newController(t, exec, gen)

	res, err := c.Run(t.Context(), "anything")
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, execCall{Kind: KindRead, Query: FallbackQuery, Params: map[string]any{}}, exec.calls[0])
	assert.Equal(t, NoInformationFound, res.Answer)
}

func TestController_WriteOperationUsesWriteKind(t *testing.T) {
	exec := &fakeExecutor{}
	gen := newFakeGenerator("")
	gen.queryOutputs = []string{`{"operation":"write","query":"MERGE (n:Note {id: $id})","parameters":{"id":"n1"}}`}
	c, _ := newController(t, exec, gen)

	_, err := c.Run(t.Context(), "record an incident note")
	require.NoError(t, err)

	require.NotEmpty(t, exec.calls)
	assert.Equal(t, KindWrite, exec.calls[0].Kind)
	assert.Equal(t, map[string]any{"id": "n1"}, exec.calls[0].Params)
}

func TestController_SynthesisFailureIsTurnError(t *testing.T) {
	exec := (&fakeExecutor{}).then(records(`[{"event_no":"E1"}]`), nil)
	gen := newFakeGenerator("")
	gen.answerErr = errors.New("model unavailable")
	c, _ := newController(t, exec, gen)

	res, err := c.Run(t.Context(), "incident E1")
	require.Error(t, err)

	var terr *TurnError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "incident E1", terr.Question)
	assert.Equal(t, res.TurnID, terr.TurnID)
	assert.Equal(t, ErrCodeSynthesisFailed, types.CodeOf(err))
	assert.Contains(t, res.Context, "=== INCIDENT_DETAILS ===")
	assert.False(t, res.Found)
}

func TestController_SchemaLoadedOnce(t *testing.T) {
	exec := &fakeExecutor{}
	c, schema := newController(t, exec, newFakeGenerator(""))

	for range 3 {
		_, err := c.Run(t.Context(), "incident")
		require.NoError(t, err)
	}
	schema.AssertNumberOfCalls(t, "DescribeSchema", 1)
}

func TestController_SchemaRefreshReachesNewSessionsOnly(t *testing.T) {
	provider := &mockSchema{}
	provider.On("DescribeSchema", mock.Anything).Return("SCHEMA-V1", nil).Once()
	provider.On("DescribeSchema", mock.Anything).Return("SCHEMA-V2", nil).Once()
	shared := NewSchemaCache(provider, time.Minute)

	newSession := func(gen *fakeGenerator) *Controller {
		c, err := NewController(Dependencies{Executor: &fakeExecutor{}, Generator: gen, Schema: shared})
		require.NoError(t, err)
		return c
	}

	genA := newFakeGenerator("")
	a := newSession(genA)
	_, err := a.Run(t.Context(), "incident")
	require.NoError(t, err)

	// the cache entry expires; the running session keeps the schema it started with
	shared.Invalidate()
	_, err = a.Run(t.Context(), "incident")
	require.NoError(t, err)
	for _, call := range genA.queryCalls() {
		assert.Contains(t, call.Prompt, "SCHEMA-V1")
	}

	genB := newFakeGenerator("")
	_, err = newSession(genB).Run(t.Context(), "incident")
	require.NoError(t, err)
	require.NotEmpty(t, genB.queryCalls())
	assert.Contains(t, genB.queryCalls()[0].Prompt, "SCHEMA-V2")
	provider.AssertExpectations(t)
}

func TestController_SchemaFailureFailsTurnAndRetries(t *testing.T) {
	schema := &mockSchema{}
	schema.On("DescribeSchema", mock.Anything).Return("", errors.New("graph down")).Once()
	schema.On("DescribeSchema", mock.Anything).Return("schema", nil).Once()

	exec := &fakeExecutor{}
	c, err := NewController(Dependencies{Executor: exec, Generator: newFakeGenerator(""), Schema: schema})
	require.NoError(t, err)

	_, err = c.Run(t.Context(), "incident")
	require.Error(t, err)
	assert.Equal(t, ErrCodeSchemaFailed, types.CodeOf(err))
	assert.Empty(t, exec.calls)

	_, err = c.Run(t.Context(), "incident")
	require.NoError(t, err)
	schema.AssertExpectations(t)
}

func TestController_EmptyQuestion(t *testing.T) {
	exec := &fakeExecutor{}
	c, _ := newController(t, exec, newFakeGenerator(""))

	_, err := c.Run(t.Context(), "   ")
	assert.Equal(t, ErrCodeInvalidQuestion, types.CodeOf(err))
	assert.Empty(t, exec.calls)
}

func TestController_CanceledContext(t *testing.T) {
	exec := &fakeExecutor{}
	c, _ := newController(t, exec, newFakeGenerator(""))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := c.Run(ctx, "incident")
	assert.Equal(t, ErrCodeTurnCanceled, types.CodeOf(err))
	assert.Empty(t, exec.calls)
}

func TestController_SessionReferencesAreResolved(t *testing.T) {
	exec := &fakeExecutor{}
	gen := newFakeGenerator("")
	c, _ := newController(t, exec, gen)
	c.Session().SetLink("L-1042")

	res, err := c.Run(t.Context(), "Any incidents on this link?")
	require.NoError(t, err)

	assert.Equal(t, "Any incidents on this link?", res.Question)
	assert.Equal(t, "Any incidents on L-1042?", res.ResolvedQuestion)
	assert.Contains(t, gen.queryCalls()[0].Prompt, "Question: Any incidents on L-1042?")
}

func TestController_CustomPlanner(t *testing.T) {
	planner, err := NewPlanner(AspectTable{
		Fallback: "closures",
		Aspects:  []Aspect{{Name: "closures", Keywords: []string{"closed"}}},
	})
	require.NoError(t, err)

	schema := &mockSchema{}
	schema.On("DescribeSchema", mock.Anything).Return("s", nil)
	c, err := NewController(Dependencies{
		Executor:  &fakeExecutor{},
		Generator: newFakeGenerator(""),
		Schema:    schema,
		Planner:   planner,
	})
	require.NoError(t, err)

	res, err := c.Run(t.Context(), "incident")
	require.NoError(t, err)
	assert.Equal(t, []string{"closures"}, aspectNames(res.Aspects))
}
