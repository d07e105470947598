package rag

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kg-road/roadrag/internal/contextkeys"
	"github.com/kg-road/roadrag/internal/observability"
	"github.com/kg-road/roadrag/internal/prompt"
	"github.com/kg-road/roadrag/internal/types"
)

// NoInformationFound is the answer of a turn whose aspects all came back empty.
const NoInformationFound = "No relevant information found in the database."

const (
	DefaultAnswerTemperature = 0.3
	DefaultAnswerMaxTokens   = 1000
)

// State is a step of a turn.
type State string

const (
	StateInit           State = "INIT"
	StatePlanning       State = "PLANNING"
	StateAspectQuery    State = "PER_ASPECT_QUERY"
	StateErrorRecovered State = "ERROR_RECOVERED"
	StateSynthesis      State = "SYNTHESIS"
	StateDone           State = "DONE"
)

// AspectOutcome records what happened to one aspect.
type AspectOutcome struct {
	Aspect    string        `json:"aspect"`
	FollowUp  bool          `json:"follow_up"`
	Operation *Operation    `json:"operation,omitempty"`
	Outcome   FormatOutcome `json:"outcome,omitempty"`
	Error     string        `json:"error,omitempty"`
	Enqueued  []string      `json:"enqueued,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Failed reports whether the aspect ended in a recovered error.
func (o AspectOutcome) Failed() bool {
	return o.Error != ""
}

// TurnResult is the record of one question.
type TurnResult struct {
	TurnID           string          `json:"turn_id"`
	Question         string          `json:"question"`
	ResolvedQuestion string          `json:"resolved_question"`
	Answer           string          `json:"answer"`
	Found            bool            `json:"found"`
	Context          string          `json:"context,omitempty"`
	Sections         []Section       `json:"sections,omitempty"`
	Aspects          []AspectOutcome `json:"aspects"`
	States           []State         `json:"states"`
}

// Dependencies are the collaborators a Controller is built from.
type Dependencies struct {
	Executor  QueryExecutor
	Generator AnswerGenerator
	Schema    SchemaProvider
	// Planner defaults to the built-in aspect table.
	Planner *Planner
	// Prompts defaults to the embedded templates.
	Prompts *prompt.Renderer
}

// ControllerOption configures a Controller.
type ControllerOption func(*controllerOptions)

type controllerOptions struct {
	queryTemperature  float64
	queryMaxTokens    int
	answerTemperature float64
	answerMaxTokens   int
	session           *SessionState
	logger            *observability.TracedLogger
	metrics           *observability.RAGMetrics
	tracer            trace.Tracer
}

func WithQueryGeneration(temperature float64, maxTokens int) ControllerOption {
	return func(o *controllerOptions) {
		o.queryTemperature = temperature
		if maxTokens > 0 {
			o.queryMaxTokens = maxTokens
		}
	}
}

func WithAnswerGeneration(temperature float64, maxTokens int) ControllerOption {
	return func(o *controllerOptions) {
		o.answerTemperature = temperature
		if maxTokens > 0 {
			o.answerMaxTokens = maxTokens
		}
	}
}

// WithSession shares an existing session state with the controller.
func WithSession(s *SessionState) ControllerOption {
	return func(o *controllerOptions) { o.session = s }
}

func WithLogger(l *observability.TracedLogger) ControllerOption {
	return func(o *controllerOptions) { o.logger = l }
}

func WithMetrics(m *observability.RAGMetrics) ControllerOption {
	return func(o *controllerOptions) { o.metrics = m }
}

func WithTracer(t trace.Tracer) ControllerOption {
	return func(o *controllerOptions) { o.tracer = t }
}

// Controller runs question turns. Turns on one controller are serialized;
// concurrent sessions need their own controller.
type Controller struct {
	mu sync.Mutex

	executor QueryExecutor
	answerer AnswerGenerator
	schema   SchemaProvider
	planner  *Planner
	prompts  *prompt.Renderer
	querygen *QueryGenerator
	session  *SessionState
	opts     controllerOptions

	schemaText   string
	schemaLoaded bool
}

// NewController wires a controller from its collaborators.
func NewController(deps Dependencies, opts ...ControllerOption) (*Controller, error) {
	if deps.Executor == nil || deps.Generator == nil || deps.Schema == nil {
		return nil, types.NewError(ErrCodeInvalidConfig, "controller requires an executor, a generator and a schema provider")
	}

	o := controllerOptions{
		queryTemperature:  DefaultQueryTemperature,
		queryMaxTokens:    DefaultQueryMaxTokens,
		answerTemperature: DefaultAnswerTemperature,
		answerMaxTokens:   DefaultAnswerMaxTokens,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = observability.NewTracedLogger(nil, "rag")
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.session == nil {
		o.session = &SessionState{}
	}

	planner := deps.Planner
	if planner == nil {
		var err error
		if planner, err = NewPlanner(DefaultAspectTable()); err != nil {
			return nil, err
		}
	}
	prompts := deps.Prompts
	if prompts == nil {
		var err error
		if prompts, err = prompt.NewRenderer(); err != nil {
			return nil, err
		}
	}

	return &Controller{
		executor: deps.Executor,
		answerer: deps.Generator,
		schema:   deps.Schema,
		planner:  planner,
		prompts:  prompts,
		querygen: NewQueryGenerator(deps.Generator, prompts,
			WithQueryTemperature(o.queryTemperature),
			WithQueryMaxTokens(o.queryMaxTokens),
			WithQueryLogger(o.logger),
			WithQueryMetrics(o.metrics),
		),
		session: o.session,
		opts:    o,
	}, nil
}

// Session returns the controller's session state.
func (c *Controller) Session() *SessionState {
	return c.session
}

// Planner returns the controller's planner.
func (c *Controller) Planner() *Planner {
	return c.planner
}

// turn holds the state of one Run.
type turn struct {
	result   *TurnResult
	queue    *WorkQueue
	context  AccumulatedContext
	calls    int
	state    State
	question string
}

func (c *Controller) transition(ctx context.Context, t *turn, to State) {
	c.opts.logger.Debug(ctx, "turn state", "from", t.state, "to", to)
	t.state = to
	t.result.States = append(t.result.States, to)
}

// Run answers one question. When every aspect comes back empty the answer
// is NoInformationFound and the model is not asked to synthesize. A failed
// synthesis returns the partial result and a *TurnError.
func (c *Controller) Run(ctx context.Context, question string) (*TurnResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &turn{
		result: &TurnResult{
			TurnID:   uuid.NewString(),
			Question: question,
		},
		state: StateInit,
	}
	t.result.States = []State{StateInit}

	ctx = contextkeys.WithTurnID(ctx, t.result.TurnID)
	ctx, span := c.opts.tracer.Start(ctx, "rag.turn", trace.WithAttributes(
		attribute.String("rag.turn_id", t.result.TurnID),
	))
	defer span.End()

	if strings.TrimSpace(question) == "" {
		err := newTurnError(t.result.TurnID, question, ErrCodeInvalidQuestion, "question is empty", nil)
		c.failTurn(ctx, span, err)
		return t.result, err
	}

	schema, err := c.loadSchema(ctx)
	if err != nil {
		terr := newTurnError(t.result.TurnID, question, ErrCodeSchemaFailed, "graph schema unavailable", err)
		c.failTurn(ctx, span, terr)
		return t.result, terr
	}

	// PLANNING
	c.transition(ctx, t, StatePlanning)
	t.question = c.session.Resolve(question)
	t.result.ResolvedQuestion = t.question
	planned := c.planner.Plan(t.question)
	t.queue = NewWorkQueue(planned...)
	c.opts.logger.Info(ctx, "planned aspects", "aspects", planned)

	// PER_ASPECT_QUERY
	for {
		aspect, ok := t.queue.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			terr := newTurnError(t.result.TurnID, question, ErrCodeTurnCanceled, "turn canceled", err)
			c.failTurn(ctx, span, terr)
			return t.result, terr
		}
		if t.state != StateAspectQuery {
			c.transition(ctx, t, StateAspectQuery)
		}
		c.runAspect(ctx, t, schema, aspect)
	}

	t.result.Context = t.context.String()
	t.result.Sections = t.context.Sections()

	if t.context.Empty() {
		c.transition(ctx, t, StateDone)
		t.result.Answer = NoInformationFound
		c.opts.metrics.RecordTurn(ctx, "no_information")
		c.opts.logger.Info(ctx, "no relevant information found")
		return t.result, nil
	}

	// SYNTHESIS
	c.transition(ctx, t, StateSynthesis)
	answer, err := c.synthesize(ctx, t)
	if err != nil {
		terr := newTurnError(t.result.TurnID, question, ErrCodeSynthesisFailed, "answer synthesis failed", err)
		c.failTurn(ctx, span, terr)
		return t.result, terr
	}

	c.transition(ctx, t, StateDone)
	t.result.Answer = answer
	t.result.Found = true
	c.opts.metrics.RecordTurn(ctx, "answered")
	return t.result, nil
}

func (c *Controller) failTurn(ctx context.Context, span trace.Span, err *TurnError) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.opts.metrics.RecordTurn(ctx, "failed")
	c.opts.logger.Error(ctx, "turn failed", "error", err.Err)
}

// loadSchema fetches the schema on the first turn and keeps it for the
// controller's lifetime, so one session always sees one schema. A shared
// SchemaCache TTL only affects sessions started after it expires. A failed
// load is retried on the next turn.
func (c *Controller) loadSchema(ctx context.Context) (string, error) {
	if c.schemaLoaded {
		return c.schemaText, nil
	}
	text, err := c.schema.DescribeSchema(ctx)
	if err != nil {
		return "", err
	}
	c.schemaText = text
	c.schemaLoaded = true
	return text, nil
}

// runAspect generates, executes and formats one aspect. Failures are
// recorded on the outcome and never escape.
func (c *Controller) runAspect(ctx context.Context, t *turn, schema, aspect string) {
	started := time.Now()
	ctx = contextkeys.WithAspect(ctx, aspect)
	ctx, span := c.opts.tracer.Start(ctx, "rag.aspect", trace.WithAttributes(
		attribute.String("rag.aspect", aspect),
	))
	defer span.End()

	outcome := AspectOutcome{Aspect: aspect, FollowUp: t.calls > 0}
	defer func() {
		outcome.Duration = time.Since(started)
		t.result.Aspects = append(t.result.Aspects, outcome)
	}()

	req := QueryRequest{
		Question: t.question,
		Schema:   schema,
		FollowUp: t.calls > 0,
	}
	if req.FollowUp {
		req.Context = t.context.String()
		req.Aspect = aspect
	}
	t.calls++

	op, err := c.querygen.Generate(ctx, req)
	if err != nil {
		c.recoverAspect(ctx, t, span, &outcome, err)
		return
	}
	outcome.Operation = &op

	c.opts.logger.Debug(ctx, "executing operation",
		"operation", op.Kind,
		"query", op.Query,
		"params", op.Parameters,
	)
	raw, err := c.executor.Execute(ctx, op.Kind, op.Query, op.Parameters)
	if err != nil {
		c.recoverAspect(ctx, t, span, &outcome, types.WrapError(ErrCodeExecutionFailed, "operation failed", err))
		return
	}

	formatted := FormatContext(raw)
	outcome.Outcome = formatted.Outcome
	c.opts.metrics.RecordAspect(ctx, aspect, string(formatted.Outcome))
	span.SetAttributes(attribute.String("rag.outcome", string(formatted.Outcome)))
	if !formatted.Usable() {
		c.opts.logger.Debug(ctx, "aspect produced nothing usable", "outcome", formatted.Outcome)
		return
	}

	t.context.Append(aspect, formatted.Text)
	outcome.Enqueued = t.queue.Push(c.planner.Extend(aspect, formatted.Text)...)
	if len(outcome.Enqueued) > 0 {
		c.opts.logger.Info(ctx, "enqueued follow-up aspects", "after", aspect, "aspects", outcome.Enqueued)
	}
}

func (c *Controller) recoverAspect(ctx context.Context, t *turn, span trace.Span, outcome *AspectOutcome, err error) {
	c.transition(ctx, t, StateErrorRecovered)
	outcome.Error = err.Error()
	span.RecordError(err)
	span.SetStatus(codes.Error, "aspect failed")
	c.opts.metrics.RecordAspect(ctx, outcome.Aspect, "failed")
	c.opts.logger.Warn(ctx, "aspect failed, continuing", "error", err)
}

func (c *Controller) synthesize(ctx context.Context, t *turn) (string, error) {
	text, err := c.prompts.AnswerPrompt(prompt.AnswerData{
		Question: t.question,
		Context:  t.context.String(),
	})
	if err != nil {
		return "", err
	}
	return c.answerer.Complete(ctx, text, JSONOnlyInstruction, c.opts.answerMaxTokens, c.opts.answerTemperature)
}
