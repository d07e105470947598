package rag

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
)

type generatorCall struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float64
}

// fakeGenerator answers query-generation prompts with queryOutputs (the
// last one repeats) and the analyst prompt with answer.
type fakeGenerator struct {
	mu           sync.Mutex
	calls        []generatorCall
	queryOutputs []string
	queryErrs    []error
	answer       string
	answerErr    error
}

const validOperation = `{"operation":"read","query":"MATCH (e:event_record) RETURN e","parameters":{}}`

func newFakeGenerator(answer string) *fakeGenerator {
	return &fakeGenerator{queryOutputs: []string{validOperation}, answer: answer}
}

func (f *fakeGenerator) Complete(_ context.Context, prompt, system string, maxTokens int, temperature float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, generatorCall{prompt, system, maxTokens, temperature})

	if isAnswerPrompt(prompt) {
		return f.answer, f.answerErr
	}

	if len(f.queryErrs) > 0 {
		err := f.queryErrs[0]
		f.queryErrs = f.queryErrs[1:]
		if err != nil {
			return "", err
		}
	}
	out := f.queryOutputs[0]
	if len(f.queryOutputs) > 1 {
		f.queryOutputs = f.queryOutputs[1:]
	}
	return out, nil
}

func isAnswerPrompt(prompt string) bool {
	return strings.HasPrefix(prompt, "You are a data analyst")
}

func (f *fakeGenerator) answerCalls() []generatorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []generatorCall
	for _, c := range f.calls {
		if isAnswerPrompt(c.Prompt) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGenerator) queryCalls() []generatorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []generatorCall
	for _, c := range f.calls {
		if !isAnswerPrompt(c.Prompt) {
			out = append(out, c)
		}
	}
	return out
}

type execCall struct {
	Kind   OperationKind
	Query  string
	Params map[string]any
}

type execResponse struct {
	raw RawResult
	err error
}

// fakeExecutor replays responses in call order, then returns empty results.
type fakeExecutor struct {
	mu        sync.Mutex
	responses []execResponse
	calls     []execCall
}

func (f *fakeExecutor) Execute(_ context.Context, kind OperationKind, query string, params map[string]any) (RawResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, execCall{kind, query, params})
	if len(f.responses) == 0 {
		return RawResult{TextBlock("[]")}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp.raw, resp.err
}

func (f *fakeExecutor) then(raw RawResult, err error) *fakeExecutor {
	f.responses = append(f.responses, execResponse{raw, err})
	return f
}

type mockSchema struct {
	mock.Mock
}

func (m *mockSchema) DescribeSchema(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func records(payload string) RawResult {
	return RawResult{TextBlock(payload)}
}
