package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"secondbrain/internal/models"
	"secondbrain/internal/retrieval"
)

// fakeModel replays scripted responses and records the calls it sees.
type fakeModel struct {
	responses []*llms.ContentResponse
	errs      []error
	calls     [][]llms.MessageContent
	toolsSeen []int
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	call := len(f.calls)
	f.calls = append(f.calls, messages)

	opts := llms.CallOptions{}
	for _, o := range options {
		o(&opts)
	}
	f.toolsSeen = append(f.toolsSeen, len(opts.Tools))

	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return f.responses[call], nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := f.GenerateContent(ctx, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type fakeSearcher struct {
	results []models.SearchResult
}

func (f *fakeSearcher) Search(_ context.Context, _ string, _ int) ([]models.SearchResult, error) {
	return f.results, nil
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func toolCallResponse(query string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call-1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      models.RetrievalToolName,
				Arguments: `{"query": "` + query + `"}`,
			},
		}},
	}}}
}

func newAgent(model *fakeModel, results []models.SearchResult) *Agent {
	tool := retrieval.NewTool(&fakeSearcher{results: results}, 2)
	return New(model, tool, 2)
}

func TestAnswer_WithToolRound(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		toolCallResponse("capital of France"),
		textResponse("The capital of France is Paris."),
	}}
	agent := newAgent(model, []models.SearchResult{
		{ID: "c1", Score: 0.95, Text: "Paris is the capital of France.", Metadata: map[string]string{"source": "france.md"}},
	})

	answer, err := agent.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Contains(t, answer, "Paris")

	require.Len(t, model.calls, 2, "exactly one tool round trip")
	assert.Greater(t, model.toolsSeen[0], 0, "first call offers the tool")
	assert.Equal(t, 0, model.toolsSeen[1], "final call offers no tools")

	// The tool's context was appended to the conversation.
	secondCall := model.calls[1]
	require.Len(t, secondCall, 4)
	assert.Equal(t, llms.ChatMessageTypeTool, secondCall[3].Role)
}

func TestAnswer_WithoutToolCall(t *testing.T) {
	model := &fakeModel{responses: []*llms.ContentResponse{
		textResponse("Hello! How can I help?"),
	}}
	agent := newAgent(model, nil)

	answer, err := agent.Answer(context.Background(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help?", answer)
	assert.Len(t, model.calls, 1, "no second generation without a tool call")
}

func TestAnswer_GenerationFailure(t *testing.T) {
	model := &fakeModel{errs: []error{errors.New("upstream 503")}}
	agent := newAgent(model, nil)

	_, err := agent.Answer(context.Background(), "question")
	assert.ErrorIs(t, err, models.ErrGenerationService)
}

func TestAnswer_MalformedResponses(t *testing.T) {
	t.Run("no choices", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{{}}}
		_, err := newAgent(model, nil).Answer(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrMalformedAgentResponse)
	})

	t.Run("empty content and no tool call", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{textResponse("  ")}}
		_, err := newAgent(model, nil).Answer(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrMalformedAgentResponse)
	})

	t.Run("unknown tool", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{{
			Choices: []*llms.ContentChoice{{
				ToolCalls: []llms.ToolCall{{
					ID:           "call-1",
					Type:         "function",
					FunctionCall: &llms.FunctionCall{Name: "launch_rockets", Arguments: "{}"},
				}},
			}},
		}}}
		_, err := newAgent(model, nil).Answer(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrMalformedAgentResponse)
	})

	t.Run("empty final answer after tool round", func(t *testing.T) {
		model := &fakeModel{responses: []*llms.ContentResponse{
			toolCallResponse("q"),
			textResponse(""),
		}}
		_, err := newAgent(model, nil).Answer(context.Background(), "q")
		assert.ErrorIs(t, err, models.ErrMalformedAgentResponse)
	})
}
