// Package agent answers questions through a single-tool reasoning loop: the
// model is offered the retrieval tool once, then must produce a final answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"

	"secondbrain/internal/llmservice"
	"secondbrain/internal/models"
	"secondbrain/internal/retrieval"
)

// Agent runs Start -> DecidingToolUse -> (ToolCall -> Retrieved)? -> FinalAnswer.
// Tool use is capped at one round trip to keep latency and failure modes
// bounded; the second generation call offers no tools.
type Agent struct {
	model llms.Model
	tool  *retrieval.Tool
	topK  int
}

// New wires the agent. topK is passed to the retrieval tool on every call.
func New(model llms.Model, tool *retrieval.Tool, topK int) *Agent {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	return &Agent{model: model, tool: tool, topK: topK}
}

// Answer produces a grounded answer for the question. The caller controls
// cancellation and timeout through ctx; both generation calls and the
// retrieval in between honor it.
func (a *Agent) Answer(ctx context.Context, question string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, models.AgentSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, question),
	}

	resp, err := llmservice.GenerateContent(ctx, a.model, []llms.Tool{a.tool.Definition()}, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", models.ErrMalformedAgentResponse)
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) == 0 {
		if strings.TrimSpace(choice.Content) == "" {
			return "", fmt.Errorf("%w: neither tool call nor answer", models.ErrMalformedAgentResponse)
		}
		return choice.Content, nil
	}

	call := choice.ToolCalls[0]
	if call.FunctionCall == nil || call.FunctionCall.Name != models.RetrievalToolName {
		return "", fmt.Errorf("%w: unexpected tool call", models.ErrMalformedAgentResponse)
	}

	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
		return "", fmt.Errorf("%w: bad tool arguments: %v", models.ErrMalformedAgentResponse, err)
	}
	if args.Query == "" {
		args.Query = question
	}

	retrieved, err := a.tool.Retrieve(ctx, args.Query, a.topK)
	if err != nil {
		return "", err
	}
	log.Debug().Str("query", args.Query).Int("chunks", len(retrieved.Chunks)).Msg("Tool retrieved context")

	messages = append(messages,
		llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{call},
		},
		llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: call.ID,
				Name:       models.RetrievalToolName,
				Content:    retrieved.Context,
			}},
		},
	)

	final, err := llmservice.GenerateContent(ctx, a.model, nil, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationService, err)
	}
	if len(final.Choices) == 0 || strings.TrimSpace(final.Choices[0].Content) == "" {
		return "", fmt.Errorf("%w: empty final answer", models.ErrMalformedAgentResponse)
	}
	return final.Choices[0].Content, nil
}
