package llmservice

import (
	"context"
	"strings"

	"secondbrain/internal/config"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewModel builds the chat model from config. The returned llms.Model is the
// generation boundary the agent depends on.
func NewModel(llmConfig *config.LLMConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	return openai.New(opts...)
}

// GenerateContent calls the model, optionally offering tools.
func GenerateContent(ctx context.Context, model llms.Model, tools []llms.Tool, messages []llms.MessageContent) (*llms.ContentResponse, error) {
	log.Debug().Int("messages", len(messages)).Int("tools", len(tools)).Msg("Generating content")

	if len(tools) > 0 {
		return model.GenerateContent(ctx, messages, llms.WithTools(tools))
	}
	return model.GenerateContent(ctx, messages)
}
