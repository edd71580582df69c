// Package embedding constructs the external embedding client. The embedder
// is consumed as a black-box text -> vector function everywhere else.
package embedding

import (
	"strings"

	"github.com/rs/zerolog/log"

	"secondbrain/internal/config"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates an embedder against an OpenAI-compatible endpoint.
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Initializing embedder")

	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing embedding LLM")
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// NewOllamaEmbedder creates an embedder backed by a local ollama server.
func NewOllamaEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Initializing ollama embedder")

	llm, err := ollama.New(
		ollama.WithServerURL(llmConfig.BaseURL),
		ollama.WithModel(llmConfig.Model),
	)
	if err != nil {
		log.Error().Err(err).Msg("Error initializing ollama LLM")
		return nil, err
	}
	return embeddings.NewEmbedder(llm)
}

// FromConfig picks the embedder backend by provider name.
func FromConfig(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	if strings.EqualFold(llmConfig.Provider, "ollama") {
		return NewOllamaEmbedder(llmConfig)
	}
	return NewEmbedder(llmConfig)
}
