// Package retrieval turns a query into formatted context from the top-k
// most similar chunks.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"secondbrain/internal/models"
)

// DefaultTopK is the default number of chunks retrieved per query.
const DefaultTopK = 2

// Searcher is the slice of the vector index the tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

// Tool retrieves context for the query agent.
type Tool struct {
	index Searcher
	topK  int
}

// NewTool creates the retrieval tool. topK is the default result count used
// when the caller passes k <= 0.
func NewTool(index Searcher, topK int) *Tool {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Tool{index: index, topK: topK}
}

// Retrieve returns the k most relevant chunks formatted as one context
// block, one "Source: ...\nContent: ..." section per chunk joined by blank
// lines, preserving the ranked order of the search.
func (t *Tool) Retrieve(ctx context.Context, query string, k int) (*models.RetrievalResult, error) {
	if k <= 0 {
		k = t.topK
	}

	results, err := t.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}

	sections := make([]string, len(results))
	for i, r := range results {
		sections[i] = fmt.Sprintf("Source: %s\nContent: %s", formatMetadata(r.Metadata), r.Text)
	}

	return &models.RetrievalResult{
		Context: strings.Join(sections, "\n\n"),
		Chunks:  results,
	}, nil
}

// Definition describes the tool to the generation service.
func (t *Tool) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        models.RetrievalToolName,
			Description: models.RetrievalToolDescription,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "The search query.",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// formatMetadata renders metadata with sorted keys so the context block is
// stable for identical results.
func formatMetadata(meta map[string]string) string {
	if len(meta) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%s", k, meta[k])
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}
