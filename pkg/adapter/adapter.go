package adapter

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
)

// Embedder turns texts into embedding vectors. Texts are embedded one request
// at a time, in order; the first failure aborts the batch.
type Embedder interface {
	// EmbedDocuments returns one vector per text, index aligned with texts
	EmbedDocuments(ctx context.Context, texts []string) ([]model.Embedding, error)

	// EmbedQuery embeds a single text
	EmbedQuery(ctx context.Context, text string) (model.Embedding, error)

	// Model returns the embedding model identifier recorded with vectors
	Model() string
}

// Completer sends a prompt to a chat completion model and returns the text
// of the answer
type Completer interface {
	Complete(ctx context.Context, prompt, model string) (string, error)
}

// DefaultMaxNewTokens caps the generation length of completion requests
const DefaultMaxNewTokens = 1024

// embedQuery is the EmbedQuery implementation shared by embedders
func embedQuery(ctx context.Context, e Embedder, text string) (model.Embedding, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
