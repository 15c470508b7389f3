package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// GeminiClient implements Embedder and Completer on Vertex AI Gemini
type GeminiClient struct {
	client          *genai.Client
	embeddingModel  string
	dimensionality  int32
	maxOutputTokens int32
}

var (
	_ Embedder  = (*GeminiClient)(nil)
	_ Completer = (*GeminiClient)(nil)
)

type GeminiOption func(*GeminiClient)

func WithGeminiEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithGeminiDimensionality sets the output dimensionality of embeddings
func WithGeminiDimensionality(n int) GeminiOption {
	return func(g *GeminiClient) {
		g.dimensionality = int32(n)
	}
}

func WithGeminiMaxOutputTokens(n int) GeminiOption {
	return func(g *GeminiClient) {
		if n > 0 {
			g.maxOutputTokens = int32(n)
		}
	}
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create genai client")
	}

	g := &GeminiClient{
		client:          client,
		embeddingModel:  "gemini-embedding-001",
		maxOutputTokens: DefaultMaxNewTokens,
	}

	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

func (g *GeminiClient) Model() string {
	return g.embeddingModel
}

func (g *GeminiClient) EmbedDocuments(ctx context.Context, texts []string) ([]model.Embedding, error) {
	if len(texts) == 0 {
		return nil, goerr.New("no texts to embed")
	}

	config := &genai.EmbedContentConfig{}
	if g.dimensionality > 0 {
		config.OutputDimensionality = genai.Ptr(g.dimensionality)
	}

	vectors := make([]model.Embedding, 0, len(texts))
	for i, text := range texts {
		resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), config)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed content", goerr.V("index", i), goerr.V("model", g.embeddingModel))
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return nil, goerr.Wrap(model.ErrInvalidResponseShape, "gemini returned no embedding", goerr.V("index", i))
		}
		vectors = append(vectors, model.Embedding(resp.Embeddings[0].Values))
	}

	return vectors, nil
}

func (g *GeminiClient) EmbedQuery(ctx context.Context, text string) (model.Embedding, error) {
	return embedQuery(ctx, g, text)
}

func (g *GeminiClient) Complete(ctx context.Context, prompt, modelName string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, modelName, genai.Text(prompt), &genai.GenerateContentConfig{
		MaxOutputTokens: g.maxOutputTokens,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", modelName))
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.Wrap(model.ErrEmptyCompletion, "gemini returned no candidates", goerr.V("model", modelName))
	}

	var texts []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	return strings.Join(texts, "\n"), nil
}
