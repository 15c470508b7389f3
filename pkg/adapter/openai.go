package adapter

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

// OpenAIClient implements Embedder and Completer on any OpenAI compatible API
type OpenAIClient struct {
	client         *openai.Client
	embeddingModel string
	dimensions     int
	maxTokens      int
}

var (
	_ Embedder  = (*OpenAIClient)(nil)
	_ Completer = (*OpenAIClient)(nil)
)

type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL        string
	embeddingModel string
	dimensions     int
	maxTokens      int
}

// WithOpenAIBaseURL points the client at a compatible server
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

func WithOpenAIEmbeddingModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		c.embeddingModel = model
	}
}

func WithOpenAIDimensions(n int) OpenAIOption {
	return func(c *openAIConfig) {
		c.dimensions = n
	}
}

func WithOpenAIMaxTokens(n int) OpenAIOption {
	return func(c *openAIConfig) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, goerr.New("openai api key is required")
	}

	cfg := &openAIConfig{
		embeddingModel: string(openai.EmbeddingModelTextEmbedding3Small),
		maxTokens:      DefaultMaxNewTokens,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOptions...)

	return &OpenAIClient{
		client:         &client,
		embeddingModel: cfg.embeddingModel,
		dimensions:     cfg.dimensions,
		maxTokens:      cfg.maxTokens,
	}, nil
}

func (c *OpenAIClient) Model() string {
	return c.embeddingModel
}

func (c *OpenAIClient) EmbedDocuments(ctx context.Context, texts []string) ([]model.Embedding, error) {
	if len(texts) == 0 {
		return nil, goerr.New("no texts to embed")
	}

	vectors := make([]model.Embedding, 0, len(texts))
	for i, text := range texts {
		params := openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
			Model: openai.EmbeddingModel(c.embeddingModel),
		}
		if c.dimensions > 0 {
			params.Dimensions = openai.Int(int64(c.dimensions))
		}

		resp, err := c.client.Embeddings.New(ctx, params)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create embedding", goerr.V("index", i), goerr.V("model", c.embeddingModel))
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, goerr.Wrap(model.ErrInvalidResponseShape, "openai returned no embedding", goerr.V("index", i))
		}

		vec := make(model.Embedding, len(resp.Data[0].Embedding))
		for j, v := range resp.Data[0].Embedding {
			vec[j] = float32(v)
		}
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

func (c *OpenAIClient) EmbedQuery(ctx context.Context, text string) (model.Embedding, error) {
	return embedQuery(ctx, c, text)
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt, modelName string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		MaxCompletionTokens: openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to create chat completion", goerr.V("model", modelName))
	}
	if len(resp.Choices) == 0 {
		return "", goerr.Wrap(model.ErrEmptyCompletion, "openai returned no choices", goerr.V("model", modelName))
	}

	return resp.Choices[0].Message.Content, nil
}
