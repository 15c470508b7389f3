package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/time/rate"
)

const (
	DefaultHuggingFaceEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultHuggingFaceProvider       = "hf-inference"

	defaultFeatureExtractionURL = "https://router.huggingface.co/hf-inference/models/{model}/pipeline/feature-extraction"
	defaultChatCompletionsURL   = "https://router.huggingface.co/v1/chat/completions"

	maxErrorBody = 4096
)

// HuggingFaceEmbedder calls the Hugging Face feature-extraction API
type HuggingFaceEmbedder struct {
	apiKey   string
	model    string
	provider string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
}

var _ Embedder = (*HuggingFaceEmbedder)(nil)

type HuggingFaceEmbedderOption func(*HuggingFaceEmbedder)

// WithEmbedderModel sets the feature-extraction model
func WithEmbedderModel(model string) HuggingFaceEmbedderOption {
	return func(h *HuggingFaceEmbedder) {
		h.model = model
	}
}

// WithEmbedderProvider sets the inference provider sent with each request
func WithEmbedderProvider(provider string) HuggingFaceEmbedderOption {
	return func(h *HuggingFaceEmbedder) {
		h.provider = provider
	}
}

// WithEmbedderEndpoint overrides the request URL. "{model}" is replaced with
// the path-escaped model name.
func WithEmbedderEndpoint(endpoint string) HuggingFaceEmbedderOption {
	return func(h *HuggingFaceEmbedder) {
		h.endpoint = endpoint
	}
}

// WithEmbedderHTTPClient sets the HTTP client
func WithEmbedderHTTPClient(client *http.Client) HuggingFaceEmbedderOption {
	return func(h *HuggingFaceEmbedder) {
		h.client = client
	}
}

// WithEmbedderRateLimit throttles requests to rps with the given burst. A
// non-positive rps disables throttling.
func WithEmbedderRateLimit(rps float64, burst int) HuggingFaceEmbedderOption {
	return func(h *HuggingFaceEmbedder) {
		if rps <= 0 {
			h.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		h.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHuggingFaceEmbedder creates a feature-extraction client
func NewHuggingFaceEmbedder(apiKey string, opts ...HuggingFaceEmbedderOption) *HuggingFaceEmbedder {
	h := &HuggingFaceEmbedder{
		apiKey:   apiKey,
		model:    DefaultHuggingFaceEmbeddingModel,
		provider: DefaultHuggingFaceProvider,
		endpoint: defaultFeatureExtractionURL,
		client:   http.DefaultClient,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *HuggingFaceEmbedder) Model() string {
	return h.model
}

type featureExtractionRequest struct {
	Model    string `json:"model"`
	Inputs   string `json:"inputs"`
	Provider string `json:"provider,omitempty"`
}

func (h *HuggingFaceEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([]model.Embedding, error) {
	if len(texts) == 0 {
		return nil, goerr.New("no texts to embed")
	}

	vectors := make([]model.Embedding, 0, len(texts))
	for i, text := range texts {
		vec, err := h.embed(ctx, text)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed text", goerr.V("index", i), goerr.V("model", h.model))
		}
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

func (h *HuggingFaceEmbedder) EmbedQuery(ctx context.Context, text string) (model.Embedding, error) {
	return embedQuery(ctx, h, text)
}

func (h *HuggingFaceEmbedder) embed(ctx context.Context, text string) (model.Embedding, error) {
	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return nil, goerr.Wrap(err, "rate limiter wait canceled")
		}
	}

	body, err := json.Marshal(featureExtractionRequest{
		Model:    h.model,
		Inputs:   text,
		Provider: h.provider,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal feature extraction request")
	}

	endpoint := strings.ReplaceAll(h.endpoint, "{model}", url.PathEscape(h.model))
	respBody, status, err := postJSON(ctx, h.client, endpoint, h.apiKey, body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, goerr.Wrap(model.ErrEmbeddingRequestFailed, fmt.Sprintf("feature extraction returned status %d", status),
			goerr.V("status", status),
			goerr.V("body", truncate(string(respBody), maxErrorBody)))
	}

	normalized, err := NormalizeEmbedding(respBody)
	if err != nil {
		return nil, err
	}
	return normalized.Vector, nil
}

// HuggingFaceCompleter calls the Hugging Face chat completions API
type HuggingFaceCompleter struct {
	apiKey       string
	endpoint     string
	maxNewTokens int
	client       *http.Client
}

var _ Completer = (*HuggingFaceCompleter)(nil)

type HuggingFaceCompleterOption func(*HuggingFaceCompleter)

// WithCompleterEndpoint overrides the chat completions URL
func WithCompleterEndpoint(endpoint string) HuggingFaceCompleterOption {
	return func(h *HuggingFaceCompleter) {
		h.endpoint = endpoint
	}
}

// WithMaxNewTokens sets the generation length cap
func WithMaxNewTokens(n int) HuggingFaceCompleterOption {
	return func(h *HuggingFaceCompleter) {
		if n > 0 {
			h.maxNewTokens = n
		}
	}
}

// WithCompleterHTTPClient sets the HTTP client
func WithCompleterHTTPClient(client *http.Client) HuggingFaceCompleterOption {
	return func(h *HuggingFaceCompleter) {
		h.client = client
	}
}

// NewHuggingFaceCompleter creates a chat completions client
func NewHuggingFaceCompleter(apiKey string, opts ...HuggingFaceCompleterOption) *HuggingFaceCompleter {
	h := &HuggingFaceCompleter{
		apiKey:       apiKey,
		endpoint:     defaultChatCompletionsURL,
		maxNewTokens: DefaultMaxNewTokens,
		client:       http.DefaultClient,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

type chatContentSegment struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatMessage struct {
	Role    string               `json:"role"`
	Content []chatContentSegment `json:"content"`
}

type chatParameters struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

type chatRequest struct {
	Model      string         `json:"model"`
	Messages   []chatMessage  `json:"messages"`
	Parameters chatParameters `json:"parameters"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (h *HuggingFaceCompleter) Complete(ctx context.Context, prompt, modelName string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: modelName,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: []chatContentSegment{{Type: "text", Text: prompt}},
			},
		},
		Parameters: chatParameters{MaxNewTokens: h.maxNewTokens},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal chat request")
	}

	respBody, status, err := postJSON(ctx, h.client, h.endpoint, h.apiKey, body)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", goerr.Wrap(model.ErrCompletionRequestFailed, fmt.Sprintf("chat completion returned status %d", status),
			goerr.V("status", status),
			goerr.V("body", truncate(string(respBody), maxErrorBody)))
	}

	return ParseCompletion(respBody)
}

// ParseCompletion extracts the answer text from a chat completions response.
// Message content may be a plain string or a list of typed segments; only
// "text" segments are kept, joined by newlines.
func ParseCompletion(raw []byte) (string, error) {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", goerr.Wrap(err, "failed to decode chat response")
	}
	if len(resp.Choices) == 0 {
		return "", goerr.Wrap(model.ErrEmptyCompletion, "chat response has no choices")
	}

	content := resp.Choices[0].Message.Content
	if len(content) == 0 || string(content) == "null" {
		return "", goerr.Wrap(model.ErrEmptyCompletion, "chat response has no content")
	}

	var text string
	if err := json.Unmarshal(content, &text); err == nil {
		return text, nil
	}

	var segments []chatContentSegment
	if err := json.Unmarshal(content, &segments); err != nil {
		return "", goerr.Wrap(err, "unexpected chat message content")
	}

	texts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Type == "text" {
			texts = append(texts, seg.Text)
		}
	}
	return strings.Join(texts, "\n"), nil
}

// postJSON sends body with bearer auth and returns the response body and
// status code. Transport errors are returned as errors; HTTP error statuses
// are not.
func postJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to create request", goerr.V("endpoint", endpoint))
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, goerr.Wrap(err, "failed to send request", goerr.V("endpoint", endpoint))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, goerr.Wrap(err, "failed to read response body", goerr.V("endpoint", endpoint))
	}

	return respBody, resp.StatusCode, nil
}
