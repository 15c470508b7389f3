package adapter_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/fitplan/pkg/adapter"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/gt"
)

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gt.Equal(t, body["model"], any("text-embedding-3-small"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.25,0.5]}],"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gt.Equal(t, body["model"], any("gpt-test"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Do squats"}}]}`))
	})
	return httptest.NewServer(mux)
}

func TestOpenAIClient(t *testing.T) {
	srv := newOpenAIServer(t)
	defer srv.Close()

	client, err := adapter.NewOpenAI("sk-test", adapter.WithOpenAIBaseURL(srv.URL+"/v1/"))
	gt.NoError(t, err)
	gt.Equal(t, client.Model(), "text-embedding-3-small")

	ctx := context.Background()
	vectors, err := client.EmbedDocuments(ctx, []string{"a", "b"})
	gt.NoError(t, err)
	gt.A(t, vectors).Length(2)
	gt.Equal(t, vectors[1], model.Embedding{0.25, 0.5})

	text, err := client.Complete(ctx, "hello", "gpt-test")
	gt.NoError(t, err)
	gt.Equal(t, text, "Do squats")
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := adapter.NewOpenAI("")
	gt.Error(t, err)
}
