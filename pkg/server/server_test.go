package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/server"
	"github.com/m-mizutani/fitplan/pkg/usecase/rag"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

type mockPlanner struct {
	generateFunc func(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error)
	syncFunc     func(ctx context.Context, userID model.UserID) (*rag.SyncResult, error)
}

func (m *mockPlanner) GeneratePlan(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, userID, input)
	}
	return nil, errors.New("not implemented")
}

func (m *mockPlanner) SyncEmbeddings(ctx context.Context, userID model.UserID) (*rag.SyncResult, error) {
	if m.syncFunc != nil {
		return m.syncFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

func newServer(p server.Planner) *server.Server {
	return server.New(p, server.WithLogger(logging.New("error", &bytes.Buffer{})))
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var resp map[string]any
	if w.Header().Get("Content-Type") != "" && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestGeneratePlan(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotUser model.UserID
		var gotInput string
		srv := newServer(&mockPlanner{
			generateFunc: func(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error) {
				gotUser, gotInput = userID, input
				return &model.GeneratedPlan{Text: "Monday: 5k easy", GeneratedAt: time.Now()}, nil
			},
		})

		w, resp := doJSON(t, srv, http.MethodPost, "/api/generate-plan", `{"userId":"u1","input":"plan my week"}`)
		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, resp["success"], any(true))
		gt.Equal(t, resp["fitnessPlan"], any("Monday: 5k easy"))
		gt.Equal(t, gotUser, model.UserID("u1"))
		gt.Equal(t, gotInput, "plan my week")
		gt.NotEqual(t, w.Header().Get("X-Request-ID"), "")
	})

	t.Run("missing user id", func(t *testing.T) {
		srv := newServer(&mockPlanner{})
		w, resp := doJSON(t, srv, http.MethodPost, "/api/generate-plan", `{"input":"plan my week"}`)
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Equal(t, resp["error"], any("userId is required"))
	})

	t.Run("broken body", func(t *testing.T) {
		srv := newServer(&mockPlanner{})
		w, resp := doJSON(t, srv, http.MethodPost, "/api/generate-plan", `{"userId":`)
		gt.Equal(t, w.Code, http.StatusBadRequest)
		gt.Map(t, resp).HasKey("error")
	})

	t.Run("pipeline failure", func(t *testing.T) {
		srv := newServer(&mockPlanner{
			generateFunc: func(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error) {
				return nil, model.ErrCompletionRequestFailed
			},
		})
		w, resp := doJSON(t, srv, http.MethodPost, "/api/generate-plan", `{"userId":"u1","input":"x"}`)
		gt.Equal(t, w.Code, http.StatusInternalServerError)
		gt.S(t, resp["error"].(string)).Contains("completion request failed")
	})

	t.Run("logger is attached to request context", func(t *testing.T) {
		buf := &bytes.Buffer{}
		srv := server.New(&mockPlanner{
			generateFunc: func(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error) {
				logging.From(ctx).Info("inside pipeline")
				return &model.GeneratedPlan{Text: "ok"}, nil
			},
		}, server.WithLogger(logging.New("info", buf)))

		req := httptest.NewRequest(http.MethodPost, "/api/generate-plan", strings.NewReader(`{"userId":"u1"}`))
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, req)

		gt.Equal(t, w.Code, http.StatusOK)
		gt.Equal(t, w.Header().Get("X-Request-ID"), "req-123")
		gt.S(t, buf.String()).Contains("inside pipeline")
		gt.S(t, buf.String()).Contains("req-123")
	})
}

func TestNewKeepsGinMode(t *testing.T) {
	prev := gin.Mode()
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gin.SetMode(prev) })

	newServer(&mockPlanner{})
	gt.Equal(t, gin.Mode(), gin.TestMode)
}

func TestSyncEmbeddings(t *testing.T) {
	srv := newServer(&mockPlanner{
		syncFunc: func(ctx context.Context, userID model.UserID) (*rag.SyncResult, error) {
			gt.Equal(t, userID, model.UserID("u1"))
			return &rag.SyncResult{Plans: 1, Entries: 3}, nil
		},
	})

	w, resp := doJSON(t, srv, http.MethodPost, "/api/embeddings/sync", `{"userId":"u1"}`)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, resp["plans"], any(float64(1)))
	gt.Equal(t, resp["entries"], any(float64(3)))

	w, _ = doJSON(t, srv, http.MethodPost, "/api/embeddings/sync", `{}`)
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newServer(&mockPlanner{
		generateFunc: func(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error) {
			return &model.GeneratedPlan{Text: "ok"}, nil
		},
	})

	w, resp := doJSON(t, srv, http.MethodGet, "/health", "")
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, resp["status"], any("ok"))

	_, _ = doJSON(t, srv, http.MethodPost, "/api/generate-plan", `{"userId":"u1"}`)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	gt.Equal(t, rec.Code, http.StatusOK)
	gt.S(t, rec.Body.String()).Contains(`fitplan_plans_generated_total{result="success"} 1`)
	gt.S(t, rec.Body.String()).Contains("fitplan_http_requests_total")
}

func TestRunShutsDownOnCancel(t *testing.T) {
	srv := newServer(&mockPlanner{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		gt.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestMCPHandlerIsMounted(t *testing.T) {
	called := false
	srv := server.New(&mockPlanner{},
		server.WithLogger(logging.New("error", &bytes.Buffer{})),
		server.WithMCPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusAccepted)
		})),
	)

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(`{}`))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.True(t, called)
	gt.Equal(t, w.Code, http.StatusAccepted)
}
