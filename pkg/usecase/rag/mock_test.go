package rag_test

import (
	"context"
	"errors"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/repository"
)

type mockEmbedder struct {
	model      string
	embedFunc  func(ctx context.Context, texts []string) ([]model.Embedding, error)
	queryFunc  func(ctx context.Context, text string) (model.Embedding, error)
	batchCalls int
}

func (m *mockEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([]model.Embedding, error) {
	m.batchCalls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	out := make([]model.Embedding, len(texts))
	for i := range texts {
		out[i] = model.Embedding{float32(i + 1), 0.5}
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(ctx context.Context, text string) (model.Embedding, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, text)
	}
	return model.Embedding{1, 0.5}, nil
}

func (m *mockEmbedder) Model() string {
	if m.model == "" {
		return "test-embedding"
	}
	return m.model
}

type mockCompleter struct {
	completeFunc func(ctx context.Context, prompt, modelName string) (string, error)
	prompts      []string
	models       []string
}

func (m *mockCompleter) Complete(ctx context.Context, prompt, modelName string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	m.models = append(m.models, modelName)
	if m.completeFunc != nil {
		return m.completeFunc(ctx, prompt, modelName)
	}
	return "generated plan", nil
}

// faultyRepo wraps Memory and injects failures
type faultyRepo struct {
	*repository.Memory
	searchErr  error
	goalErr    error
	failMarkAt int
	failPutAt  int
	markCalls  int
	putCalls   int
}

var errInjected = errors.New("injected failure")

func newFaultyRepo() *faultyRepo {
	return &faultyRepo{Memory: repository.NewMemory(), failMarkAt: -1, failPutAt: -1}
}

func (r *faultyRepo) MarkEmbedded(ctx context.Context, kind model.DocumentKind, id model.DocumentID) error {
	defer func() { r.markCalls++ }()
	if r.markCalls == r.failMarkAt {
		return errInjected
	}
	return r.Memory.MarkEmbedded(ctx, kind, id)
}

func (r *faultyRepo) PutVectorRecord(ctx context.Context, record *model.VectorRecord) error {
	defer func() { r.putCalls++ }()
	if r.putCalls == r.failPutAt {
		return errInjected
	}
	return r.Memory.PutVectorRecord(ctx, record)
}

func (r *faultyRepo) SearchVectorRecords(ctx context.Context, userID model.UserID, vector model.Embedding, limit int) ([]*model.RagContextDocument, error) {
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return r.Memory.SearchVectorRecords(ctx, userID, vector, limit)
}

func (r *faultyRepo) GetUserGoal(ctx context.Context, userID model.UserID) (string, error) {
	if r.goalErr != nil {
		return "", r.goalErr
	}
	return r.Memory.GetUserGoal(ctx, userID)
}

type mockArchive struct {
	saved []*model.GeneratedPlan
	err   error
}

func (m *mockArchive) Save(_ context.Context, plan *model.GeneratedPlan) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, plan)
	return nil
}
