package rag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/prompt"
	"github.com/m-mizutani/fitplan/pkg/repository"
	"github.com/m-mizutani/fitplan/pkg/usecase/rag"
	"github.com/m-mizutani/gt"
)

func TestFetchContext(t *testing.T) {
	ctx := context.Background()

	t.Run("retrieval error yields empty list", func(t *testing.T) {
		repo := newFaultyRepo()
		repo.searchErr = errInjected
		uc := rag.New(repo, &mockEmbedder{}, &mockCompleter{})

		docs := uc.FetchContext(ctx, "user-1", model.Embedding{1, 0}, 5)
		gt.True(t, docs.Degraded())
		gt.NotNil(t, docs.Value)
		gt.A(t, docs.Value).Length(0)
	})

	t.Run("returns nearest documents of the user", func(t *testing.T) {
		repo := repository.NewMemory()
		for _, r := range []*model.VectorRecord{
			{UserID: "user-1", Content: "close", Vector: model.Embedding{1, 0}},
			{UserID: "user-1", Content: "far", Vector: model.Embedding{0, 1}},
			{UserID: "user-2", Content: "other user", Vector: model.Embedding{1, 0}},
		} {
			gt.NoError(t, repo.PutVectorRecord(ctx, r))
		}
		uc := rag.New(repo, &mockEmbedder{}, &mockCompleter{})

		docs := uc.FetchContext(ctx, "user-1", model.Embedding{1, 0}, 0)
		gt.False(t, docs.Degraded())
		gt.A(t, docs.Value).Length(2)
		gt.Equal(t, docs.Value[0].Content, "close")
		gt.Equal(t, docs.Value[1].Content, "far")
	})
}

func TestCall(t *testing.T) {
	ctx := context.Background()
	user := model.UserID("user-1")

	t.Run("assembles goal and context", func(t *testing.T) {
		repo := repository.NewMemory()
		gt.NoError(t, repo.PutUserGoal(ctx, user, "Run a 5K"))
		workout := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		gt.NoError(t, repo.PutVectorRecord(ctx, &model.VectorRecord{
			UserID:    user,
			Content:   "Ran 3k easy",
			Vector:    model.Embedding{1, 0.5},
			Metadata:  model.VectorMetadata{SourceID: "e0", Timestamp: &workout},
			CreatedAt: time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC),
		}))
		completer := &mockCompleter{}
		uc := rag.New(repo, &mockEmbedder{}, completer, rag.WithModel("test-model"))

		answer, err := uc.Call(ctx, uc.NewRequest(user, "what next?"))
		gt.NoError(t, err)
		gt.Equal(t, answer, "generated plan")
		gt.A(t, completer.prompts).Length(1)
		gt.S(t, completer.prompts[0]).Contains("Run a 5K")
		gt.S(t, completer.prompts[0]).Contains("Ran 3k easy (2024-05-01)")
		gt.S(t, completer.prompts[0]).Contains("what next?")
		gt.Equal(t, completer.models[0], "test-model")
	})

	t.Run("goal lookup failure is swallowed", func(t *testing.T) {
		repo := newFaultyRepo()
		repo.goalErr = errInjected
		repo.searchErr = errInjected
		completer := &mockCompleter{}
		uc := rag.New(repo, &mockEmbedder{}, completer)

		answer, err := uc.Call(ctx, uc.NewRequest(user, "today"))
		gt.NoError(t, err)
		gt.Equal(t, answer, "generated plan")
		gt.S(t, completer.prompts[0]).Contains(prompt.NoContext)
	})

	t.Run("custom template is used", func(t *testing.T) {
		completer := &mockCompleter{}
		uc := rag.New(repository.NewMemory(), &mockEmbedder{}, completer)

		req := uc.NewRequest(user, "today")
		req.PromptTemplate = func(docs []*model.RagContextDocument, goal, input string) string {
			return "custom:" + input
		}
		_, err := uc.Call(ctx, req)
		gt.NoError(t, err)
		gt.Equal(t, completer.prompts[0], "custom:today")
	})

	t.Run("embedding failure propagates", func(t *testing.T) {
		embedder := &mockEmbedder{
			queryFunc: func(ctx context.Context, text string) (model.Embedding, error) {
				return nil, model.ErrEmbeddingRequestFailed
			},
		}
		completer := &mockCompleter{}
		uc := rag.New(repository.NewMemory(), embedder, completer)

		_, err := uc.Call(ctx, uc.NewRequest(user, "today"))
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrEmbeddingRequestFailed))
		gt.A(t, completer.prompts).Length(0)
	})

	t.Run("completion failure propagates", func(t *testing.T) {
		completer := &mockCompleter{
			completeFunc: func(ctx context.Context, prompt, modelName string) (string, error) {
				return "", model.ErrCompletionRequestFailed
			},
		}
		uc := rag.New(repository.NewMemory(), &mockEmbedder{}, completer)

		_, err := uc.Call(ctx, uc.NewRequest(user, "today"))
		gt.True(t, errors.Is(err, model.ErrCompletionRequestFailed))
	})

	t.Run("embedding model mismatch", func(t *testing.T) {
		uc := rag.New(repository.NewMemory(), &mockEmbedder{}, &mockCompleter{})

		req := uc.NewRequest(user, "today")
		req.EmbeddingModel = "another-model"
		_, err := uc.Call(ctx, req)
		gt.True(t, errors.Is(err, model.ErrEmbeddingModelMismatch))
	})

	t.Run("user id is required", func(t *testing.T) {
		uc := rag.New(repository.NewMemory(), &mockEmbedder{}, &mockCompleter{})
		_, err := uc.Call(ctx, uc.NewRequest("", "today"))
		gt.True(t, errors.Is(err, model.ErrUserIDRequired))
	})
}

func TestGeneratePlan(t *testing.T) {
	ctx := context.Background()
	user := model.UserID("user-1")
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	t.Run("syncs, generates, stores and archives", func(t *testing.T) {
		repo := repository.NewMemory()
		gt.NoError(t, repo.PutEntry(ctx, &model.SourceDocument{ID: "e1", UserID: user, Content: "Ran 5k", EntryType: "workout_note"}))
		archive := &mockArchive{}
		completer := &mockCompleter{}
		uc := rag.New(repo, &mockEmbedder{}, completer,
			rag.WithArchive(archive),
			rag.WithModel("test-model"),
			rag.WithClock(func() time.Time { return now }),
		)

		plan, err := uc.GeneratePlan(ctx, user, "plan my week")
		gt.NoError(t, err)
		gt.Equal(t, plan.Text, "generated plan")
		gt.Equal(t, plan.Model, "test-model")
		gt.Equal(t, plan.GeneratedAt, now)

		// the journal entry was embedded before retrieval and shows up in the prompt
		gt.S(t, completer.prompts[0]).Contains("Ran 5k")

		stored, ok := repo.Document(model.DocumentKindPlan, model.DocumentID(plan.ID))
		gt.True(t, ok)
		gt.Equal(t, stored.PlanText, "generated plan")
		gt.False(t, stored.IsEmbedded)

		gt.A(t, archive.saved).Length(1)
		gt.Equal(t, archive.saved[0].ID, plan.ID)
	})

	t.Run("context shows the workout date, not the sync date", func(t *testing.T) {
		repo := repository.NewMemory()
		workout := time.Date(2023, 3, 14, 6, 0, 0, 0, time.UTC)
		gt.NoError(t, repo.PutEntry(ctx, &model.SourceDocument{
			ID: "e1", UserID: user, Content: "Ran 5k", EntryType: "workout_note", Timestamp: &workout,
		}))
		completer := &mockCompleter{}
		uc := rag.New(repo, &mockEmbedder{}, completer, rag.WithSavePlans(false))

		_, err := uc.GeneratePlan(ctx, user, "plan my week")
		gt.NoError(t, err)

		records := repo.VectorRecords()
		gt.A(t, records).Length(1)
		gt.False(t, records[0].CreatedAt.Format(time.DateOnly) == "2023-03-14")
		gt.S(t, completer.prompts[0]).Contains("- Ran 5k (2023-03-14)")
	})

	t.Run("archive failure does not fail generation", func(t *testing.T) {
		uc := rag.New(repository.NewMemory(), &mockEmbedder{}, &mockCompleter{},
			rag.WithArchive(&mockArchive{err: errInjected}),
			rag.WithSavePlans(false),
		)

		plan, err := uc.GeneratePlan(ctx, user, "plan my week")
		gt.NoError(t, err)
		gt.Equal(t, plan.Text, "generated plan")
	})

	t.Run("sync failure aborts generation", func(t *testing.T) {
		repo := repository.NewMemory()
		gt.NoError(t, repo.PutEntry(ctx, &model.SourceDocument{ID: "e1", UserID: user, Content: "Ran 5k"}))
		embedder := &mockEmbedder{
			embedFunc: func(ctx context.Context, texts []string) ([]model.Embedding, error) {
				return nil, model.ErrEmbeddingRequestFailed
			},
		}
		completer := &mockCompleter{}
		uc := rag.New(repo, embedder, completer)

		_, err := uc.GeneratePlan(ctx, user, "plan my week")
		gt.True(t, errors.Is(err, model.ErrEmbeddingRequestFailed))
		gt.A(t, completer.prompts).Length(0)
	})
}
