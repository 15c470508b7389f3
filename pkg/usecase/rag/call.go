package rag

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/prompt"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Call answers req.Input with retrieved context. Goal lookup and context
// retrieval fail soft; query embedding and completion errors are returned.
func (u *UseCase) Call(ctx context.Context, req *model.RagRequest) (string, error) {
	if req.UserID == "" {
		return "", goerr.Wrap(model.ErrUserIDRequired, "user id is required")
	}
	if req.EmbeddingModel != "" && req.EmbeddingModel != u.embedder.Model() {
		return "", goerr.Wrap(model.ErrEmbeddingModelMismatch, "query embedding model differs from stored model",
			goerr.V("requested", req.EmbeddingModel),
			goerr.V("configured", u.embedder.Model()))
	}

	logger := logging.From(ctx)
	goal := u.LookupGoal(ctx, req.UserID)

	vector, err := u.embedder.EmbedQuery(ctx, req.Input)
	if err != nil {
		return "", goerr.Wrap(err, "failed to embed query", goerr.V("user_id", req.UserID))
	}

	docs := u.FetchContext(ctx, req.UserID, vector, req.Limit())
	logger.Debug("retrieved context",
		"user_id", req.UserID,
		"count", len(docs.Value),
		"degraded", docs.Degraded())

	modelName := req.Model
	if modelName == "" {
		modelName = u.model
	}

	text := prompt.Build(req.PromptTemplate, docs.Value, goal.Value, req.Input)
	answer, err := u.completer.Complete(ctx, text, modelName)
	if err != nil {
		return "", goerr.Wrap(err, "failed to complete prompt",
			goerr.V("user_id", req.UserID),
			goerr.V("model", modelName))
	}

	return answer, nil
}
