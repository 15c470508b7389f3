package rag

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
)

// FetchContext returns up to topK stored documents of the user nearest to
// vector. A retrieval failure is logged and yields an empty list.
func (u *UseCase) FetchContext(ctx context.Context, userID model.UserID, vector model.Embedding, topK int) model.Soft[[]*model.RagContextDocument] {
	if topK <= 0 {
		topK = model.DefaultTopK
	}

	docs, err := u.repo.SearchVectorRecords(ctx, userID, vector, topK)
	if err != nil {
		logging.From(ctx).Warn("failed to fetch context, continuing without it",
			"user_id", userID,
			"error", err)
		return model.Soft[[]*model.RagContextDocument]{Value: []*model.RagContextDocument{}, Err: err}
	}
	if docs == nil {
		docs = []*model.RagContextDocument{}
	}

	return model.Soft[[]*model.RagContextDocument]{Value: docs}
}

// LookupGoal returns the stored goal of the user, or an empty string when the
// lookup fails
func (u *UseCase) LookupGoal(ctx context.Context, userID model.UserID) model.Soft[string] {
	goal, err := u.repo.GetUserGoal(ctx, userID)
	if err != nil {
		logging.From(ctx).Warn("failed to look up user goal", "user_id", userID, "error", err)
		return model.Soft[string]{Err: err}
	}
	return model.Soft[string]{Value: goal}
}
