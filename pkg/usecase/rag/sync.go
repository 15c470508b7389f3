package rag

import (
	"context"

	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SyncResult reports how many documents were embedded by SyncEmbeddings
type SyncResult struct {
	Plans   int `json:"plans"`
	Entries int `json:"entries"`
}

// Total returns the number of embedded documents
func (r *SyncResult) Total() int {
	return r.Plans + r.Entries
}

// SyncEmbeddings embeds and stores every unembedded plan and entry of the
// user. Plans are read before entries.
func (u *UseCase) SyncEmbeddings(ctx context.Context, userID model.UserID) (*SyncResult, error) {
	if userID == "" {
		return nil, goerr.Wrap(model.ErrUserIDRequired, "user id is required to sync embeddings")
	}

	plans, err := u.repo.ListUnembeddedPlans(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list unembedded plans", goerr.V("user_id", userID))
	}
	entries, err := u.repo.ListUnembeddedEntries(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list unembedded entries", goerr.V("user_id", userID))
	}

	result := &SyncResult{}
	docs := append(append([]*model.SourceDocument{}, plans...), entries...)
	if len(docs) == 0 {
		return result, nil
	}

	embedded, err := u.UpdateEmbeddings(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := u.SaveEmbeddings(ctx, embedded, userID); err != nil {
		return nil, err
	}

	for _, doc := range embedded {
		if doc.IsPlan() {
			result.Plans++
		} else {
			result.Entries++
		}
	}

	logging.From(ctx).Info("synced embeddings",
		"user_id", userID,
		"plans", result.Plans,
		"entries", result.Entries)
	return result, nil
}
