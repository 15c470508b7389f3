package rag

import (
	"context"

	"github.com/google/uuid"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// GeneratePlan brings the user's embeddings up to date and then generates a
// fitness plan for input. The plan is stored as a new unembedded plan when
// saving is enabled, and archived when an archive is configured. An archive
// failure is logged only.
func (u *UseCase) GeneratePlan(ctx context.Context, userID model.UserID, input string) (*model.GeneratedPlan, error) {
	logger := logging.From(ctx)

	if _, err := u.SyncEmbeddings(ctx, userID); err != nil {
		return nil, goerr.Wrap(err, "failed to sync embeddings")
	}

	req := u.NewRequest(userID, input)
	text, err := u.Call(ctx, req)
	if err != nil {
		return nil, err
	}

	plan := &model.GeneratedPlan{
		ID:          model.GeneratedPlanID(uuid.NewString()),
		UserID:      userID,
		Input:       input,
		Text:        text,
		Model:       req.Model,
		GeneratedAt: u.now().UTC(),
	}

	if u.savePlans {
		if err := u.repo.PutPlan(ctx, plan.SourceDocument()); err != nil {
			return nil, goerr.Wrap(err, "failed to save generated plan", goerr.V("plan_id", plan.ID))
		}
	}

	if u.archive != nil {
		if err := u.archive.Save(ctx, plan); err != nil {
			logger.Warn("failed to archive generated plan", "plan_id", plan.ID, "error", err)
		}
	}

	logger.Info("generated fitness plan", "user_id", userID, "plan_id", plan.ID, "model", plan.Model)
	return plan, nil
}
