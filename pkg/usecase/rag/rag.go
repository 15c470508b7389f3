package rag

import (
	"time"

	"github.com/m-mizutani/fitplan/pkg/adapter"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/fitplan/pkg/prompt"
	"github.com/m-mizutani/fitplan/pkg/repository"
)

const DefaultModel = "meta-llama/Llama-3.1-8B-Instruct"

// UseCase runs the retrieval-augmented plan generation pipeline. Every step
// runs sequentially; no remote call is issued in parallel.
type UseCase struct {
	repo      repository.Repository
	embedder  adapter.Embedder
	completer adapter.Completer

	archive   adapter.PlanArchive
	profiles  *prompt.Profiles
	model     string
	topK      int
	dimension int
	savePlans bool
	now       func() time.Time
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithModel sets the completion model
func WithModel(model string) Option {
	return func(u *UseCase) {
		u.model = model
	}
}

// WithTopK sets the number of context documents retrieved per request
func WithTopK(k int) Option {
	return func(u *UseCase) {
		u.topK = k
	}
}

// WithProfiles sets model specific prompt templates
func WithProfiles(p *prompt.Profiles) Option {
	return func(u *UseCase) {
		u.profiles = p
	}
}

// WithDimension declares the vector dimension of the embedding model. Vectors
// of another length are rejected before they are written.
func WithDimension(n int) Option {
	return func(u *UseCase) {
		u.dimension = n
	}
}

// WithArchive enables archiving of generated plans
func WithArchive(a adapter.PlanArchive) Option {
	return func(u *UseCase) {
		u.archive = a
	}
}

// WithSavePlans controls whether generated plans are stored as new plans
func WithSavePlans(enabled bool) Option {
	return func(u *UseCase) {
		u.savePlans = enabled
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) Option {
	return func(u *UseCase) {
		u.now = now
	}
}

// New creates a new rag UseCase instance
func New(
	repo repository.Repository,
	embedder adapter.Embedder,
	completer adapter.Completer,
	opts ...Option,
) *UseCase {
	u := &UseCase{
		repo:      repo,
		embedder:  embedder,
		completer: completer,
		profiles:  prompt.NewProfiles(),
		model:     DefaultModel,
		topK:      model.DefaultTopK,
		savePlans: true,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// NewRequest builds a RagRequest from the configured model, template,
// embedding model and topK
func (u *UseCase) NewRequest(userID model.UserID, input string) *model.RagRequest {
	return &model.RagRequest{
		UserID:         userID,
		Input:          input,
		Model:          u.model,
		PromptTemplate: u.profiles.Template(u.model),
		EmbeddingModel: u.embedder.Model(),
		TopK:           u.topK,
	}
}
