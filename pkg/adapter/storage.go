package adapter

import (
	"context"
	"encoding/json"
	"path"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/fitplan/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// PlanArchive keeps a copy of every generated plan
type PlanArchive interface {
	Save(ctx context.Context, plan *model.GeneratedPlan) error
}

// StorageArchive writes generated plans as JSON objects to Cloud Storage,
// one object per plan at <prefix>/<user_id>/<plan_id>.json
type StorageArchive struct {
	bucketName string
	prefix     string
	client     *storage.Client
}

var _ PlanArchive = (*StorageArchive)(nil)

// NewStorageArchive creates a new Cloud Storage plan archive
func NewStorageArchive(ctx context.Context, bucketName, prefix string) (*StorageArchive, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &StorageArchive{
		bucketName: bucketName,
		prefix:     prefix,
		client:     client,
	}, nil
}

// ObjectKey returns the object name a plan is archived under
func ObjectKey(prefix string, plan *model.GeneratedPlan) string {
	return path.Join(prefix, string(plan.UserID), string(plan.ID)+".json")
}

func (s *StorageArchive) Save(ctx context.Context, plan *model.GeneratedPlan) error {
	key := ObjectKey(s.prefix, plan)
	w := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"

	if err := json.NewEncoder(w).Encode(plan); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write plan", goerr.V("key", key))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer",
			goerr.V("bucket", s.bucketName), goerr.V("key", key))
	}
	return nil
}

func (s *StorageArchive) Close() error {
	return s.client.Close()
}
