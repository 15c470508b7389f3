package repository_test

import (
	"context"
	"os"
	"testing"

	"github.com/m-mizutani/fitplan/pkg/repository"
	"github.com/m-mizutani/gt"
)

func TestFirestore(t *testing.T) {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")
	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID are not set")
	}

	repo, err := repository.NewFirestore(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	defer repo.Close()

	testStore(t, repo)
}
