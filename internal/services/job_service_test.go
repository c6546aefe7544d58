package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

func TestEnqueueSyncDedupes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	jobs := NewJobService(env.db, env.log, env.jobRepo, nil)

	owner := uuid.New()
	themeID := uuid.New()
	first, err := jobs.EnqueueSync(ctx, owner, themeID, "dawn")
	if err != nil {
		t.Fatalf("EnqueueSync: %v", err)
	}
	if first.Status != types.JobStatusQueued || first.JobType != types.JobTypeThemeSync {
		t.Fatalf("job = %+v", first)
	}

	second, err := jobs.EnqueueSync(ctx, owner, themeID, "dawn")
	if err != nil {
		t.Fatalf("EnqueueSync(again): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("queued job should be reused, got %s and %s", first.ID, second.ID)
	}

	// A terminal run no longer blocks a fresh enqueue.
	if err := env.jobRepo.UpdateFields(ctx, nil, first.ID, map[string]interface{}{
		"status": types.JobStatusSucceeded,
	}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	third, err := jobs.EnqueueSync(ctx, owner, themeID, "dawn")
	if err != nil {
		t.Fatalf("EnqueueSync(after done): %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("completed job must not be reused")
	}
}

func TestEnqueuePublishPayload(t *testing.T) {
	env := newTestEnv(t)
	jobs := NewJobService(env.db, env.log, env.jobRepo, nil)

	draftID := uuid.New()
	job, err := jobs.EnqueuePublish(context.Background(), uuid.New(), draftID, "editor")
	if err != nil {
		t.Fatalf("EnqueuePublish: %v", err)
	}
	if job.EntityType != "draft" || job.EntityID != draftID {
		t.Fatalf("job entity = %s %s", job.EntityType, job.EntityID)
	}
}

func TestJobGetUnknown(t *testing.T) {
	env := newTestEnv(t)
	jobs := NewJobService(env.db, env.log, env.jobRepo, nil)
	if _, err := jobs.Get(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
