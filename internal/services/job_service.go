package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// JobService enqueues background work and reads run state back.
type JobService interface {
	EnqueueSync(ctx context.Context, ownerUserID uuid.UUID, themeID uuid.UUID, slug string) (*types.JobRun, error)
	EnqueuePublish(ctx context.Context, ownerUserID uuid.UUID, draftID uuid.UUID, publishedBy string) (*types.JobRun, error)
	Get(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	notifier JobNotifier
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, notifier JobNotifier) JobService {
	return &jobService{
		db:       db,
		log:      baseLog.With("service", "JobService"),
		repo:     repo,
		notifier: notifier,
	}
}

func (js *jobService) EnqueueSync(ctx context.Context, ownerUserID uuid.UUID, themeID uuid.UUID, slug string) (*types.JobRun, error) {
	return js.enqueue(ctx, ownerUserID, "theme", themeID, types.JobTypeThemeSync, map[string]any{
		"slug": slug,
	})
}

func (js *jobService) EnqueuePublish(ctx context.Context, ownerUserID uuid.UUID, draftID uuid.UUID, publishedBy string) (*types.JobRun, error) {
	return js.enqueue(ctx, ownerUserID, "draft", draftID, types.JobTypeThemePublish, map[string]any{
		"draft_id":     draftID.String(),
		"published_by": publishedBy,
	})
}

func (js *jobService) Get(ctx context.Context, jobID uuid.UUID) (*types.JobRun, error) {
	job, err := js.repo.GetByID(ctx, nil, jobID)
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return nil, apperr.NotFound("job " + jobID.String())
	}
	return job, nil
}

// enqueue dedupes against an already queued or running job for the same
// entity and job type; callers get the existing run back instead of a
// second one.
func (js *jobService) enqueue(ctx context.Context, ownerUserID uuid.UUID, entityType string, entityID uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, error) {
	existing, err := js.repo.GetLatestByEntity(ctx, nil, entityType, entityID, jobType)
	if err != nil {
		return nil, fmt.Errorf("check existing job: %w", err)
	}
	if existing != nil && (existing.Status == types.JobStatusQueued || existing.Status == types.JobStatusRunning) {
		return existing, nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		EntityType:  entityType,
		EntityID:    entityID,
		JobType:     jobType,
		Status:      types.JobStatusQueued,
		Payload:     datatypes.JSON(raw),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := js.repo.Create(ctx, nil, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	js.log.Info("Job enqueued", "job_id", job.ID, "job_type", jobType, "entity_id", entityID)
	if js.notifier != nil {
		js.notifier.JobCreated(ownerUserID, job)
	}
	return job, nil
}
