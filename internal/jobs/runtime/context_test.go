package runtime

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

func testRepo(t *testing.T) (*gorm.DB, repos.JobRunRepo) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "jobs.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&types.JobRun{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb, repos.NewJobRunRepo(gdb, log)
}

func queueJob(t *testing.T, repo repos.JobRunRepo, payload string) *types.JobRun {
	t.Helper()
	now := time.Now()
	job := &types.JobRun{
		ID:          uuid.New(),
		OwnerUserID: uuid.New(),
		EntityType:  "theme",
		EntityID:    uuid.New(),
		JobType:     types.JobTypeThemeSync,
		Status:      types.JobStatusQueued,
		Payload:     []byte(payload),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := repo.Create(context.Background(), nil, []*types.JobRun{job}); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestPayloadHelpers(t *testing.T) {
	id := uuid.New()
	job := &types.JobRun{Payload: []byte(`{"slug":"dawn","draft_id":"` + id.String() + `","n":3}`)}
	c := NewContext(context.Background(), nil, job, nil, nil)

	if got := c.PayloadString("slug"); got != "dawn" {
		t.Errorf("PayloadString(slug) = %q", got)
	}
	if got := c.PayloadString("missing"); got != "" {
		t.Errorf("PayloadString(missing) = %q", got)
	}
	if got := c.PayloadString("n"); got != "" {
		t.Errorf("non-string field should read as empty, got %q", got)
	}
	parsed, ok := c.PayloadUUID("draft_id")
	if !ok || parsed != id {
		t.Errorf("PayloadUUID = %v %v", parsed, ok)
	}
	if _, ok := c.PayloadUUID("slug"); ok {
		t.Errorf("non-uuid field should not parse")
	}
}

func TestMalformedPayloadDecodesEmpty(t *testing.T) {
	c := NewContext(context.Background(), nil, &types.JobRun{Payload: []byte(`{broken`)}, nil, nil)
	if len(c.Payload()) != 0 {
		t.Fatalf("payload = %+v", c.Payload())
	}
}

func TestLifecycleTransitions(t *testing.T) {
	gdb, repo := testRepo(t)
	ctx := context.Background()
	job := queueJob(t, repo, `{"slug":"dawn"}`)

	c := NewContext(ctx, gdb, job, repo, nil)
	c.Progress("scan", 10, "scanning")
	stored, _ := repo.GetByID(ctx, nil, job.ID)
	if stored.Stage != "scan" || stored.HeartbeatAt == nil {
		t.Fatalf("after progress: %+v", stored)
	}

	c.Succeed("done", map[string]any{"sequence": 2})
	stored, _ = repo.GetByID(ctx, nil, job.ID)
	if stored.Status != types.JobStatusSucceeded || stored.Stage != "done" || stored.LockedAt != nil {
		t.Fatalf("after succeed: %+v", stored)
	}
	if len(stored.Result) == 0 {
		t.Fatalf("result not stored")
	}

	failed := queueJob(t, repo, `{}`)
	fc := NewContext(ctx, gdb, failed, repo, nil)
	fc.Fail("run", errors.New("boom"))
	stored, _ = repo.GetByID(ctx, nil, failed.ID)
	if stored.Status != types.JobStatusFailed || stored.LastError != "boom" || stored.LastErrorAt == nil {
		t.Fatalf("after fail: %+v", stored)
	}
	if stored.LockedAt != nil {
		t.Fatalf("fail must release the lock")
	}
}

func TestClaimNextRunnable(t *testing.T) {
	gdb, repo := testRepo(t)
	ctx := context.Background()
	job := queueJob(t, repo, `{}`)

	claimed, err := repo.ClaimNextRunnable(ctx, gdb, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("claimed = %+v", claimed)
	}
	if claimed.Status != types.JobStatusRunning || claimed.Attempts != 1 || claimed.LockedAt == nil {
		t.Fatalf("claimed state = %+v", claimed)
	}

	// A running job with a fresh heartbeat is not reclaimed.
	again, err := repo.ClaimNextRunnable(ctx, gdb, 5, 30*time.Second, 30*time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if again != nil {
		t.Fatalf("running job reclaimed: %+v", again)
	}
}

func TestClaimRetriesFailedAfterDelay(t *testing.T) {
	gdb, repo := testRepo(t)
	ctx := context.Background()
	job := queueJob(t, repo, `{}`)

	first, err := repo.ClaimNextRunnable(ctx, gdb, 5, time.Millisecond, 30*time.Minute)
	if err != nil || first == nil {
		t.Fatalf("claim: %+v %v", first, err)
	}
	NewContext(ctx, gdb, first, repo, nil).Fail("run", errors.New("transient"))

	time.Sleep(10 * time.Millisecond)
	retry, err := repo.ClaimNextRunnable(ctx, gdb, 5, time.Millisecond, 30*time.Minute)
	if err != nil {
		t.Fatalf("retry claim: %v", err)
	}
	if retry == nil || retry.ID != job.ID || retry.Attempts != 2 {
		t.Fatalf("retry = %+v", retry)
	}
}

func TestClaimRespectsMaxAttempts(t *testing.T) {
	gdb, repo := testRepo(t)
	ctx := context.Background()
	queueJob(t, repo, `{}`)

	for i := 0; i < 2; i++ {
		claimed, err := repo.ClaimNextRunnable(ctx, gdb, 2, time.Millisecond, 30*time.Minute)
		if err != nil || claimed == nil {
			t.Fatalf("claim %d: %+v %v", i, claimed, err)
		}
		NewContext(ctx, gdb, claimed, repo, nil).Fail("run", errors.New("boom"))
		time.Sleep(5 * time.Millisecond)
	}

	exhausted, err := repo.ClaimNextRunnable(ctx, gdb, 2, time.Millisecond, 30*time.Minute)
	if err != nil {
		t.Fatalf("claim after exhaustion: %v", err)
	}
	if exhausted != nil {
		t.Fatalf("exhausted job reclaimed: %+v", exhausted)
	}
}
