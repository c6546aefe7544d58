package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/services"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// Context is the execution handle for one claimed job run. Handlers
// never touch the job_run row directly; Progress, Fail, and Succeed are
// the only sanctioned lifecycle transitions.
type Context struct {
	Ctx     context.Context
	DB      *gorm.DB
	Job     *types.JobRun
	Repo    repos.JobRunRepo
	Notify  services.JobNotifier
	payload map[string]any
}

// NewContext eagerly decodes the payload JSON so handlers can read
// inputs via Payload()/PayloadUUID(). A malformed payload decodes to an
// empty map; handlers validate required fields themselves.
func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

// PayloadString reads a payload field as a string, "" when absent.
func (c *Context) PayloadString(key string) string {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// PayloadUUID reads a payload field and parses it as a UUID.
func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	s := c.PayloadString(key)
	if s == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Progress persists a non-terminal stage update plus a heartbeat and
// emits a progress event.
func (c *Context) Progress(stage string, pct int, msg string) {
	if c == nil {
		return
	}
	now := time.Now()
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		if err := c.Repo.UpdateFields(c.ctx(), c.DB, c.Job.ID, map[string]interface{}{
			"stage":        stage,
			"heartbeat_at": now,
			"updated_at":   now,
		}); err != nil {
			return
		}
	}
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job, stage, pct, msg)
	}
}

// Fail marks the run terminally failed, clears the lock so a retryable
// attempt can be claimed later, and emits a failed event.
func (c *Context) Fail(stage string, err error) {
	if c == nil {
		return
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		if uErr := c.Repo.UpdateFields(c.ctx(), c.DB, c.Job.ID, map[string]interface{}{
			"status":        types.JobStatusFailed,
			"stage":         stage,
			"last_error":    msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		}); uErr != nil {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = types.JobStatusFailed
		c.Job.Stage = stage
		c.Job.LastError = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job, stage, msg)
	}
}

// Succeed marks the run terminally succeeded, stores the result JSON,
// and emits a done event.
func (c *Context) Succeed(finalStage string, result any) {
	if c == nil {
		return
	}
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		if err := c.Repo.UpdateFields(c.ctx(), c.DB, c.Job.ID, map[string]interface{}{
			"status":       types.JobStatusSucceeded,
			"stage":        finalStage,
			"last_error":   "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		}); err != nil {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = types.JobStatusSucceeded
		c.Job.Stage = finalStage
		c.Job.LastError = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job.OwnerUserID, c.Job)
	}
}

func (c *Context) ctx() context.Context {
	if c.Ctx != nil {
		return c.Ctx
	}
	return context.Background()
}
