package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

const (
	JobTypeThemeSync    = "theme_sync"
	JobTypeThemePublish = "theme_publish"
)

// JobRun is one asynchronous unit of work claimed by the worker pool.
type JobRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID      `gorm:"type:uuid;column:owner_user_id;index" json:"owner_user_id"`
	EntityType  string         `gorm:"column:entity_type;not null;index:idx_job_entity,priority:1" json:"entity_type"`
	EntityID    uuid.UUID      `gorm:"type:uuid;column:entity_id;not null;index:idx_job_entity,priority:2" json:"entity_id"`
	JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
	Status      string         `gorm:"column:status;not null;default:queued;index" json:"status"`
	Attempts    int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Stage       string         `gorm:"column:stage" json:"stage,omitempty"`
	LastError   string         `gorm:"column:last_error" json:"last_error,omitempty"`
	LastErrorAt *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	LockedAt    *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	HeartbeatAt *time.Time     `gorm:"column:heartbeat_at" json:"heartbeat_at,omitempty"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	Result      datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
