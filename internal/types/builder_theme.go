package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BuilderStatusOpen      = "open"
	BuilderStatusPublished = "published"
	BuilderStatusAbandoned = "abandoned"
)

// BuilderTheme is a mutable draft workspace owned by one user, forked
// from a theme version, another draft, or a snapshot. Its files are
// owned copies; edits never touch the fork source.
type BuilderTheme struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	ThemeID         uuid.UUID      `gorm:"type:uuid;column:theme_id;not null;index" json:"theme_id"`
	OwnerUserID     uuid.UUID      `gorm:"type:uuid;column:owner_user_id;not null;index" json:"owner_user_id"`
	ParentBuilderID *uuid.UUID     `gorm:"type:uuid;column:parent_builder_id" json:"parent_builder_id,omitempty"`
	SourceVersionID *uuid.UUID     `gorm:"type:uuid;column:source_version_id" json:"source_version_id,omitempty"`
	Label           string         `gorm:"column:label" json:"label,omitempty"`
	Status          string         `gorm:"column:status;not null;default:open;index" json:"status"`
	Settings        datatypes.JSON `gorm:"column:settings" json:"settings,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (BuilderTheme) TableName() string { return "builder_theme" }
