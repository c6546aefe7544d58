package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Theme is the identity of one named visual theme. At most one theme is
// active per installation; activating one deactivates its siblings.
type Theme struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	Slug            string         `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description     string         `gorm:"column:description" json:"description,omitempty"`
	Active          bool           `gorm:"column:active;not null;default:false;index" json:"active"`
	ManifestVersion string         `gorm:"column:manifest_version" json:"manifest_version,omitempty"`
	RootDir         string         `gorm:"column:root_dir" json:"root_dir,omitempty"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Theme) TableName() string { return "theme" }
