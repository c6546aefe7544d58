package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	VersionSourceSync    = "sync"
	VersionSourcePublish = "publish"
)

// ThemeVersion is an immutable theme-wide checkpoint of tracked files.
// Sequences are contiguous per theme and exactly one version per theme
// carries live=true.
type ThemeVersion struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThemeID   uuid.UUID `gorm:"type:uuid;column:theme_id;not null;uniqueIndex:idx_theme_version_seq,priority:1" json:"theme_id"`
	Sequence  int       `gorm:"column:sequence;not null;uniqueIndex:idx_theme_version_seq,priority:2" json:"sequence"`
	Live      bool      `gorm:"column:live;not null;default:false;index" json:"live"`
	Source    string    `gorm:"column:source;not null" json:"source"` // sync|publish
	Notes     string    `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (ThemeVersion) TableName() string { return "theme_version" }
