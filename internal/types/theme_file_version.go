package types

import (
	"time"

	"github.com/google/uuid"
)

// ThemeFileVersion is one immutable content blob in the append-only
// ledger for a (theme, path) lineage. Version numbers are contiguous
// starting at 1 and never reused.
type ThemeFileVersion struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThemeID       uuid.UUID `gorm:"type:uuid;column:theme_id;not null;uniqueIndex:idx_file_version_lineage,priority:1" json:"theme_id"`
	Path          string    `gorm:"column:path;not null;uniqueIndex:idx_file_version_lineage,priority:2" json:"path"`
	VersionNumber int       `gorm:"column:version_number;not null;uniqueIndex:idx_file_version_lineage,priority:3" json:"version_number"`
	Content       []byte    `gorm:"column:content" json:"-"`
	Checksum      string    `gorm:"column:checksum;not null;index" json:"checksum"`
	SizeBytes     int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	Author        string    `gorm:"column:author" json:"author,omitempty"`
	Summary       string    `gorm:"column:summary" json:"summary,omitempty"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (ThemeFileVersion) TableName() string { return "theme_file_version" }
