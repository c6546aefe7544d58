package types

import (
	"time"

	"github.com/google/uuid"
)

// File roles assigned by the content scanner.
const (
	FileRoleTemplate = "template"
	FileRoleSection  = "section"
	FileRoleLayout   = "layout"
	FileRoleAsset    = "asset"
	FileRoleConfig   = "config"
	FileRoleOther    = "other"
)

// ThemeFile tracks one path inside one ThemeVersion. VersionNumber points
// into the (theme, path) content lineage held by ThemeFileVersion, so
// unchanged files are carried between snapshots without copying bytes.
type ThemeFile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThemeVersionID uuid.UUID `gorm:"type:uuid;column:theme_version_id;not null;uniqueIndex:idx_theme_file_path,priority:1" json:"theme_version_id"`
	ThemeID        uuid.UUID `gorm:"type:uuid;column:theme_id;not null;index" json:"theme_id"`
	Path           string    `gorm:"column:path;not null;uniqueIndex:idx_theme_file_path,priority:2" json:"path"`
	Role           string    `gorm:"column:role;not null;index" json:"role"`
	Checksum       string    `gorm:"column:checksum;not null;index" json:"checksum"`
	SizeBytes      int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	VersionNumber  int       `gorm:"column:version_number;not null" json:"version_number"`
	Removed        bool      `gorm:"column:removed;not null;default:false" json:"removed"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (ThemeFile) TableName() string { return "theme_file" }
