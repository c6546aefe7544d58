package types

import (
	"time"

	"github.com/google/uuid"
)

// BuilderSnapshot is an immutable full copy of a draft's file set at a
// point in time, used only for rollback. Checksum covers the whole file
// set so rollback equality is cheap to verify.
type BuilderSnapshot struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BuilderThemeID uuid.UUID `gorm:"type:uuid;column:builder_theme_id;not null;index" json:"builder_theme_id"`
	ThemeID        uuid.UUID `gorm:"type:uuid;column:theme_id;not null;index" json:"theme_id"`
	Label          string    `gorm:"column:label" json:"label,omitempty"`
	Checksum       string    `gorm:"column:checksum;not null" json:"checksum"`
	FileCount      int       `gorm:"column:file_count;not null" json:"file_count"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (BuilderSnapshot) TableName() string { return "builder_snapshot" }

// BuilderSnapshotFile is one frozen file inside a snapshot.
type BuilderSnapshotFile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SnapshotID uuid.UUID `gorm:"type:uuid;column:snapshot_id;not null;uniqueIndex:idx_snapshot_file_path,priority:1" json:"snapshot_id"`
	Path       string    `gorm:"column:path;not null;uniqueIndex:idx_snapshot_file_path,priority:2" json:"path"`
	Role       string    `gorm:"column:role;not null" json:"role"`
	Content    []byte    `gorm:"column:content" json:"-"`
	Checksum   string    `gorm:"column:checksum;not null" json:"checksum"`
	SizeBytes  int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}

func (BuilderSnapshotFile) TableName() string { return "builder_snapshot_file" }
