package types

import (
	"time"

	"github.com/google/uuid"
)

// BuilderFile is one mutable working file scoped to a draft workspace.
// Template JSON files are canonical: section CRUD re-materializes the
// owning templates/<name>.json row.
type BuilderFile struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BuilderThemeID uuid.UUID `gorm:"type:uuid;column:builder_theme_id;not null;uniqueIndex:idx_builder_file_path,priority:1" json:"builder_theme_id"`
	Path           string    `gorm:"column:path;not null;uniqueIndex:idx_builder_file_path,priority:2" json:"path"`
	Role           string    `gorm:"column:role;not null;index" json:"role"`
	Content        []byte    `gorm:"column:content" json:"-"`
	Checksum       string    `gorm:"column:checksum;not null" json:"checksum"`
	SizeBytes      int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

func (BuilderFile) TableName() string { return "builder_file" }
