package types

import (
	"time"

	"github.com/google/uuid"
)

// PublishedVersion is the immutable output of a successful publish: the
// artifact the live renderer reads. The row with live=true is the one
// served; older rows are kept for history.
type PublishedVersion struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ThemeID        uuid.UUID `gorm:"type:uuid;column:theme_id;not null;uniqueIndex:idx_published_seq,priority:1" json:"theme_id"`
	ThemeVersionID uuid.UUID `gorm:"type:uuid;column:theme_version_id;not null" json:"theme_version_id"`
	BuilderThemeID uuid.UUID `gorm:"type:uuid;column:builder_theme_id;not null" json:"builder_theme_id"`
	Sequence       int       `gorm:"column:sequence;not null;uniqueIndex:idx_published_seq,priority:2" json:"sequence"`
	Live           bool      `gorm:"column:live;not null;default:false;index" json:"live"`
	PublishedBy    string    `gorm:"column:published_by" json:"published_by,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (PublishedVersion) TableName() string { return "published_version" }

// PublishedFile is one frozen file inside a published version. Content is
// denormalized so live rendering never joins back into the version store.
type PublishedFile struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PublishedVersionID uuid.UUID `gorm:"type:uuid;column:published_version_id;not null;uniqueIndex:idx_published_file_path,priority:1" json:"published_version_id"`
	Path               string    `gorm:"column:path;not null;uniqueIndex:idx_published_file_path,priority:2" json:"path"`
	Role               string    `gorm:"column:role;not null" json:"role"`
	Content            []byte    `gorm:"column:content" json:"-"`
	Checksum           string    `gorm:"column:checksum;not null" json:"checksum"`
	SizeBytes          int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
}

func (PublishedFile) TableName() string { return "published_file" }
