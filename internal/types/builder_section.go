package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BuilderSection is the structured view of one section entry inside a
// draft's template document. Position is explicit so concurrent edits to
// different sections commute; only ReorderSections rewrites positions.
type BuilderSection struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BuilderThemeID uuid.UUID      `gorm:"type:uuid;column:builder_theme_id;not null;uniqueIndex:idx_builder_section_key,priority:1" json:"builder_theme_id"`
	TemplateName   string         `gorm:"column:template_name;not null;uniqueIndex:idx_builder_section_key,priority:2" json:"template_name"`
	SectionKey     string         `gorm:"column:section_key;not null;uniqueIndex:idx_builder_section_key,priority:3" json:"section_key"`
	Type           string         `gorm:"column:type;not null" json:"type"`
	Settings       datatypes.JSON `gorm:"column:settings" json:"settings,omitempty"`
	Position       int            `gorm:"column:position;not null" json:"position"`
	CreatedAt      time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (BuilderSection) TableName() string { return "builder_section" }
