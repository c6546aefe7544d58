package render

import (
	"encoding/json"
	"fmt"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
)

// SectionEntry is one section inside a template document.
type SectionEntry struct {
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

// TemplateDoc is the wire format of templates/<name>.json: which
// sections appear, their settings, and their order.
type TemplateDoc struct {
	Sections map[string]SectionEntry `json:"sections"`
	Order    []string                `json:"order"`
}

// ParseTemplateDoc decodes a template document, normalizing nil maps.
func ParseTemplateDoc(raw []byte) (*TemplateDoc, error) {
	var doc TemplateDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse template document: %w: %v", apperr.ErrValidation, err)
	}
	if doc.Sections == nil {
		doc.Sections = map[string]SectionEntry{}
	}
	if doc.Order == nil {
		doc.Order = []string{}
	}
	return &doc, nil
}

// EmptyTemplateDoc returns a valid zero-section document.
func EmptyTemplateDoc() *TemplateDoc {
	return &TemplateDoc{Sections: map[string]SectionEntry{}, Order: []string{}}
}

// Encode renders the document back to its canonical JSON form.
func (d *TemplateDoc) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}
