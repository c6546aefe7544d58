package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
)

const (
	defaultLayoutPath = "layout/theme.html"
	settingsDataPath  = "config/settings_data.json"
)

// builtin layout used when the theme ships none
const defaultLayout = `<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>{{ .Site.title }}</title>
</head>
<body>
  <main id="content">{{ .Content }}</main>
</body>
</html>`

// SectionDiagnostic reports one failed section slot. The page render
// itself still succeeds; diagnostics are for the theme editor.
type SectionDiagnostic struct {
	SectionID string `json:"section_id"`
	Type      string `json:"type,omitempty"`
	Message   string `json:"message"`
}

// Result is a finished page render: markup plus the asset manifest and
// any per-section failures.
type Result struct {
	HTML        string              `json:"html"`
	Assets      AssetManifest       `json:"assets"`
	Diagnostics []SectionDiagnostic `json:"diagnostics"`
}

type Renderer struct {
	log      *logger.Logger
	registry *Registry
}

func NewRenderer(baseLog *logger.Logger, registry *Registry) *Renderer {
	if registry == nil {
		registry = NewDefaultRegistry()
	}
	return &Renderer{
		log:      baseLog.With("component", "Renderer"),
		registry: registry,
	}
}

// Render composes templateName from src: layout resolution, ordered
// section rendering with per-section failure isolation, placeholder
// injection, asset manifest collection. A section failure never fails
// the page; ctx expiry returns the error-tagged empty page instead of a
// half-rendered document.
func (r *Renderer) Render(ctx context.Context, src Source, templateName string, reqCtx map[string]any) (*Result, error) {
	empty := &Result{Assets: AssetManifest{CSS: []string{}, JS: []string{}}, Diagnostics: []SectionDiagnostic{}}
	if err := ctx.Err(); err != nil {
		return empty, fmt.Errorf("render %s: %w: %v", templateName, apperr.ErrRender, err)
	}

	docPath := "templates/" + templateName + ".json"
	raw, ok := src.File(docPath)
	if !ok {
		return empty, apperr.NotFound("template " + templateName)
	}

	diagnostics := []SectionDiagnostic{}
	doc, err := ParseTemplateDoc(raw)
	if err != nil {
		// Malformed template JSON degrades to an empty document; the
		// layout still renders and the editor sees the diagnostic.
		doc = EmptyTemplateDoc()
		diagnostics = append(diagnostics, SectionDiagnostic{
			SectionID: templateName,
			Message:   fmt.Sprintf("malformed template document: %v", err),
		})
	}

	collector := newAssetCollector()
	funcs := funcMap(src.Identity(), collector)
	site := r.siteSettings(src)

	var content strings.Builder
	for _, sectionID := range doc.Order {
		if err := ctx.Err(); err != nil {
			return empty, fmt.Errorf("render %s: %w: %v", templateName, apperr.ErrRender, err)
		}
		entry, exists := doc.Sections[sectionID]
		if !exists {
			diagnostics = append(diagnostics, SectionDiagnostic{
				SectionID: sectionID,
				Message:   "section id missing from sections map",
			})
			continue
		}
		html, renderErr := r.renderSection(src, funcs, sectionID, entry, site, reqCtx)
		if renderErr != nil {
			r.log.Warn("Section render failed",
				"source", src.Identity(),
				"template", templateName,
				"section_id", sectionID,
				"section_type", entry.Type,
				"error", renderErr,
			)
			diagnostics = append(diagnostics, SectionDiagnostic{
				SectionID: sectionID,
				Type:      entry.Type,
				Message:   renderErr.Error(),
			})
			continue
		}
		content.WriteString(html)
	}

	page, err := r.renderLayout(src, funcs, templateName, content.String(), site, reqCtx)
	if err != nil {
		return empty, fmt.Errorf("render %s: %w: %v", templateName, apperr.ErrRender, err)
	}

	return &Result{
		HTML:        page,
		Assets:      collector.manifest(),
		Diagnostics: diagnostics,
	}, nil
}

type sectionData struct {
	ID       string
	Type     string
	Settings map[string]any
	Site     map[string]any
	Request  map[string]any
}

// renderSection resolves the markup definition for one section (theme
// file first, built-in registry second) and executes it. Panics inside
// template execution are contained here.
func (r *Renderer) renderSection(src Source, funcs template.FuncMap, sectionID string, entry SectionEntry, site, reqCtx map[string]any) (out string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = ""
			err = fmt.Errorf("section panic: %v", rec)
		}
	}()

	if entry.Type == "" {
		return "", fmt.Errorf("section has no type")
	}
	markup, resolveErr := r.resolveMarkup(src, entry.Type)
	if resolveErr != nil {
		return "", resolveErr
	}

	tmpl, parseErr := template.New(entry.Type).Funcs(funcs).Parse(markup)
	if parseErr != nil {
		return "", fmt.Errorf("parse section markup: %v", parseErr)
	}

	settings := entry.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	var buf bytes.Buffer
	execErr := tmpl.Execute(&buf, sectionData{
		ID:       sectionID,
		Type:     entry.Type,
		Settings: settings,
		Site:     site,
		Request:  reqCtx,
	})
	if execErr != nil {
		return "", fmt.Errorf("execute section markup: %v", execErr)
	}
	return buf.String(), nil
}

func (r *Renderer) resolveMarkup(src Source, sectionType string) (string, error) {
	if content, ok := src.File("sections/" + sectionType + ".html"); ok {
		return string(content), nil
	}
	def, err := r.registry.Get(sectionType)
	if err != nil {
		return "", err
	}
	return def.Markup, nil
}

type layoutData struct {
	Content  template.HTML
	Template string
	Site     map[string]any
	Request  map[string]any
}

func (r *Renderer) renderLayout(src Source, funcs template.FuncMap, templateName, content string, site, reqCtx map[string]any) (string, error) {
	markup := r.resolveLayout(src)
	tmpl, err := template.New("layout").Funcs(funcs).Parse(markup)
	if err != nil {
		return "", fmt.Errorf("parse layout: %v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, layoutData{
		Content:  template.HTML(content),
		Template: templateName,
		Site:     site,
		Request:  reqCtx,
	}); err != nil {
		return "", fmt.Errorf("execute layout: %v", err)
	}
	return buf.String(), nil
}

// resolveLayout prefers layout/theme.html, then any other layout file,
// then the built-in default.
func (r *Renderer) resolveLayout(src Source) string {
	if content, ok := src.File(defaultLayoutPath); ok {
		return string(content)
	}
	for _, path := range src.Paths() {
		if strings.HasPrefix(path, "layout/") && strings.HasSuffix(path, ".html") {
			if content, ok := src.File(path); ok {
				return string(content)
			}
		}
	}
	return defaultLayout
}

func (r *Renderer) siteSettings(src Source) map[string]any {
	raw, ok := src.File(settingsDataPath)
	if !ok {
		return map[string]any{}
	}
	var settings map[string]any
	if err := json.Unmarshal(raw, &settings); err != nil {
		r.log.Debug("Malformed settings_data.json ignored", "source", src.Identity(), "error", err)
		return map[string]any{}
	}
	return settings
}
