package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
)

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return NewRenderer(log, NewDefaultRegistry())
}

func sourceWith(files map[string]string) Source {
	set := make(map[string][]byte, len(files))
	for path, content := range files {
		set[path] = []byte(content)
	}
	return NewMapSource("draft:test", SourceKindDraft, set)
}

func TestRenderSectionsInOrder(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"templates/index.json": `{
			"sections": {
				"a": {"type": "hero", "settings": {"title": "First"}},
				"b": {"type": "footer", "settings": {"text": "Last"}}
			},
			"order": ["a", "b"]
		}`,
	})

	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	first := strings.Index(result.HTML, "First")
	last := strings.Index(result.HTML, "Last")
	if first < 0 || last < 0 {
		t.Fatalf("expected both sections in output, got: %s", result.HTML)
	}
	if first > last {
		t.Fatalf("sections rendered out of order")
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %+v", result.Diagnostics)
	}
}

func TestRenderMissingTemplate(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{})
	if _, err := r.Render(context.Background(), src, "index", nil); err == nil {
		t.Fatalf("expected error for missing template")
	}
}

func TestRenderZeroSections(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"templates/index.json": `{"sections": {}, "order": []}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.HTML, "<main") {
		t.Fatalf("expected default layout shell, got: %s", result.HTML)
	}
}

func TestRenderMalformedDocumentDegrades(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"templates/index.json": `{not json`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(result.Diagnostics) != 1 {
		t.Fatalf("expected one diagnostic, got %+v", result.Diagnostics)
	}
}

func TestRenderUnknownSectionTypeIsolated(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"templates/index.json": `{
			"sections": {
				"good": {"type": "hero", "settings": {"title": "ok"}},
				"bad": {"type": "does_not_exist"}
			},
			"order": ["good", "bad"]
		}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.HTML, "ok") {
		t.Fatalf("healthy section should still render")
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].SectionID != "bad" {
		t.Fatalf("expected diagnostic for bad section, got %+v", result.Diagnostics)
	}
}

func TestRenderOrderReferencesMissingSection(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"templates/index.json": `{
			"sections": {"a": {"type": "hero", "settings": {"title": "x"}}},
			"order": ["a", "ghost"]
		}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].SectionID != "ghost" {
		t.Fatalf("expected diagnostic for ghost slot, got %+v", result.Diagnostics)
	}
}

func TestRenderThemeSectionOverridesBuiltin(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"sections/hero.html": `<div class="custom-hero">{{ .Settings.title }}</div>`,
		"templates/index.json": `{
			"sections": {"a": {"type": "hero", "settings": {"title": "Custom"}}},
			"order": ["a"]
		}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.HTML, `class="custom-hero"`) {
		t.Fatalf("theme section file should take precedence, got: %s", result.HTML)
	}
}

func TestRenderThemeLayoutUsed(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"layout/theme.html": `<html><body class="themed">{{ .Content }}</body></html>`,
		"templates/index.json": `{
			"sections": {"a": {"type": "hero", "settings": {"title": "T"}}},
			"order": ["a"]
		}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.HTML, `class="themed"`) {
		t.Fatalf("expected theme layout, got: %s", result.HTML)
	}
	if !strings.Contains(result.HTML, "T") {
		t.Fatalf("expected section content inside layout")
	}
}

func TestRenderAssetManifestCollected(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"sections/hero.html": `<link href="{{ asset_url "main.css" }}"/><script src="{{ asset_url "app.js" }}"></script>`,
		"templates/index.json": `{
			"sections": {"a": {"type": "hero"}},
			"order": ["a"]
		}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(result.Assets.CSS) != 1 || len(result.Assets.JS) != 1 {
		t.Fatalf("expected one css and one js asset, got %+v", result.Assets)
	}
	if !strings.Contains(result.HTML, "/themes/draft:test/assets/main.css") {
		t.Fatalf("asset url not rewritten: %s", result.HTML)
	}
}

func TestRenderContextDeadline(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"templates/index.json": `{"sections": {}, "order": []}`,
	})
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	result, err := r.Render(ctx, src, "index", nil)
	if err == nil {
		t.Fatalf("expected deadline error")
	}
	if result == nil || result.HTML != "" {
		t.Fatalf("expected empty page on deadline")
	}
}

func TestRenderSitewideSettingsVisible(t *testing.T) {
	r := testRenderer(t)
	src := sourceWith(map[string]string{
		"config/settings_data.json": `{"title": "My Store"}`,
		"layout/theme.html":         `<title>{{ .Site.title }}</title>{{ .Content }}`,
		"templates/index.json":      `{"sections": {}, "order": []}`,
	})
	result, err := r.Render(context.Background(), src, "index", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(result.HTML, "My Store") {
		t.Fatalf("site settings not visible to layout: %s", result.HTML)
	}
}
