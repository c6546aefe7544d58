package services

import (
	"context"
	"errors"
	"testing"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
)

func newThemeService(env *testEnv) ThemeService {
	return NewThemeService(env.db, env.log, env.themeRepo, env.versionRepo, env.fileRepo, env.versions, env.builderRepo, env.publishedRepo)
}

func TestActivateIsExclusive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	themes := newThemeService(env)

	installTheme(t, env, map[string]string{
		"config/theme.json": `{"name":"Dawn","version":"1.0.0"}`,
	})
	installTheme(t, env, map[string]string{
		"config/theme.json": `{"name":"Dusk","version":"1.0.0"}`,
	})

	if _, err := themes.Activate(ctx, "dawn"); err != nil {
		t.Fatalf("Activate(dawn): %v", err)
	}
	if _, err := themes.Activate(ctx, "dusk"); err != nil {
		t.Fatalf("Activate(dusk): %v", err)
	}

	all, err := themes.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	active := 0
	for _, th := range all {
		if th.Active {
			active++
			if th.Slug != "dusk" {
				t.Fatalf("wrong theme active: %s", th.Slug)
			}
		}
	}
	if active != 1 {
		t.Fatalf("active themes = %d, want 1", active)
	}
}

func TestDeleteActiveThemeBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	themes := newThemeService(env)
	installTheme(t, env, map[string]string{})

	if _, err := themes.Activate(ctx, "dawn"); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := themes.Delete(ctx, "dawn"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("deleting the active theme should conflict, got %v", err)
	}
}

func TestDeleteThemeWithDependentsBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	themes := newThemeService(env)
	_, draft := seedDraft(t, env)

	if err := themes.Delete(ctx, "dawn"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("open draft should block delete, got %v", err)
	}

	if _, err := env.publish.Publish(ctx, draft.ID, "editor"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := themes.Delete(ctx, "dawn"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("published versions should block delete, got %v", err)
	}
}

func TestDeleteThemeWithoutDependents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	themes := newThemeService(env)
	installTheme(t, env, map[string]string{})

	if err := themes.Delete(ctx, "dawn"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := themes.GetBySlug(ctx, "dawn"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("deleted theme should be gone, got %v", err)
	}
}

func TestFileContentAndHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	themes := newThemeService(env)
	theme := installTheme(t, env, map[string]string{
		"assets/main.css": `body{}`,
	})
	if _, err := env.sync.Sync(ctx, "dawn"); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	live, _ := env.versionRepo.GetLive(ctx, nil, theme.ID)
	content, file, err := themes.FileContent(ctx, live.ID, "assets/main.css")
	if err != nil {
		t.Fatalf("FileContent: %v", err)
	}
	if string(content) != `body{}` || file.Role != "asset" {
		t.Fatalf("content=%q role=%q", content, file.Role)
	}

	if _, _, err := themes.FileContent(ctx, live.ID, "assets/nope.css"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing path should be not-found, got %v", err)
	}

	history, err := themes.FileHistory(ctx, "dawn", "assets/main.css")
	if err != nil {
		t.Fatalf("FileHistory: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d entries", len(history))
	}
	if _, err := themes.FileHistory(ctx, "dawn", "assets/nope.css"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("missing lineage should be not-found, got %v", err)
	}
}
