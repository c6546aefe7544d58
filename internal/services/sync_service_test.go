package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

func installTheme(t *testing.T, env *testEnv, files map[string]string) *types.Theme {
	t.Helper()
	root := t.TempDir()
	if _, ok := files["config/theme.json"]; !ok {
		files["config/theme.json"] = `{"name":"Dawn","version":"1.0.0"}`
	}
	writeThemeDir(t, root, files)
	theme, err := env.sync.InstallFromDisk(context.Background(), root)
	if err != nil {
		t.Fatalf("InstallFromDisk: %v", err)
	}
	return theme
}

func TestInstallAndFirstSync(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{
		"templates/index.json": `{"sections":{},"order":[]}`,
		"assets/main.css":      `body{}`,
	})
	if theme.Slug != "dawn" {
		t.Fatalf("slug = %q", theme.Slug)
	}

	result, err := env.sync.Sync(ctx, "dawn")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if result.FilesCreated != 3 || result.Sequence != 1 || !result.SnapshotCreated {
		t.Fatalf("first sync result = %+v", result)
	}
	if result.VersionsCreated != 3 {
		t.Fatalf("expected one lineage version per file, got %d", result.VersionsCreated)
	}

	live, err := env.versionRepo.GetLive(ctx, nil, theme.ID)
	if err != nil || live == nil {
		t.Fatalf("GetLive: %v %v", live, err)
	}
	if live.Sequence != 1 || live.Source != types.VersionSourceSync {
		t.Fatalf("live version = %+v", live)
	}
	if env.notifier.syncs != 1 {
		t.Fatalf("sync notifications = %d", env.notifier.syncs)
	}
}

func TestInstallTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	root := t.TempDir()
	writeThemeDir(t, root, map[string]string{"config/theme.json": `{"name":"Dawn","version":"1.0.0"}`})
	if _, err := env.sync.InstallFromDisk(context.Background(), root); err != nil {
		t.Fatalf("first install: %v", err)
	}
	if _, err := env.sync.InstallFromDisk(context.Background(), root); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSyncNoChangesCreatesNoVersion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{
		"templates/index.json": `{"sections":{},"order":[]}`,
	})
	if _, err := env.sync.Sync(ctx, "dawn"); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	result, err := env.sync.Sync(ctx, "dawn")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.SnapshotCreated || result.FilesCreated+result.FilesUpdated+result.FilesRemoved != 0 {
		t.Fatalf("no-op sync result = %+v", result)
	}
	if result.Sequence != 1 {
		t.Fatalf("sequence should stay at 1, got %d", result.Sequence)
	}

	versions, err := env.versionRepo.ListByTheme(ctx, nil, theme.ID)
	if err != nil {
		t.Fatalf("ListByTheme: %v", err)
	}
	if len(versions) != 1 {
		t.Fatalf("expected a single version, have %d", len(versions))
	}
}

func TestSyncChangeAppendsLineage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{
		"templates/index.json": `{"sections":{},"order":[]}`,
		"assets/main.css":      `body{}`,
	})
	if _, err := env.sync.Sync(ctx, "dawn"); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	writeThemeDir(t, theme.RootDir, map[string]string{"assets/main.css": `body{color:red}`})
	result, err := env.sync.Sync(ctx, "dawn")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.FilesUpdated != 1 || result.Sequence != 2 {
		t.Fatalf("changed sync result = %+v", result)
	}
	if result.VersionsCreated != 1 {
		t.Fatalf("only the changed file should gain a version, got %d", result.VersionsCreated)
	}

	history, err := env.fvRepo.History(ctx, nil, theme.ID, "assets/main.css")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("lineage length = %d, want 2", len(history))
	}

	// The unchanged file still resolves through its original lineage entry.
	live, _ := env.versionRepo.GetLive(ctx, nil, theme.ID)
	tf, err := env.fileRepo.GetByVersionAndPath(ctx, nil, live.ID, "templates/index.json")
	if err != nil || tf == nil {
		t.Fatalf("GetByVersionAndPath: %v %v", tf, err)
	}
	if tf.VersionNumber != 1 {
		t.Fatalf("unchanged file pointer = %d, want 1", tf.VersionNumber)
	}
}

func TestSyncRemovedFileMarked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{
		"templates/index.json": `{"sections":{},"order":[]}`,
		"assets/old.css":       `body{}`,
	})
	if _, err := env.sync.Sync(ctx, "dawn"); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	if err := os.Remove(filepath.Join(theme.RootDir, "assets", "old.css")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	result, err := env.sync.Sync(ctx, "dawn")
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if result.FilesRemoved != 1 {
		t.Fatalf("result = %+v", result)
	}

	live, _ := env.versionRepo.GetLive(ctx, nil, theme.ID)
	tf, err := env.fileRepo.GetByVersionAndPath(ctx, nil, live.ID, "assets/old.css")
	if err != nil || tf == nil {
		t.Fatalf("removed file should still be tracked: %v %v", tf, err)
	}
	if !tf.Removed {
		t.Fatalf("expected removed marker")
	}

	// Lineage content survives removal.
	history, _ := env.fvRepo.History(ctx, nil, theme.ID, "assets/old.css")
	if len(history) != 1 {
		t.Fatalf("lineage should be retained, have %d entries", len(history))
	}
}

func TestSyncUnknownSlug(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.sync.Sync(context.Background(), "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSyncMissingRootIsRecoverable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{})
	if err := os.RemoveAll(theme.RootDir); err != nil {
		t.Fatalf("remove root: %v", err)
	}
	result, err := env.sync.Sync(ctx, "dawn")
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
	if result == nil || result.SnapshotCreated {
		t.Fatalf("failed scan must not create a version: %+v", result)
	}
}

func TestCheckForUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{})

	changed, installed, manifest, err := env.sync.CheckForUpdate(ctx, "dawn")
	if err != nil {
		t.Fatalf("CheckForUpdate: %v", err)
	}
	if changed || installed != "1.0.0" || manifest != "1.0.0" {
		t.Fatalf("unexpected: changed=%v installed=%q manifest=%q", changed, installed, manifest)
	}

	writeThemeDir(t, theme.RootDir, map[string]string{"config/theme.json": `{"name":"Dawn","version":"1.1.0"}`})
	changed, installed, manifest, err = env.sync.CheckForUpdate(ctx, "dawn")
	if err != nil {
		t.Fatalf("CheckForUpdate: %v", err)
	}
	if !changed || installed != "1.0.0" || manifest != "1.1.0" {
		t.Fatalf("unexpected: changed=%v installed=%q manifest=%q", changed, installed, manifest)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Dawn":          "dawn",
		"My Great Theme": "my-great-theme",
		"--Weird__Name--": "weird-name",
		"!!!":            "theme",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
