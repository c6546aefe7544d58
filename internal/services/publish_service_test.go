package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

func TestPublishFlipsLiveAndClosesDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)

	published, err := env.publish.Publish(ctx, draft.ID, "editor@example.com")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if published.Sequence != 1 || published.PublishedBy != "editor@example.com" {
		t.Fatalf("published = %+v", published)
	}

	livePub, err := env.publishedRepo.GetLive(ctx, nil, theme.ID)
	if err != nil || livePub == nil || livePub.ID != published.ID {
		t.Fatalf("GetLive published: %+v %v", livePub, err)
	}

	// The version store gained a publish-sourced version and it is live.
	liveVer, err := env.versionRepo.GetLive(ctx, nil, theme.ID)
	if err != nil || liveVer == nil {
		t.Fatalf("GetLive version: %v %v", liveVer, err)
	}
	if liveVer.Source != types.VersionSourcePublish || liveVer.Sequence != 2 {
		t.Fatalf("live version = %+v", liveVer)
	}

	closed, err := env.builder.GetDraft(ctx, draft.ID)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if closed.Status != types.BuilderStatusPublished {
		t.Fatalf("draft status = %q", closed.Status)
	}

	// A published draft cannot be published again.
	if _, err := env.publish.Publish(ctx, draft.ID, "editor@example.com"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("republish should conflict, got %v", err)
	}
	if len(env.notifier.published) != 1 {
		t.Fatalf("publish notifications = %d", len(env.notifier.published))
	}
}

func TestPublishValidationFailureChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)

	bad := `{
		"sections": {
			"a": {"type": "mystery"},
			"b": {"type": ""}
		},
		"order": ["a", "b", "ghost"]
	}`
	if _, err := env.builder.UpdateFile(ctx, draft.ID, "templates/index.json", []byte(bad)); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}

	_, err := env.publish.Publish(ctx, draft.ID, "editor")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	var ve *apperr.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected field-level errors, got %v", err)
	}
	if len(ve.Errors) != 3 {
		t.Fatalf("expected every problem collected, got %+v", ve.Errors)
	}

	if pub, _ := env.publishedRepo.GetLive(ctx, nil, theme.ID); pub != nil {
		t.Fatalf("failed publish must not go live: %+v", pub)
	}
	still, _ := env.builder.GetDraft(ctx, draft.ID)
	if still.Status != types.BuilderStatusOpen {
		t.Fatalf("draft should remain open, status = %q", still.Status)
	}
	versions, _ := env.versionRepo.ListByTheme(ctx, nil, theme.ID)
	if len(versions) != 1 {
		t.Fatalf("failed publish must not create a version, have %d", len(versions))
	}
}

func TestPublishAcceptsDraftSectionFiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, draft := seedDraft(t, env)

	if _, err := env.builder.UpdateFile(ctx, draft.ID, "sections/promo.html", []byte(`<div>{{ .Settings.text }}</div>`)); err != nil {
		t.Fatalf("UpdateFile(section): %v", err)
	}
	doc := `{
		"sections": {"p": {"type": "promo", "settings": {"text": "Deal"}}},
		"order": ["p"]
	}`
	if _, err := env.builder.UpdateFile(ctx, draft.ID, "templates/index.json", []byte(doc)); err != nil {
		t.Fatalf("UpdateFile(template): %v", err)
	}
	if err := env.publish.Validate(ctx, draft.ID); err != nil {
		t.Fatalf("theme-provided section type should validate, got %v", err)
	}
}

func TestPublishConcurrentConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)

	key := "publish:" + theme.ID.String()
	if !env.locks.TryLock(key) {
		t.Fatalf("could not take publish lock")
	}
	defer env.locks.Unlock(key)

	if _, err := env.publish.Publish(ctx, draft.ID, "editor"); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("publish during publish should conflict, got %v", err)
	}
}

func TestPublishWaitsForVersionWriter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)

	key := "version:" + theme.ID.String()
	env.locks.Lock(key)

	done := make(chan error, 1)
	go func() {
		_, err := env.publish.Publish(ctx, draft.ID, "editor")
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("publish finished while the version writer lock was held, err = %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	env.locks.Unlock(key)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Publish after lock release: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publish never finished after the version writer lock was released")
	}

	live, err := env.versionRepo.GetLive(ctx, nil, theme.ID)
	if err != nil || live == nil || live.Source != types.VersionSourcePublish {
		t.Fatalf("live version after publish = %+v %v", live, err)
	}
}

func TestPublishReusesUnchangedLineage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)

	if _, err := env.builder.UpdateFile(ctx, draft.ID, "assets/main.css", []byte(`body{color:red}`)); err != nil {
		t.Fatalf("UpdateFile: %v", err)
	}
	if _, err := env.publish.Publish(ctx, draft.ID, "editor"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// The edited file gained a lineage version; untouched files did not.
	cssHistory, _ := env.fvRepo.History(ctx, nil, theme.ID, "assets/main.css")
	if len(cssHistory) != 2 {
		t.Fatalf("css lineage = %d entries, want 2", len(cssHistory))
	}
	tplHistory, _ := env.fvRepo.History(ctx, nil, theme.ID, "templates/index.json")
	if len(tplHistory) != 1 {
		t.Fatalf("template lineage = %d entries, want 1", len(tplHistory))
	}
}

func TestPublishedPageRendersLive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)

	section, err := env.builder.AddSection(ctx, draft.ID, "index", "hero", map[string]any{"title": "Hi"})
	if err != nil {
		t.Fatalf("AddSection: %v", err)
	}
	if err := env.builder.ReorderSections(ctx, draft.ID, "index", []string{section.SectionKey, "hero-1"}); err != nil {
		t.Fatalf("ReorderSections: %v", err)
	}
	if _, err := env.publish.Publish(ctx, draft.ID, "editor"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	result, err := env.renders.RenderLive(ctx, theme.Slug, "index", nil)
	if err != nil {
		t.Fatalf("RenderLive: %v", err)
	}
	first := strings.Index(result.HTML, "Hi")
	second := strings.Index(result.HTML, "Welcome")
	if first < 0 || second < 0 || first > second {
		t.Fatalf("live page wrong: %s", result.HTML)
	}
	if len(result.Diagnostics) != 0 {
		t.Fatalf("diagnostics = %+v", result.Diagnostics)
	}
}

func TestRenderLiveWithoutPublish(t *testing.T) {
	env := newTestEnv(t)
	theme, _ := seedDraft(t, env)
	if _, err := env.renders.RenderLive(context.Background(), theme.Slug, "index", nil); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("unpublished theme should be not-found, got %v", err)
	}
}

func TestPublishHistoryOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme, draft := seedDraft(t, env)
	if _, err := env.publish.Publish(ctx, draft.ID, "first"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	second, err := env.builder.CreateDraft(ctx, CreateDraftParams{
		OwnerUserID:   draft.OwnerUserID,
		FromBuilderID: &draft.ID,
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if _, err := env.publish.Publish(ctx, second.ID, "second"); err != nil {
		t.Fatalf("Publish(second): %v", err)
	}

	history, err := env.publish.History(ctx, theme.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].Sequence != 2 || history[1].Sequence != 1 {
		t.Fatalf("history = %+v", history)
	}

	live, _ := env.publishedRepo.GetLive(ctx, nil, theme.ID)
	if live == nil || live.Sequence != 2 {
		t.Fatalf("live = %+v", live)
	}
}
