package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/render"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
)

func DraftIdentity(draftID uuid.UUID) string { return "draft:" + draftID.String() }
func LiveIdentity(slug string) string        { return "live:" + slug }

// RenderService resolves file sets (draft or published) into renderer
// sources and serves pages. Live pages are cached; previews always
// render fresh so edits show up immediately.
type RenderService interface {
	RenderPreview(ctx context.Context, draftID uuid.UUID, templateName string, reqCtx map[string]any) (*render.Result, error)
	RenderLive(ctx context.Context, slug, templateName string, reqCtx map[string]any) (*render.Result, error)
	LiveAsset(ctx context.Context, slug, assetName string) ([]byte, error)
	DraftAsset(ctx context.Context, draftID uuid.UUID, assetName string) ([]byte, error)
}

type renderService struct {
	log           *logger.Logger
	renderer      *render.Renderer
	cache         RenderCache
	themeRepo     repos.ThemeRepo
	builderRepo   repos.BuilderThemeRepo
	bFileRepo     repos.BuilderFileRepo
	publishedRepo repos.PublishedVersionRepo
}

func NewRenderService(
	baseLog *logger.Logger,
	renderer *render.Renderer,
	cache RenderCache,
	themeRepo repos.ThemeRepo,
	builderRepo repos.BuilderThemeRepo,
	bFileRepo repos.BuilderFileRepo,
	publishedRepo repos.PublishedVersionRepo,
) RenderService {
	return &renderService{
		log:           baseLog.With("service", "RenderService"),
		renderer:      renderer,
		cache:         cache,
		themeRepo:     themeRepo,
		builderRepo:   builderRepo,
		bFileRepo:     bFileRepo,
		publishedRepo: publishedRepo,
	}
}

func (rs *renderService) RenderPreview(ctx context.Context, draftID uuid.UUID, templateName string, reqCtx map[string]any) (*render.Result, error) {
	src, err := rs.draftSource(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return rs.renderer.Render(ctx, src, templateName, reqCtx)
}

func (rs *renderService) RenderLive(ctx context.Context, slug, templateName string, reqCtx map[string]any) (*render.Result, error) {
	identity := LiveIdentity(slug)
	if rs.cache != nil {
		if cached, ok := rs.cache.Get(ctx, identity, templateName); ok {
			return cached, nil
		}
	}
	src, err := rs.liveSource(ctx, slug)
	if err != nil {
		return nil, err
	}
	result, err := rs.renderer.Render(ctx, src, templateName, reqCtx)
	if err != nil {
		return nil, err
	}
	if rs.cache != nil {
		rs.cache.Set(ctx, identity, templateName, result)
	}
	return result, nil
}

func (rs *renderService) LiveAsset(ctx context.Context, slug, assetName string) ([]byte, error) {
	src, err := rs.liveSource(ctx, slug)
	if err != nil {
		return nil, err
	}
	content, ok := src.File("assets/" + assetName)
	if !ok {
		return nil, apperr.NotFound("asset " + assetName)
	}
	return content, nil
}

func (rs *renderService) DraftAsset(ctx context.Context, draftID uuid.UUID, assetName string) ([]byte, error) {
	src, err := rs.draftSource(ctx, draftID)
	if err != nil {
		return nil, err
	}
	content, ok := src.File("assets/" + assetName)
	if !ok {
		return nil, apperr.NotFound("asset " + assetName)
	}
	return content, nil
}

func (rs *renderService) draftSource(ctx context.Context, draftID uuid.UUID) (render.Source, error) {
	draft, err := rs.builderRepo.GetByID(ctx, nil, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, apperr.NotFound("draft " + draftID.String())
	}
	files, err := rs.bFileRepo.ListByBuilder(ctx, nil, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft files: %w", err)
	}
	set := make(map[string][]byte, len(files))
	for _, f := range files {
		set[f.Path] = f.Content
	}
	return render.NewMapSource(DraftIdentity(draftID), render.SourceKindDraft, set), nil
}

func (rs *renderService) liveSource(ctx context.Context, slug string) (render.Source, error) {
	theme, err := rs.themeRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup theme: %w", err)
	}
	if theme == nil {
		return nil, apperr.NotFound("theme " + slug)
	}
	published, err := rs.publishedRepo.GetLive(ctx, nil, theme.ID)
	if err != nil {
		return nil, fmt.Errorf("load live published version: %w", err)
	}
	if published == nil {
		return nil, apperr.NotFound("live published version for theme " + slug)
	}
	files, err := rs.publishedRepo.Files(ctx, nil, published.ID)
	if err != nil {
		return nil, fmt.Errorf("load published files: %w", err)
	}
	set := make(map[string][]byte, len(files))
	for _, f := range files {
		set[f.Path] = f.Content
	}
	return render.NewMapSource(LiveIdentity(slug), render.SourceKindPublished, set), nil
}
