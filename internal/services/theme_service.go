package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// ThemeService is the read/manage surface over installed themes and
// their recorded versions.
type ThemeService interface {
	List(ctx context.Context) ([]*types.Theme, error)
	GetBySlug(ctx context.Context, slug string) (*types.Theme, error)
	Activate(ctx context.Context, slug string) (*types.Theme, error)
	Delete(ctx context.Context, slug string) error

	Versions(ctx context.Context, slug string) ([]*types.ThemeVersion, error)
	VersionFiles(ctx context.Context, versionID uuid.UUID) ([]*types.ThemeFile, error)
	FileContent(ctx context.Context, versionID uuid.UUID, path string) ([]byte, *types.ThemeFile, error)
	FileHistory(ctx context.Context, slug, path string) ([]*types.ThemeFileVersion, error)
}

type themeService struct {
	db            *gorm.DB
	log           *logger.Logger
	themeRepo     repos.ThemeRepo
	versionRepo   repos.ThemeVersionRepo
	fileRepo      repos.ThemeFileRepo
	versions      VersionService
	builderRepo   repos.BuilderThemeRepo
	publishedRepo repos.PublishedVersionRepo
}

func NewThemeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	themeRepo repos.ThemeRepo,
	versionRepo repos.ThemeVersionRepo,
	fileRepo repos.ThemeFileRepo,
	versions VersionService,
	builderRepo repos.BuilderThemeRepo,
	publishedRepo repos.PublishedVersionRepo,
) ThemeService {
	return &themeService{
		db:            db,
		log:           baseLog.With("service", "ThemeService"),
		themeRepo:     themeRepo,
		versionRepo:   versionRepo,
		fileRepo:      fileRepo,
		versions:      versions,
		builderRepo:   builderRepo,
		publishedRepo: publishedRepo,
	}
}

func (ts *themeService) List(ctx context.Context) ([]*types.Theme, error) {
	return ts.themeRepo.List(ctx, nil)
}

func (ts *themeService) GetBySlug(ctx context.Context, slug string) (*types.Theme, error) {
	theme, err := ts.themeRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup theme: %w", err)
	}
	if theme == nil {
		return nil, apperr.NotFound("theme " + slug)
	}
	return theme, nil
}

// Activate makes this theme the single active one.
func (ts *themeService) Activate(ctx context.Context, slug string) (*types.Theme, error) {
	theme, err := ts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if err := ts.themeRepo.Activate(ctx, nil, theme.ID); err != nil {
		return nil, fmt.Errorf("activate theme: %w", err)
	}
	theme.Active = true
	ts.log.Info("Theme activated", "slug", slug)
	return theme, nil
}

// Delete refuses while the theme is active or anything still depends
// on it: open drafts or published versions.
func (ts *themeService) Delete(ctx context.Context, slug string) error {
	theme, err := ts.GetBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if theme.Active {
		return fmt.Errorf("cannot delete the active theme: %w", apperr.ErrConflict)
	}
	drafts, err := ts.builderRepo.ListByTheme(ctx, nil, theme.ID)
	if err != nil {
		return fmt.Errorf("load drafts: %w", err)
	}
	for _, d := range drafts {
		if d.Status == types.BuilderStatusOpen {
			return fmt.Errorf("theme has an open draft %s: %w", d.ID, apperr.ErrConflict)
		}
	}
	published, err := ts.publishedRepo.ListByTheme(ctx, nil, theme.ID)
	if err != nil {
		return fmt.Errorf("load published versions: %w", err)
	}
	if len(published) > 0 {
		return fmt.Errorf("theme has %d published versions: %w", len(published), apperr.ErrConflict)
	}
	return ts.themeRepo.Delete(ctx, nil, theme.ID)
}

func (ts *themeService) Versions(ctx context.Context, slug string) ([]*types.ThemeVersion, error) {
	theme, err := ts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return ts.versionRepo.ListByTheme(ctx, nil, theme.ID)
}

func (ts *themeService) VersionFiles(ctx context.Context, versionID uuid.UUID) ([]*types.ThemeFile, error) {
	version, err := ts.versionRepo.GetByID(ctx, nil, versionID)
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	if version == nil {
		return nil, apperr.NotFound("theme version " + versionID.String())
	}
	return ts.fileRepo.ListByVersion(ctx, nil, versionID)
}

// FileContent resolves one tracked file's bytes at a given version.
func (ts *themeService) FileContent(ctx context.Context, versionID uuid.UUID, path string) ([]byte, *types.ThemeFile, error) {
	file, err := ts.fileRepo.GetByVersionAndPath(ctx, nil, versionID, path)
	if err != nil {
		return nil, nil, fmt.Errorf("load tracked file: %w", err)
	}
	if file == nil || file.Removed {
		return nil, nil, apperr.NotFound("file " + path)
	}
	content, err := ts.versions.GetContent(ctx, nil, file)
	if err != nil {
		return nil, nil, err
	}
	return content, file, nil
}

func (ts *themeService) FileHistory(ctx context.Context, slug, path string) ([]*types.ThemeFileVersion, error) {
	theme, err := ts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	history, err := ts.versions.History(ctx, nil, theme.ID, path)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, apperr.NotFound("file " + path)
	}
	return history, nil
}
