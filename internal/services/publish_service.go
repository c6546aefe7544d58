package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/pkg/keylock"
	"github.com/pagecraft/pagecraft-backend/internal/render"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// PublishService turns an open draft into the next live published
// version. Publishes for the same theme are mutually exclusive; a
// second publish started while one is running fails fast.
type PublishService interface {
	Publish(ctx context.Context, draftID uuid.UUID, publishedBy string) (*types.PublishedVersion, error)
	Validate(ctx context.Context, draftID uuid.UUID) error
	History(ctx context.Context, themeID uuid.UUID) ([]*types.PublishedVersion, error)
}

type publishService struct {
	db            *gorm.DB
	log           *logger.Logger
	locks         *keylock.KeyedMutex
	registry      *render.Registry
	themeRepo     repos.ThemeRepo
	versionRepo   repos.ThemeVersionRepo
	fileRepo      repos.ThemeFileRepo
	fvRepo        repos.ThemeFileVersionRepo
	builderRepo   repos.BuilderThemeRepo
	bFileRepo     repos.BuilderFileRepo
	publishedRepo repos.PublishedVersionRepo
	cache         RenderCache
	notifier      ThemeNotifier
}

func NewPublishService(
	db *gorm.DB,
	baseLog *logger.Logger,
	locks *keylock.KeyedMutex,
	registry *render.Registry,
	themeRepo repos.ThemeRepo,
	versionRepo repos.ThemeVersionRepo,
	fileRepo repos.ThemeFileRepo,
	fvRepo repos.ThemeFileVersionRepo,
	builderRepo repos.BuilderThemeRepo,
	bFileRepo repos.BuilderFileRepo,
	publishedRepo repos.PublishedVersionRepo,
	cache RenderCache,
	notifier ThemeNotifier,
) PublishService {
	return &publishService{
		db:            db,
		log:           baseLog.With("service", "PublishService"),
		locks:         locks,
		registry:      registry,
		themeRepo:     themeRepo,
		versionRepo:   versionRepo,
		fileRepo:      fileRepo,
		fvRepo:        fvRepo,
		builderRepo:   builderRepo,
		bFileRepo:     bFileRepo,
		publishedRepo: publishedRepo,
		cache:         cache,
		notifier:      notifier,
	}
}

// Publish validates the draft, then in one transaction records a new
// theme version (reusing unchanged content lineages), freezes the file
// set as a published version, flips the live pointers, and closes the
// draft. A validation failure changes nothing.
func (ps *publishService) Publish(ctx context.Context, draftID uuid.UUID, publishedBy string) (*types.PublishedVersion, error) {
	draft, files, err := ps.loadOpen(ctx, draftID)
	if err != nil {
		return nil, err
	}

	lockKey := "publish:" + draft.ThemeID.String()
	if !ps.locks.TryLock(lockKey) {
		return nil, fmt.Errorf("publish already in progress for theme %s: %w", draft.ThemeID, apperr.ErrConflict)
	}
	defer ps.locks.Unlock(lockKey)

	if err := ps.validateFiles(files); err != nil {
		return nil, err
	}

	// ThemeVersion creation shares the version writer key with Sync so
	// sequence numbering and the live flip stay single-writer per theme.
	versionKey := "version:" + draft.ThemeID.String()
	ps.locks.Lock(versionKey)
	defer ps.locks.Unlock(versionKey)

	theme, err := ps.themeRepo.GetByID(ctx, nil, draft.ThemeID)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}
	if theme == nil {
		return nil, apperr.NotFound("theme " + draft.ThemeID.String())
	}

	live, err := ps.versionRepo.GetLive(ctx, nil, theme.ID)
	if err != nil {
		return nil, fmt.Errorf("load live version: %w", err)
	}
	prior := map[string]*types.ThemeFile{}
	if live != nil {
		priorFiles, err := ps.fileRepo.ListByVersion(ctx, nil, live.ID)
		if err != nil {
			return nil, fmt.Errorf("load tracked files: %w", err)
		}
		for _, f := range priorFiles {
			prior[f.Path] = f
		}
	}

	var published *types.PublishedVersion
	err = ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxSeq, err := ps.versionRepo.MaxSequence(ctx, tx, theme.ID)
		if err != nil {
			return fmt.Errorf("max sequence: %w", err)
		}
		version := &types.ThemeVersion{
			ID:        uuid.New(),
			ThemeID:   theme.ID,
			Sequence:  maxSeq + 1,
			Source:    types.VersionSourcePublish,
			Notes:     "published from draft " + draft.ID.String(),
			CreatedAt: time.Now(),
		}
		if _, err := ps.versionRepo.Create(ctx, tx, version); err != nil {
			return fmt.Errorf("create theme version: %w", err)
		}

		now := time.Now()
		tracked := make([]*types.ThemeFile, 0, len(files))
		lineage := make([]*types.ThemeFileVersion, 0)
		for _, f := range files {
			p := prior[f.Path]
			versionNumber := 0
			if p != nil && !p.Removed && p.Checksum == f.Checksum {
				versionNumber = p.VersionNumber
			} else {
				max, err := ps.fvRepo.MaxVersionNumber(ctx, tx, theme.ID, f.Path)
				if err != nil {
					return fmt.Errorf("max version number for %s: %w", f.Path, err)
				}
				versionNumber = max + 1
				lineage = append(lineage, &types.ThemeFileVersion{
					ID:            uuid.New(),
					ThemeID:       theme.ID,
					Path:          f.Path,
					VersionNumber: versionNumber,
					Content:       f.Content,
					Checksum:      f.Checksum,
					SizeBytes:     f.SizeBytes,
					Author:        publishedBy,
					Summary:       "published from draft",
					CreatedAt:     now,
				})
			}
			tracked = append(tracked, &types.ThemeFile{
				ID:             uuid.New(),
				ThemeVersionID: version.ID,
				ThemeID:        theme.ID,
				Path:           f.Path,
				Role:           f.Role,
				Checksum:       f.Checksum,
				SizeBytes:      f.SizeBytes,
				VersionNumber:  versionNumber,
				CreatedAt:      now,
			})
		}
		if _, err := ps.fvRepo.Create(ctx, tx, lineage); err != nil {
			return fmt.Errorf("append content versions: %w", err)
		}
		if _, err := ps.fileRepo.Create(ctx, tx, tracked); err != nil {
			return fmt.Errorf("create tracked files: %w", err)
		}
		if err := ps.versionRepo.SetLive(ctx, tx, theme.ID, version.ID); err != nil {
			return fmt.Errorf("flip live version: %w", err)
		}

		pubSeq, err := ps.publishedRepo.MaxSequence(ctx, tx, theme.ID)
		if err != nil {
			return fmt.Errorf("max published sequence: %w", err)
		}
		published = &types.PublishedVersion{
			ID:             uuid.New(),
			ThemeID:        theme.ID,
			ThemeVersionID: version.ID,
			BuilderThemeID: draft.ID,
			Sequence:       pubSeq + 1,
			PublishedBy:    publishedBy,
			CreatedAt:      now,
		}
		pubFiles := make([]*types.PublishedFile, 0, len(files))
		for _, f := range files {
			pubFiles = append(pubFiles, &types.PublishedFile{
				ID:                 uuid.New(),
				PublishedVersionID: published.ID,
				Path:               f.Path,
				Role:               f.Role,
				Content:            append([]byte(nil), f.Content...),
				Checksum:           f.Checksum,
				SizeBytes:          f.SizeBytes,
				CreatedAt:          now,
			})
		}
		if _, err := ps.publishedRepo.Create(ctx, tx, published, pubFiles); err != nil {
			return fmt.Errorf("create published version: %w", err)
		}
		if err := ps.publishedRepo.SetLive(ctx, tx, theme.ID, published.ID); err != nil {
			return fmt.Errorf("flip live published version: %w", err)
		}
		return ps.builderRepo.UpdateFields(ctx, tx, draft.ID, map[string]interface{}{
			"status":     types.BuilderStatusPublished,
			"updated_at": now,
		})
	})
	if err != nil {
		return nil, err
	}

	if ps.cache != nil {
		ps.cache.InvalidateIdentity(ctx, LiveIdentity(theme.Slug))
	}
	ps.log.Info("Draft published", "draft_id", draft.ID, "theme_id", theme.ID, "sequence", published.Sequence)
	if ps.notifier != nil {
		ps.notifier.Published(theme, published)
	}
	return published, nil
}

// Validate runs publish validation without publishing.
func (ps *publishService) Validate(ctx context.Context, draftID uuid.UUID) error {
	_, files, err := ps.loadOpen(ctx, draftID)
	if err != nil {
		return err
	}
	return ps.validateFiles(files)
}

func (ps *publishService) History(ctx context.Context, themeID uuid.UUID) ([]*types.PublishedVersion, error) {
	return ps.publishedRepo.ListByTheme(ctx, nil, themeID)
}

func (ps *publishService) loadOpen(ctx context.Context, draftID uuid.UUID) (*types.BuilderTheme, []*types.BuilderFile, error) {
	draft, err := ps.builderRepo.GetByID(ctx, nil, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, nil, apperr.NotFound("draft " + draftID.String())
	}
	if draft.Status != types.BuilderStatusOpen {
		return nil, nil, fmt.Errorf("draft is %s: %w", draft.Status, apperr.ErrConflict)
	}
	files, err := ps.bFileRepo.ListByBuilder(ctx, nil, draftID)
	if err != nil {
		return nil, nil, fmt.Errorf("load draft files: %w", err)
	}
	return draft, files, nil
}

// validateFiles collects every problem across the file set rather than
// stopping at the first. A section type is known when the registry has
// it or the draft ships its own sections/<type>.html.
func (ps *publishService) validateFiles(files []*types.BuilderFile) error {
	sectionFiles := map[string]bool{}
	for _, f := range files {
		if strings.HasPrefix(f.Path, "sections/") && strings.HasSuffix(f.Path, ".html") {
			sectionFiles[strings.TrimSuffix(strings.TrimPrefix(f.Path, "sections/"), ".html")] = true
		}
	}

	v := &apperr.ValidationErrors{}
	for _, f := range files {
		switch {
		case f.Path == settingsPath:
			var settings map[string]any
			if err := json.Unmarshal(f.Content, &settings); err != nil {
				v.Add(f.Path, "", "settings must be a JSON object: "+err.Error())
			}
		default:
			name, ok := templateNameFromPath(f.Path)
			if !ok {
				continue
			}
			doc, err := render.ParseTemplateDoc(f.Content)
			if err != nil {
				v.Add(f.Path, "", "malformed template document: "+err.Error())
				continue
			}
			for key, entry := range doc.Sections {
				if entry.Type == "" {
					v.Add(f.Path, key, "section has no type")
					continue
				}
				if !ps.registry.Has(entry.Type) && !sectionFiles[entry.Type] {
					v.Add(f.Path, key, "unknown section type "+entry.Type)
				}
			}
			for _, key := range doc.Order {
				if _, ok := doc.Sections[key]; !ok {
					v.Add(f.Path, key, "order references undefined section in template "+name)
				}
			}
		}
	}
	if v.Empty() {
		return nil
	}
	return v
}
