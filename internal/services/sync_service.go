package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/pkg/keylock"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/scanner"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	FilesCreated    int  `json:"files_created"`
	FilesUpdated    int  `json:"files_updated"`
	FilesRemoved    int  `json:"files_removed"`
	VersionsCreated int  `json:"versions_created"`
	Sequence        int  `json:"sequence"`
	SnapshotCreated bool `json:"snapshot_created"`
}

// SyncService reconciles a theme's on-disk tree with the version store.
type SyncService interface {
	InstallFromDisk(ctx context.Context, themeRoot string) (*types.Theme, error)
	Sync(ctx context.Context, slug string) (*SyncResult, error)
	CheckForUpdate(ctx context.Context, slug string) (bool, string, string, error)
}

type syncService struct {
	db               *gorm.DB
	log              *logger.Logger
	scan             *scanner.Scanner
	locks            *keylock.KeyedMutex
	themeRepo        repos.ThemeRepo
	themeVersionRepo repos.ThemeVersionRepo
	themeFileRepo    repos.ThemeFileRepo
	fileVersionRepo  repos.ThemeFileVersionRepo
	notifier         ThemeNotifier
}

func NewSyncService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scan *scanner.Scanner,
	locks *keylock.KeyedMutex,
	themeRepo repos.ThemeRepo,
	themeVersionRepo repos.ThemeVersionRepo,
	themeFileRepo repos.ThemeFileRepo,
	fileVersionRepo repos.ThemeFileVersionRepo,
	notifier ThemeNotifier,
) SyncService {
	return &syncService{
		db:               db,
		log:              baseLog.With("service", "SyncService"),
		scan:             scan,
		locks:            locks,
		themeRepo:        themeRepo,
		themeVersionRepo: themeVersionRepo,
		themeFileRepo:    themeFileRepo,
		fileVersionRepo:  fileVersionRepo,
		notifier:         notifier,
	}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func Slugify(name string) string {
	slug := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if slug == "" {
		slug = "theme"
	}
	return slug
}

// InstallFromDisk registers the theme found at themeRoot. The manifest
// is required; the first content snapshot comes from a follow-up Sync.
func (ss *syncService) InstallFromDisk(ctx context.Context, themeRoot string) (*types.Theme, error) {
	manifest, err := ss.scan.ReadManifest(themeRoot)
	if err != nil {
		return nil, err
	}
	slug := Slugify(manifest.Name)
	existing, err := ss.themeRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup theme: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("theme %s already installed: %w", slug, apperr.ErrConflict)
	}
	now := time.Now()
	theme := &types.Theme{
		ID:              uuid.New(),
		Name:            manifest.Name,
		Slug:            slug,
		ManifestVersion: manifest.Version,
		RootDir:         themeRoot,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := ss.themeRepo.Create(ctx, nil, theme); err != nil {
		return nil, fmt.Errorf("create theme: %w", err)
	}
	ss.log.Info("Theme installed", "slug", slug, "root", themeRoot)
	return theme, nil
}

// Sync walks the theme root and, when anything changed, creates the
// next ThemeVersion in one transaction. Unchanged files are referenced
// by pointer, not re-copied. Version creation is serialized per theme.
func (ss *syncService) Sync(ctx context.Context, slug string) (*SyncResult, error) {
	theme, err := ss.themeRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return nil, fmt.Errorf("lookup theme: %w", err)
	}
	if theme == nil {
		return nil, apperr.NotFound("theme " + slug)
	}

	lockKey := "version:" + theme.ID.String()
	ss.locks.Lock(lockKey)
	defer ss.locks.Unlock(lockKey)

	scanned, err := ss.scan.Scan(ctx, theme.RootDir)
	if err != nil {
		// Recoverable: report zero changes with the diagnostic attached.
		return &SyncResult{}, err
	}

	live, err := ss.themeVersionRepo.GetLive(ctx, nil, theme.ID)
	if err != nil {
		return nil, fmt.Errorf("load live version: %w", err)
	}

	prior := map[string]*types.ThemeFile{}
	if live != nil {
		priorFiles, err := ss.themeFileRepo.ListByVersion(ctx, nil, live.ID)
		if err != nil {
			return nil, fmt.Errorf("load tracked files: %w", err)
		}
		for _, f := range priorFiles {
			prior[f.Path] = f
		}
	}

	result := &SyncResult{}
	changed := false
	scannedPaths := map[string]bool{}
	for _, f := range scanned {
		scannedPaths[f.Path] = true
		p, ok := prior[f.Path]
		switch {
		case !ok:
			result.FilesCreated++
			changed = true
		case p.Removed || p.Checksum != f.Checksum:
			result.FilesUpdated++
			changed = true
		}
	}
	for path, p := range prior {
		if !scannedPaths[path] && !p.Removed {
			result.FilesRemoved++
			changed = true
		}
	}

	if !changed {
		if live != nil {
			result.Sequence = live.Sequence
		}
		ss.log.Debug("Sync found no changes", "slug", slug)
		return result, nil
	}

	err = ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		maxSeq, err := ss.themeVersionRepo.MaxSequence(ctx, tx, theme.ID)
		if err != nil {
			return fmt.Errorf("max sequence: %w", err)
		}
		version := &types.ThemeVersion{
			ID:        uuid.New(),
			ThemeID:   theme.ID,
			Sequence:  maxSeq + 1,
			Source:    types.VersionSourceSync,
			CreatedAt: time.Now(),
		}
		if _, err := ss.themeVersionRepo.Create(ctx, tx, version); err != nil {
			return fmt.Errorf("create theme version: %w", err)
		}

		trackedFiles := make([]*types.ThemeFile, 0, len(scanned))
		newContentVersions := make([]*types.ThemeFileVersion, 0)
		now := time.Now()
		for _, f := range scanned {
			p, ok := prior[f.Path]
			versionNumber := 0
			if ok && !p.Removed && p.Checksum == f.Checksum {
				versionNumber = p.VersionNumber
			} else {
				max, err := ss.fileVersionRepo.MaxVersionNumber(ctx, tx, theme.ID, f.Path)
				if err != nil {
					return fmt.Errorf("max version number for %s: %w", f.Path, err)
				}
				versionNumber = max + 1
				newContentVersions = append(newContentVersions, &types.ThemeFileVersion{
					ID:            uuid.New(),
					ThemeID:       theme.ID,
					Path:          f.Path,
					VersionNumber: versionNumber,
					Content:       f.Content,
					Checksum:      f.Checksum,
					SizeBytes:     f.SizeBytes,
					Author:        "sync",
					Summary:       "synced from disk",
					CreatedAt:     now,
				})
			}
			trackedFiles = append(trackedFiles, &types.ThemeFile{
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
		for path, p := range prior {
			if scannedPaths[path] || p.Removed {
				continue
			}
			trackedFiles = append(trackedFiles, &types.ThemeFile{
				ID:             uuid.New(),
				ThemeVersionID: version.ID,
				ThemeID:        theme.ID,
				Path:           path,
				Role:           p.Role,
				Checksum:       p.Checksum,
				SizeBytes:      p.SizeBytes,
				VersionNumber:  p.VersionNumber,
				Removed:        true,
				CreatedAt:      now,
			})
		}

		if _, err := ss.fileVersionRepo.Create(ctx, tx, newContentVersions); err != nil {
			return fmt.Errorf("append content versions: %w", err)
		}
		if _, err := ss.themeFileRepo.Create(ctx, tx, trackedFiles); err != nil {
			return fmt.Errorf("create tracked files: %w", err)
		}
		if err := ss.themeVersionRepo.SetLive(ctx, tx, theme.ID, version.ID); err != nil {
			return fmt.Errorf("flip live version: %w", err)
		}

		updates := map[string]interface{}{}
		if manifest, mErr := ss.scan.ReadManifest(theme.RootDir); mErr == nil && manifest.Version != theme.ManifestVersion {
			updates["manifest_version"] = manifest.Version
		}
		if len(updates) > 0 {
			if err := ss.themeRepo.UpdateFields(ctx, tx, theme.ID, updates); err != nil {
				return fmt.Errorf("update theme manifest version: %w", err)
			}
		}

		result.VersionsCreated = len(newContentVersions)
		result.Sequence = version.Sequence
		result.SnapshotCreated = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	ss.log.Info("Theme synced",
		"slug", slug,
		"sequence", result.Sequence,
		"files_created", result.FilesCreated,
		"files_updated", result.FilesUpdated,
		"files_removed", result.FilesRemoved,
	)
	ss.notifier.SyncCompleted(theme, result.Sequence, result.VersionsCreated)
	return result, nil
}

// CheckForUpdate compares the manifest-declared version string against
// the tracked one without syncing content.
func (ss *syncService) CheckForUpdate(ctx context.Context, slug string) (bool, string, string, error) {
	theme, err := ss.themeRepo.GetBySlug(ctx, nil, slug)
	if err != nil {
		return false, "", "", fmt.Errorf("lookup theme: %w", err)
	}
	if theme == nil {
		return false, "", "", apperr.NotFound("theme " + slug)
	}
	manifest, err := ss.scan.ReadManifest(theme.RootDir)
	if err != nil {
		return false, theme.ManifestVersion, "", err
	}
	return manifest.Version != theme.ManifestVersion, theme.ManifestVersion, manifest.Version, nil
}
