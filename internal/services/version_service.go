package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/scanner"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// VersionService is the version store: append-only content ledger per
// (theme, path) lineage plus the tracked-file pointers into it.
type VersionService interface {
	GetContent(ctx context.Context, tx *gorm.DB, file *types.ThemeFile) ([]byte, error)
	CreateVersion(ctx context.Context, tx *gorm.DB, file *types.ThemeFile, newContent []byte, author, summary string) (*types.ThemeFileVersion, error)
	History(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string) ([]*types.ThemeFileVersion, error)
}

type versionService struct {
	db              *gorm.DB
	log             *logger.Logger
	themeFileRepo   repos.ThemeFileRepo
	fileVersionRepo repos.ThemeFileVersionRepo
}

func NewVersionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	themeFileRepo repos.ThemeFileRepo,
	fileVersionRepo repos.ThemeFileVersionRepo,
) VersionService {
	return &versionService{
		db:              db,
		log:             baseLog.With("service", "VersionService"),
		themeFileRepo:   themeFileRepo,
		fileVersionRepo: fileVersionRepo,
	}
}

func (vs *versionService) GetContent(ctx context.Context, tx *gorm.DB, file *types.ThemeFile) ([]byte, error) {
	if file == nil {
		return nil, apperr.NotFound("theme file")
	}
	version, err := vs.fileVersionRepo.GetByLineage(ctx, tx, file.ThemeID, file.Path, file.VersionNumber)
	if err != nil {
		return nil, fmt.Errorf("load file content: %w", err)
	}
	if version == nil {
		return nil, apperr.NotFound(fmt.Sprintf("content version %d for %s", file.VersionNumber, file.Path))
	}
	return version.Content, nil
}

// CreateVersion appends a new content version and advances the tracked
// file's pointer in one atomic unit. Identical content short-circuits:
// the existing version is returned and the counter does not move.
func (vs *versionService) CreateVersion(ctx context.Context, tx *gorm.DB, file *types.ThemeFile, newContent []byte, author, summary string) (*types.ThemeFileVersion, error) {
	if file == nil {
		return nil, apperr.NotFound("theme file")
	}
	checksum := scanner.Checksum(newContent)
	if checksum == file.Checksum {
		existing, err := vs.fileVersionRepo.GetByLineage(ctx, tx, file.ThemeID, file.Path, file.VersionNumber)
		if err != nil {
			return nil, fmt.Errorf("load existing version: %w", err)
		}
		if existing == nil {
			return nil, apperr.NotFound(fmt.Sprintf("content version %d for %s", file.VersionNumber, file.Path))
		}
		return existing, nil
	}

	transaction := tx
	if transaction == nil {
		transaction = vs.db
	}

	var created *types.ThemeFileVersion
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		max, err := vs.fileVersionRepo.MaxVersionNumber(ctx, txx, file.ThemeID, file.Path)
		if err != nil {
			return fmt.Errorf("max version number: %w", err)
		}
		version := &types.ThemeFileVersion{
			ID:            uuid.New(),
			ThemeID:       file.ThemeID,
			Path:          file.Path,
			VersionNumber: max + 1,
			Content:       newContent,
			Checksum:      checksum,
			SizeBytes:     int64(len(newContent)),
			Author:        author,
			Summary:       summary,
			CreatedAt:     time.Now(),
		}
		if _, err := vs.fileVersionRepo.Create(ctx, txx, []*types.ThemeFileVersion{version}); err != nil {
			return fmt.Errorf("append content version: %w", err)
		}
		if err := vs.themeFileRepo.UpdatePointer(ctx, txx, file.ID, checksum, version.SizeBytes, version.VersionNumber); err != nil {
			return fmt.Errorf("advance file pointer: %w", err)
		}
		created = version
		return nil
	})
	if err != nil {
		return nil, err
	}

	file.Checksum = checksum
	file.SizeBytes = created.SizeBytes
	file.VersionNumber = created.VersionNumber
	return created, nil
}

func (vs *versionService) History(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string) ([]*types.ThemeFileVersion, error) {
	return vs.fileVersionRepo.History(ctx, tx, themeID, path)
}
