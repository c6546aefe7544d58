package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

type ThemeFileVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, versions []*types.ThemeFileVersion) ([]*types.ThemeFileVersion, error)
	GetByLineage(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string, versionNumber int) (*types.ThemeFileVersion, error)
	History(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string) ([]*types.ThemeFileVersion, error)
	MaxVersionNumber(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string) (int, error)
}

type themeFileVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThemeFileVersionRepo(db *gorm.DB, baseLog *logger.Logger) ThemeFileVersionRepo {
	return &themeFileVersionRepo{db: db, log: baseLog.With("repo", "ThemeFileVersionRepo")}
}

func (r *themeFileVersionRepo) Create(ctx context.Context, tx *gorm.DB, versions []*types.ThemeFileVersion) ([]*types.ThemeFileVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(versions) == 0 {
		return []*types.ThemeFileVersion{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

func (r *themeFileVersionRepo) GetByLineage(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string, versionNumber int) (*types.ThemeFileVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.ThemeFileVersion
	err := transaction.WithContext(ctx).
		Where("theme_id = ? AND path = ? AND version_number = ?", themeID, path, versionNumber).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// History returns the append-only ledger for one lineage, newest first.
func (r *themeFileVersionRepo) History(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string) ([]*types.ThemeFileVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ThemeFileVersion
	if err := transaction.WithContext(ctx).
		Where("theme_id = ? AND path = ?", themeID, path).
		Order("version_number DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *themeFileVersionRepo) MaxVersionNumber(ctx context.Context, tx *gorm.DB, themeID uuid.UUID, path string) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var max *int
	err := transaction.WithContext(ctx).
		Model(&types.ThemeFileVersion{}).
		Where("theme_id = ? AND path = ?", themeID, path).
		Select("MAX(version_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
