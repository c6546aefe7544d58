package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

type PublishedVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, version *types.PublishedVersion, files []*types.PublishedFile) (*types.PublishedVersion, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PublishedVersion, error)
	GetLive(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (*types.PublishedVersion, error)
	ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.PublishedVersion, error)
	MaxSequence(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (int, error)
	SetLive(ctx context.Context, tx *gorm.DB, themeID, versionID uuid.UUID) error
	Files(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.PublishedFile, error)
}

type publishedVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPublishedVersionRepo(db *gorm.DB, baseLog *logger.Logger) PublishedVersionRepo {
	return &publishedVersionRepo{db: db, log: baseLog.With("repo", "PublishedVersionRepo")}
}

func (r *publishedVersionRepo) Create(ctx context.Context, tx *gorm.DB, version *types.PublishedVersion, files []*types.PublishedFile) (*types.PublishedVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Create(version).Error; err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		return txx.Create(&files).Error
	})
	if err != nil {
		return nil, err
	}
	return version, nil
}

func (r *publishedVersionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.PublishedVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.PublishedVersion
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *publishedVersionRepo) GetLive(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (*types.PublishedVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.PublishedVersion
	err := transaction.WithContext(ctx).
		Where("theme_id = ? AND live = ?", themeID, true).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *publishedVersionRepo) ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.PublishedVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PublishedVersion
	if err := transaction.WithContext(ctx).
		Where("theme_id = ?", themeID).
		Order("sequence DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *publishedVersionRepo) MaxSequence(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var max *int
	err := transaction.WithContext(ctx).
		Model(&types.PublishedVersion{}).
		Where("theme_id = ?", themeID).
		Select("MAX(sequence)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *publishedVersionRepo) SetLive(ctx context.Context, tx *gorm.DB, themeID, versionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.PublishedVersion{}).
		Where("theme_id = ? AND id <> ? AND live = ?", themeID, versionID, true).
		Update("live", false).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.PublishedVersion{}).
		Where("id = ?", versionID).
		Update("live", true).Error
}

func (r *publishedVersionRepo) Files(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.PublishedFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.PublishedFile
	if err := transaction.WithContext(ctx).
		Where("published_version_id = ?", versionID).
		Order("path ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
