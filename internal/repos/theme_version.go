package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

type ThemeVersionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, version *types.ThemeVersion) (*types.ThemeVersion, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ThemeVersion, error)
	GetLive(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (*types.ThemeVersion, error)
	ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.ThemeVersion, error)
	MaxSequence(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (int, error)
	SetLive(ctx context.Context, tx *gorm.DB, themeID, versionID uuid.UUID) error
}

type themeVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThemeVersionRepo(db *gorm.DB, baseLog *logger.Logger) ThemeVersionRepo {
	return &themeVersionRepo{db: db, log: baseLog.With("repo", "ThemeVersionRepo")}
}

func (r *themeVersionRepo) Create(ctx context.Context, tx *gorm.DB, version *types.ThemeVersion) (*types.ThemeVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(version).Error; err != nil {
		return nil, err
	}
	return version, nil
}

func (r *themeVersionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.ThemeVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.ThemeVersion
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *themeVersionRepo) GetLive(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (*types.ThemeVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.ThemeVersion
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

func (r *themeVersionRepo) ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.ThemeVersion, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ThemeVersion
	if err := transaction.WithContext(ctx).
		Where("theme_id = ?", themeID).
		Order("sequence DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *themeVersionRepo) MaxSequence(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) (int, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var max *int
	err := transaction.WithContext(ctx).
		Model(&types.ThemeVersion{}).
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

// SetLive flips the live flag to versionID, clearing it on every other
// version of the theme inside the caller's transaction.
func (r *themeVersionRepo) SetLive(ctx context.Context, tx *gorm.DB, themeID, versionID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).
		Model(&types.ThemeVersion{}).
		Where("theme_id = ? AND id <> ? AND live = ?", themeID, versionID, true).
		Update("live", false).Error; err != nil {
		return err
	}
	return transaction.WithContext(ctx).
		Model(&types.ThemeVersion{}).
		Where("id = ?", versionID).
		Update("live", true).Error
}
