package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

type BuilderThemeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, draft *types.BuilderTheme) (*types.BuilderTheme, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuilderTheme, error)
	ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID) ([]*types.BuilderTheme, error)
	ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.BuilderTheme, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type builderThemeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuilderThemeRepo(db *gorm.DB, baseLog *logger.Logger) BuilderThemeRepo {
	return &builderThemeRepo{db: db, log: baseLog.With("repo", "BuilderThemeRepo")}
}

func (r *builderThemeRepo) Create(ctx context.Context, tx *gorm.DB, draft *types.BuilderTheme) (*types.BuilderTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(draft).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *builderThemeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuilderTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var draft types.BuilderTheme
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&draft).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &draft, nil
}

func (r *builderThemeRepo) ListByOwner(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID) ([]*types.BuilderTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderTheme
	if err := transaction.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderThemeRepo) ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.BuilderTheme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderTheme
	if err := transaction.WithContext(ctx).
		Where("theme_id = ?", themeID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderThemeRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(ctx).
		Model(&types.BuilderTheme{}).
		Where("id = ?", id).
		Updates(updates).Error
}
