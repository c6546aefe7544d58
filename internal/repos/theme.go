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

type ThemeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, theme *types.Theme) (*types.Theme, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Theme, error)
	GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Theme, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Theme, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Activate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type themeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThemeRepo(db *gorm.DB, baseLog *logger.Logger) ThemeRepo {
	return &themeRepo{db: db, log: baseLog.With("repo", "ThemeRepo")}
}

func (r *themeRepo) Create(ctx context.Context, tx *gorm.DB, theme *types.Theme) (*types.Theme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(theme).Error; err != nil {
		return nil, err
	}
	return theme, nil
}

func (r *themeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Theme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var theme types.Theme
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&theme).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

func (r *themeRepo) GetBySlug(ctx context.Context, tx *gorm.DB, slug string) (*types.Theme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var theme types.Theme
	err := transaction.WithContext(ctx).Where("slug = ?", slug).First(&theme).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &theme, nil
}

func (r *themeRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Theme, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Theme
	if err := transaction.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *themeRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Theme{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Activate flips the theme's active flag and deactivates every sibling
// in one transaction.
func (r *themeRepo) Activate(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		now := time.Now()
		if err := txx.Model(&types.Theme{}).
			Where("id <> ? AND active = ?", id, true).
			Updates(map[string]interface{}{"active": false, "updated_at": now}).Error; err != nil {
			return err
		}
		return txx.Model(&types.Theme{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{"active": true, "updated_at": now}).Error
	})
}

func (r *themeRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.Theme{}).Error
}
