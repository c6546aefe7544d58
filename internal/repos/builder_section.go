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

type BuilderSectionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sections []*types.BuilderSection) ([]*types.BuilderSection, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuilderSection, error)
	ListByTemplate(ctx context.Context, tx *gorm.DB, builderID uuid.UUID, templateName string) ([]*types.BuilderSection, error)
	ListByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) ([]*types.BuilderSection, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	DeleteByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) error
}

type builderSectionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuilderSectionRepo(db *gorm.DB, baseLog *logger.Logger) BuilderSectionRepo {
	return &builderSectionRepo{db: db, log: baseLog.With("repo", "BuilderSectionRepo")}
}

func (r *builderSectionRepo) Create(ctx context.Context, tx *gorm.DB, sections []*types.BuilderSection) ([]*types.BuilderSection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sections) == 0 {
		return []*types.BuilderSection{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&sections).Error; err != nil {
		return nil, err
	}
	return sections, nil
}

func (r *builderSectionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuilderSection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.BuilderSection
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *builderSectionRepo) ListByTemplate(ctx context.Context, tx *gorm.DB, builderID uuid.UUID, templateName string) ([]*types.BuilderSection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderSection
	if err := transaction.WithContext(ctx).
		Where("builder_theme_id = ? AND template_name = ?", builderID, templateName).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderSectionRepo) ListByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) ([]*types.BuilderSection, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderSection
	if err := transaction.WithContext(ctx).
		Where("builder_theme_id = ?", builderID).
		Order("template_name ASC, position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderSectionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.BuilderSection{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *builderSectionRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("id = ?", id).
		Delete(&types.BuilderSection{}).Error
}

func (r *builderSectionRepo) DeleteByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("builder_theme_id = ?", builderID).
		Delete(&types.BuilderSection{}).Error
}
