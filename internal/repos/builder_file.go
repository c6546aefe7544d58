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

type BuilderFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.BuilderFile) ([]*types.BuilderFile, error)
	GetByPath(ctx context.Context, tx *gorm.DB, builderID uuid.UUID, path string) (*types.BuilderFile, error)
	ListByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) ([]*types.BuilderFile, error)
	UpdateContent(ctx context.Context, tx *gorm.DB, id uuid.UUID, content []byte, checksum string, sizeBytes int64) error
	DeleteByPath(ctx context.Context, tx *gorm.DB, builderID uuid.UUID, path string) error
	DeleteByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) error
}

type builderFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuilderFileRepo(db *gorm.DB, baseLog *logger.Logger) BuilderFileRepo {
	return &builderFileRepo{db: db, log: baseLog.With("repo", "BuilderFileRepo")}
}

func (r *builderFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.BuilderFile) ([]*types.BuilderFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(files) == 0 {
		return []*types.BuilderFile{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *builderFileRepo) GetByPath(ctx context.Context, tx *gorm.DB, builderID uuid.UUID, path string) (*types.BuilderFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var f types.BuilderFile
	err := transaction.WithContext(ctx).
		Where("builder_theme_id = ? AND path = ?", builderID, path).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *builderFileRepo) ListByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) ([]*types.BuilderFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderFile
	if err := transaction.WithContext(ctx).
		Where("builder_theme_id = ?", builderID).
		Order("path ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderFileRepo) UpdateContent(ctx context.Context, tx *gorm.DB, id uuid.UUID, content []byte, checksum string, sizeBytes int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.BuilderFile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    content,
			"checksum":   checksum,
			"size_bytes": sizeBytes,
			"updated_at": time.Now(),
		}).Error
}

func (r *builderFileRepo) DeleteByPath(ctx context.Context, tx *gorm.DB, builderID uuid.UUID, path string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("builder_theme_id = ? AND path = ?", builderID, path).
		Delete(&types.BuilderFile{}).Error
}

func (r *builderFileRepo) DeleteByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Where("builder_theme_id = ?", builderID).
		Delete(&types.BuilderFile{}).Error
}
