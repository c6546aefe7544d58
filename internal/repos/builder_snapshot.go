package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

type BuilderSnapshotRepo interface {
	Create(ctx context.Context, tx *gorm.DB, snapshot *types.BuilderSnapshot, files []*types.BuilderSnapshotFile) (*types.BuilderSnapshot, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuilderSnapshot, error)
	ListByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) ([]*types.BuilderSnapshot, error)
	ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.BuilderSnapshot, error)
	Files(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.BuilderSnapshotFile, error)
}

type builderSnapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuilderSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) BuilderSnapshotRepo {
	return &builderSnapshotRepo{db: db, log: baseLog.With("repo", "BuilderSnapshotRepo")}
}

// Create persists the snapshot header and all frozen files in one
// transaction; a snapshot is never visible half-populated.
func (r *builderSnapshotRepo) Create(ctx context.Context, tx *gorm.DB, snapshot *types.BuilderSnapshot, files []*types.BuilderSnapshotFile) (*types.BuilderSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.Create(snapshot).Error; err != nil {
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
	return snapshot, nil
}

func (r *builderSnapshotRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.BuilderSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.BuilderSnapshot
	err := transaction.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *builderSnapshotRepo) ListByBuilder(ctx context.Context, tx *gorm.DB, builderID uuid.UUID) ([]*types.BuilderSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderSnapshot
	if err := transaction.WithContext(ctx).
		Where("builder_theme_id = ?", builderID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderSnapshotRepo) ListByTheme(ctx context.Context, tx *gorm.DB, themeID uuid.UUID) ([]*types.BuilderSnapshot, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderSnapshot
	if err := transaction.WithContext(ctx).
		Where("theme_id = ?", themeID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *builderSnapshotRepo) Files(ctx context.Context, tx *gorm.DB, snapshotID uuid.UUID) ([]*types.BuilderSnapshotFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.BuilderSnapshotFile
	if err := transaction.WithContext(ctx).
		Where("snapshot_id = ?", snapshotID).
		Order("path ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
