package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

type ThemeFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, files []*types.ThemeFile) ([]*types.ThemeFile, error)
	GetByVersionAndPath(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, path string) (*types.ThemeFile, error)
	ListByVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.ThemeFile, error)
	UpdatePointer(ctx context.Context, tx *gorm.DB, id uuid.UUID, checksum string, sizeBytes int64, versionNumber int) error
}

type themeFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewThemeFileRepo(db *gorm.DB, baseLog *logger.Logger) ThemeFileRepo {
	return &themeFileRepo{db: db, log: baseLog.With("repo", "ThemeFileRepo")}
}

func (r *themeFileRepo) Create(ctx context.Context, tx *gorm.DB, files []*types.ThemeFile) ([]*types.ThemeFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(files) == 0 {
		return []*types.ThemeFile{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&files).Error; err != nil {
		return nil, err
	}
	return files, nil
}

func (r *themeFileRepo) GetByVersionAndPath(ctx context.Context, tx *gorm.DB, versionID uuid.UUID, path string) (*types.ThemeFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var f types.ThemeFile
	err := transaction.WithContext(ctx).
		Where("theme_version_id = ? AND path = ?", versionID, path).
		First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *themeFileRepo) ListByVersion(ctx context.Context, tx *gorm.DB, versionID uuid.UUID) ([]*types.ThemeFile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ThemeFile
	if err := transaction.WithContext(ctx).
		Where("theme_version_id = ?", versionID).
		Order("path ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// UpdatePointer advances a tracked file's checksum and content-version
// pointer. Callers wrap this together with the ledger append in one
// transaction so readers never observe a mismatched pair.
func (r *themeFileRepo) UpdatePointer(ctx context.Context, tx *gorm.DB, id uuid.UUID, checksum string, sizeBytes int64, versionNumber int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ThemeFile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"checksum":       checksum,
			"size_bytes":     sizeBytes,
			"version_number": versionNumber,
		}).Error
}
