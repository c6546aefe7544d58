package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/pkg/keylock"
	"github.com/pagecraft/pagecraft-backend/internal/render"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/scanner"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

const settingsPath = "config/settings_data.json"

// CreateDraftParams names exactly one fork source. ThemeID is required
// when forking from a theme version; the other two sources imply it.
type CreateDraftParams struct {
	ThemeID        uuid.UUID
	OwnerUserID    uuid.UUID
	Label          string
	FromVersionID  *uuid.UUID
	FromBuilderID  *uuid.UUID
	FromSnapshotID *uuid.UUID
}

// DraftFileEdit is one file write inside a SaveDraft batch.
type DraftFileEdit struct {
	Path    string `json:"path"`
	Content []byte `json:"content"`
}

// DraftSectionEdit is one section inside a SaveDraft full-template
// replacement. A blank Key gets a fresh one.
type DraftSectionEdit struct {
	Key      string         `json:"key"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
}

// SaveDraftParams carries one batch save. Nil fields are left
// untouched; a non-nil Sections entry replaces that template's section
// list wholesale.
type SaveDraftParams struct {
	Files    []DraftFileEdit
	Sections map[string][]DraftSectionEdit
	Settings map[string]any
}

// BuilderService is the draft workspace: forked copies of theme files
// that can be edited, snapshotted, and rolled back without touching the
// fork source.
type BuilderService interface {
	CreateDraft(ctx context.Context, params CreateDraftParams) (*types.BuilderTheme, error)
	GetDraft(ctx context.Context, draftID uuid.UUID) (*types.BuilderTheme, error)
	ListDrafts(ctx context.Context, ownerUserID uuid.UUID) ([]*types.BuilderTheme, error)
	SaveDraft(ctx context.Context, draftID uuid.UUID, params SaveDraftParams) (*types.BuilderTheme, error)
	Abandon(ctx context.Context, draftID uuid.UUID) error

	ListFiles(ctx context.Context, draftID uuid.UUID) ([]*types.BuilderFile, error)
	GetFile(ctx context.Context, draftID uuid.UUID, path string) (*types.BuilderFile, error)
	UpdateFile(ctx context.Context, draftID uuid.UUID, path string, content []byte) (*types.BuilderFile, error)

	ListSections(ctx context.Context, draftID uuid.UUID, templateName string) ([]*types.BuilderSection, error)
	AddSection(ctx context.Context, draftID uuid.UUID, templateName, sectionType string, settings map[string]any) (*types.BuilderSection, error)
	UpdateSection(ctx context.Context, draftID, sectionID uuid.UUID, settings map[string]any) (*types.BuilderSection, error)
	RemoveSection(ctx context.Context, draftID, sectionID uuid.UUID) error
	ReorderSections(ctx context.Context, draftID uuid.UUID, templateName string, orderedKeys []string) error

	UpdateSettings(ctx context.Context, draftID uuid.UUID, settings map[string]any) error

	Snapshot(ctx context.Context, draftID uuid.UUID, label string) (*types.BuilderSnapshot, error)
	ListSnapshots(ctx context.Context, draftID uuid.UUID) ([]*types.BuilderSnapshot, error)
	RollbackTo(ctx context.Context, draftID, snapshotID uuid.UUID) (*types.BuilderTheme, error)
}

type builderService struct {
	db           *gorm.DB
	log          *logger.Logger
	locks        *keylock.KeyedMutex
	registry     *render.Registry
	themeRepo    repos.ThemeRepo
	versionRepo  repos.ThemeVersionRepo
	fileRepo     repos.ThemeFileRepo
	versions     VersionService
	builderRepo  repos.BuilderThemeRepo
	bFileRepo    repos.BuilderFileRepo
	sectionRepo  repos.BuilderSectionRepo
	snapshotRepo repos.BuilderSnapshotRepo
	notifier     ThemeNotifier
}

func NewBuilderService(
	db *gorm.DB,
	baseLog *logger.Logger,
	locks *keylock.KeyedMutex,
	registry *render.Registry,
	themeRepo repos.ThemeRepo,
	versionRepo repos.ThemeVersionRepo,
	fileRepo repos.ThemeFileRepo,
	versions VersionService,
	builderRepo repos.BuilderThemeRepo,
	bFileRepo repos.BuilderFileRepo,
	sectionRepo repos.BuilderSectionRepo,
	snapshotRepo repos.BuilderSnapshotRepo,
	notifier ThemeNotifier,
) BuilderService {
	return &builderService{
		db:           db,
		log:          baseLog.With("service", "BuilderService"),
		locks:        locks,
		registry:     registry,
		themeRepo:    themeRepo,
		versionRepo:  versionRepo,
		fileRepo:     fileRepo,
		versions:     versions,
		builderRepo:  builderRepo,
		bFileRepo:    bFileRepo,
		sectionRepo:  sectionRepo,
		snapshotRepo: snapshotRepo,
		notifier:     notifier,
	}
}

type forkFile struct {
	Path    string
	Role    string
	Content []byte
}

func (bs *builderService) CreateDraft(ctx context.Context, params CreateDraftParams) (*types.BuilderTheme, error) {
	sources := 0
	for _, set := range []bool{params.FromVersionID != nil, params.FromBuilderID != nil, params.FromSnapshotID != nil} {
		if set {
			sources++
		}
	}
	if sources != 1 {
		return nil, apperr.Validation("exactly one fork source is required",
			apperr.FieldError{Field: "source", Message: "set one of from_version_id, from_builder_id, from_snapshot_id"})
	}

	var (
		files    []forkFile
		themeID  = params.ThemeID
		settings datatypes.JSON
		parentID *uuid.UUID
		srcVerID *uuid.UUID
	)
	switch {
	case params.FromVersionID != nil:
		version, err := bs.versionRepo.GetByID(ctx, nil, *params.FromVersionID)
		if err != nil {
			return nil, fmt.Errorf("load source version: %w", err)
		}
		if version == nil {
			return nil, apperr.NotFound("theme version " + params.FromVersionID.String())
		}
		themeID = version.ThemeID
		srcVerID = params.FromVersionID
		tracked, err := bs.fileRepo.ListByVersion(ctx, nil, version.ID)
		if err != nil {
			return nil, fmt.Errorf("load source files: %w", err)
		}
		for _, tf := range tracked {
			if tf.Removed {
				continue
			}
			content, err := bs.versions.GetContent(ctx, nil, tf)
			if err != nil {
				return nil, fmt.Errorf("load content for %s: %w", tf.Path, err)
			}
			files = append(files, forkFile{Path: tf.Path, Role: tf.Role, Content: content})
		}
	case params.FromBuilderID != nil:
		parent, err := bs.builderRepo.GetByID(ctx, nil, *params.FromBuilderID)
		if err != nil {
			return nil, fmt.Errorf("load source draft: %w", err)
		}
		if parent == nil {
			return nil, apperr.NotFound("draft " + params.FromBuilderID.String())
		}
		themeID = parent.ThemeID
		parentID = params.FromBuilderID
		settings = parent.Settings
		srcFiles, err := bs.bFileRepo.ListByBuilder(ctx, nil, parent.ID)
		if err != nil {
			return nil, fmt.Errorf("load source draft files: %w", err)
		}
		for _, f := range srcFiles {
			files = append(files, forkFile{Path: f.Path, Role: f.Role, Content: append([]byte(nil), f.Content...)})
		}
	case params.FromSnapshotID != nil:
		snap, err := bs.snapshotRepo.GetByID(ctx, nil, *params.FromSnapshotID)
		if err != nil {
			return nil, fmt.Errorf("load source snapshot: %w", err)
		}
		if snap == nil {
			return nil, apperr.NotFound("snapshot " + params.FromSnapshotID.String())
		}
		themeID = snap.ThemeID
		sourceDraft := snap.BuilderThemeID
		parentID = &sourceDraft
		snapFiles, err := bs.snapshotRepo.Files(ctx, nil, snap.ID)
		if err != nil {
			return nil, fmt.Errorf("load snapshot files: %w", err)
		}
		for _, f := range snapFiles {
			files = append(files, forkFile{Path: f.Path, Role: f.Role, Content: append([]byte(nil), f.Content...)})
		}
	}

	now := time.Now()
	draft := &types.BuilderTheme{
		ID:              uuid.New(),
		ThemeID:         themeID,
		OwnerUserID:     params.OwnerUserID,
		ParentBuilderID: parentID,
		SourceVersionID: srcVerID,
		Label:           params.Label,
		Status:          types.BuilderStatusOpen,
		Settings:        settings,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := bs.builderRepo.Create(ctx, tx, draft); err != nil {
			return fmt.Errorf("create draft: %w", err)
		}
		rows := make([]*types.BuilderFile, 0, len(files))
		for _, f := range files {
			rows = append(rows, &types.BuilderFile{
				ID:             uuid.New(),
				BuilderThemeID: draft.ID,
				Path:           f.Path,
				Role:           f.Role,
				Content:        f.Content,
				Checksum:       scanner.Checksum(f.Content),
				SizeBytes:      int64(len(f.Content)),
				CreatedAt:      now,
				UpdatedAt:      now,
			})
		}
		if _, err := bs.bFileRepo.Create(ctx, tx, rows); err != nil {
			return fmt.Errorf("copy files into draft: %w", err)
		}
		return bs.deriveSections(ctx, tx, draft.ID, rows)
	})
	if err != nil {
		return nil, err
	}
	bs.log.Info("Draft created", "draft_id", draft.ID, "theme_id", themeID, "files", len(files))
	return draft, nil
}

func (bs *builderService) GetDraft(ctx context.Context, draftID uuid.UUID) (*types.BuilderTheme, error) {
	return bs.loadDraft(ctx, nil, draftID)
}

func (bs *builderService) ListDrafts(ctx context.Context, ownerUserID uuid.UUID) ([]*types.BuilderTheme, error) {
	return bs.builderRepo.ListByOwner(ctx, nil, ownerUserID)
}

// SaveDraft applies file writes, whole-template section replacements,
// and a settings update as one atomic batch.
func (bs *builderService) SaveDraft(ctx context.Context, draftID uuid.UUID, params SaveDraftParams) (*types.BuilderTheme, error) {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return nil, err
	}

	// Validate up front so a bad entry leaves the draft untouched.
	for _, edit := range params.Files {
		if edit.Path == "" {
			return nil, apperr.Validation("file path is required",
				apperr.FieldError{Field: "files", Message: "empty path"})
		}
		if _, ok := templateNameFromPath(edit.Path); ok {
			if _, err := render.ParseTemplateDoc(edit.Content); err != nil {
				return nil, err
			}
		}
	}
	for templateName, edits := range params.Sections {
		for _, edit := range edits {
			if !bs.registry.Has(edit.Type) {
				return nil, apperr.Validation("unknown section type",
					apperr.FieldError{Path: "templates/" + templateName + ".json", Field: "type", Message: "no registered section type " + edit.Type})
			}
		}
	}

	touched := map[string]bool{}
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, edit := range params.Files {
			if err := bs.writeFile(ctx, tx, draftID, edit.Path, edit.Content); err != nil {
				return err
			}
			if templateName, ok := templateNameFromPath(edit.Path); ok {
				if err := bs.rederiveTemplate(ctx, tx, draftID, templateName, edit.Content); err != nil {
					return err
				}
				touched[templateName] = true
			}
		}

		templateNames := make([]string, 0, len(params.Sections))
		for templateName := range params.Sections {
			templateNames = append(templateNames, templateName)
		}
		sort.Strings(templateNames)
		for _, templateName := range templateNames {
			if err := bs.replaceSections(ctx, tx, draftID, templateName, params.Sections[templateName]); err != nil {
				return err
			}
			touched[templateName] = true
		}

		if params.Settings != nil {
			raw, err := json.MarshalIndent(params.Settings, "", "  ")
			if err != nil {
				return fmt.Errorf("encode settings: %w: %v", apperr.ErrValidation, err)
			}
			if err := bs.builderRepo.UpdateFields(ctx, tx, draft.ID, map[string]interface{}{
				"settings":   datatypes.JSON(raw),
				"updated_at": time.Now(),
			}); err != nil {
				return fmt.Errorf("update draft settings: %w", err)
			}
			if err := bs.writeFile(ctx, tx, draftID, settingsPath, raw); err != nil {
				return err
			}
			draft.Settings = datatypes.JSON(raw)
		}
		return bs.touch(ctx, tx, draftID)
	})
	if err != nil {
		return nil, err
	}

	if len(touched) > 0 {
		names := make([]string, 0, len(touched))
		for name := range touched {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			bs.notifyPreview(draft, name)
		}
	} else if params.Settings != nil {
		bs.notifyPreview(draft, "")
	}
	bs.log.Info("Draft saved", "draft_id", draftID, "files", len(params.Files), "templates", len(params.Sections))
	return draft, nil
}

func (bs *builderService) Abandon(ctx context.Context, draftID uuid.UUID) error {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())
	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return err
	}
	return bs.builderRepo.UpdateFields(ctx, nil, draft.ID, map[string]interface{}{
		"status":     types.BuilderStatusAbandoned,
		"updated_at": time.Now(),
	})
}

func (bs *builderService) ListFiles(ctx context.Context, draftID uuid.UUID) ([]*types.BuilderFile, error) {
	if _, err := bs.loadDraft(ctx, nil, draftID); err != nil {
		return nil, err
	}
	return bs.bFileRepo.ListByBuilder(ctx, nil, draftID)
}

func (bs *builderService) GetFile(ctx context.Context, draftID uuid.UUID, path string) (*types.BuilderFile, error) {
	if _, err := bs.loadDraft(ctx, nil, draftID); err != nil {
		return nil, err
	}
	file, err := bs.bFileRepo.GetByPath(ctx, nil, draftID, path)
	if err != nil {
		return nil, err
	}
	if file == nil {
		return nil, apperr.NotFound("file " + path)
	}
	return file, nil
}

// UpdateFile writes content for one draft file, creating the row when
// the path is new. Template documents are re-derived into section rows
// so the structured and file views stay consistent.
func (bs *builderService) UpdateFile(ctx context.Context, draftID uuid.UUID, path string, content []byte) (*types.BuilderFile, error) {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return nil, err
	}
	if _, ok := templateNameFromPath(path); ok {
		if _, err := render.ParseTemplateDoc(content); err != nil {
			return nil, err
		}
	}

	var file *types.BuilderFile
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		file, err = bs.bFileRepo.GetByPath(ctx, tx, draftID, path)
		if err != nil {
			return err
		}
		now := time.Now()
		if file == nil {
			file = &types.BuilderFile{
				ID:             uuid.New(),
				BuilderThemeID: draftID,
				Path:           path,
				Role:           scanner.ClassifyRole(path),
				Content:        content,
				Checksum:       scanner.Checksum(content),
				SizeBytes:      int64(len(content)),
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if _, err := bs.bFileRepo.Create(ctx, tx, []*types.BuilderFile{file}); err != nil {
				return fmt.Errorf("create draft file: %w", err)
			}
		} else {
			if err := bs.bFileRepo.UpdateContent(ctx, tx, file.ID, content, scanner.Checksum(content), int64(len(content))); err != nil {
				return fmt.Errorf("update draft file: %w", err)
			}
			file.Content = content
			file.Checksum = scanner.Checksum(content)
			file.SizeBytes = int64(len(content))
		}
		if templateName, ok := templateNameFromPath(path); ok {
			if err := bs.rederiveTemplate(ctx, tx, draftID, templateName, content); err != nil {
				return err
			}
			bs.notifyPreview(draft, templateName)
		}
		return bs.touch(ctx, tx, draftID)
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

func (bs *builderService) ListSections(ctx context.Context, draftID uuid.UUID, templateName string) ([]*types.BuilderSection, error) {
	if _, err := bs.loadDraft(ctx, nil, draftID); err != nil {
		return nil, err
	}
	return bs.sectionRepo.ListByTemplate(ctx, nil, draftID, templateName)
}

func (bs *builderService) AddSection(ctx context.Context, draftID uuid.UUID, templateName, sectionType string, settings map[string]any) (*types.BuilderSection, error) {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return nil, err
	}
	if !bs.registry.Has(sectionType) {
		return nil, apperr.Validation("unknown section type",
			apperr.FieldError{Field: "type", Message: "no registered section type " + sectionType})
	}

	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w: %v", apperr.ErrValidation, err)
	}
	section := &types.BuilderSection{
		ID:             uuid.New(),
		BuilderThemeID: draftID,
		TemplateName:   templateName,
		SectionKey:     newSectionKey(sectionType),
		Type:           sectionType,
		Settings:       datatypes.JSON(raw),
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := bs.sectionRepo.ListByTemplate(ctx, tx, draftID, templateName)
		if err != nil {
			return err
		}
		section.Position = len(existing)
		if _, err := bs.sectionRepo.Create(ctx, tx, []*types.BuilderSection{section}); err != nil {
			return fmt.Errorf("create section: %w", err)
		}
		if err := bs.materializeTemplate(ctx, tx, draftID, templateName); err != nil {
			return err
		}
		return bs.touch(ctx, tx, draftID)
	})
	if err != nil {
		return nil, err
	}
	bs.notifyPreview(draft, templateName)
	return section, nil
}

func (bs *builderService) UpdateSection(ctx context.Context, draftID, sectionID uuid.UUID, settings map[string]any) (*types.BuilderSection, error) {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return nil, err
	}
	section, err := bs.ownedSection(ctx, nil, draftID, sectionID)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w: %v", apperr.ErrValidation, err)
	}
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bs.sectionRepo.UpdateFields(ctx, tx, sectionID, map[string]interface{}{
			"settings":   datatypes.JSON(raw),
			"updated_at": time.Now(),
		}); err != nil {
			return fmt.Errorf("update section: %w", err)
		}
		if err := bs.materializeTemplate(ctx, tx, draftID, section.TemplateName); err != nil {
			return err
		}
		return bs.touch(ctx, tx, draftID)
	})
	if err != nil {
		return nil, err
	}
	section.Settings = datatypes.JSON(raw)
	bs.notifyPreview(draft, section.TemplateName)
	return section, nil
}

func (bs *builderService) RemoveSection(ctx context.Context, draftID, sectionID uuid.UUID) error {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return err
	}
	section, err := bs.ownedSection(ctx, nil, draftID, sectionID)
	if err != nil {
		return err
	}
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bs.sectionRepo.Delete(ctx, tx, sectionID); err != nil {
			return fmt.Errorf("delete section: %w", err)
		}
		remaining, err := bs.sectionRepo.ListByTemplate(ctx, tx, draftID, section.TemplateName)
		if err != nil {
			return err
		}
		for i, s := range remaining {
			if s.Position != i {
				if err := bs.sectionRepo.UpdateFields(ctx, tx, s.ID, map[string]interface{}{"position": i}); err != nil {
					return fmt.Errorf("compact positions: %w", err)
				}
			}
		}
		if err := bs.materializeTemplate(ctx, tx, draftID, section.TemplateName); err != nil {
			return err
		}
		return bs.touch(ctx, tx, draftID)
	})
	if err != nil {
		return err
	}
	bs.notifyPreview(draft, section.TemplateName)
	return nil
}

// ReorderSections accepts only an exact permutation of the template's
// current section keys.
func (bs *builderService) ReorderSections(ctx context.Context, draftID uuid.UUID, templateName string, orderedKeys []string) error {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return err
	}
	err = bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sections, err := bs.sectionRepo.ListByTemplate(ctx, tx, draftID, templateName)
		if err != nil {
			return err
		}
		byKey := make(map[string]*types.BuilderSection, len(sections))
		for _, s := range sections {
			byKey[s.SectionKey] = s
		}
		if len(orderedKeys) != len(sections) {
			return apperr.Validation("order must be a permutation of current section keys",
				apperr.FieldError{Field: "order", Message: fmt.Sprintf("expected %d keys, got %d", len(sections), len(orderedKeys))})
		}
		seen := map[string]bool{}
		for _, key := range orderedKeys {
			if seen[key] {
				return apperr.Validation("order must be a permutation of current section keys",
					apperr.FieldError{Field: "order", Message: "duplicate key " + key})
			}
			seen[key] = true
			if _, ok := byKey[key]; !ok {
				return apperr.Validation("order must be a permutation of current section keys",
					apperr.FieldError{Field: "order", Message: "unknown key " + key})
			}
		}
		for i, key := range orderedKeys {
			s := byKey[key]
			if s.Position != i {
				if err := bs.sectionRepo.UpdateFields(ctx, tx, s.ID, map[string]interface{}{
					"position":   i,
					"updated_at": time.Now(),
				}); err != nil {
					return fmt.Errorf("reposition section %s: %w", key, err)
				}
			}
		}
		if err := bs.materializeTemplate(ctx, tx, draftID, templateName); err != nil {
			return err
		}
		return bs.touch(ctx, tx, draftID)
	})
	if err != nil {
		return err
	}
	bs.notifyPreview(draft, templateName)
	return nil
}

// UpdateSettings replaces the draft's theme-wide settings and mirrors
// them into config/settings_data.json so the file view stays canonical.
func (bs *builderService) UpdateSettings(ctx context.Context, draftID uuid.UUID, settings map[string]any) error {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w: %v", apperr.ErrValidation, err)
	}
	return bs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bs.builderRepo.UpdateFields(ctx, tx, draft.ID, map[string]interface{}{
			"settings":   datatypes.JSON(raw),
			"updated_at": time.Now(),
		}); err != nil {
			return fmt.Errorf("update draft settings: %w", err)
		}
		return bs.writeFile(ctx, tx, draftID, settingsPath, raw)
	})
}

// Snapshot freezes the draft's current file set.
func (bs *builderService) Snapshot(ctx context.Context, draftID uuid.UUID, label string) (*types.BuilderSnapshot, error) {
	bs.locks.Lock("draft:" + draftID.String())
	defer bs.locks.Unlock("draft:" + draftID.String())

	draft, err := bs.loadOpenDraft(ctx, nil, draftID)
	if err != nil {
		return nil, err
	}
	files, err := bs.bFileRepo.ListByBuilder(ctx, nil, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft files: %w", err)
	}
	now := time.Now()
	snap := &types.BuilderSnapshot{
		ID:             uuid.New(),
		BuilderThemeID: draftID,
		ThemeID:        draft.ThemeID,
		Label:          label,
		Checksum:       fileSetChecksum(files),
		FileCount:      len(files),
		CreatedAt:      now,
	}
	rows := make([]*types.BuilderSnapshotFile, 0, len(files))
	for _, f := range files {
		rows = append(rows, &types.BuilderSnapshotFile{
			ID:         uuid.New(),
			SnapshotID: snap.ID,
			Path:       f.Path,
			Role:       f.Role,
			Content:    append([]byte(nil), f.Content...),
			Checksum:   f.Checksum,
			SizeBytes:  f.SizeBytes,
			CreatedAt:  now,
		})
	}
	if _, err := bs.snapshotRepo.Create(ctx, nil, snap, rows); err != nil {
		return nil, fmt.Errorf("create snapshot: %w", err)
	}
	bs.log.Info("Snapshot created", "draft_id", draftID, "snapshot_id", snap.ID, "files", len(rows))
	return snap, nil
}

func (bs *builderService) ListSnapshots(ctx context.Context, draftID uuid.UUID) ([]*types.BuilderSnapshot, error) {
	if _, err := bs.loadDraft(ctx, nil, draftID); err != nil {
		return nil, err
	}
	return bs.snapshotRepo.ListByBuilder(ctx, nil, draftID)
}

// RollbackTo materializes a fresh draft from a snapshot. Neither the
// snapshot nor the original draft is touched; the caller continues
// editing on the returned workspace.
func (bs *builderService) RollbackTo(ctx context.Context, draftID, snapshotID uuid.UUID) (*types.BuilderTheme, error) {
	draft, err := bs.loadDraft(ctx, nil, draftID)
	if err != nil {
		return nil, err
	}
	snap, err := bs.snapshotRepo.GetByID(ctx, nil, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil || snap.BuilderThemeID != draftID {
		return nil, apperr.NotFound("snapshot " + snapshotID.String())
	}

	label := "rollback to " + snap.Label
	if snap.Label == "" {
		label = "rollback to snapshot " + snapshotID.String()
	}
	restored, err := bs.CreateDraft(ctx, CreateDraftParams{
		OwnerUserID:    draft.OwnerUserID,
		Label:          label,
		FromSnapshotID: &snapshotID,
	})
	if err != nil {
		return nil, err
	}
	bs.log.Info("Draft rolled back", "draft_id", draftID, "snapshot_id", snapshotID, "restored_draft_id", restored.ID)
	bs.notifyPreview(restored, "")
	return restored, nil
}

// --- internals ---

func (bs *builderService) loadDraft(ctx context.Context, tx *gorm.DB, draftID uuid.UUID) (*types.BuilderTheme, error) {
	draft, err := bs.builderRepo.GetByID(ctx, tx, draftID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, apperr.NotFound("draft " + draftID.String())
	}
	return draft, nil
}

func (bs *builderService) loadOpenDraft(ctx context.Context, tx *gorm.DB, draftID uuid.UUID) (*types.BuilderTheme, error) {
	draft, err := bs.loadDraft(ctx, tx, draftID)
	if err != nil {
		return nil, err
	}
	if draft.Status != types.BuilderStatusOpen {
		return nil, fmt.Errorf("draft is %s: %w", draft.Status, apperr.ErrConflict)
	}
	return draft, nil
}

func (bs *builderService) ownedSection(ctx context.Context, tx *gorm.DB, draftID, sectionID uuid.UUID) (*types.BuilderSection, error) {
	section, err := bs.sectionRepo.GetByID(ctx, tx, sectionID)
	if err != nil {
		return nil, fmt.Errorf("load section: %w", err)
	}
	if section == nil || section.BuilderThemeID != draftID {
		return nil, apperr.NotFound("section " + sectionID.String())
	}
	return section, nil
}

func (bs *builderService) touch(ctx context.Context, tx *gorm.DB, draftID uuid.UUID) error {
	return bs.builderRepo.UpdateFields(ctx, tx, draftID, map[string]interface{}{"updated_at": time.Now()})
}

func (bs *builderService) notifyPreview(draft *types.BuilderTheme, templateName string) {
	if bs.notifier != nil {
		bs.notifier.PreviewUpdated(draft, templateName)
	}
}

// materializeTemplate rewrites templates/<name>.json from the section
// rows so the file remains the canonical form of the document.
func (bs *builderService) materializeTemplate(ctx context.Context, tx *gorm.DB, draftID uuid.UUID, templateName string) error {
	sections, err := bs.sectionRepo.ListByTemplate(ctx, tx, draftID, templateName)
	if err != nil {
		return err
	}
	doc := render.EmptyTemplateDoc()
	for _, s := range sections {
		var settings map[string]any
		if len(s.Settings) > 0 {
			if err := json.Unmarshal(s.Settings, &settings); err != nil {
				return fmt.Errorf("decode settings for section %s: %w", s.SectionKey, err)
			}
		}
		doc.Sections[s.SectionKey] = render.SectionEntry{Type: s.Type, Settings: settings}
		doc.Order = append(doc.Order, s.SectionKey)
	}
	raw, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode template document: %w", err)
	}
	return bs.writeFile(ctx, tx, draftID, "templates/"+templateName+".json", raw)
}

// rederiveTemplate rebuilds the section rows for one template from raw
// document content after a direct file edit.
func (bs *builderService) rederiveTemplate(ctx context.Context, tx *gorm.DB, draftID uuid.UUID, templateName string, content []byte) error {
	doc, err := render.ParseTemplateDoc(content)
	if err != nil {
		return err
	}
	existing, err := bs.sectionRepo.ListByTemplate(ctx, tx, draftID, templateName)
	if err != nil {
		return err
	}
	for _, s := range existing {
		if err := bs.sectionRepo.Delete(ctx, tx, s.ID); err != nil {
			return fmt.Errorf("clear section rows: %w", err)
		}
	}
	rows, err := sectionRowsFromDoc(draftID, templateName, doc)
	if err != nil {
		return err
	}
	if _, err := bs.sectionRepo.Create(ctx, tx, rows); err != nil {
		return fmt.Errorf("derive section rows: %w", err)
	}
	return nil
}

// replaceSections swaps a template's section rows for the given list
// and rewrites the template file from the result.
func (bs *builderService) replaceSections(ctx context.Context, tx *gorm.DB, draftID uuid.UUID, templateName string, edits []DraftSectionEdit) error {
	existing, err := bs.sectionRepo.ListByTemplate(ctx, tx, draftID, templateName)
	if err != nil {
		return err
	}
	for _, s := range existing {
		if err := bs.sectionRepo.Delete(ctx, tx, s.ID); err != nil {
			return fmt.Errorf("clear section rows: %w", err)
		}
	}
	now := time.Now()
	rows := make([]*types.BuilderSection, 0, len(edits))
	for i, edit := range edits {
		raw, err := json.Marshal(edit.Settings)
		if err != nil {
			return fmt.Errorf("encode settings for section %d: %w", i, err)
		}
		key := edit.Key
		if key == "" {
			key = newSectionKey(edit.Type)
		}
		rows = append(rows, &types.BuilderSection{
			ID:             uuid.New(),
			BuilderThemeID: draftID,
			TemplateName:   templateName,
			SectionKey:     key,
			Type:           edit.Type,
			Settings:       datatypes.JSON(raw),
			Position:       i,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	if _, err := bs.sectionRepo.Create(ctx, tx, rows); err != nil {
		return fmt.Errorf("replace section rows: %w", err)
	}
	return bs.materializeTemplate(ctx, tx, draftID, templateName)
}

// deriveSections rebuilds every section row for a draft from its
// template files, used after fork and rollback.
func (bs *builderService) deriveSections(ctx context.Context, tx *gorm.DB, draftID uuid.UUID, files []*types.BuilderFile) error {
	if err := bs.sectionRepo.DeleteByBuilder(ctx, tx, draftID); err != nil {
		return fmt.Errorf("clear section rows: %w", err)
	}
	var rows []*types.BuilderSection
	for _, f := range files {
		templateName, ok := templateNameFromPath(f.Path)
		if !ok {
			continue
		}
		doc, err := render.ParseTemplateDoc(f.Content)
		if err != nil {
			// A malformed document renders as empty; it contributes no rows.
			bs.log.Warn("Skipping malformed template document", "draft_id", draftID, "path", f.Path, "error", err)
			continue
		}
		templateRows, err := sectionRowsFromDoc(draftID, templateName, doc)
		if err != nil {
			return err
		}
		rows = append(rows, templateRows...)
	}
	if _, err := bs.sectionRepo.Create(ctx, tx, rows); err != nil {
		return fmt.Errorf("derive section rows: %w", err)
	}
	return nil
}

func sectionRowsFromDoc(draftID uuid.UUID, templateName string, doc *render.TemplateDoc) ([]*types.BuilderSection, error) {
	now := time.Now()
	rows := make([]*types.BuilderSection, 0, len(doc.Order))
	for i, key := range doc.Order {
		entry, ok := doc.Sections[key]
		if !ok {
			continue
		}
		raw, err := json.Marshal(entry.Settings)
		if err != nil {
			return nil, fmt.Errorf("encode settings for section %s: %w", key, err)
		}
		rows = append(rows, &types.BuilderSection{
			ID:             uuid.New(),
			BuilderThemeID: draftID,
			TemplateName:   templateName,
			SectionKey:     key,
			Type:           entry.Type,
			Settings:       datatypes.JSON(raw),
			Position:       i,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}
	return rows, nil
}

func (bs *builderService) writeFile(ctx context.Context, tx *gorm.DB, draftID uuid.UUID, path string, content []byte) error {
	file, err := bs.bFileRepo.GetByPath(ctx, tx, draftID, path)
	if err != nil {
		return err
	}
	if file == nil {
		now := time.Now()
		_, err = bs.bFileRepo.Create(ctx, tx, []*types.BuilderFile{{
			ID:             uuid.New(),
			BuilderThemeID: draftID,
			Path:           path,
			Role:           scanner.ClassifyRole(path),
			Content:        content,
			Checksum:       scanner.Checksum(content),
			SizeBytes:      int64(len(content)),
			CreatedAt:      now,
			UpdatedAt:      now,
		}})
		return err
	}
	return bs.bFileRepo.UpdateContent(ctx, tx, file.ID, content, scanner.Checksum(content), int64(len(content)))
}

func templateNameFromPath(path string) (string, bool) {
	if !strings.HasPrefix(path, "templates/") || !strings.HasSuffix(path, ".json") {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(path, "templates/"), ".json")
	if name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return name, true
}

func newSectionKey(sectionType string) string {
	return sectionType + "-" + uuid.NewString()[:8]
}

// fileSetChecksum hashes the sorted (path, checksum) pairs so two file
// sets compare equal iff every file matches.
func fileSetChecksum(files []*types.BuilderFile) string {
	sorted := make([]*types.BuilderFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	var b strings.Builder
	for _, f := range sorted {
		b.WriteString(f.Path)
		b.WriteByte(0)
		b.WriteString(f.Checksum)
		b.WriteByte(0)
	}
	return scanner.Checksum([]byte(b.String()))
}
