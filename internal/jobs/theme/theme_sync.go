package theme

import (
	"fmt"

	jobrt "github.com/pagecraft/pagecraft-backend/internal/jobs/runtime"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/services"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// SyncPipeline runs theme_sync jobs: scan the theme root and record the
// next version when anything changed.
type SyncPipeline struct {
	log  *logger.Logger
	sync services.SyncService
}

func NewSyncPipeline(baseLog *logger.Logger, sync services.SyncService) *SyncPipeline {
	return &SyncPipeline{
		log:  baseLog.With("job", types.JobTypeThemeSync),
		sync: sync,
	}
}

func (p *SyncPipeline) Type() string { return types.JobTypeThemeSync }

func (p *SyncPipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	slug := jc.PayloadString("slug")
	if slug == "" {
		jc.Fail("validate", fmt.Errorf("missing slug"))
		return nil
	}

	jc.Progress("scan", 10, "Scanning theme files")
	result, err := p.sync.Sync(jc.Ctx, slug)
	if err != nil {
		p.log.Warn("theme_sync failed", "slug", slug, "error", err)
		jc.Fail("sync", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"slug":             slug,
		"sequence":         result.Sequence,
		"files_created":    result.FilesCreated,
		"files_updated":    result.FilesUpdated,
		"files_removed":    result.FilesRemoved,
		"versions_created": result.VersionsCreated,
		"snapshot_created": result.SnapshotCreated,
	})
	return nil
}
