package theme

import (
	"fmt"

	"github.com/google/uuid"

	jobrt "github.com/pagecraft/pagecraft-backend/internal/jobs/runtime"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/services"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// PublishPipeline runs theme_publish jobs: validate a draft and flip it
// live as the next published version.
type PublishPipeline struct {
	log     *logger.Logger
	publish services.PublishService
}

func NewPublishPipeline(baseLog *logger.Logger, publish services.PublishService) *PublishPipeline {
	return &PublishPipeline{
		log:     baseLog.With("job", types.JobTypeThemePublish),
		publish: publish,
	}
}

func (p *PublishPipeline) Type() string { return types.JobTypeThemePublish }

func (p *PublishPipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	draftID, ok := jc.PayloadUUID("draft_id")
	if !ok || draftID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing draft_id"))
		return nil
	}
	publishedBy := jc.PayloadString("published_by")
	if publishedBy == "" {
		publishedBy = jc.Job.OwnerUserID.String()
	}

	jc.Progress("validate", 20, "Validating draft")
	if err := p.publish.Validate(jc.Ctx, draftID); err != nil {
		p.log.Warn("theme_publish validation failed", "draft_id", draftID, "error", err)
		jc.Fail("validate", err)
		return nil
	}

	jc.Progress("publish", 60, "Publishing draft")
	published, err := p.publish.Publish(jc.Ctx, draftID, publishedBy)
	if err != nil {
		p.log.Warn("theme_publish failed", "draft_id", draftID, "error", err)
		jc.Fail("publish", err)
		return nil
	}

	jc.Succeed("done", map[string]any{
		"draft_id":             draftID.String(),
		"published_version_id": published.ID.String(),
		"sequence":             published.Sequence,
	})
	return nil
}
