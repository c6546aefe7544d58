package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/realtime"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// =========================
// Theme notifier
// =========================

type ThemeNotifier interface {
	PreviewUpdated(draft *types.BuilderTheme, templateName string)
	Published(theme *types.Theme, version *types.PublishedVersion)
	SyncCompleted(theme *types.Theme, sequence int, versionsCreated int)
}

type themeNotifier struct {
	emit SSEEmitter
}

func NewThemeNotifier(emit SSEEmitter) ThemeNotifier {
	return &themeNotifier{emit: emit}
}

func (n *themeNotifier) PreviewUpdated(draft *types.BuilderTheme, templateName string) {
	if n == nil || n.emit == nil || draft == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.ThemeChannel(draft.ThemeID.String()),
		Event:   realtime.SSEEventPreviewUpdate,
		Data: map[string]any{
			"draft_id": draft.ID,
			"template": templateName,
		},
	})
}

func (n *themeNotifier) Published(theme *types.Theme, version *types.PublishedVersion) {
	if n == nil || n.emit == nil || theme == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.ThemeChannel(theme.ID.String()),
		Event:   realtime.SSEEventPublished,
		Data: map[string]any{
			"theme_id":   theme.ID,
			"theme_slug": theme.Slug,
			"version":    version,
		},
	})
}

func (n *themeNotifier) SyncCompleted(theme *types.Theme, sequence int, versionsCreated int) {
	if n == nil || n.emit == nil || theme == nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: realtime.ThemeChannel(theme.ID.String()),
		Event:   realtime.SSEEventSyncCompleted,
		Data: map[string]any{
			"theme_id":         theme.ID,
			"sequence":         sequence,
			"versions_created": versionsCreated,
		},
	})
}

// =========================
// Job notifier
// =========================

type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string)
	JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.JobRun)
}

type jobNotifier struct {
	emit SSEEmitter
}

func NewJobNotifier(emit SSEEmitter) JobNotifier {
	return &jobNotifier{emit: emit}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.JobRun) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobCreated,
		Data:    map[string]any{"job": job},
	})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.JobRun, stage string, progress int, message string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobProgress,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"progress": progress,
			"message":  message,
		},
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun, stage string, errorMessage string) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobFailed,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"stage":    stage,
			"error":    errorMessage,
		},
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.JobRun) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), realtime.SSEMessage{
		Channel: userID.String(),
		Event:   realtime.SSEEventJobDone,
		Data: map[string]any{
			"job_id":   safeJobID(job),
			"job_type": safeJobType(job),
			"job":      job,
		},
	})
}

func safeJobID(job *types.JobRun) uuid.UUID {
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

func safeJobType(job *types.JobRun) string {
	if job == nil {
		return ""
	}
	return job.JobType
}
