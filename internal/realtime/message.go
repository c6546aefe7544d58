package realtime

type SSEEvent string

const (
	SSEEventPreviewUpdate SSEEvent = "preview_update"
	SSEEventPublished     SSEEvent = "published"
	SSEEventSyncCompleted SSEEvent = "sync_completed"
	SSEEventJobCreated    SSEEvent = "job_created"
	SSEEventJobProgress   SSEEvent = "job_progress"
	SSEEventJobFailed     SSEEvent = "job_failed"
	SSEEventJobDone       SSEEvent = "job_done"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

// ThemeChannel is the SSE channel carrying events for one theme.
func ThemeChannel(themeID string) string { return "theme:" + themeID }
