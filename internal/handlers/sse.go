package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/realtime"
)

type SSEHandler struct {
	hub *realtime.SSEHub
}

func NewSSEHandler(hub *realtime.SSEHub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

// GET /api/events?theme_id=... subscribes to theme channels plus the
// caller's own job channel.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID := requestUserID(c)
	client := h.hub.NewSSEClient(userID)

	if userID != uuid.Nil {
		h.hub.AddChannel(client, userID.String())
	}
	for _, themeID := range c.QueryArray("theme_id") {
		if _, err := uuid.Parse(themeID); err == nil {
			h.hub.AddChannel(client, realtime.ThemeChannel(themeID))
		}
	}

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
