package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/services"
)

type RenderHandler struct {
	render services.RenderService
}

func NewRenderHandler(render services.RenderService) *RenderHandler {
	return &RenderHandler{render: render}
}

// GET /preview/:draftID/:template renders a draft page.
func (h *RenderHandler) Preview(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("draftID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	result, err := h.render.RenderPreview(c.Request.Context(), draftID, c.Param("template"), requestContext(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if c.Query("debug") == "true" {
		RespondOK(c, gin.H{
			"html":        result.HTML,
			"assets":      result.Assets,
			"diagnostics": result.Diagnostics,
		})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.HTML))
}

// GET /site/:slug/:template renders a live published page.
func (h *RenderHandler) Live(c *gin.Context) {
	result, err := h.render.RenderLive(c.Request.Context(), c.Param("slug"), c.Param("template"), requestContext(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(result.HTML))
}

// GET /themes/live::slug/assets/:name serves a published asset. The
// identity segment in asset URLs is either live:<slug> or draft:<id>.
func (h *RenderHandler) Asset(c *gin.Context) {
	identity := c.Param("identity")
	name := c.Param("name")
	var (
		content []byte
		err     error
	)
	switch {
	case len(identity) > 5 && identity[:5] == "live:":
		content, err = h.render.LiveAsset(c.Request.Context(), identity[5:], name)
	case len(identity) > 6 && identity[:6] == "draft:":
		var draftID uuid.UUID
		draftID, err = uuid.Parse(identity[6:])
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_identity", err)
			return
		}
		content, err = h.render.DraftAsset(c.Request.Context(), draftID, name)
	default:
		RespondError(c, http.StatusBadRequest, "invalid_identity", errInvalidIdentity)
		return
	}
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeFor(name), content)
}

func requestContext(c *gin.Context) map[string]any {
	params := map[string]any{}
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return map[string]any{
		"path":   c.Request.URL.Path,
		"host":   c.Request.Host,
		"params": params,
	}
}
