package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/services"
)

type ThemeHandler struct {
	themes  services.ThemeService
	sync    services.SyncService
	publish services.PublishService
	jobs    services.JobService
	cards   services.PreviewCardService
}

func NewThemeHandler(themes services.ThemeService, sync services.SyncService, publish services.PublishService, jobs services.JobService, cards services.PreviewCardService) *ThemeHandler {
	return &ThemeHandler{themes: themes, sync: sync, publish: publish, jobs: jobs, cards: cards}
}

// GET /api/themes
func (h *ThemeHandler) List(c *gin.Context) {
	themes, err := h.themes.List(c.Request.Context())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"themes": themes})
}

// GET /api/themes/:slug
func (h *ThemeHandler) Get(c *gin.Context) {
	theme, err := h.themes.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"theme": theme})
}

// POST /api/themes/install
func (h *ThemeHandler) Install(c *gin.Context) {
	var req struct {
		Root string `json:"root" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	theme, err := h.sync.InstallFromDisk(c.Request.Context(), req.Root)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"theme": theme})
}

// POST /api/themes/:slug/activate
func (h *ThemeHandler) Activate(c *gin.Context) {
	theme, err := h.themes.Activate(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"theme": theme})
}

// DELETE /api/themes/:slug
func (h *ThemeHandler) Delete(c *gin.Context) {
	if err := h.themes.Delete(c.Request.Context(), c.Param("slug")); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/themes/:slug/sync runs synchronously; POST with ?async=true
// enqueues a theme_sync job instead.
func (h *ThemeHandler) Sync(c *gin.Context) {
	slug := c.Param("slug")
	if c.Query("async") == "true" {
		theme, err := h.themes.GetBySlug(c.Request.Context(), slug)
		if err != nil {
			RespondAppError(c, err)
			return
		}
		job, err := h.jobs.EnqueueSync(c.Request.Context(), requestUserID(c), theme.ID, slug)
		if err != nil {
			RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"job": job})
		return
	}
	result, err := h.sync.Sync(c.Request.Context(), slug)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"result": result})
}

// GET /api/themes/:slug/update-check
func (h *ThemeHandler) CheckForUpdate(c *gin.Context) {
	available, installed, manifest, err := h.sync.CheckForUpdate(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"update_available":  available,
		"installed_version": installed,
		"manifest_version":  manifest,
	})
}

// GET /api/themes/:slug/versions
func (h *ThemeHandler) Versions(c *gin.Context) {
	versions, err := h.themes.Versions(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"versions": versions})
}

// GET /api/theme-versions/:id/files
func (h *ThemeHandler) VersionFiles(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
		return
	}
	files, err := h.themes.VersionFiles(c.Request.Context(), versionID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"files": files})
}

// GET /api/theme-versions/:id/file?path=...
func (h *ThemeHandler) FileContent(c *gin.Context) {
	versionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_version_id", err)
		return
	}
	path := c.Query("path")
	if path == "" {
		RespondError(c, http.StatusBadRequest, "missing_path", errMissingPath)
		return
	}
	content, file, err := h.themes.FileContent(c.Request.Context(), versionID, path)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"file":    file,
		"content": string(content),
	})
}

// GET /api/themes/:slug/history?path=...
func (h *ThemeHandler) FileHistory(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		RespondError(c, http.StatusBadRequest, "missing_path", errMissingPath)
		return
	}
	history, err := h.themes.FileHistory(c.Request.Context(), c.Param("slug"), path)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}

// GET /api/themes/:slug/published
func (h *ThemeHandler) PublishedHistory(c *gin.Context) {
	theme, err := h.themes.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	versions, err := h.publish.History(c.Request.Context(), theme.ID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"published": versions})
}

// GET /api/themes/:slug/card.png
func (h *ThemeHandler) Card(c *gin.Context) {
	png, err := h.cards.ThemeCard(c.Request.Context(), c.Param("slug"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
