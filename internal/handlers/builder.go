package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagecraft/pagecraft-backend/internal/services"
)

type BuilderHandler struct {
	builder services.BuilderService
	publish services.PublishService
	jobs    services.JobService
	cards   services.PreviewCardService
}

func NewBuilderHandler(builder services.BuilderService, publish services.PublishService, jobs services.JobService, cards services.PreviewCardService) *BuilderHandler {
	return &BuilderHandler{builder: builder, publish: publish, jobs: jobs, cards: cards}
}

// POST /api/drafts
func (h *BuilderHandler) CreateDraft(c *gin.Context) {
	var req struct {
		Label          string     `json:"label"`
		FromVersionID  *uuid.UUID `json:"from_version_id"`
		FromBuilderID  *uuid.UUID `json:"from_builder_id"`
		FromSnapshotID *uuid.UUID `json:"from_snapshot_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	draft, err := h.builder.CreateDraft(c.Request.Context(), services.CreateDraftParams{
		OwnerUserID:    requestUserID(c),
		Label:          req.Label,
		FromVersionID:  req.FromVersionID,
		FromBuilderID:  req.FromBuilderID,
		FromSnapshotID: req.FromSnapshotID,
	})
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": draft})
}

// GET /api/drafts
func (h *BuilderHandler) ListDrafts(c *gin.Context) {
	drafts, err := h.builder.ListDrafts(c.Request.Context(), requestUserID(c))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"drafts": drafts})
}

// GET /api/drafts/:id
func (h *BuilderHandler) GetDraft(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	draft, err := h.builder.GetDraft(c.Request.Context(), draftID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"draft": draft})
}

// PUT /api/drafts/:id applies a batch save: file writes, whole-template
// section replacements, and a settings update in one transaction.
func (h *BuilderHandler) SaveDraft(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		Files []struct {
			Path    string `json:"path" binding:"required"`
			Content string `json:"content"`
		} `json:"files"`
		Sections map[string][]services.DraftSectionEdit `json:"sections"`
		Settings map[string]any                         `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	params := services.SaveDraftParams{
		Sections: req.Sections,
		Settings: req.Settings,
	}
	for _, f := range req.Files {
		params.Files = append(params.Files, services.DraftFileEdit{Path: f.Path, Content: []byte(f.Content)})
	}
	draft, err := h.builder.SaveDraft(c.Request.Context(), draftID, params)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"draft": draft})
}

// POST /api/drafts/:id/abandon
func (h *BuilderHandler) Abandon(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	if err := h.builder.Abandon(c.Request.Context(), draftID); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/drafts/:id/files
func (h *BuilderHandler) ListFiles(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	files, err := h.builder.ListFiles(c.Request.Context(), draftID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"files": files})
}

// GET /api/drafts/:id/file?path=...
func (h *BuilderHandler) GetFile(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	path := c.Query("path")
	if path == "" {
		RespondError(c, http.StatusBadRequest, "missing_path", errMissingPath)
		return
	}
	file, err := h.builder.GetFile(c.Request.Context(), draftID, path)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"file": file, "content": string(file.Content)})
}

// PUT /api/drafts/:id/file
func (h *BuilderHandler) UpdateFile(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		Path    string `json:"path" binding:"required"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	file, err := h.builder.UpdateFile(c.Request.Context(), draftID, req.Path, []byte(req.Content))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"file": file})
}

// GET /api/drafts/:id/templates/:template/sections
func (h *BuilderHandler) ListSections(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	sections, err := h.builder.ListSections(c.Request.Context(), draftID, c.Param("template"))
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"sections": sections})
}

// POST /api/drafts/:id/templates/:template/sections
func (h *BuilderHandler) AddSection(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		Type     string         `json:"type" binding:"required"`
		Settings map[string]any `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	section, err := h.builder.AddSection(c.Request.Context(), draftID, c.Param("template"), req.Type, req.Settings)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": section})
}

// PUT /api/drafts/:id/sections/:sectionID
func (h *BuilderHandler) UpdateSection(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	sectionID, err := uuid.Parse(c.Param("sectionID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_section_id", err)
		return
	}
	var req struct {
		Settings map[string]any `json:"settings"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	section, err := h.builder.UpdateSection(c.Request.Context(), draftID, sectionID, req.Settings)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"section": section})
}

// DELETE /api/drafts/:id/sections/:sectionID
func (h *BuilderHandler) RemoveSection(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	sectionID, err := uuid.Parse(c.Param("sectionID"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_section_id", err)
		return
	}
	if err := h.builder.RemoveSection(c.Request.Context(), draftID, sectionID); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/drafts/:id/templates/:template/order
func (h *BuilderHandler) ReorderSections(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		Order []string `json:"order" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.builder.ReorderSections(c.Request.Context(), draftID, c.Param("template"), req.Order); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/drafts/:id/settings
func (h *BuilderHandler) UpdateSettings(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		Settings map[string]any `json:"settings" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.builder.UpdateSettings(c.Request.Context(), draftID, req.Settings); err != nil {
		RespondAppError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/drafts/:id/snapshots
func (h *BuilderHandler) Snapshot(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		Label string `json:"label"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	snapshot, err := h.builder.Snapshot(c.Request.Context(), draftID, req.Label)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"snapshot": snapshot})
}

// GET /api/drafts/:id/snapshots
func (h *BuilderHandler) ListSnapshots(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	snapshots, err := h.builder.ListSnapshots(c.Request.Context(), draftID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"snapshots": snapshots})
}

// POST /api/drafts/:id/rollback materializes a fresh draft from the
// snapshot; the original draft is left as it was.
func (h *BuilderHandler) Rollback(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	var req struct {
		SnapshotID uuid.UUID `json:"snapshot_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	restored, err := h.builder.RollbackTo(c.Request.Context(), draftID, req.SnapshotID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"draft": restored})
}

// POST /api/drafts/:id/validate
func (h *BuilderHandler) Validate(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	if err := h.publish.Validate(c.Request.Context(), draftID); err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"valid": true})
}

// POST /api/drafts/:id/publish runs synchronously; ?async=true enqueues
// a theme_publish job instead.
func (h *BuilderHandler) Publish(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	userID := requestUserID(c)
	if c.Query("async") == "true" {
		job, err := h.jobs.EnqueuePublish(c.Request.Context(), userID, draftID, userID.String())
		if err != nil {
			RespondAppError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"job": job})
		return
	}
	published, err := h.publish.Publish(c.Request.Context(), draftID, userID.String())
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"published": published})
}

// GET /api/drafts/:id/card.png
func (h *BuilderHandler) Card(c *gin.Context) {
	draftID, ok := h.draftID(c)
	if !ok {
		return
	}
	png, err := h.cards.DraftCard(c.Request.Context(), draftID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *BuilderHandler) draftID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return uuid.Nil, false
	}
	return id, true
}
