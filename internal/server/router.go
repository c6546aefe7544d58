package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pagecraft/pagecraft-backend/internal/handlers"
)

type RouterConfig struct {
	ThemeHandler   *handlers.ThemeHandler
	BuilderHandler *handlers.BuilderHandler
	RenderHandler  *handlers.RenderHandler
	JobsHandler    *handlers.JobsHandler
	SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Themes + version store
		api.GET("/themes", cfg.ThemeHandler.List)
		api.POST("/themes/install", cfg.ThemeHandler.Install)
		api.GET("/themes/:slug", cfg.ThemeHandler.Get)
		api.DELETE("/themes/:slug", cfg.ThemeHandler.Delete)
		api.POST("/themes/:slug/activate", cfg.ThemeHandler.Activate)
		api.POST("/themes/:slug/sync", cfg.ThemeHandler.Sync)
		api.GET("/themes/:slug/update-check", cfg.ThemeHandler.CheckForUpdate)
		api.GET("/themes/:slug/versions", cfg.ThemeHandler.Versions)
		api.GET("/themes/:slug/history", cfg.ThemeHandler.FileHistory)
		api.GET("/themes/:slug/published", cfg.ThemeHandler.PublishedHistory)
		api.GET("/themes/:slug/card.png", cfg.ThemeHandler.Card)
		api.GET("/theme-versions/:id/files", cfg.ThemeHandler.VersionFiles)
		api.GET("/theme-versions/:id/file", cfg.ThemeHandler.FileContent)

		// Draft workspaces
		api.POST("/drafts", cfg.BuilderHandler.CreateDraft)
		api.GET("/drafts", cfg.BuilderHandler.ListDrafts)
		api.GET("/drafts/:id", cfg.BuilderHandler.GetDraft)
		api.PUT("/drafts/:id", cfg.BuilderHandler.SaveDraft)
		api.POST("/drafts/:id/abandon", cfg.BuilderHandler.Abandon)
		api.GET("/drafts/:id/files", cfg.BuilderHandler.ListFiles)
		api.GET("/drafts/:id/file", cfg.BuilderHandler.GetFile)
		api.PUT("/drafts/:id/file", cfg.BuilderHandler.UpdateFile)
		api.GET("/drafts/:id/templates/:template/sections", cfg.BuilderHandler.ListSections)
		api.POST("/drafts/:id/templates/:template/sections", cfg.BuilderHandler.AddSection)
		api.PUT("/drafts/:id/templates/:template/order", cfg.BuilderHandler.ReorderSections)
		api.PUT("/drafts/:id/sections/:sectionID", cfg.BuilderHandler.UpdateSection)
		api.DELETE("/drafts/:id/sections/:sectionID", cfg.BuilderHandler.RemoveSection)
		api.PUT("/drafts/:id/settings", cfg.BuilderHandler.UpdateSettings)
		api.POST("/drafts/:id/snapshots", cfg.BuilderHandler.Snapshot)
		api.GET("/drafts/:id/snapshots", cfg.BuilderHandler.ListSnapshots)
		api.POST("/drafts/:id/rollback", cfg.BuilderHandler.Rollback)
		api.POST("/drafts/:id/validate", cfg.BuilderHandler.Validate)
		api.POST("/drafts/:id/publish", cfg.BuilderHandler.Publish)
		api.GET("/drafts/:id/card.png", cfg.BuilderHandler.Card)

		// Jobs + events
		api.GET("/jobs/:id", cfg.JobsHandler.GetByID)
		api.GET("/events", cfg.SSEHandler.Stream)
	}

	// Rendered pages + assets
	router.GET("/preview/:draftID/:template", cfg.RenderHandler.Preview)
	router.GET("/site/:slug/:template", cfg.RenderHandler.Live)
	router.GET("/themes/:identity/assets/:name", cfg.RenderHandler.Asset)

	return router
}
