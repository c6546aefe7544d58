package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pagecraft/pagecraft-backend/internal/db"
	"github.com/pagecraft/pagecraft-backend/internal/handlers"
	jobtheme "github.com/pagecraft/pagecraft-backend/internal/jobs/theme"
	jobrt "github.com/pagecraft/pagecraft-backend/internal/jobs/runtime"
	"github.com/pagecraft/pagecraft-backend/internal/jobs/worker"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/pkg/keylock"
	"github.com/pagecraft/pagecraft-backend/internal/realtime"
	"github.com/pagecraft/pagecraft-backend/internal/realtime/bus"
	"github.com/pagecraft/pagecraft-backend/internal/render"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/scanner"
	"github.com/pagecraft/pagecraft-backend/internal/server"
	"github.com/pagecraft/pagecraft-backend/internal/services"
	"github.com/pagecraft/pagecraft-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	themeRepo := repos.NewThemeRepo(thePG, log)
	themeVersionRepo := repos.NewThemeVersionRepo(thePG, log)
	themeFileRepo := repos.NewThemeFileRepo(thePG, log)
	fileVersionRepo := repos.NewThemeFileVersionRepo(thePG, log)
	builderRepo := repos.NewBuilderThemeRepo(thePG, log)
	builderFileRepo := repos.NewBuilderFileRepo(thePG, log)
	sectionRepo := repos.NewBuilderSectionRepo(thePG, log)
	snapshotRepo := repos.NewBuilderSnapshotRepo(thePG, log)
	publishedRepo := repos.NewPublishedVersionRepo(thePG, log)
	jobRunRepo := repos.NewJobRunRepo(thePG, log)

	// SSE + event bus
	log.Info("Setting up SSE hub now...")
	sseHub := realtime.NewSSEHub(log)
	ctx := context.Background()

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if utils.GetEnvAsBool("REDIS_BUS_ENABLED", false, log) {
		redisBus, busErr := bus.NewRedisBus(log)
		if busErr != nil {
			log.Warn("Redis bus init failed, falling back to in-process hub", "error", busErr)
		} else {
			if err := redisBus.StartForwarder(ctx, sseHub.Broadcast); err != nil {
				log.Warn("Redis bus forwarder failed to start", "error", err)
			}
			emitter = &services.RedisEmitter{Bus: redisBus}
		}
	}
	themeNotifier := services.NewThemeNotifier(emitter)
	jobNotifier := services.NewJobNotifier(emitter)

	// Services
	log.Info("Setting up Services from main...")
	locks := keylock.New()
	scan := scanner.New(log)
	registry := render.NewDefaultRegistry()
	renderer := render.NewRenderer(log, registry)

	var cache services.RenderCache = services.NoopRenderCache{}
	if utils.GetEnvAsBool("RENDER_CACHE_ENABLED", false, log) {
		cache = services.NewRedisRenderCache(log)
	}

	versionService := services.NewVersionService(thePG, log, themeFileRepo, fileVersionRepo)
	syncService := services.NewSyncService(thePG, log, scan, locks, themeRepo, themeVersionRepo, themeFileRepo, fileVersionRepo, themeNotifier)
	themeService := services.NewThemeService(thePG, log, themeRepo, themeVersionRepo, themeFileRepo, versionService, builderRepo, publishedRepo)
	builderService := services.NewBuilderService(thePG, log, locks, registry, themeRepo, themeVersionRepo, themeFileRepo, versionService, builderRepo, builderFileRepo, sectionRepo, snapshotRepo, themeNotifier)
	publishService := services.NewPublishService(thePG, log, locks, registry, themeRepo, themeVersionRepo, themeFileRepo, fileVersionRepo, builderRepo, builderFileRepo, publishedRepo, cache, themeNotifier)
	renderService := services.NewRenderService(log, renderer, cache, themeRepo, builderRepo, builderFileRepo, publishedRepo)
	jobService := services.NewJobService(thePG, log, jobRunRepo, jobNotifier)
	cardService, err := services.NewPreviewCardService(log, themeRepo, themeVersionRepo, builderRepo, builderFileRepo, publishedRepo)
	if err != nil {
		log.Fatal("Could not init PreviewCardService", "error", err)
	}

	// Job worker
	log.Info("Setting up job worker from main...")
	jobRegistry := jobrt.NewRegistry()
	if err := jobRegistry.Register(jobtheme.NewSyncPipeline(log, syncService)); err != nil {
		log.Fatal("Could not register theme_sync pipeline", "error", err)
	}
	if err := jobRegistry.Register(jobtheme.NewPublishPipeline(log, publishService)); err != nil {
		log.Fatal("Could not register theme_publish pipeline", "error", err)
	}
	worker.NewWorker(thePG, log, jobRunRepo, jobRegistry, jobNotifier).Start(ctx)

	// Handlers
	log.Info("Setting up handlers from main...")
	themeHandler := handlers.NewThemeHandler(themeService, syncService, publishService, jobService, cardService)
	builderHandler := handlers.NewBuilderHandler(builderService, publishService, jobService, cardService)
	renderHandler := handlers.NewRenderHandler(renderService)
	jobsHandler := handlers.NewJobsHandler(jobService)
	sseHandler := handlers.NewSSEHandler(sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ThemeHandler:   themeHandler,
		BuilderHandler: builderHandler,
		RenderHandler:  renderHandler,
		JobsHandler:    jobsHandler,
		SSEHandler:     sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
