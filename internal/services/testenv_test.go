package services

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/db"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/pkg/keylock"
	"github.com/pagecraft/pagecraft-backend/internal/render"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/scanner"
	"github.com/pagecraft/pagecraft-backend/internal/types"
)

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu        sync.Mutex
	previews  int
	published []*types.PublishedVersion
	syncs     int
}

func (n *recordingNotifier) PreviewUpdated(draft *types.BuilderTheme, templateName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.previews++
}

func (n *recordingNotifier) Published(theme *types.Theme, version *types.PublishedVersion) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, version)
}

func (n *recordingNotifier) SyncCompleted(theme *types.Theme, sequence int, versionsCreated int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.syncs++
}

type testEnv struct {
	db       *gorm.DB
	log      *logger.Logger
	locks    *keylock.KeyedMutex
	scan     *scanner.Scanner
	registry *render.Registry
	notifier *recordingNotifier

	themeRepo     repos.ThemeRepo
	versionRepo   repos.ThemeVersionRepo
	fileRepo      repos.ThemeFileRepo
	fvRepo        repos.ThemeFileVersionRepo
	builderRepo   repos.BuilderThemeRepo
	bFileRepo     repos.BuilderFileRepo
	sectionRepo   repos.BuilderSectionRepo
	snapshotRepo  repos.BuilderSnapshotRepo
	publishedRepo repos.PublishedVersionRepo
	jobRepo       repos.JobRunRepo

	versions VersionService
	sync     SyncService
	builder  BuilderService
	publish  PublishService
	renders  RenderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	gdb, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(db.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:       gdb,
		log:      log,
		locks:    keylock.New(),
		scan:     scanner.New(log),
		registry: render.NewDefaultRegistry(),
		notifier: &recordingNotifier{},
	}
	env.themeRepo = repos.NewThemeRepo(gdb, log)
	env.versionRepo = repos.NewThemeVersionRepo(gdb, log)
	env.fileRepo = repos.NewThemeFileRepo(gdb, log)
	env.fvRepo = repos.NewThemeFileVersionRepo(gdb, log)
	env.builderRepo = repos.NewBuilderThemeRepo(gdb, log)
	env.bFileRepo = repos.NewBuilderFileRepo(gdb, log)
	env.sectionRepo = repos.NewBuilderSectionRepo(gdb, log)
	env.snapshotRepo = repos.NewBuilderSnapshotRepo(gdb, log)
	env.publishedRepo = repos.NewPublishedVersionRepo(gdb, log)
	env.jobRepo = repos.NewJobRunRepo(gdb, log)

	env.versions = NewVersionService(gdb, log, env.fileRepo, env.fvRepo)
	env.sync = NewSyncService(gdb, log, env.scan, env.locks, env.themeRepo, env.versionRepo, env.fileRepo, env.fvRepo, env.notifier)
	env.builder = NewBuilderService(gdb, log, env.locks, env.registry, env.themeRepo, env.versionRepo, env.fileRepo, env.versions, env.builderRepo, env.bFileRepo, env.sectionRepo, env.snapshotRepo, env.notifier)
	env.publish = NewPublishService(gdb, log, env.locks, env.registry, env.themeRepo, env.versionRepo, env.fileRepo, env.fvRepo, env.builderRepo, env.bFileRepo, env.publishedRepo, NoopRenderCache{}, env.notifier)
	env.renders = NewRenderService(log, render.NewRenderer(log, env.registry), NoopRenderCache{}, env.themeRepo, env.builderRepo, env.bFileRepo, env.publishedRepo)
	return env
}

// writeThemeDir lays a theme tree out on disk for install/sync tests.
func writeThemeDir(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
}

var _ ThemeNotifier = (*recordingNotifier)(nil)
