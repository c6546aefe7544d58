package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/db"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
	"github.com/pagecraft/pagecraft-backend/internal/pkg/keylock"
	"github.com/pagecraft/pagecraft-backend/internal/repos"
	"github.com/pagecraft/pagecraft-backend/internal/scanner"
	"github.com/pagecraft/pagecraft-backend/internal/services"
	"github.com/pagecraft/pagecraft-backend/internal/utils"
)

const usage = `themectl <command> [flags]

Commands:
  install   -root <dir>          register a theme found on disk
  sync      -slug <slug>         reconcile theme files into the version store
  check     -slug <slug>         report whether the manifest version changed
  list                           list installed themes
  activate  -slug <slug>         make a theme the active one
  versions  -slug <slug>         list recorded versions for a theme
  history   -slug <slug> -path <path>
                                 show the content history of one file

Exit codes: 0 success, 1 validation failure, 2 not found, 3 I/O failure.
`

type cli struct {
	log    *logger.Logger
	themes services.ThemeService
	sync   services.SyncService
}

func main() {
	log, err := logger.New("production")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(3)
	}
	defer log.Sync()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	gdb, err := openDB(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(3)
	}

	themeRepo := repos.NewThemeRepo(gdb, log)
	themeVersionRepo := repos.NewThemeVersionRepo(gdb, log)
	themeFileRepo := repos.NewThemeFileRepo(gdb, log)
	fileVersionRepo := repos.NewThemeFileVersionRepo(gdb, log)
	builderRepo := repos.NewBuilderThemeRepo(gdb, log)
	publishedRepo := repos.NewPublishedVersionRepo(gdb, log)
	versionService := services.NewVersionService(gdb, log, themeFileRepo, fileVersionRepo)

	app := &cli{
		log:    log,
		themes: services.NewThemeService(gdb, log, themeRepo, themeVersionRepo, themeFileRepo, versionService, builderRepo, publishedRepo),
		sync: services.NewSyncService(gdb, log, scanner.New(log), keylock.New(),
			themeRepo, themeVersionRepo, themeFileRepo, fileVersionRepo, services.NewThemeNotifier(nil)),
	}

	err = app.run(os.Args[1], os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "themectl: %v\n", err)
	}
	os.Exit(apperr.ExitCode(err))
}

func (a *cli) run(command string, args []string) error {
	ctx := context.Background()
	switch command {
	case "install":
		fs := flag.NewFlagSet("install", flag.ExitOnError)
		root := fs.String("root", "", "theme root directory")
		fs.Parse(args)
		if *root == "" {
			return apperr.Validation("install requires -root")
		}
		theme, err := a.sync.InstallFromDisk(ctx, *root)
		if err != nil {
			return err
		}
		return printJSON(theme)

	case "sync":
		fs := flag.NewFlagSet("sync", flag.ExitOnError)
		slug := fs.String("slug", "", "theme slug")
		fs.Parse(args)
		if *slug == "" {
			return apperr.Validation("sync requires -slug")
		}
		result, err := a.sync.Sync(ctx, *slug)
		if err != nil {
			return err
		}
		return printJSON(result)

	case "check":
		fs := flag.NewFlagSet("check", flag.ExitOnError)
		slug := fs.String("slug", "", "theme slug")
		fs.Parse(args)
		if *slug == "" {
			return apperr.Validation("check requires -slug")
		}
		available, installed, manifest, err := a.sync.CheckForUpdate(ctx, *slug)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"update_available":  available,
			"installed_version": installed,
			"manifest_version":  manifest,
		})

	case "list":
		themes, err := a.themes.List(ctx)
		if err != nil {
			return err
		}
		return printJSON(themes)

	case "activate":
		fs := flag.NewFlagSet("activate", flag.ExitOnError)
		slug := fs.String("slug", "", "theme slug")
		fs.Parse(args)
		if *slug == "" {
			return apperr.Validation("activate requires -slug")
		}
		theme, err := a.themes.Activate(ctx, *slug)
		if err != nil {
			return err
		}
		return printJSON(theme)

	case "versions":
		fs := flag.NewFlagSet("versions", flag.ExitOnError)
		slug := fs.String("slug", "", "theme slug")
		fs.Parse(args)
		if *slug == "" {
			return apperr.Validation("versions requires -slug")
		}
		versions, err := a.themes.Versions(ctx, *slug)
		if err != nil {
			return err
		}
		return printJSON(versions)

	case "history":
		fs := flag.NewFlagSet("history", flag.ExitOnError)
		slug := fs.String("slug", "", "theme slug")
		path := fs.String("path", "", "file path inside the theme")
		fs.Parse(args)
		if *slug == "" || *path == "" {
			return apperr.Validation("history requires -slug and -path")
		}
		history, err := a.themes.FileHistory(ctx, *slug, *path)
		if err != nil {
			return err
		}
		return printJSON(history)

	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil

	default:
		return apperr.Validation("unknown command " + command)
	}
}

// openDB picks the driver from DB_DRIVER: postgres (default) or sqlite
// for local use.
func openDB(log *logger.Logger) (*gorm.DB, error) {
	driver := utils.GetEnv("DB_DRIVER", "postgres", log)
	if driver == "sqlite" {
		svc, err := db.NewSQLiteService(log)
		if err != nil {
			return nil, err
		}
		if err := svc.AutoMigrateAll(); err != nil {
			return nil, err
		}
		return svc.DB(), nil
	}
	svc, err := db.NewPostgresService(log)
	if err != nil {
		return nil, err
	}
	if err := svc.AutoMigrateAll(); err != nil {
		return nil, err
	}
	return svc.DB(), nil
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
