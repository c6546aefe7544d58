package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
)

// ScannedFile is one classified, checksummed file from a theme root.
type ScannedFile struct {
	Path      string
	Role      string
	Checksum  string
	SizeBytes int64
	Content   []byte
}

// ThemeManifest is the parsed config/theme.json.
type ThemeManifest struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

const manifestPath = "config/theme.json"

type Scanner struct {
	log         *logger.Logger
	concurrency int
}

func New(baseLog *logger.Logger) *Scanner {
	return &Scanner{
		log:         baseLog.With("component", "Scanner"),
		concurrency: 8,
	}
}

// Checksum is the content hash used everywhere a file is tracked.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Scan walks themeRoot, classifies each regular file and computes its
// checksum. Hashing runs on a bounded worker group; the walk honors ctx
// cancellation. A missing or unreadable root is an IO-tagged error the
// sync engine treats as recoverable.
func (s *Scanner) Scan(ctx context.Context, themeRoot string) ([]ScannedFile, error) {
	info, err := os.Stat(themeRoot)
	if err != nil {
		return nil, apperr.IO("scan theme root", err)
	}
	if !info.IsDir() {
		return nil, apperr.IO("scan theme root", fmt.Errorf("%s is not a directory", themeRoot))
	}

	var relPaths []string
	err = filepath.WalkDir(themeRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != themeRoot {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, relErr := filepath.Rel(themeRoot, path)
		if relErr != nil {
			return relErr
		}
		relPaths = append(relPaths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.IO("walk theme root", err)
	}

	sort.Strings(relPaths)

	out := make([]ScannedFile, len(relPaths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, rel := range relPaths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, readErr := os.ReadFile(filepath.Join(themeRoot, filepath.FromSlash(rel)))
			if readErr != nil {
				return apperr.IO("read theme file "+rel, readErr)
			}
			out[i] = ScannedFile{
				Path:      rel,
				Role:      ClassifyRole(rel),
				Checksum:  Checksum(content),
				SizeBytes: int64(len(content)),
				Content:   content,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Debug("Theme root scanned", "root", themeRoot, "files", len(out))
	return out, nil
}

// ReadManifest parses config/theme.json under themeRoot.
func (s *Scanner) ReadManifest(themeRoot string) (*ThemeManifest, error) {
	raw, err := os.ReadFile(filepath.Join(themeRoot, filepath.FromSlash(manifestPath)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound("theme manifest " + manifestPath)
		}
		return nil, apperr.IO("read theme manifest", err)
	}
	var manifest ThemeManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("parse theme manifest: %w: %v", apperr.ErrValidation, err)
	}
	return &manifest, nil
}
