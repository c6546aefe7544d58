package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/pagecraft/pagecraft-backend/internal/apperr"
	"github.com/pagecraft/pagecraft-backend/internal/logger"
)

func testScanner(t *testing.T) *Scanner {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return New(log)
}

func writeTheme(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	return root
}

func TestScanClassifiesAndChecksums(t *testing.T) {
	s := testScanner(t)
	root := writeTheme(t, map[string]string{
		"templates/index.json":      `{"sections":{},"order":[]}`,
		"sections/hero.html":        `<h1>{{ .Settings.title }}</h1>`,
		"layout/theme.html":         `{{ .Content }}`,
		"assets/main.css":           `body{}`,
		"config/theme.json":         `{"name":"Dawn","version":"1.0.0"}`,
		"README.md":                 `readme`,
		".git/objects/aa":           `ignored`,
		".hidden":                   `ignored`,
		"assets/.DS_Store":          `ignored`,
		"snippets/price.html":       `{{ .Settings.price }}`,
	})

	files, err := s.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	roles := map[string]string{}
	var paths []string
	for _, f := range files {
		roles[f.Path] = f.Role
		paths = append(paths, f.Path)
		if f.Checksum != Checksum(f.Content) {
			t.Errorf("checksum mismatch for %s", f.Path)
		}
		if f.SizeBytes != int64(len(f.Content)) {
			t.Errorf("size mismatch for %s", f.Path)
		}
	}

	if !sort.StringsAreSorted(paths) {
		t.Errorf("scan output not sorted: %v", paths)
	}
	for path := range roles {
		if path == ".hidden" || path == "assets/.DS_Store" || strings.HasPrefix(path, ".git") {
			t.Errorf("dotfile %s should be skipped", path)
		}
	}

	want := map[string]string{
		"templates/index.json": "template",
		"sections/hero.html":   "section",
		"layout/theme.html":    "layout",
		"assets/main.css":      "asset",
		"config/theme.json":    "config",
		"README.md":            "other",
		"snippets/price.html":  "other",
	}
	for path, role := range want {
		if roles[path] != role {
			t.Errorf("role for %s = %q, want %q", path, roles[path], role)
		}
	}
}

func TestScanMissingRoot(t *testing.T) {
	s := testScanner(t)
	_, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("expected IO error, got %v", err)
	}
}

func TestScanCancelledContext(t *testing.T) {
	s := testScanner(t)
	root := writeTheme(t, map[string]string{"config/theme.json": `{}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Scan(ctx, root); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte("hello"))
	b := Checksum([]byte("hello"))
	c := Checksum([]byte("hello!"))
	if a != b {
		t.Errorf("same content hashed differently")
	}
	if a == c {
		t.Errorf("different content hashed identically")
	}
	if len(a) != 64 {
		t.Errorf("checksum length = %d, want 64 hex chars", len(a))
	}
}

func TestReadManifest(t *testing.T) {
	s := testScanner(t)
	root := writeTheme(t, map[string]string{
		"config/theme.json": `{"name":"Dawn","version":"2.1.0"}`,
	})
	manifest, err := s.ReadManifest(root)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if manifest.Name != "Dawn" || manifest.Version != "2.1.0" {
		t.Errorf("manifest = %+v", manifest)
	}

	if _, err := s.ReadManifest(t.TempDir()); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing manifest should be not-found, got %v", err)
	}
}

func TestClassifyRoleNormalizesPath(t *testing.T) {
	if got := ClassifyRole("/templates/index.json"); got != "template" {
		t.Errorf("leading slash: %q", got)
	}
	if got := ClassifyRole(`templates\index.json`); got != "template" {
		t.Errorf("backslash path: %q", got)
	}
}
