package services

import (
	"bytes"
	"context"
	"testing"
)

func TestCreateVersionIdempotentOnSameContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{
		"assets/main.css": `body{}`,
	})
	if _, err := env.sync.Sync(ctx, "dawn"); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	live, _ := env.versionRepo.GetLive(ctx, nil, theme.ID)
	file, err := env.fileRepo.GetByVersionAndPath(ctx, nil, live.ID, "assets/main.css")
	if err != nil || file == nil {
		t.Fatalf("load tracked file: %v %v", file, err)
	}

	same, err := env.versions.CreateVersion(ctx, nil, file, []byte(`body{}`), "tester", "no-op")
	if err != nil {
		t.Fatalf("CreateVersion(same): %v", err)
	}
	if same.VersionNumber != 1 {
		t.Fatalf("identical content must not advance the counter, got %d", same.VersionNumber)
	}

	changed, err := env.versions.CreateVersion(ctx, nil, file, []byte(`body{color:red}`), "tester", "tweak")
	if err != nil {
		t.Fatalf("CreateVersion(changed): %v", err)
	}
	if changed.VersionNumber != 2 {
		t.Fatalf("version number = %d, want 2", changed.VersionNumber)
	}
	if file.VersionNumber != 2 || file.Checksum != changed.Checksum {
		t.Fatalf("tracked file pointer not advanced: %+v", file)
	}

	history, err := env.versions.History(ctx, nil, theme.ID, "assets/main.css")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	// History is newest-first with contiguous numbering.
	for i, v := range history {
		if v.VersionNumber != len(history)-i {
			t.Fatalf("history numbering not contiguous: %+v", history)
		}
	}
}

func TestGetContentResolvesPointer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	theme := installTheme(t, env, map[string]string{
		"assets/main.css": `body{}`,
	})
	if _, err := env.sync.Sync(ctx, "dawn"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	live, _ := env.versionRepo.GetLive(ctx, nil, theme.ID)
	file, _ := env.fileRepo.GetByVersionAndPath(ctx, nil, live.ID, "assets/main.css")

	content, err := env.versions.GetContent(ctx, nil, file)
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	if !bytes.Equal(content, []byte(`body{}`)) {
		t.Fatalf("content = %q", content)
	}
}
