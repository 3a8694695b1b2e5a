package internal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/syncer"
	"github.com/starford/yuhex/internal/testutil"
	"github.com/starford/yuhex/internal/toc"
)

func workspaceConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := validConfig()
	cfg.App.LogFormat = LogFormatText
	cfg.PostPath = filepath.Join(dir, "source", "_posts", "yuque")
	cfg.CachePath = filepath.Join(dir, "yuque.json")
	cfg.Image.Path = filepath.Join(dir, "source", "images")
	cfg.Index.Path = filepath.Join(dir, "manifest.db")
	return cfg
}

func fixture() *testutil.Source {
	return &testutil.Source{
		Items: []toc.Item{
			{UUID: "g", Type: toc.KindGroup, Title: "Guide", Children: []toc.Item{
				{UUID: "d", Type: toc.KindDoc, Title: "Install", DocID: "7"},
			}},
		},
		Docs: map[string]*models.Document{
			"7": {ID: "7", Title: "Install", Slug: "install", CreatedAt: "2024-03-09T10:00:00Z", Body: "hello"},
		},
	}
}

var fixedNow = func() time.Time { return time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC) }

func TestRunSync_WritesArtifacts(t *testing.T) {
	cfg := workspaceConfig(t)
	cfg.Export.Enabled = true
	cfg.Export.Path = filepath.Join(filepath.Dir(cfg.CachePath), "toc.xlsx")
	cfg.LastGeneratePath = filepath.Join(filepath.Dir(cfg.CachePath), "last.txt")

	err := RunSync(context.Background(), WithConfig(cfg), WithSource(fixture()), WithClock(fixedNow))
	if err != nil {
		t.Fatalf("RunSync: %v", err)
	}

	post, err := os.ReadFile(filepath.Join(cfg.PostPath, "Install.md"))
	if err != nil {
		t.Fatalf("post missing: %v", err)
	}
	if !strings.Contains(string(post), "- Guide") {
		t.Errorf("post lacks hierarchy tag:\n%s", post)
	}

	posts, err := syncer.ReadCache(cfg.CachePath)
	if err != nil || len(posts) != 1 || posts[0].File != "Install.md" {
		t.Errorf("cache = %+v, %v", posts, err)
	}
	if _, err := os.Stat(cfg.Export.Path); err != nil {
		t.Errorf("export missing: %v", err)
	}
	marker, err := os.ReadFile(cfg.LastGeneratePath)
	if err != nil || strings.TrimSpace(string(marker)) != "2024-03-09T12:00:00Z" {
		t.Errorf("marker = %q, %v", marker, err)
	}
}

func TestRunSync_ClearsPostDirWithoutMarker(t *testing.T) {
	cfg := workspaceConfig(t)
	if err := os.MkdirAll(cfg.PostPath, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(cfg.PostPath, "Stale.md")
	if err := os.WriteFile(stale, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := RunSync(context.Background(), WithConfig(cfg), WithSource(fixture())); err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Errorf("stale post survived: %v", err)
	}
}

func TestRunSync_HierarchyFailure(t *testing.T) {
	cfg := workspaceConfig(t)
	src := fixture()
	src.TocErr = errors.New("401 unauthorized")

	if err := RunSync(context.Background(), WithConfig(cfg), WithSource(src)); err == nil {
		t.Fatal("expected error")
	}
	if _, err := os.Stat(cfg.CachePath); !os.IsNotExist(err) {
		t.Errorf("cache written after failed run: %v", err)
	}
}

func TestRunSync_UnknownAdapter(t *testing.T) {
	cfg := workspaceConfig(t)
	cfg.Adapter = "jekyll"
	if err := RunSync(context.Background(), WithConfig(cfg), WithSource(fixture())); err == nil {
		t.Fatal("expected unknown adapter error")
	}
}

func TestRunSync_RequiresConfig(t *testing.T) {
	if err := RunSync(context.Background()); err == nil {
		t.Fatal("expected missing config error")
	}
}

func TestRunClean_RemovesArtifacts(t *testing.T) {
	cfg := workspaceConfig(t)
	cfg.LastGeneratePath = filepath.Join(filepath.Dir(cfg.CachePath), "last.txt")
	if err := RunSync(context.Background(), WithConfig(cfg), WithSource(fixture()), WithClock(fixedNow)); err != nil {
		t.Fatalf("RunSync: %v", err)
	}
	if err := os.MkdirAll(cfg.Image.Path, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := RunClean(context.Background(), WithConfig(cfg)); err != nil {
		t.Fatalf("RunClean: %v", err)
	}
	for _, p := range []string{cfg.PostPath, cfg.Image.Path, cfg.CachePath, cfg.LastGeneratePath, cfg.Index.Path} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s still present: %v", p, err)
		}
	}
}
