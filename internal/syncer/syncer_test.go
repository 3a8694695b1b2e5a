package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/yuhex/internal/adapter"
	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/parser"
	"github.com/starford/yuhex/internal/storage"
	"github.com/starford/yuhex/internal/testutil"
	"github.com/starford/yuhex/internal/toc"
)

func fixtureSource() *testutil.Source {
	return &testutil.Source{
		Items: []toc.Item{
			{UUID: "top", Type: toc.KindGroup, Title: toc.RootLabel, Children: []toc.Item{
				{UUID: "a", Type: toc.KindGroup, Title: "A", Children: []toc.Item{
					{UUID: "b", Type: toc.KindGroup, Title: "B", Children: []toc.Item{
						{UUID: "d1", Type: toc.KindDoc, Title: "Deep", DocID: "1"},
					}},
					{UUID: "d2", Type: toc.KindDoc, Title: "Shallow", DocID: "2"},
				}},
			}},
			{UUID: "d3", Type: toc.KindDoc, Title: "Broken", DocID: "3"},
			{UUID: "l1", Type: toc.KindLink, Title: "External"},
		},
		Docs: map[string]*models.Document{
			"1": {ID: "1", Title: "Deep", Slug: "deep", CreatedAt: "2024-01-02T03:04:05.000Z",
				Body: "---\ntags: [meta]\nlayout: post\n---\nDeep body"},
			"2": {ID: "2", Title: "Shallow", Slug: "shallow", CreatedAt: "2024-02-02T03:04:05+08:00",
				Body: "Shallow body", SourceTags: []string{"api"}},
		},
		DocErrs: map[string]error{"3": errors.New("boom")},
	}
}

func newSyncer(t *testing.T, src Source, store storage.Provider, opts ...Option) *Syncer {
	t.Helper()
	a, err := adapter.New(adapter.NameHexo)
	if err != nil {
		t.Fatal(err)
	}
	opts = append([]Option{WithLogger(testutil.Logger())}, opts...)
	return New(src, store, &adapter.Pipeline{Adapter: a}, opts...)
}

func readFrontmatter(t *testing.T, store storage.Provider, file string) map[string]any {
	t.Helper()
	data, err := store.Read(file)
	if err != nil {
		t.Fatalf("Read %s: %v", file, err)
	}
	res, ok, err := parser.Split(data)
	if err != nil || !ok {
		t.Fatalf("%s has no front matter: %v", file, err)
	}
	return res.Frontmatter
}

func TestRun_WritesPostsAndRetrofitsTags(t *testing.T) {
	_, store := testutil.TestPosts(t)
	src := fixtureSource()
	res, err := newSyncer(t, src, store).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !reflect.DeepEqual(src.Fetched, []string{"1", "2", "3"}) {
		t.Errorf("fetch order = %v, want pre-order [1 2 3]", src.Fetched)
	}
	if res.Stats.Documents != 3 || res.Stats.Written != 2 || res.Stats.Failed != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}

	deep := readFrontmatter(t, store, "Deep.md")
	if !reflect.DeepEqual(deep["tags"], []any{"A", "B"}) {
		t.Errorf("Deep tags = %v, want hierarchy path after retrofit", deep["tags"])
	}
	if !reflect.DeepEqual(deep["categories"], []any{"A", "B"}) {
		t.Errorf("Deep categories = %v", deep["categories"])
	}
	if deep["layout"] != "post" {
		t.Errorf("Deep layout = %v, want passthrough", deep["layout"])
	}

	shallow := readFrontmatter(t, store, "Shallow.md")
	if !reflect.DeepEqual(shallow["tags"], []any{"A"}) {
		t.Errorf("Shallow tags = %v, want [A]", shallow["tags"])
	}
	if shallow["date"] != "2024-02-02 03:04:05 +0800" {
		t.Errorf("Shallow date = %v", shallow["date"])
	}

	if len(res.Posts) != 2 || res.Posts[0].Path != "A/B" || res.Posts[0].File != "Deep.md" {
		t.Errorf("posts = %+v", res.Posts)
	}
	if res.Tree == nil || res.Resolver == nil {
		t.Error("result must carry the tree and resolver")
	}
}

func TestRun_Idempotent(t *testing.T) {
	root, store := testutil.TestPosts(t)
	s := newSyncer(t, fixtureSource(), store)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := snapshotDir(t, root)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	second := snapshotDir(t, root)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second run changed output:\nfirst=%v\nsecond=%v", first, second)
	}
}

func snapshotDir(t *testing.T, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(root, e.Name()))
		if err != nil {
			t.Fatal(err)
		}
		out[e.Name()] = string(data)
	}
	return out
}

func TestRun_HierarchyFailureWritesNothing(t *testing.T) {
	root, store := testutil.TestPosts(t)
	src := fixtureSource()
	src.TocErr = errors.New("unauthorized")
	if _, err := newSyncer(t, src, store).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(root)
	if len(entries) != 0 {
		t.Errorf("expected empty post dir, got %d entries", len(entries))
	}
}

func TestRun_CancelledContext(t *testing.T) {
	_, store := testutil.TestPosts(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newSyncer(t, fixtureSource(), store).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRun_OnlyPublished(t *testing.T) {
	_, store := testutil.TestPosts(t)
	src := fixtureSource()
	src.Docs["2"].PublishedAt = "2024-02-03T00:00:00Z"
	res, err := newSyncer(t, src, store, WithOnlyPublished(true)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Skipped != 1 || res.Stats.Written != 1 {
		t.Errorf("stats = %+v", res.Stats)
	}
	if ok, _ := store.Exists("Deep.md"); ok {
		t.Error("unpublished document was written")
	}
}

func TestRun_MarkdownLeftoversSurviveRetrofit(t *testing.T) {
	_, store := testutil.TestPosts(t)
	_ = store.Write("Deep.md", []byte("plain body without front matter"))
	_ = store.Write("Orphan.md", []byte("---\ntitle: Orphan\ntags: [keep]\n---\n\nx"))

	if _, err := newSyncer(t, fixtureSource(), store, WithNameFormat(NameBySlug)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	data, _ := store.Read("Deep.md")
	if string(data) != "plain body without front matter" {
		t.Errorf("markdown leftover changed: %q", data)
	}
	orphan, _ := store.Read("Orphan.md")
	if !strings.Contains(string(orphan), "keep") {
		t.Errorf("post with unknown title was modified: %q", orphan)
	}
	if ok, _ := store.Exists("deep.md"); !ok {
		t.Error("slug-named post missing")
	}
}

func TestRun_ManifestStatsAndPrune(t *testing.T) {
	_, store := testutil.TestPosts(t)
	db := testutil.TestManifest(t)
	src := fixtureSource()

	res, err := newSyncer(t, src, store, WithManifest(db)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.New != 2 {
		t.Errorf("first run stats = %+v", res.Stats)
	}

	res, err = newSyncer(t, src, store, WithManifest(db)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Unchanged != 2 || res.Stats.New != 0 {
		t.Errorf("second run stats = %+v", res.Stats)
	}

	// Document 2 leaves the TOC; its post is pruned.
	src.Items[0].Children[0].Children = src.Items[0].Children[0].Children[:1]
	res, err = newSyncer(t, src, store, WithManifest(db)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.Pruned != 1 {
		t.Errorf("pruned = %d, want 1", res.Stats.Pruned)
	}
	if ok, _ := store.Exists("Shallow.md"); ok {
		t.Error("stale post still on disk")
	}

	// A transient failure keeps the previous post.
	src.DocErrs["1"] = errors.New("timeout")
	if _, err := newSyncer(t, src, store, WithManifest(db)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if ok, _ := store.Exists("Deep.md"); !ok {
		t.Error("post of a failed document was pruned")
	}
}

func TestFileName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	doc := &models.Document{Title: " Go/Rust notes ", Slug: "go-rust"}
	if got := FileName(doc, NameByTitle, now); got != "Go-Rust notes" {
		t.Errorf("title = %q", got)
	}
	if got := FileName(doc, NameBySlug, now); got != "go-rust" {
		t.Errorf("slug = %q", got)
	}
	if got := FileName(doc, NameByTimestamp, now); got != "1700000000_go-rust" {
		t.Errorf("timestamp = %q", got)
	}
	if got := FileName(&models.Document{Slug: "only-slug"}, NameByTitle, now); got != "only-slug" {
		t.Errorf("blank title = %q", got)
	}
	if got := FileName(&models.Document{}, NameBySlug, now); got != "untitled" {
		t.Errorf("empty = %q", got)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "yuque.json")
	posts := []models.CachedPost{{DocumentID: "1", Title: "T", Tags: []string{"A"}, File: "T.md"}}
	if err := WriteCache(path, posts); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCache(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, posts) {
		t.Errorf("cache = %+v", got)
	}
	missing, err := ReadCache(filepath.Join(t.TempDir(), "none.json"))
	if err != nil || len(missing) != 0 {
		t.Errorf("missing cache = %v, %v", missing, err)
	}
}

func TestRetrofit_KeepsTimestampsAsWritten(t *testing.T) {
	_, store := testutil.TestPosts(t)
	if err := store.Write("Legacy.md", []byte("---\ntitle: Legacy\ndate: 2020-01-02 03:04:05\n---\n\nbody")); err != nil {
		t.Fatal(err)
	}
	n, err := Retrofit(store, map[string][]string{"Legacy": {"A"}}, testutil.Logger())
	if err != nil || n != 1 {
		t.Fatalf("Retrofit = %d, %v", n, err)
	}
	data, _ := store.Read("Legacy.md")
	if !strings.Contains(string(data), "date: 2020-01-02 03:04:05\n") {
		t.Errorf("date rewritten:\n%s", data)
	}
	if !strings.Contains(string(data), "tags:\n  - A\n") {
		t.Errorf("tags missing:\n%s", data)
	}
}
