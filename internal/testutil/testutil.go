// Package testutil provides shared test helpers for post directories,
// manifests and an in-memory TOC source.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/yuhex/internal/index"
	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/storage"
	"github.com/starford/yuhex/internal/toc"
)

// TestManifest creates a temporary SQLite manifest that is closed on cleanup.
func TestManifest(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "manifest.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestPosts creates a temporary post directory.
func TestPosts(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "_posts")
	store, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	return store.Root(), store
}

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Source is an in-memory syncer source.
type Source struct {
	Items   []toc.Item
	Docs    map[string]*models.Document
	TocErr  error
	DocErrs map[string]error
	Fetched []string
}

// FetchHierarchy returns Items or TocErr.
func (s *Source) FetchHierarchy(context.Context) ([]toc.Item, error) {
	if s.TocErr != nil {
		return nil, s.TocErr
	}
	return s.Items, nil
}

// FetchDocument returns a copy of the stored document.
func (s *Source) FetchDocument(_ context.Context, docID string) (*models.Document, error) {
	s.Fetched = append(s.Fetched, docID)
	if err := s.DocErrs[docID]; err != nil {
		return nil, err
	}
	d, ok := s.Docs[docID]
	if !ok {
		return nil, fmt.Errorf("doc %s not found", docID)
	}
	cp := *d
	cp.SourceTags = append([]string(nil), d.SourceTags...)
	return &cp, nil
}
