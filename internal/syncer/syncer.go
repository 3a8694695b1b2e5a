// Package syncer mirrors a remote TOC into a directory of posts.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/yuhex/internal/adapter"
	"github.com/starford/yuhex/internal/checksum"
	"github.com/starford/yuhex/internal/index"
	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/storage"
	"github.com/starford/yuhex/internal/toc"
)

// Source is the remote collaborator providing the TOC and documents.
type Source interface {
	FetchHierarchy(ctx context.Context) ([]toc.Item, error)
	FetchDocument(ctx context.Context, docID string) (*models.Document, error)
}

// Stats holds sync statistics.
type Stats struct {
	Documents   int
	Written     int
	New         int
	Updated     int
	Unchanged   int
	Skipped     int
	Failed      int
	Retrofitted int
	Pruned      int
	Duration    time.Duration
}

// Result is what a sync run produced. It replaces any process-wide list of
// processed documents; export and cache steps consume it directly.
type Result struct {
	Tree     *toc.Tree
	Resolver *toc.Resolver
	Posts    []models.CachedPost
	Stats    Stats
}

// Syncer handles one TOC-to-posts sync.
type Syncer struct {
	source        Source
	store         storage.Provider
	pipeline      *adapter.Pipeline
	manifest      index.Manifest
	nameFormat    string
	onlyPublished bool
	now           func() time.Time
	logger        *slog.Logger
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithManifest records written posts in m and prunes posts of documents
// that disappeared from the TOC.
func WithManifest(m index.Manifest) Option {
	return func(s *Syncer) { s.manifest = m }
}

// WithNameFormat selects the file naming strategy.
func WithNameFormat(format string) Option {
	return func(s *Syncer) { s.nameFormat = format }
}

// WithOnlyPublished skips documents that were never published.
func WithOnlyPublished(only bool) Option {
	return func(s *Syncer) { s.onlyPublished = only }
}

// WithClock overrides the clock used for timestamp file names.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) { s.logger = l }
}

// New creates a Syncer.
func New(source Source, store storage.Provider, pipeline *adapter.Pipeline, opts ...Option) *Syncer {
	s := &Syncer{
		source:     source,
		store:      store,
		pipeline:   pipeline,
		nameFormat: NameByTitle,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run fetches the TOC, writes one post per document in pre-order and then
// retrofits hierarchy tags onto every post in the store.
//
// A failed TOC fetch, a failed write and context cancellation abort the
// run. A document that cannot be fetched or rendered is logged and skipped.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	s.logger.Info("sync: fetching hierarchy")
	items, err := s.source.FetchHierarchy(ctx)
	if err != nil {
		return nil, fmt.Errorf("syncer: fetch hierarchy: %w", err)
	}
	tree := toc.Build(items)
	resolver := toc.NewResolver(tree, s.logger)
	s.logger.Info("sync: hierarchy loaded", slog.Int("nodes", tree.Len()))

	res := &Result{Tree: tree, Resolver: resolver}
	written := make(map[string]string) // file -> doc id
	tocDocs := make(map[string]bool)

	for _, n := range tree.AllNodes() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n.Kind != toc.KindDoc || n.DocumentID == "" {
			continue
		}
		tocDocs[n.DocumentID] = true
		res.Stats.Documents++

		doc, text, err := s.render(ctx, n, resolver)
		if err != nil {
			res.Stats.Failed++
			s.logger.Warn("sync: skipping document",
				slog.String("doc_id", n.DocumentID),
				slog.String("title", n.Title),
				slog.String("error", err.Error()))
			continue
		}
		if doc == nil {
			res.Stats.Skipped++
			continue
		}

		file := FileName(doc, s.nameFormat, s.now()) + PostExt
		if prev, dup := written[file]; dup {
			s.logger.Warn("sync: file name collision, later document wins",
				slog.String("file", file),
				slog.String("previous_doc_id", prev),
				slog.String("doc_id", doc.ID))
		}
		if err := s.write(file, doc, text, &res.Stats); err != nil {
			return nil, err
		}
		written[file] = doc.ID

		res.Posts = append(res.Posts, models.CachedPost{
			DocumentID:  doc.ID,
			Title:       doc.Title,
			Slug:        doc.Slug,
			CreatedAt:   doc.CreatedAt,
			UpdatedAt:   doc.UpdatedAt,
			PublishedAt: doc.PublishedAt,
			Path:        strings.Join(doc.PathTags, "/"),
			Tags:        doc.PathTags,
			File:        file,
		})
		s.logger.Info("sync: generated post", slog.String("file", file), slog.String("title", doc.Title))
	}

	retro, err := Retrofit(s.store, resolver.TitlePaths(), s.logger)
	if err != nil {
		return nil, err
	}
	res.Stats.Retrofitted = retro

	if s.manifest != nil {
		pruned, err := s.prune(written, tocDocs)
		if err != nil {
			return nil, err
		}
		res.Stats.Pruned = pruned
	}

	res.Stats.Duration = time.Since(start)
	st := res.Stats
	s.logger.Info("sync: complete",
		slog.Int("documents", st.Documents),
		slog.Int("written", st.Written),
		slog.Int("new", st.New),
		slog.Int("updated", st.Updated),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("skipped", st.Skipped),
		slog.Int("failed", st.Failed),
		slog.Int("retrofitted", st.Retrofitted),
		slog.Int("pruned", st.Pruned),
		slog.Duration("duration", st.Duration))
	return res, nil
}

// render fetches and transforms one document. A nil document with a nil
// error means the document was filtered out.
func (s *Syncer) render(ctx context.Context, n *toc.Node, resolver *toc.Resolver) (*models.Document, string, error) {
	doc, err := s.source.FetchDocument(ctx, n.DocumentID)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	if s.onlyPublished && doc.PublishedAt == "" {
		s.logger.Debug("sync: unpublished document filtered", slog.String("doc_id", n.DocumentID))
		return nil, "", nil
	}
	if doc.ID == "" {
		doc.ID = n.DocumentID
	}
	doc.PathTags = resolver.NodePath(n.ID)

	text, err := s.pipeline.Transform(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("transform: %w", err)
	}
	return doc, text, nil
}

func (s *Syncer) write(file string, doc *models.Document, text string, st *Stats) error {
	sum := checksum.String(text)
	if s.manifest != nil {
		prev, err := s.manifest.GetChecksum(file)
		if err != nil {
			return fmt.Errorf("syncer: %w", err)
		}
		exists, err := s.store.Exists(file)
		if err != nil {
			return fmt.Errorf("syncer: %w", err)
		}
		switch {
		case prev == "" || !exists:
			st.New++
		case prev == sum:
			st.Unchanged++
		default:
			st.Updated++
		}
	}

	if err := s.store.Write(file, []byte(text)); err != nil {
		return fmt.Errorf("syncer: write %s: %w", file, err)
	}
	st.Written++

	if s.manifest != nil {
		row := index.PostRow{Path: file, DocID: doc.ID, Title: doc.Title, Checksum: sum, Tags: doc.PathTags}
		if err := s.manifest.UpsertPost(row); err != nil {
			return fmt.Errorf("syncer: %w", err)
		}
	}
	return nil
}

// prune removes posts recorded by earlier runs whose document left the TOC
// or was renamed this run. Documents that failed this run keep their post.
func (s *Syncer) prune(written map[string]string, tocDocs map[string]bool) (int, error) {
	rows, err := s.manifest.ListPosts()
	if err != nil {
		return 0, fmt.Errorf("syncer: %w", err)
	}
	rewritten := make(map[string]bool, len(written))
	for _, id := range written {
		rewritten[id] = true
	}

	pruned := 0
	for _, row := range rows {
		if _, ok := written[row.Path]; ok {
			continue
		}
		if tocDocs[row.DocID] && !rewritten[row.DocID] {
			continue
		}
		if err := s.store.Delete(row.Path); err != nil {
			return pruned, fmt.Errorf("syncer: prune: %w", err)
		}
		if err := s.manifest.DeletePost(row.Path); err != nil {
			return pruned, fmt.Errorf("syncer: prune: %w", err)
		}
		pruned++
		s.logger.Info("sync: pruned stale post", slog.String("file", row.Path), slog.String("doc_id", row.DocID))
	}
	return pruned, nil
}
