// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/yuhex/internal/adapter"
	"github.com/starford/yuhex/internal/export"
	"github.com/starford/yuhex/internal/imagelocal"
	"github.com/starford/yuhex/internal/index"
	"github.com/starford/yuhex/internal/storage"
	"github.com/starford/yuhex/internal/syncer"
	"github.com/starford/yuhex/internal/yuque"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{now: time.Now}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

func newLogger(cfg ApplicationConfig) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(os.Stdout, hopts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, hopts))
}

// RunSync mirrors the configured knowledge base into the post directory,
// then writes the cache, the optional TOC export and the last-run marker.
func RunSync(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("namespace", cfg.Yuque.Login+"/"+cfg.Yuque.Repo),
		slog.String("post_path", cfg.PostPath),
		slog.String("adapter", cfg.Adapter),
		slog.String("md_name_format", cfg.MdNameFormat),
		slog.Int("concurrency", cfg.Concurrency),
		slog.Bool("localize_images", cfg.Image.LocalizeEnabled()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if cfg.Image.CDN.Enabled {
		logger.Warn("image CDN upload is not supported, images stay remote",
			slog.String("image_bed", cfg.Image.CDN.ImageBed),
			slog.Int("concurrency", cfg.Image.CDN.Concurrency))
	}

	a, err := adapter.New(cfg.Adapter)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.PostPath)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if cfg.LastGeneratePath == "" {
		logger.Info("clear previous directory", slog.String("path", store.Root()))
		if err := store.Purge(); err != nil {
			return fmt.Errorf("clear post dir: %w", err)
		}
	}

	syncOpts := []syncer.Option{
		syncer.WithNameFormat(cfg.MdNameFormat),
		syncer.WithOnlyPublished(cfg.OnlyPublished),
		syncer.WithClock(app.now),
		syncer.WithLogger(logger),
	}
	if cfg.Index.Path != "" {
		db, err := index.Open(cfg.Index.Path)
		if err != nil {
			return fmt.Errorf("init index: %w", err)
		}
		defer db.Close()
		syncOpts = append(syncOpts, syncer.WithManifest(db))
	}

	source := app.source
	if source == nil {
		source = yuque.NewClient(yuque.Options{
			BaseURL:   cfg.Yuque.BaseURL,
			Token:     cfg.Yuque.Token,
			Login:     cfg.Yuque.Login,
			Repo:      cfg.Yuque.Repo,
			Timeout:   cfg.Yuque.Timeout,
			RateLimit: cfg.Yuque.RateLimit,
		}, yuque.WithLogger(logger))
	}

	pipeline := &adapter.Pipeline{Adapter: a}
	if cfg.Image.LocalizeEnabled() {
		pipeline.Localizer = &imagelocal.Localizer{
			Dir:        cfg.Image.Path,
			LinkPrefix: cfg.Image.LinkPrefix,
			Fetcher:    imagelocal.NewHTTPFetcher(cfg.Yuque.Timeout),
			Now:        app.now,
			Logger:     logger,
		}
	}

	s := syncer.New(source, store, pipeline, syncOpts...)

	var res *syncer.Result
	g, gCtx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(gCtx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		var err error
		res, err = s.Run(runCtx)
		return err
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal, stopping sync", slog.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if err := syncer.WriteCache(cfg.CachePath, res.Posts); err != nil {
		return err
	}
	logger.Info("cache written", slog.String("path", cfg.CachePath), slog.Int("posts", len(res.Posts)))

	if cfg.Export.Enabled {
		path := cfg.Export.Path
		if path == "" {
			path = export.DefaultPath(app.now())
		}
		if err := export.WriteXLSX(path, export.Rows(res.Tree, res.Resolver)); err != nil {
			return err
		}
		logger.Info("TOC exported", slog.String("path", path))
	}

	if cfg.LastGeneratePath != "" {
		stamp := app.now().Format(time.RFC3339)
		if err := os.WriteFile(cfg.LastGeneratePath, []byte(stamp+"\n"), 0o644); err != nil {
			return fmt.Errorf("write last generate marker: %w", err)
		}
	}

	logger.Info("yuque sync done")
	return nil
}

// RunClean removes everything a sync run produced.
func RunClean(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	posts, err := syncer.ReadCache(cfg.CachePath)
	if err != nil {
		logger.Warn("cache unreadable, removing directories only", slog.String("error", err.Error()))
	}
	if len(posts) > 0 {
		if store, err := storage.Open(cfg.PostPath); err == nil {
			for _, p := range posts {
				if err := store.Delete(p.File); err != nil {
					logger.Warn("remove post failed", slog.String("file", p.File), slog.String("error", err.Error()))
				}
			}
		}
	}

	logger.Info("remove yuque posts", slog.String("path", cfg.PostPath))
	if err := os.RemoveAll(cfg.PostPath); err != nil {
		return fmt.Errorf("remove post dir: %w", err)
	}
	logger.Info("remove yuque images", slog.String("path", cfg.Image.Path))
	if err := os.RemoveAll(cfg.Image.Path); err != nil {
		return fmt.Errorf("remove image dir: %w", err)
	}

	files := []string{cfg.CachePath, cfg.LastGeneratePath}
	if cfg.Index.Path != "" {
		files = append(files, cfg.Index.Path, cfg.Index.Path+"-wal", cfg.Index.Path+"-shm")
	}
	for _, f := range files {
		if f == "" {
			continue
		}
		if err := os.Remove(f); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("remove file failed", slog.String("path", f), slog.String("error", err.Error()))
			}
			continue
		}
		logger.Info("removed", slog.String("path", f))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Info("yuque clean done")
	return nil
}
