// Package imagelocal downloads remote images referenced by a document body
// into a local directory and rewrites the references.
package imagelocal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DefaultExt is used when the content type is missing or not allowed.
const DefaultExt = "png"

var (
	imageRe = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]+)\)`)

	allowedExts = map[string]bool{
		"jpeg": true, "jpg": true, "png": true, "gif": true, "webp": true,
	}
)

// Localizer rewrites markdown image references to local copies.
type Localizer struct {
	Dir        string // target image directory
	LinkPrefix string // prefix used in rewritten links, e.g. "./images"
	Fetcher    Fetcher
	Now        func() time.Time
	Logger     *slog.Logger
}

// Localize downloads every remote image in body, one at a time in document
// order, and returns the rewritten body. Failures leave the original
// reference in place.
func (l *Localizer) Localize(ctx context.Context, body string) string {
	logger := l.logger()
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		logger.Warn("image: create dir failed", slog.String("dir", l.Dir), slog.String("error", err.Error()))
		return body
	}
	return imageRe.ReplaceAllStringFunc(body, func(match string) string {
		m := imageRe.FindStringSubmatch(match)
		alt, url := m[1], strings.TrimSpace(m[2])
		if !isRemote(url) {
			return match
		}
		name, err := l.download(ctx, url)
		if err != nil {
			logger.Warn("image: keeping remote reference",
				slog.String("url", url),
				slog.String("error", err.Error()))
			return match
		}
		logger.Info("image: saved", slog.String("url", url), slog.String("file", name))
		return fmt.Sprintf("![%s](%s/%s)", alt, strings.TrimRight(l.linkPrefix(), "/"), name)
	})
}

func (l *Localizer) download(ctx context.Context, url string) (string, error) {
	data, contentType, err := l.Fetcher.Fetch(ctx, url)
	if err != nil {
		return "", err
	}
	name, err := l.nextName(ExtFromContentType(contentType))
	if err != nil {
		return "", err
	}
	// Never overwrite an existing image.
	f, err := os.OpenFile(filepath.Join(l.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close image file: %w", err)
	}
	return name, nil
}

// nextName probes YYYYMMDD_1.ext, YYYYMMDD_2.ext, ... and returns the first
// name that does not exist in the image directory.
func (l *Localizer) nextName(ext string) (string, error) {
	date := l.now().Format("20060102")
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%d.%s", date, n, ext)
		_, err := os.Stat(filepath.Join(l.Dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("stat image file: %w", err)
		}
	}
}

// ExtFromContentType maps a declared content type to a file extension.
func ExtFromContentType(ct string) string {
	mime := strings.TrimSpace(strings.Split(ct, ";")[0])
	if mime == "" {
		return DefaultExt
	}
	sub := strings.ToLower(mime[strings.LastIndex(mime, "/")+1:])
	if !allowedExts[sub] {
		return DefaultExt
	}
	return sub
}

func isRemote(url string) bool {
	lower := strings.ToLower(url)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (l *Localizer) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

func (l *Localizer) linkPrefix() string {
	if l.LinkPrefix == "" {
		return "./images"
	}
	return l.LinkPrefix
}

func (l *Localizer) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
