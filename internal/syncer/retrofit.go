package syncer

import (
	"fmt"
	"log/slog"

	"github.com/starford/yuhex/internal/parser"
	"github.com/starford/yuhex/internal/storage"
)

// Retrofit rewrites tags and categories of every post whose front-matter
// title appears in paths. Posts without front matter, with unknown titles or
// with unreadable YAML are left untouched. It returns the number of posts
// rewritten.
func Retrofit(store storage.Provider, paths map[string][]string, logger *slog.Logger) (int, error) {
	metas, err := store.List("")
	if err != nil {
		return 0, fmt.Errorf("syncer: retrofit: %w", err)
	}

	updated := 0
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return updated, fmt.Errorf("syncer: retrofit: %w", err)
		}
		res, ok, err := parser.Split(data)
		if err != nil {
			logger.Warn("retrofit: unreadable front matter, skipping",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if !ok {
			continue
		}
		title, _ := res.Frontmatter["title"].(string)
		path, found := paths[title]
		if !found {
			continue
		}

		res.Frontmatter["tags"] = append([]string{}, path...)
		res.Frontmatter["categories"] = append([]string{}, path...)
		text, err := parser.Compose(res.Frontmatter, res.Rest)
		if err != nil {
			logger.Warn("retrofit: encode failed, skipping",
				slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if text == string(data) {
			continue
		}
		if err := store.Write(m.Path, []byte(text)); err != nil {
			return updated, fmt.Errorf("syncer: retrofit: %w", err)
		}
		updated++
		logger.Debug("retrofit: updated tags",
			slog.String("path", m.Path),
			slog.String("title", title),
			slog.Any("tags", path))
	}
	return updated, nil
}
