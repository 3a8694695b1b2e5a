// Package adapter turns fetched documents into post text for a target format.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/parser"
)

// Adapter names.
const (
	NameMarkdown = "markdown"
	NameHexo     = "hexo"
)

// DateLayout is the front-matter date format.
const DateLayout = "2006-01-02 15:04:05 -0700"

// ErrUnknownAdapter is returned by New for names outside the built-in set.
var ErrUnknownAdapter = errors.New("adapter: unknown adapter")

// Adapter renders a document as post text.
type Adapter interface {
	Name() string
	Render(doc *models.Document) (string, error)
}

// New returns the built-in adapter registered under name.
func New(name string) (Adapter, error) {
	switch name {
	case NameMarkdown:
		return Markdown{}, nil
	case NameHexo:
		return Hexo{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownAdapter, name, NameMarkdown, NameHexo)
	}
}

// Markdown emits the cleaned body without front matter.
type Markdown struct{}

// Name implements Adapter.
func (Markdown) Name() string { return NameMarkdown }

// Render implements Adapter.
func (Markdown) Render(doc *models.Document) (string, error) {
	return cleanup(unescape(doc.Body)), nil
}

// reserved keys are always written by Hexo.Render.
var reserved = []string{"title", "urlname", "date", "tags", "categories"}

// Hexo emits a Hexo post: YAML front matter followed by the cleaned body.
type Hexo struct{}

// Name implements Adapter.
func (Hexo) Name() string { return NameHexo }

// Render implements Adapter.
func (Hexo) Render(doc *models.Document) (string, error) {
	body := unescape(doc.Body)
	body = normalizeMetaBreaks(body)
	body = callouts(body)

	block, content, _ := splitMetadata(body)
	meta := parser.ParseMetadata(block)
	raw := cleanup(content)

	date, err := postDate(meta, doc.CreatedAt)
	if err != nil {
		return "", err
	}

	fm := make(map[string]any, len(meta)+len(reserved))
	for k, v := range meta {
		fm[k] = v
	}
	fm["title"] = strings.ReplaceAll(doc.Title, `"`, "")
	fm["urlname"] = doc.Slug
	fm["date"] = date
	fm["tags"] = postTags(doc, meta)
	fm["categories"] = parser.StringList(meta["categories"])

	y, err := parser.Marshal(fm, parser.EmitOptions{NoAliases: true})
	if err != nil {
		return "", err
	}
	return "---\n" + y + "---\n\n" + raw, nil
}

// postTags applies tag precedence: API tags, then metadata tags, then the
// hierarchy path, then nothing.
func postTags(doc *models.Document, meta map[string]any) []string {
	if len(doc.SourceTags) > 0 {
		return append([]string{}, doc.SourceTags...)
	}
	if tags := parser.StringList(meta["tags"]); len(tags) > 0 {
		return tags
	}
	if len(doc.PathTags) > 0 {
		return append([]string{}, doc.PathTags...)
	}
	return []string{}
}

func postDate(meta map[string]any, createdAt string) (any, error) {
	if d, ok := meta["date"]; ok && d != nil && fmt.Sprint(d) != "" {
		return d, nil
	}
	return FormatDate(createdAt)
}

// localLayouts are ISO-8601 forms without a zone; they are read in local time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// FormatDate renders an ISO-8601 timestamp in DateLayout, keeping its offset.
// Timestamps without an offset are taken as local time.
func FormatDate(ts string) (string, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		for _, layout := range localLayouts {
			if lt, lerr := time.ParseInLocation(layout, ts, time.Local); lerr == nil {
				return lt.Format(DateLayout), nil
			}
		}
		return "", fmt.Errorf("adapter: parse created_at %q: %w", ts, err)
	}
	return t.Format(DateLayout), nil
}

// Localizer rewrites remote image references in a raw body.
type Localizer interface {
	Localize(ctx context.Context, body string) string
}

// Pipeline runs the optional image localizer before the adapter.
type Pipeline struct {
	Adapter   Adapter
	Localizer Localizer
}

// Transform renders doc, localizing images in its raw body first when a
// localizer is configured. doc is not modified.
func (p *Pipeline) Transform(ctx context.Context, doc *models.Document) (string, error) {
	d := *doc
	if p.Localizer != nil {
		d.Body = p.Localizer.Localize(ctx, d.Body)
	}
	return p.Adapter.Render(&d)
}
