package syncer

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/yuhex/internal/models"
)

// File naming strategies.
const (
	NameByTitle     = "title"
	NameBySlug      = "slug"
	NameByTimestamp = "timestamp"
)

// PostExt is the extension of every generated post.
const PostExt = ".md"

var unsafeNameChars = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

// FileName returns the post file name (without extension) for doc.
func FileName(doc *models.Document, format string, now time.Time) string {
	slug := orUntitled(doc.Slug)
	var name string
	switch format {
	case NameBySlug:
		name = slug
	case NameByTimestamp:
		name = fmt.Sprintf("%d_%s", now.Unix(), slug)
	default:
		name = strings.TrimSpace(doc.Title)
		if name == "" {
			name = slug
		}
	}
	return unsafeNameChars.Replace(name)
}

func orUntitled(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "untitled"
	}
	return s
}
