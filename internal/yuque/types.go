package yuque

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/starford/yuhex/internal/models"
	"github.com/starford/yuhex/internal/toc"
)

// envelope is the shape of every Yuque v2 response.
type envelope[T any] struct {
	Data T `json:"data"`
}

// ID accepts identifiers sent either as JSON numbers or strings.
// Zero and null decode to the empty string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	if n.String() == "0" {
		*id = ""
		return nil
	}
	*id = ID(n.String())
	return nil
}

// User is the authenticated account.
type User struct {
	ID    ID     `json:"id"`
	Login string `json:"login"`
}

// Repo is a knowledge base (book).
type Repo struct {
	ID        ID     `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Namespace string `json:"namespace"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}

// TocEntry is one TOC node as returned by the API.
type TocEntry struct {
	UUID       string     `json:"uuid"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	ParentUUID string     `json:"parent_uuid"`
	DocID      ID         `json:"doc_id"`
	Children   []TocEntry `json:"children,omitempty"`
}

// Tag is a document tag; the API sends either objects or plain strings.
type Tag string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tag) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Tag(s)
		return nil
	}
	var obj struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*t = Tag(obj.Title)
	if *t == "" {
		*t = Tag(obj.Name)
	}
	return nil
}

// Doc is the full document detail.
type Doc struct {
	ID          ID     `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body"`
	Tags        []Tag  `json:"tags"`
}

func (e TocEntry) item() toc.Item {
	it := toc.Item{
		UUID:       e.UUID,
		Type:       toc.Kind(strings.ToUpper(e.Type)),
		Title:      e.Title,
		ParentUUID: e.ParentUUID,
		DocID:      string(e.DocID),
	}
	for _, c := range e.Children {
		it.Children = append(it.Children, c.item())
	}
	return it
}

func (d Doc) document() *models.Document {
	doc := &models.Document{
		ID:          string(d.ID),
		Title:       d.Title,
		Slug:        d.Slug,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		PublishedAt: d.PublishedAt,
		Body:        d.Body,
	}
	for _, t := range d.Tags {
		if s := strings.TrimSpace(string(t)); s != "" {
			doc.SourceTags = append(doc.SourceTags, s)
		}
	}
	return doc
}
