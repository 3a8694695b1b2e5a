// Package models defines the domain types shared across the sync pipeline.
package models

import "time"

// Document is the fetched content of a TOC document node.
type Document struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	PublishedAt string `json:"published_at,omitempty"`
	Body        string `json:"body"`
	// SourceTags are tags supplied by the API itself.
	SourceTags []string `json:"source_tags,omitempty"`
	// PathTags are the ancestor titles of the document's TOC node.
	PathTags []string `json:"path_tags,omitempty"`
}

// CachedPost is one entry of the content cache written after a sync run.
type CachedPost struct {
	DocumentID  string   `json:"document_id"`
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	PublishedAt string   `json:"published_at,omitempty"`
	Path        string   `json:"path"`
	Tags        []string `json:"tags"`
	File        string   `json:"file"`
}

// PostMetadata is a lightweight representation returned by list operations.
type PostMetadata struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updated_at"`
}
