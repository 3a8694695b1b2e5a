package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PostRow is one row of the posts table.
type PostRow struct {
	Path     string
	DocID    string
	Title    string
	Checksum string
	Tags     []string
	SyncedAt time.Time
}

// UpsertPost inserts or replaces the manifest entry for a post file.
func (db *DB) UpsertPost(p PostRow) error {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("index: encode tags: %w", err)
	}
	if p.SyncedAt.IsZero() {
		p.SyncedAt = time.Now()
	}
	_, err = db.conn.Exec(`
		INSERT INTO posts (path, doc_id, title, checksum, tags, synced_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			doc_id    = excluded.doc_id,
			title     = excluded.title,
			checksum  = excluded.checksum,
			tags      = excluded.tags,
			synced_at = excluded.synced_at
	`, p.Path, p.DocID, p.Title, p.Checksum, string(tagsJSON), p.SyncedAt.UTC())
	if err != nil {
		return fmt.Errorf("index: upsert post: %w", err)
	}
	return nil
}

// DeletePost removes a manifest entry.
func (db *DB) DeletePost(path string) error {
	if _, err := db.conn.Exec(`DELETE FROM posts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete post: %w", err)
	}
	return nil
}

// GetChecksum returns the stored checksum for a post, or "" when unknown.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM posts WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: get checksum: %w", err)
	}
	return cs, nil
}

// ListPosts returns every manifest entry ordered by path.
func (db *DB) ListPosts() ([]PostRow, error) {
	rows, err := db.conn.Query(`SELECT path, doc_id, title, checksum, tags, synced_at FROM posts ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("index: list posts: %w", err)
	}
	defer rows.Close()

	var out []PostRow
	for rows.Next() {
		var (
			p        PostRow
			tagsJSON string
		)
		if err := rows.Scan(&p.Path, &p.DocID, &p.Title, &p.Checksum, &tagsJSON, &p.SyncedAt); err != nil {
			return nil, fmt.Errorf("index: scan post: %w", err)
		}
		_ = json.Unmarshal([]byte(tagsJSON), &p.Tags)
		out = append(out, p)
	}
	return out, rows.Err()
}
