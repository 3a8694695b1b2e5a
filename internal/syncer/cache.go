package syncer

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/yuhex/internal/models"
)

// WriteCache stores the posts of the latest run as indented JSON.
func WriteCache(path string, posts []models.CachedPost) error {
	if posts == nil {
		posts = []models.CachedPost{}
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("syncer: encode cache: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("syncer: cache dir: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("syncer: write cache: %w", err)
	}
	return nil
}

// ReadCache loads a cache written by WriteCache. A missing file yields an
// empty list.
func ReadCache(path string) ([]models.CachedPost, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("syncer: read cache: %w", err)
	}
	var posts []models.CachedPost
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("syncer: decode cache: %w", err)
	}
	return posts, nil
}
