package toc

import (
	"errors"
	"log/slog"
)

// RootLabel is the placeholder title Yuque uses for the top-level folder.
// An ancestor carrying it is dropped and ends the walk.
const RootLabel = "根目录"

// Resolver derives tag paths from a Tree. It is the single source of
// hierarchy tags for traversal, retrofit and export.
type Resolver struct {
	tree   *Tree
	byDoc  map[string]*Node
	logger *slog.Logger
}

// NewResolver indexes the document nodes of tree once.
func NewResolver(tree *Tree, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		tree:   tree,
		byDoc:  make(map[string]*Node),
		logger: logger,
	}
	for _, n := range tree.AllNodes() {
		if n.DocumentID == "" {
			continue
		}
		if _, dup := r.byDoc[n.DocumentID]; !dup {
			r.byDoc[n.DocumentID] = n
		}
	}
	return r
}

// DocumentTags returns the ancestor path of the node referencing documentID.
// An unknown document yields an empty, non-nil slice.
func (r *Resolver) DocumentTags(documentID string) []string {
	n, ok := r.byDoc[documentID]
	if !ok {
		r.logger.Warn("toc: document node not found", slog.String("doc_id", documentID))
		return []string{}
	}
	return r.NodePath(n.ID)
}

// NodePath returns the ancestor titles of node id in root-to-leaf order,
// excluding the node's own title.
func (r *Resolver) NodePath(id string) []string {
	path := []string{}
	for parent, err := range r.tree.AncestorsOf(id) {
		if err != nil {
			if errors.Is(err, ErrDanglingParent) {
				n, _ := r.tree.Lookup(id)
				r.logger.Warn("toc: parent node not found, returning partial path",
					slog.String("node", id),
					slog.String("title", n.Title),
					slog.Any("partial", path))
			}
			break
		}
		if parent.Title == RootLabel {
			break
		}
		path = append([]string{parent.Title}, path...)
	}
	return path
}

// TitlePaths maps the title of every document node to its ancestor path.
// On duplicate titles the first node in pre-order wins.
func (r *Resolver) TitlePaths() map[string][]string {
	out := make(map[string][]string)
	for _, n := range r.tree.AllNodes() {
		if n.Kind != KindDoc {
			continue
		}
		if _, dup := out[n.Title]; dup {
			continue
		}
		out[n.Title] = r.NodePath(n.ID)
	}
	return out
}
