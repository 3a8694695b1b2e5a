// Package toc models a knowledge-base table of contents and resolves
// hierarchy-derived tag paths for its documents.
package toc

import (
	"errors"
	"iter"
)

// Kind is the type of a TOC node.
type Kind string

// Node kinds as reported by the remote TOC.
const (
	KindDoc   Kind = "DOC"
	KindGroup Kind = "TITLE"
	KindLink  Kind = "LINK"
)

// RootParent is the parent sentinel used by top-level nodes.
const RootParent = "root"

// ErrDanglingParent is yielded when a parent id does not resolve to a node.
var ErrDanglingParent = errors.New("toc: parent node not found")

// Item is one entry of a hierarchy snapshot as returned by the remote API.
// Children may be nested; flat listings rely on ParentUUID instead.
type Item struct {
	UUID       string `json:"uuid"`
	Type       Kind   `json:"type"`
	Title      string `json:"title"`
	ParentUUID string `json:"parent_uuid"`
	DocID      string `json:"doc_id"`
	Children   []Item `json:"children,omitempty"`
}

// Node is a flattened TOC entry.
type Node struct {
	ID         string
	Kind       Kind
	Title      string
	ParentID   string
	DocumentID string
	Children   []string
}

// IsRoot reports whether the node sits directly under the TOC root.
func (n *Node) IsRoot() bool {
	return isRootID(n.ParentID)
}

func isRootID(id string) bool {
	return id == "" || id == RootParent
}

// Tree is an id-indexed TOC snapshot.
type Tree struct {
	nodes map[string]*Node
	order []string // insertion order, pre-order of the source listing
	roots []string
}

// Build flattens a (possibly nested) snapshot into a Tree, keeping parent
// linkage and source child order. The first occurrence of a duplicate id wins.
func Build(items []Item) *Tree {
	t := &Tree{nodes: make(map[string]*Node)}
	t.add(items, "")
	// Link nodes whose parent was declared by id rather than by nesting.
	for _, id := range t.order {
		n := t.nodes[id]
		if n.IsRoot() {
			t.roots = append(t.roots, id)
			continue
		}
		if p, ok := t.nodes[n.ParentID]; ok && !p.hasChild(id) {
			p.Children = append(p.Children, id)
		}
	}
	return t
}

func (t *Tree) add(items []Item, nestedParent string) {
	for _, it := range items {
		if it.UUID == "" {
			continue
		}
		if _, dup := t.nodes[it.UUID]; dup {
			continue
		}
		parent := it.ParentUUID
		if parent == "" {
			parent = nestedParent
		}
		t.nodes[it.UUID] = &Node{
			ID:         it.UUID,
			Kind:       it.Type,
			Title:      it.Title,
			ParentID:   parent,
			DocumentID: it.DocID,
		}
		t.order = append(t.order, it.UUID)
		t.add(it.Children, it.UUID)
	}
}

func (n *Node) hasChild(id string) bool {
	for _, c := range n.Children {
		if c == id {
			return true
		}
	}
	return false
}

// Lookup returns the node with the given id.
func (t *Tree) Lookup(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int { return len(t.nodes) }

// Roots returns the top-level nodes in source order.
func (t *Tree) Roots() []*Node {
	out := make([]*Node, 0, len(t.roots))
	for _, id := range t.roots {
		out = append(out, t.nodes[id])
	}
	return out
}

// AllNodes returns every node in pre-order. Nodes whose parent is missing
// from the snapshot are appended after the reachable ones.
func (t *Tree) AllNodes() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	seen := make(map[string]bool, len(t.nodes))
	t.Walk(func(n *Node, _ int) bool {
		seen[n.ID] = true
		out = append(out, n)
		return true
	})
	for _, id := range t.order {
		if !seen[id] {
			out = append(out, t.nodes[id])
		}
	}
	return out
}

// Walk visits the reachable nodes depth-first in pre-order with their depth
// (roots are 0). Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) bool) {
	visited := make(map[string]bool, len(t.nodes))
	var visit func(ids []string, depth int) bool
	visit = func(ids []string, depth int) bool {
		for _, id := range ids {
			n, ok := t.nodes[id]
			if !ok || visited[id] {
				continue
			}
			visited[id] = true
			if !fn(n, depth) {
				return false
			}
			if !visit(n.Children, depth+1) {
				return false
			}
		}
		return true
	}
	visit(t.roots, 0)
}

// AncestorsOf lazily walks parent links upward from id, nearest parent
// first. The walk ends at the root sentinel; an unresolved parent yields
// ErrDanglingParent once and ends it. Cycles end the walk silently.
func (t *Tree) AncestorsOf(id string) iter.Seq2[*Node, error] {
	return func(yield func(*Node, error) bool) {
		cur, ok := t.nodes[id]
		if !ok {
			return
		}
		seen := map[string]bool{id: true}
		for !isRootID(cur.ParentID) {
			parent, ok := t.nodes[cur.ParentID]
			if !ok {
				yield(nil, ErrDanglingParent)
				return
			}
			if seen[parent.ID] {
				return
			}
			seen[parent.ID] = true
			if !yield(parent, nil) {
				return
			}
			cur = parent
		}
	}
}
