// Package export writes a TOC snapshot to a spreadsheet.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/starford/yuhex/internal/toc"
)

// SheetName is the name of the only worksheet written.
const SheetName = "TOC"

var (
	headers = []string{"Level", "Kind", "Title", "Document ID", "Path"}
	widths  = []float64{10, 15, 40, 15, 50}
)

// Row is one exported TOC node.
type Row struct {
	Level      int
	Kind       string
	Title      string
	DocumentID string
	Path       string
}

// DefaultPath returns the file name used when no export path is configured.
func DefaultPath(now time.Time) string {
	return "yuque_toc_" + now.Format("20060102_150405") + ".xlsx"
}

// Rows lists every node: reachable ones in pre-order, then nodes whose
// parent is missing from the snapshot. Level is the depth (roots are 0) and
// Path joins the resolved ancestor path with the node's title.
func Rows(tree *toc.Tree, resolver *toc.Resolver) []Row {
	var rows []Row
	seen := make(map[string]bool, tree.Len())
	tree.Walk(func(n *toc.Node, depth int) bool {
		seen[n.ID] = true
		rows = append(rows, row(n, depth, resolver))
		return true
	})
	for _, n := range tree.AllNodes() {
		if seen[n.ID] {
			continue
		}
		rows = append(rows, row(n, resolvedDepth(tree, n.ID), resolver))
	}
	return rows
}

func row(n *toc.Node, depth int, resolver *toc.Resolver) Row {
	path := append(resolver.NodePath(n.ID), n.Title)
	return Row{
		Level:      depth,
		Kind:       string(n.Kind),
		Title:      n.Title,
		DocumentID: n.DocumentID,
		Path:       strings.Join(path, "/"),
	}
}

// resolvedDepth counts the ancestors that exist in the snapshot.
func resolvedDepth(tree *toc.Tree, id string) int {
	depth := 0
	for _, err := range tree.AncestorsOf(id) {
		if err != nil {
			break
		}
		depth++
	}
	return depth
}

// WriteXLSX writes rows to path as a single-sheet workbook.
func WriteXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("export: rename sheet: %w", err)
	}
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("export: column name: %w", err)
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return fmt.Errorf("export: column width: %w", err)
		}
	}
	if err := f.SetSheetRow(SheetName, "A1", &headers); err != nil {
		return fmt.Errorf("export: header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("export: cell name: %w", err)
		}
		values := []any{r.Level, r.Kind, r.Title, r.DocumentID, r.Path}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("export: row %d: %w", i+1, err)
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}
