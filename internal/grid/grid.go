// Package grid holds the UI-facing cell type for the terminal editor.
// Address notation itself (column letters, A1 parsing) is owned by
// formula.CellAddr now that cell references are a formula concept;
// this package only forwards to it so callers keep a grid-flavored
// name for the operation.
package grid

import "sheetfx/internal/formula"

// Cell represents a single cell's content.
type Cell struct {
	Text string
}

// ColToName renders a 0-based column index in spreadsheet letters:
// 0 -> "A", 25 -> "Z", 26 -> "AA".
func ColToName(col int) string {
	return formula.ColName(col)
}

// ColRowToName builds an A1-style cell name from a 0-based (col, row)
// pair, e.g. col 0, row 0 -> "A1".
func ColRowToName(col, row int) string {
	return formula.CellAddr{Row: row, Col: col}.Name()
}

// ParseCellRef parses names like "A1" or "AA10" into 0-based
// (row, col). Accepts sheet prefixes like "Sheet1!A1" and "$" markers.
func ParseCellRef(name string) (int, int, bool) {
	addr, ok := formula.ParseCellAddr(name)
	if !ok {
		return 0, 0, false
	}
	return addr.Row, addr.Col, true
}
