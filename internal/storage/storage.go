package storage

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"sheetfx/internal/formula"
	"sheetfx/internal/grid"
)

// SaveCSV writes grid to CSV file
func SaveCSV(g map[[2]int]grid.Cell, filename string) error {
	maxR, maxC := -1, -1
	for k := range g {
		if k[0] > maxR {
			maxR = k[0]
		}
		if k[1] > maxC {
			maxC = k[1]
		}
	}
	if maxR < 0 || maxC < 0 {
		f, err := os.Create(filename)
		if err != nil {
			return err
		}
		f.Close()
		return nil
	}
	out := make([][]string, maxR+1)
	for r := 0; r <= maxR; r++ {
		row := make([]string, maxC+1)
		for c := 0; c <= maxC; c++ {
			if cell, ok := g[[2]int{r, c}]; ok {
				row[c] = cell.Text
			} else {
				row[c] = ""
			}
		}
		out[r] = row
	}
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.WriteAll(out); err != nil {
		return fmt.Errorf("error writing CSV: %w", err)
	}
	w.Flush()
	return nil
}

// LoadCSV loads CSV into grid (overwrites). Returns grid map, max row index, max col index, error.
func LoadCSV(filename string) (map[[2]int]grid.Cell, int, int, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, -1, -1, err
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	records, err := r.ReadAll()
	if err != nil {
		return nil, -1, -1, err
	}
	g := map[[2]int]grid.Cell{}
	for rIdx, row := range records {
		for cIdx, val := range row {
			if val != "" {
				g[[2]int{rIdx, cIdx}] = grid.Cell{Text: val}
			}
		}
	}
	maxR, maxC := -1, -1
	for k := range g {
		if k[0] > maxR {
			maxR = k[0]
		}
		if k[1] > maxC {
			maxC = k[1]
		}
	}
	return g, maxR, maxC, nil
}

// document is the on-disk shape of the native ":w"/"o" format: JSON,
// cells keyed by their A1 name so the file stays readable and diffable.
type document struct {
	Cells      map[string]string `json:"cells"`
	ColWidths  []int             `json:"colWidths"`
	RowHeights []int             `json:"rowHeights"`
}

// SaveDocument writes the grid, column widths and row heights to the
// native JSON format.
func SaveDocument(g map[[2]int]grid.Cell, colWidths, rowHeights []int, filename string) error {
	doc := document{
		Cells:      make(map[string]string, len(g)),
		ColWidths:  colWidths,
		RowHeights: rowHeights,
	}
	for k, cell := range g {
		if cell.Text == "" {
			continue
		}
		doc.Cells[grid.ColRowToName(k[1], k[0])] = cell.Text
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding document: %w", err)
	}
	return os.WriteFile(filename, data, 0o644)
}

// LoadDocument reads a file written by SaveDocument.
func LoadDocument(filename string) (map[[2]int]grid.Cell, []int, []int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, nil, err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, nil, nil, fmt.Errorf("error decoding document: %w", err)
	}
	g := make(map[[2]int]grid.Cell, len(doc.Cells))
	for name, text := range doc.Cells {
		row, col, ok := grid.ParseCellRef(name)
		if !ok {
			continue
		}
		g[[2]int{row, col}] = grid.Cell{Text: text}
	}
	return g, doc.ColWidths, doc.RowHeights, nil
}

// memTable is a rows-of-strings formula.Table backing DATA()/GETDATAVAL().
type memTable struct {
	rows [][]string
	cols int
}

func (t *memTable) Rows() int { return len(t.rows) }
func (t *memTable) Cols() int { return t.cols }
func (t *memTable) At(r, c int) string {
	if r < 0 || r >= len(t.rows) {
		return ""
	}
	row := t.rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return row[c]
}

// FSTableLoader resolves DATA(name) against files under Dir, trying
// name, name+".csv" and name+".txt" in turn. CSV is tried first;
// whitespace-columnar is the fallback for plain data dumps. Either way,
// content that isn't valid UTF-8 is assumed to be a legacy single-byte
// encoding and decoded via charmap before parsing, the same way the
// binary .xls reader in the example pack recovers legacy cell text.
type FSTableLoader struct {
	Dir string
}

func (l *FSTableLoader) Load(name string) (formula.Table, error) {
	path, raw, err := l.readTableFile(name)
	if err != nil {
		return nil, err
	}
	text := decodeLegacy(raw)
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return parseCSVTable(text)
	}
	if t, err := parseCSVTable(text); err == nil && t.cols > 1 {
		return t, nil
	}
	return parseColumnarTable(text), nil
}

func (l *FSTableLoader) readTableFile(name string) (string, []byte, error) {
	candidates := []string{name, name + ".csv", name + ".txt"}
	for _, c := range candidates {
		path := filepath.Join(l.Dir, c)
		if data, err := os.ReadFile(path); err == nil {
			return path, data, nil
		}
	}
	return "", nil, fmt.Errorf("table %q not found under %s", name, l.Dir)
}

func decodeLegacy(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

func parseCSVTable(text string) (*memTable, error) {
	r := csv.NewReader(strings.NewReader(text))
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	cols := 0
	for _, row := range records {
		if len(row) > cols {
			cols = len(row)
		}
	}
	return &memTable{rows: records, cols: cols}, nil
}

func parseColumnarTable(text string) *memTable {
	var rows [][]string
	cols := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > cols {
			cols = len(fields)
		}
		rows = append(rows, fields)
	}
	return &memTable{rows: rows, cols: cols}
}
