package storage

import (
	"os"
	"path/filepath"
	"testing"

	"sheetfx/internal/grid"
)

func TestSaveLoadCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "sheet.csv")

	g := map[[2]int]grid.Cell{
		{0, 0}: {Text: "name"},
		{0, 1}: {Text: "age"},
		{1, 0}: {Text: "alice"},
		{1, 1}: {Text: "30"},
	}
	if err := SaveCSV(g, filename); err != nil {
		t.Fatalf("SaveCSV error: %v", err)
	}

	got, maxR, maxC, err := LoadCSV(filename)
	if err != nil {
		t.Fatalf("LoadCSV error: %v", err)
	}
	if maxR != 1 || maxC != 1 {
		t.Errorf("LoadCSV bounds = (%d,%d), want (1,1)", maxR, maxC)
	}
	if got[[2]int{1, 0}].Text != "alice" {
		t.Errorf("LoadCSV cell [1,0] = %q, want %q", got[[2]int{1, 0}].Text, "alice")
	}
}

func TestSaveLoadDocumentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	filename := filepath.Join(dir, "sheet.sfx")

	g := map[[2]int]grid.Cell{
		{0, 0}: {Text: "=1+2"},
		{2, 3}: {Text: "42"},
	}
	colWidths := []int{16, 16, 16, 16}
	rowHeights := []int{1, 1, 1}

	if err := SaveDocument(g, colWidths, rowHeights, filename); err != nil {
		t.Fatalf("SaveDocument error: %v", err)
	}

	gotGrid, gotCols, gotRows, err := LoadDocument(filename)
	if err != nil {
		t.Fatalf("LoadDocument error: %v", err)
	}
	if gotGrid[[2]int{0, 0}].Text != "=1+2" {
		t.Errorf("cell [0,0] = %q, want %q", gotGrid[[2]int{0, 0}].Text, "=1+2")
	}
	if gotGrid[[2]int{2, 3}].Text != "42" {
		t.Errorf("cell [2,3] = %q, want %q", gotGrid[[2]int{2, 3}].Text, "42")
	}
	if len(gotCols) != len(colWidths) || len(gotRows) != len(rowHeights) {
		t.Errorf("dimensions = (%d,%d), want (%d,%d)", len(gotCols), len(gotRows), len(colWidths), len(rowHeights))
	}
}

func TestFSTableLoaderCSV(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "people.csv"), []byte("alice,engineering\nbob,sales\n"), 0o644); err != nil {
		t.Fatalf("setup write error: %v", err)
	}
	loader := &FSTableLoader{Dir: dir}
	table, err := loader.Load("people")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.Rows() != 2 || table.Cols() != 2 {
		t.Fatalf("table shape = (%d,%d), want (2,2)", table.Rows(), table.Cols())
	}
	if table.At(1, 0) != "bob" {
		t.Errorf("At(1,0) = %q, want %q", table.At(1, 0), "bob")
	}
}

func TestFSTableLoaderColumnarFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "people.txt"), []byte("alice engineering\nbob sales\n"), 0o644); err != nil {
		t.Fatalf("setup write error: %v", err)
	}
	loader := &FSTableLoader{Dir: dir}
	table, err := loader.Load("people")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.At(0, 1) != "engineering" {
		t.Errorf("At(0,1) = %q, want %q", table.At(0, 1), "engineering")
	}
}

func TestFSTableLoaderMissing(t *testing.T) {
	loader := &FSTableLoader{Dir: t.TempDir()}
	if _, err := loader.Load("nope"); err == nil {
		t.Fatal("expected an error loading a nonexistent table")
	}
}
