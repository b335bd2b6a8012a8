// Program sheetfx-repl is a line-oriented front-end to the formula
// engine: it reads one formula per line and prints the result, without
// any of the grid editor's screen handling.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"sheetfx/internal/formula"
	"sheetfx/internal/grid"
	"sheetfx/internal/quote"
	"sheetfx/internal/storage"
)

// fileCellSource resolves cell references against a document loaded
// from disk. Unlike the grid app's collaborator, it does no cycle
// tracking of its own: a formula typed at the REPL cannot be the
// target of a reference, so cells can only ever refer to other cells
// already on disk, which cannot cycle back into the expression being
// evaluated.
type fileCellSource struct {
	cells map[[2]int]grid.Cell
}

func (f *fileCellSource) Read(col, row int) float64 {
	if f.cells == nil || row < 0 || col < 0 {
		return nan()
	}
	cell, ok := f.cells[[2]int{row, col}]
	if !ok || cell.Text == "" {
		return 0
	}
	v, err := strconv.ParseFloat(cell.Text, 64)
	if err != nil {
		return nan()
	}
	return v
}

func nan() float64 {
	var z float64
	return z / z
}

func loadCells(filename string) (map[[2]int]grid.Cell, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".csv") {
		cells, _, _, err := storage.LoadCSV(filename)
		return cells, err
	}
	cells, _, _, err := storage.LoadDocument(filename)
	return cells, err
}

func main() {
	file := flag.String("file", "", "document or CSV file whose cells back formula cell references")
	flag.Parse()

	var cells map[[2]int]grid.Cell
	if *file != "" {
		loaded, err := loadCells(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sheetfx-repl: %v\n", err)
			os.Exit(1)
		}
		cells = loaded
	}

	ev := formula.NewEvaluator(&fileCellSource{cells: cells}, &quote.HTTPQuoteSource{}, &storage.FSTableLoader{Dir: "."})

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt("sheetfx> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		body := input
		if strings.HasPrefix(body, "=") {
			body = body[1:]
		}
		tree, err := formula.Parse(body)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		result, err := ev.Evaluate(tree)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		fmt.Printf("Result = %v\n", result)
	}
	os.Stdout.WriteString("\n")
}
