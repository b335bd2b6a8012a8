package formula

import (
	"errors"
	"math"
	"testing"
)

// mapCellSource backs tests that need CellRef/Range resolution without
// pulling in the app package.
type mapCellSource map[[2]int]float64

func (m mapCellSource) Read(col, row int) float64 {
	v, ok := m[[2]int{row, col}]
	if !ok {
		return math.NaN()
	}
	return v
}

type stubQuoteSource struct {
	quote string
	err   error
}

func (s *stubQuoteSource) Fetch(symbol string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.quote, nil
}

type stubTable struct {
	rows [][]string
}

func (t *stubTable) Rows() int { return len(t.rows) }
func (t *stubTable) Cols() int {
	if len(t.rows) == 0 {
		return 0
	}
	return len(t.rows[0])
}
func (t *stubTable) At(r, c int) string {
	if r < 0 || r >= len(t.rows) || c < 0 || c >= len(t.rows[r]) {
		return ""
	}
	return t.rows[r][c]
}

type stubTableLoader struct {
	tables map[string]*stubTable
}

func (l *stubTableLoader) Load(name string) (Table, error) {
	t, ok := l.tables[name]
	if !ok {
		return nil, errors.New("table not found")
	}
	return t, nil
}

func mustParse(t *testing.T, expr string) *Node {
	t.Helper()
	tree, err := Parse(expr)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", expr, err)
	}
	return tree
}

func TestEvaluateCellRef(t *testing.T) {
	cells := mapCellSource{{0, 0}: 10}
	ev := NewEvaluator(cells, nil, nil)
	got, err := ev.Evaluate(mustParse(t, "=A1+5"))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got != 15 {
		t.Errorf("A1+5 = %v, want 15", got)
	}
}

func TestEvaluateCellRefMissingIsNaN(t *testing.T) {
	ev := NewEvaluator(mapCellSource{}, nil, nil)
	got, err := ev.Evaluate(mustParse(t, "=A1"))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("A1 with no CellSource entry = %v, want NaN", got)
	}
}

func TestEvaluateNilCellSourceIsNaN(t *testing.T) {
	ev := NewEvaluator(nil, nil, nil)
	got, err := ev.Evaluate(mustParse(t, "=A1"))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("A1 with nil CellSource = %v, want NaN", got)
	}
}

func TestEvaluateSumRange(t *testing.T) {
	cells := mapCellSource{
		{0, 0}: 1,
		{1, 0}: 2,
		{2, 0}: 3,
	}
	ev := NewEvaluator(cells, nil, nil)
	got, err := ev.Evaluate(mustParse(t, "=SUM(A1:A3)"))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got != 6 {
		t.Errorf("SUM(A1:A3) = %v, want 6", got)
	}
}

func TestEvaluateAvgMaxMin(t *testing.T) {
	cells := mapCellSource{
		{0, 0}: 2,
		{0, 1}: 4,
		{0, 2}: 6,
	}
	ev := NewEvaluator(cells, nil, nil)
	if got, err := ev.Evaluate(mustParse(t, "=AVG(A1:C1)")); err != nil || got != 4 {
		t.Errorf("AVG(A1:C1) = %v, %v, want 4, nil", got, err)
	}
	if got, err := ev.Evaluate(mustParse(t, "=MAX(A1:C1)")); err != nil || got != 6 {
		t.Errorf("MAX(A1:C1) = %v, %v, want 6, nil", got, err)
	}
	if got, err := ev.Evaluate(mustParse(t, "=MIN(A1:C1)")); err != nil || got != 2 {
		t.Errorf("MIN(A1:C1) = %v, %v, want 2, nil", got, err)
	}
}

func TestEvaluateRangeWithoutReducerIsError(t *testing.T) {
	cells := mapCellSource{{0, 0}: 1}
	ev := NewEvaluator(cells, nil, nil)
	if _, err := ev.Evaluate(mustParse(t, "=A1:A2")); err == nil {
		t.Fatal("expected an error evaluating a bare Range with no reducer")
	}
}

func TestEvaluateStock(t *testing.T) {
	ev := NewEvaluator(nil, &stubQuoteSource{quote: "123.45"}, nil)
	got, err := ev.Evaluate(mustParse(t, `=STOCK("ACME")`))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got != 123.45 {
		t.Errorf("STOCK(\"ACME\") = %v, want 123.45", got)
	}
}

func TestEvaluateStockFetchErrorIsNaN(t *testing.T) {
	ev := NewEvaluator(nil, &stubQuoteSource{err: errors.New("network down")}, nil)
	got, err := ev.Evaluate(mustParse(t, `=STOCK("ACME")`))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("STOCK with failing QuoteSource = %v, want NaN", got)
	}
}

func TestEvaluateDataAndGetDataVal(t *testing.T) {
	loader := &stubTableLoader{tables: map[string]*stubTable{
		"employees": {rows: [][]string{
			{"alice", "engineering"},
			{"bob", "sales"},
		}},
	}}
	ev := NewEvaluator(nil, nil, loader)
	if _, err := ev.Evaluate(mustParse(t, `=DATA("employees")`)); err != nil {
		t.Fatalf("DATA error: %v", err)
	}
	got, err := ev.Evaluate(mustParse(t, `=GETDATAVAL(A1,0,"bob",1)`))
	if err != nil {
		t.Fatalf("GETDATAVAL error: %v", err)
	}
	if got != 1 {
		t.Errorf("GETDATAVAL for existing key = %v, want 1", got)
	}
	got, err = ev.Evaluate(mustParse(t, `=GETDATAVAL(A1,0,"carol",1)`))
	if err != nil {
		t.Fatalf("GETDATAVAL error: %v", err)
	}
	if got != 0 {
		t.Errorf("GETDATAVAL for missing key = %v, want 0", got)
	}
}

func TestEvaluateUnrecognizedUnaryOnMulDivIsError(t *testing.T) {
	// UnaryCompl/UnaryNot ('~'/'!') are numerically 2/3, the same codes
	// as OpMul/OpDiv, and parseUnaryTerm wraps every KindUnary token the
	// same way regardless of sigil — so the real lexer/parser path for
	// "~5" reaches evalWorker's unary-on-Mul branch directly.
	ev := NewEvaluator(nil, nil, nil)
	if _, err := ev.Evaluate(mustParse(t, "=~5")); err == nil {
		t.Fatal("expected an error for unary '~' applied in arithmetic position")
	}
	if _, err := ev.Evaluate(mustParse(t, "=!5")); err == nil {
		t.Fatal("expected an error for unary '!' applied in arithmetic position")
	}
}

func TestEvaluatePutDataValFamilyAreStubs(t *testing.T) {
	ev := NewEvaluator(nil, nil, nil)
	for _, expr := range []string{
		`=PUTDATAVAL(A1,0,"x",1,5)`,
		`=DATASUM(A1)`,
		`=DATAAVG(A1)`,
		`=NPV(0.1,100)`,
	} {
		got, err := ev.Evaluate(mustParse(t, expr))
		if err != nil {
			t.Fatalf("Evaluate(%q) error: %v", expr, err)
		}
		if got != 0 {
			t.Errorf("Evaluate(%q) = %v, want 0", expr, got)
		}
	}
}

func TestEvaluateDateRejectsOutOfRangeMonth(t *testing.T) {
	ev := NewEvaluator(nil, nil, nil)
	for _, expr := range []string{"=DATE(2024,0,1)", "=DATE(2024,13,1)"} {
		if _, err := ev.Evaluate(mustParse(t, expr)); err == nil {
			t.Errorf("Evaluate(%q) succeeded, want a Syntax Error for month out of range", expr)
		}
	}
}

func TestEvaluateDateValidMonth(t *testing.T) {
	ev := NewEvaluator(nil, nil, nil)
	got, err := ev.Evaluate(mustParse(t, "=DATE(2024,1,1)"))
	if err != nil {
		t.Fatalf("Evaluate error: %v", err)
	}
	if got != dayCount(2024, 1, 1) {
		t.Errorf("DATE(2024,1,1) = %v, want %v", got, dayCount(2024, 1, 1))
	}
}

func TestEvaluateFinancialFunctions(t *testing.T) {
	ev := NewEvaluator(nil, nil, nil)
	got, err := ev.Evaluate(mustParse(t, "=FV(0.05,10,-100)"))
	if err != nil {
		t.Fatalf("FV error: %v", err)
	}
	want := -100 * (math.Pow(1.05, 10) - 1) / 0.05
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("FV(0.05,10,-100) = %v, want %v", got, want)
	}
}
