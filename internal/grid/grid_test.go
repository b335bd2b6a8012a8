package grid

import "testing"

func TestColToName(t *testing.T) {
	cases := map[int]string{
		0:  "A",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for col, want := range cases {
		if got := ColToName(col); got != want {
			t.Errorf("ColToName(%d) = %q, want %q", col, got, want)
		}
	}
}

func TestColToNameNegative(t *testing.T) {
	if got := ColToName(-1); got != "?" {
		t.Errorf("ColToName(-1) = %q, want \"?\"", got)
	}
}

func TestColRowToName(t *testing.T) {
	cases := []struct {
		col, row int
		want     string
	}{
		{0, 0, "A1"},
		{25, 0, "Z1"},
		{26, 9, "AA10"},
	}
	for _, tc := range cases {
		if got := ColRowToName(tc.col, tc.row); got != tc.want {
			t.Errorf("ColRowToName(%d,%d) = %q, want %q", tc.col, tc.row, got, tc.want)
		}
	}
}

func TestParseCellRef(t *testing.T) {
	cases := []struct {
		name    string
		row     int
		col     int
		ok      bool
	}{
		{"A1", 0, 0, true},
		{"Z1", 0, 25, true},
		{"AA10", 9, 26, true},
		{"$A$1", 0, 0, true},
		{"Sheet1!B2", 1, 1, true},
		{"", 0, 0, false},
		{"1", 0, 0, false},
		{"A", 0, 0, false},
		{"A0", -1, 0, false},
	}
	for _, tc := range cases {
		row, col, ok := ParseCellRef(tc.name)
		if ok != tc.ok {
			t.Errorf("ParseCellRef(%q) ok = %v, want %v", tc.name, ok, tc.ok)
			continue
		}
		if !ok {
			continue
		}
		if row != tc.row || col != tc.col {
			t.Errorf("ParseCellRef(%q) = (%d,%d), want (%d,%d)", tc.name, row, col, tc.row, tc.col)
		}
	}
}

func TestColRowToNameRoundTripsWithParseCellRef(t *testing.T) {
	for _, col := range []int{0, 1, 25, 26, 27, 701} {
		for _, row := range []int{0, 9, 99} {
			name := ColRowToName(col, row)
			gotRow, gotCol, ok := ParseCellRef(name)
			if !ok {
				t.Fatalf("ParseCellRef(%q) failed to parse its own ColRowToName output", name)
			}
			if gotRow != row || gotCol != col {
				t.Errorf("round trip col=%d row=%d -> %q -> (%d,%d)", col, row, name, gotRow, gotCol)
			}
		}
	}
}
