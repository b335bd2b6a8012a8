// Package formula implements the spreadsheet formula language: a
// recursive-descent parser with precedence handling feeding a
// tree-walking evaluator. Lexer, parser and evaluator all operate on
// the single Node type defined here.
package formula

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind tags the variant a Node represents. Every item on an operand
// sequence or operator sequence, and every sub-context, is a Node.
type Kind int

const (
	KindNumber Kind = iota
	KindCellRef
	KindRange
	KindOperator
	KindUnary
	KindComparison
	KindFunction
	KindSubContext
	KindStartMarker
	KindEndMarker
	KindArgSep
	KindDate
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "Number"
	case KindCellRef:
		return "CellRef"
	case KindRange:
		return "Range"
	case KindOperator:
		return "Operator"
	case KindUnary:
		return "Unary"
	case KindComparison:
		return "Comparison"
	case KindFunction:
		return "Function"
	case KindSubContext:
		return "SubContext"
	case KindStartMarker:
		return "StartMarker"
	case KindEndMarker:
		return "EndMarker"
	case KindArgSep:
		return "ArgSep"
	case KindDate:
		return "Date"
	case KindString:
		return "String"
	default:
		return "Unknown"
	}
}

// Opcode enumerates infix operators (codes 0..4) and named functions
// (codes 5..). evalWorker switches a Unary node's code against these
// same values (UnaryPos..UnaryNot share 0..3 with OpAdd..OpDiv), so
// Add/Sub/Mul/Div/Pow must stay at 0..4.
type Opcode int

const (
	OpAdd Opcode = iota // 0
	OpSub                // 1
	OpMul                // 2
	OpDiv                // 3
	OpPow                // 4

	FnSqrt
	FnAbs
	FnAcos
	FnAsin
	FnAtan
	FnCeil
	FnFloor
	FnCos
	FnCosh
	FnExp
	FnLog
	FnRound
	FnSign
	FnSin
	FnSinh
	FnTan
	FnTanh
	FnTruncate
	FnSum
	FnAvg
	FnPi
	FnStock
	FnToday
	FnDate
	FnPower
	FnData
	FnGetDataVal
	FnPutDataVal
	FnTimedGetDataVal
	FnTimedPutDataVal
	FnDataSum
	FnDataAvg
	FnDataMin
	FnDataMax
	FnPmt
	FnFv
	FnMax
	FnMin
	FnIf
	FnPv
	FnNpv
)

// UnaryOp enumerates the unary sigil set. Only UnaryPos and UnaryNeg
// are honored by evaluation; UnaryCompl and UnaryNot parse, but
// evaluating them in arithmetic position is an evaluation error.
type UnaryOp int

const (
	UnaryPos   UnaryOp = 0
	UnaryNeg   UnaryOp = 1
	UnaryCompl UnaryOp = 2
	UnaryNot   UnaryOp = 3
)

// ComparisonOp enumerates the comparison set, in textual order.
type ComparisonOp int

const (
	CmpEq ComparisonOp = 0
	CmpGt ComparisonOp = 1
	CmpLt ComparisonOp = 2
	CmpGe ComparisonOp = 3
	CmpLe ComparisonOp = 4
	CmpNe ComparisonOp = 5
)

// CellAddr is a 0-based (row, column) pair.
type CellAddr struct {
	Row int
	Col int
}

// Encode packs the address into a single uint64, row in the high 32
// bits, column in the low 32 bits, per the Range cell encoding in the
// data model.
func (a CellAddr) Encode() uint64 {
	return uint64(uint32(a.Row))<<32 | uint64(uint32(a.Col))
}

// DecodeAddr reverses Encode.
func DecodeAddr(v uint64) CellAddr {
	return CellAddr{Row: int(int32(v >> 32)), Col: int(int32(v))}
}

// ColName renders a 0-based column index in spreadsheet letters:
// 0 -> "A", 25 -> "Z", 26 -> "AA". Negative columns have no letters.
func ColName(col int) string {
	if col < 0 {
		return "?"
	}
	n := col + 1
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+(n%26))) + letters
		n /= 26
	}
	return letters
}

// Name renders the address in A1 notation, e.g. row 0 col 0 -> "A1".
func (a CellAddr) Name() string {
	return fmt.Sprintf("%s%d", ColName(a.Col), a.Row+1)
}

// ParseCellAddr parses A1-style notation into a CellAddr. It accepts a
// leading sheet prefix ("Sheet1!A1") and "$" absolute-reference
// markers, the looser grammar document cell keys and user-typed
// references use — the lexer's own scanCellAddress enforces the
// stricter in-formula grammar separately and does not share this
// routine.
func ParseCellAddr(name string) (CellAddr, bool) {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, "!"); idx != -1 {
		name = strings.TrimSpace(name[idx+1:])
	}
	name = strings.ReplaceAll(name, "$", "")
	if name == "" {
		return CellAddr{}, false
	}

	i := 0
	for i < len(name) && isLetterByte(name[i]) {
		i++
	}
	if i == 0 || i >= len(name) {
		return CellAddr{}, false
	}
	colText := strings.ToUpper(name[:i])
	rowText := name[i:]

	col := 0
	for j := 0; j < len(colText); j++ {
		col = col*26 + int(colText[j]-'A') + 1
	}
	col--

	rowNum, err := strconv.Atoi(rowText)
	if err != nil {
		return CellAddr{}, false
	}
	row := rowNum - 1

	if row < 0 || col < 0 {
		return CellAddr{}, false
	}
	return CellAddr{Row: row, Col: col}, true
}

// RangeOrientation classifies the shape of a Range.
type RangeOrientation int

const (
	OrientVertical RangeOrientation = iota
	OrientHorizontal
	OrientRectangular
	Orient3D
)

// RangeData is a rectangular region defined by two normalized corners.
// Cells holds the encoded addresses in row-major order; Values is a
// parallel slice populated once, at evaluation time, by the cell
// source — scratch space, not structure.
type RangeData struct {
	TopLeft     CellAddr
	BottomRight CellAddr
	Orientation RangeOrientation
	Cells       []uint64
	Values      []float64
}

// Node is the single record shared by lexer, parser and evaluator.
// Which fields are meaningful depends on Kind — see the field comments
// for the per-kind contract.
type Node struct {
	Kind Kind

	// Numeric holds the literal value for KindNumber and KindDate.
	Numeric float64

	// Opcode holds the dispatch code for KindOperator/KindFunction
	// (an Opcode), KindUnary (a UnaryOp) or KindComparison (a
	// ComparisonOp). Interpret through the accessor matching Kind.
	Opcode int

	// Text holds the original textual form for strings, identifiers
	// and function tokens.
	Text string

	// CellAddr is meaningful only when Kind == KindCellRef.
	CellAddr CellAddr

	// Range is meaningful only when Kind == KindRange.
	Range *RangeData

	// Operands and Operators hold the child sequences when Kind is
	// KindSubContext or KindFunction. A Function node's argument
	// sub-tree is stored the same way a SubContext's contents are; the
	// distinction is that Function additionally carries Opcode.
	Operands  []*Node
	Operators []*Node

	// ParentOperands/ParentOperators back-reference the enclosing
	// sub-context's sequences. Only StartMarker and SubContext nodes
	// have them; the recursive-descent parser leaves them nil and
	// returns to the outer context at ')' through its own call stack.
	ParentOperands  *[]*Node
	ParentOperators *[]*Node
}

func (n *Node) FnOpcode() Opcode         { return Opcode(n.Opcode) }
func (n *Node) UnaryOpcode() UnaryOp     { return UnaryOp(n.Opcode) }
func (n *Node) ComparisonOpcode() ComparisonOp { return ComparisonOp(n.Opcode) }

func newStartMarker(parentOperands, parentOperators *[]*Node) *Node {
	return &Node{Kind: KindStartMarker, ParentOperands: parentOperands, ParentOperators: parentOperators}
}

func newEndMarker() *Node {
	return &Node{Kind: KindEndMarker}
}
