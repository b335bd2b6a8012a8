package formula

import "math"

// rangeReducer collapses a Range's populated values into a single
// number. Only Sum/Avg/Max/Min supply one; any other context that
// reaches a Range node has nothing to collapse it with.
type rangeReducer func([]float64) float64

func sumReducer(vals []float64) float64 {
	s := 0.0
	for _, v := range vals {
		s += v
	}
	return s
}

func avgReducer(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return sumReducer(vals) / float64(len(vals))
}

func maxReducer(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Max(m, v)
	}
	return m
}

func minReducer(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	m := vals[0]
	for _, v := range vals[1:] {
		m = math.Min(m, v)
	}
	return m
}

// Evaluator walks a parsed Node tree, resolving cells, ranges, quotes
// and tables through its three injected collaborators. It carries no
// state across calls to Evaluate except the table loaded by the most
// recent DATA(...) call, matching the source's treatment of DATA as
// setting up context for a following GETDATAVAL.
type Evaluator struct {
	Cells  CellSource
	Quotes QuoteSource
	Tables TableLoader
	Now    func() (year, month, day int)

	loadedTable Table
}

// NewEvaluator builds an Evaluator around its three collaborators. Any
// of them may be nil; the evaluator degrades to NaN / 0.0 rather than
// panicking when an absent collaborator is reached.
func NewEvaluator(cells CellSource, quotes QuoteSource, tables TableLoader) *Evaluator {
	return &Evaluator{Cells: cells, Quotes: quotes, Tables: tables}
}

// Evaluate walks the root sub-context tree produced by Parse.
func (ev *Evaluator) Evaluate(tree *Node) (float64, error) {
	return ev.evalWorker(tree.Operands, tree.Operators)
}

// evalWorker consumes an operand sequence against its paired operator
// sequence left to right. Operator codes above Div (and any Unary node
// carrying a Mul/Div code, i.e. '~' or '!') have no defined arithmetic
// result here — they surface as an evaluation error rather than a
// guessed one, since the source leaves them undefined too.
func (ev *Evaluator) evalWorker(operands, operators []*Node) (float64, error) {
	vals := meaningfulOperands(operands)
	if len(vals) == 0 {
		return 0, evalErrorf("empty expression")
	}
	result, err := ev.getValue(vals[0], nil)
	if err != nil {
		return 0, err
	}
	valIdx := 1
	for _, op := range operators {
		isUnary := op.Kind == KindUnary
		switch Opcode(op.Opcode) {
		case OpAdd:
			if isUnary {
				result = math.Abs(vals[0].Numeric)
				continue
			}
			v, verr := ev.nextVal(vals, &valIdx)
			if verr != nil {
				return 0, verr
			}
			result += v
		case OpSub:
			if isUnary {
				result = -vals[0].Numeric
				continue
			}
			v, verr := ev.nextVal(vals, &valIdx)
			if verr != nil {
				return 0, verr
			}
			result -= v
		case OpMul:
			if isUnary {
				return 0, evalErrorf("unary '~' has no defined arithmetic result")
			}
			v, verr := ev.nextVal(vals, &valIdx)
			if verr != nil {
				return 0, verr
			}
			result *= v
		case OpDiv:
			if isUnary {
				return 0, evalErrorf("unary '!' has no defined arithmetic result")
			}
			v, verr := ev.nextVal(vals, &valIdx)
			if verr != nil {
				return 0, verr
			}
			result /= v
		default:
			return 0, evalErrorf("unsupported operator code %d", op.Opcode)
		}
	}
	return result, nil
}

func (ev *Evaluator) nextVal(vals []*Node, idx *int) (float64, error) {
	if *idx >= len(vals) {
		return math.NaN(), nil
	}
	v, err := ev.getValue(vals[*idx], nil)
	*idx++
	return v, err
}

// getValue resolves a single node to a number. Kinds that carry no
// number of their own (markers, separators) fall through to NaN — a
// permitted in-band signal, not a fault.
func (ev *Evaluator) getValue(node *Node, reducer rangeReducer) (float64, error) {
	switch node.Kind {
	case KindNumber, KindDate:
		return node.Numeric, nil
	case KindCellRef:
		if ev.Cells == nil {
			return math.NaN(), nil
		}
		return ev.Cells.Read(node.CellAddr.Col, node.CellAddr.Row), nil
	case KindRange:
		if reducer == nil {
			return 0, evalErrorf("range used without a reducer")
		}
		ev.populateRange(node.Range)
		return reducer(node.Range.Values), nil
	case KindSubContext:
		// A function argument is wrapped in its own sub-context; a lone
		// operand inside it keeps the caller's reducer.
		if reducer != nil && len(node.Operators) == 0 {
			if vals := meaningfulOperands(node.Operands); len(vals) == 1 {
				return ev.getValue(vals[0], reducer)
			}
		}
		return ev.evalWorker(node.Operands, node.Operators)
	case KindFunction:
		return ev.evaluateFunction(node)
	default:
		return math.NaN(), nil
	}
}

func (ev *Evaluator) populateRange(r *RangeData) {
	for i, encoded := range r.Cells {
		addr := DecodeAddr(encoded)
		if ev.Cells == nil {
			r.Values[i] = math.NaN()
			continue
		}
		r.Values[i] = ev.Cells.Read(addr.Col, addr.Row)
	}
}
