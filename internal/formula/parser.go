package formula

import "strings"

// Parser builds a Node tree from a token stream. Precedence between the
// additive level (+, -) and the multiplicative level (*, /, ^) is
// handled by recursive descent rather than the in-place promotion the
// original description favors — the two yield the same tree shape, and
// the simpler control flow is the one worth keeping (see DESIGN.md).
//
// Argument promotion — each function argument becoming its own
// sub-context — falls out naturally: parseFunctionCall parses every
// argument as a freshly pushed sub-context, so there is no flat
// sequence to restructure after the fact.
type Parser struct {
	lex    *Lexer
	peeked *Node
	depth  int
}

func newParser(input string) *Parser {
	return &Parser{lex: newLexer(input)}
}

func (p *Parser) peekTok() *Node {
	if p.peeked == nil {
		p.peeked = p.lex.nextToken()
	}
	return p.peeked
}

func (p *Parser) nextTok() *Node {
	t := p.peekTok()
	p.peeked = nil
	return t
}

// Parse lexes and parses a formula string into a Node tree rooted at a
// SubContext, ready for Evaluator.Evaluate. It skips a leading '+' or
// '=' sigil; a leading '-' is left for the unary parser to consume.
func Parse(input string) (*Node, error) {
	body := input
	if len(body) > 0 && (body[0] == '+' || body[0] == '=') {
		body = body[1:]
	}
	if strings.TrimSpace(body) == "" {
		return nil, syntaxErrorf("empty formula")
	}

	p := newParser(body)
	root := newSubContextNode(nil, nil)
	if err := p.parseExprInto(root); err != nil {
		return nil, err
	}
	if tok := p.peekTok(); tok != nil {
		return nil, syntaxErrorf("unexpected input near %q", tok.Text)
	}
	if p.depth != 0 {
		return nil, syntaxErrorf("unclosed parenthesis")
	}
	root.Operands = append(root.Operands, newEndMarker())
	return root, nil
}

func newSubContextNode(parentOperands, parentOperators *[]*Node) *Node {
	n := &Node{Kind: KindSubContext, ParentOperands: parentOperands, ParentOperators: parentOperators}
	n.Operands = append(n.Operands, newStartMarker(parentOperands, parentOperators))
	return n
}

func isAddLevelUnary(tok *Node) bool {
	return tok != nil && tok.Kind == KindUnary && (tok.UnaryOpcode() == UnaryPos || tok.UnaryOpcode() == UnaryNeg)
}

func isMulLevelOperator(tok *Node) bool {
	if tok == nil || tok.Kind != KindOperator {
		return false
	}
	switch tok.FnOpcode() {
	case OpMul, OpDiv, OpPow:
		return true
	}
	return false
}

// parseExprInto parses a full additive-precedence expression, appending
// its terms and operators directly onto target's sequences. A bare '+'
// or '-' found between terms is demoted from its lexed Unary kind to a
// binary Operator, matching the demotion the original design calls for
// when a value is not expected.
func (p *Parser) parseExprInto(target *Node) error {
	for {
		term, err := p.parseMulChain()
		if err != nil {
			return err
		}
		target.Operands = append(target.Operands, term)

		tok := p.peekTok()
		if !isAddLevelUnary(tok) {
			break
		}
		p.nextTok()
		code := OpAdd
		if tok.UnaryOpcode() == UnaryNeg {
			code = OpSub
		}
		target.Operators = append(target.Operators, &Node{Kind: KindOperator, Opcode: int(code)})
	}
	return nil
}

// parseMulChain parses one multiplicative-precedence chain. A lone term
// is returned unwrapped; a chain of two or more is wrapped in its own
// SubContext so eval_worker's flat left-to-right consumption still
// binds the right operators to the right operands.
func (p *Parser) parseMulChain() (*Node, error) {
	first, err := p.parseUnaryTerm()
	if err != nil {
		return nil, err
	}
	tok := p.peekTok()
	if !isMulLevelOperator(tok) {
		return first, nil
	}

	sc := newSubContextNode(nil, nil)
	sc.Operands = append(sc.Operands, first)
	for isMulLevelOperator(tok) {
		p.nextTok()
		sc.Operators = append(sc.Operators, tok)
		next, err := p.parseUnaryTerm()
		if err != nil {
			return nil, err
		}
		sc.Operands = append(sc.Operands, next)
		tok = p.peekTok()
	}
	sc.Operands = append(sc.Operands, newEndMarker())
	return sc, nil
}

// parseUnaryTerm consumes any run of leading unary sigils, wrapping the
// innermost primary in a SubContext per sigil — eval_worker reads a
// unary operator's lone operand directly off this sub-context.
func (p *Parser) parseUnaryTerm() (*Node, error) {
	tok := p.peekTok()
	if tok != nil && tok.Kind == KindUnary {
		p.nextTok()
		inner, err := p.parseUnaryTerm()
		if err != nil {
			return nil, err
		}
		sc := newSubContextNode(nil, nil)
		sc.Operands = append(sc.Operands, inner, newEndMarker())
		sc.Operators = append(sc.Operators, tok)
		return sc, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (*Node, error) {
	tok := p.nextTok()
	if tok == nil {
		return nil, syntaxErrorf("unexpected end of formula")
	}
	switch tok.Kind {
	case KindNumber, KindDate, KindCellRef, KindRange, KindString:
		return tok, nil
	case tokLParen:
		p.depth++
		sc := newSubContextNode(nil, nil)
		if err := p.parseExprInto(sc); err != nil {
			return nil, err
		}
		closing := p.nextTok()
		if closing == nil || closing.Kind != tokRParen {
			return nil, syntaxErrorf("expected ')'")
		}
		sc.Operands = append(sc.Operands, newEndMarker())
		p.depth--
		return sc, nil
	case KindFunction:
		return p.parseFunctionCall(tok)
	default:
		return nil, syntaxErrorf("unexpected token %q", tok.Text)
	}
}

// parseFunctionCall parses "(" arg ("," arg)* ")" for a matched
// function token. Each argument is parsed as its own sub-context —
// this is the argument promotion the original design restructures a
// flat sequence to achieve, produced directly here instead.
func (p *Parser) parseFunctionCall(fnTok *Node) (*Node, error) {
	open := p.nextTok()
	if open == nil || open.Kind != tokLParen {
		return nil, syntaxErrorf("expected '(' after function %s", fnTok.Text)
	}
	p.depth++

	fn := &Node{Kind: KindFunction, Opcode: fnTok.Opcode, Text: fnTok.Text}
	fn.Operands = append(fn.Operands, newStartMarker(nil, nil))

	if tok := p.peekTok(); tok != nil && tok.Kind == tokRParen {
		p.nextTok()
		fn.Operands = append(fn.Operands, newEndMarker())
		p.depth--
		return fn, nil
	}

	isIf := fnTok.FnOpcode() == FnIf
	argIndex := 0
	for {
		var arg *Node
		var err error
		if isIf && argIndex == 0 {
			arg, err = p.parseIfCondition()
		} else {
			sc := newSubContextNode(nil, nil)
			if err = p.parseExprInto(sc); err == nil {
				sc.Operands = append(sc.Operands, newEndMarker())
			}
			arg = sc
		}
		if err != nil {
			return nil, err
		}
		fn.Operands = append(fn.Operands, arg)
		argIndex++

		tok := p.nextTok()
		if tok == nil {
			return nil, syntaxErrorf("unclosed call to %s", fnTok.Text)
		}
		if tok.Kind == KindArgSep {
			fn.Operands = append(fn.Operands, tok)
			continue
		}
		if tok.Kind == tokRParen {
			break
		}
		return nil, syntaxErrorf("expected ',' or ')' in call to %s", fnTok.Text)
	}
	fn.Operands = append(fn.Operands, newEndMarker())
	p.depth--
	return fn, nil
}

// parseIfCondition parses If's first argument: one expression, an
// optional comparison, and a second expression. This is the only place
// a Comparison token is consumed — the flag the original design threads
// from lexer to parser ("expecting comparison") reduces to asking
// whether we are here at all, since the grammar never otherwise admits
// one.
func (p *Parser) parseIfCondition() (*Node, error) {
	sc := newSubContextNode(nil, nil)

	lhs, err := p.parseAddChain()
	if err != nil {
		return nil, err
	}
	sc.Operands = append(sc.Operands, lhs)

	if tok := p.peekTok(); tok != nil && tok.Kind == KindComparison {
		p.nextTok()
		sc.Operators = append(sc.Operators, tok)
		rhs, err := p.parseAddChain()
		if err != nil {
			return nil, err
		}
		sc.Operands = append(sc.Operands, rhs)
	}

	sc.Operands = append(sc.Operands, newEndMarker())
	return sc, nil
}

// parseAddChain parses one additive expression and returns it as a
// single node: the bare term if it has no operators, or a SubContext
// wrapping the whole chain otherwise. Used where an expression must sit
// as a single operand alongside a sibling, as in an If condition's two
// sides.
func (p *Parser) parseAddChain() (*Node, error) {
	sc := newSubContextNode(nil, nil)
	if err := p.parseExprInto(sc); err != nil {
		return nil, err
	}
	if len(sc.Operators) == 0 {
		vals := meaningfulOperands(sc.Operands)
		if len(vals) == 1 {
			return vals[0], nil
		}
	}
	sc.Operands = append(sc.Operands, newEndMarker())
	return sc, nil
}
