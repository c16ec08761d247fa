package parser

import (
	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/token"
)

// parseExpression parses a full expression, including assignment. This is
// the ASSIGNMENT precedence level of spec.md's precedence table; everything
// below it is implemented as one recursive-descent function per precedence
// level (NONE < ASSIGNMENT < CONDITIONAL < OR < AND < EQUALITY < COMPARISON
// < TERM < FACTOR < UNARY < CALL < PRIMARY).
func (p *parser) parseExpression() ast.Expr {
	return p.parseAssignment()
}

var assignOps = map[token.Token]bool{
	token.EQ: true, token.PLUS_EQ: true, token.MINUS_EQ: true,
	token.STAR_EQ: true, token.SLASH_EQ: true,
}

func (p *parser) parseAssignment() ast.Expr {
	expr := p.parseConditional()
	if !assignOps[p.tok] {
		return expr
	}

	op := p.tok
	pos := p.expect(p.tok)
	value := p.parseAssignment() // right-associative

	if !ast.IsAssignable(expr) {
		start, _ := expr.Span()
		p.error(start, "invalid assignment target")
		return expr
	}

	if op != token.EQ {
		switch ast.Unwrap(expr).(type) {
		case *ast.GetExpr, *ast.IndexExpr:
			// a compound store to a property or subscript becomes a plain store
			// of `target op value`; the object (and index) are evaluated twice.
			binop := map[token.Token]token.Token{
				token.PLUS_EQ: token.PLUS, token.MINUS_EQ: token.MINUS,
				token.STAR_EQ: token.STAR, token.SLASH_EQ: token.SLASH,
			}[op]
			value = &ast.BinaryExpr{Left: expr, Op: binop, OpPos: pos, Right: value}
		}
	}

	switch target := ast.Unwrap(expr).(type) {
	case *ast.GetExpr:
		return &ast.SetExpr{Object: target.Object, Dot: target.Dot, Name: target.Name, Value: value}
	case *ast.IndexExpr:
		return &ast.IndexSetExpr{Object: target.Object, Lbrack: target.Lbrack, Index: target.Index, Value: value}
	default:
		return &ast.AssignExpr{Target: expr, Op: op, OpPos: pos, Value: value}
	}
}

// parseConditional handles the ternary `cond ? then : else` and the elvis
// `lhs ?: rhs` forms, both right-associative.
func (p *parser) parseConditional() ast.Expr {
	expr := p.parseOr()
	switch p.tok {
	case token.QUESTION:
		p.expect(token.QUESTION)
		then := p.parseAssignment()
		p.expect(token.COLON)
		els := p.parseConditional()
		return &ast.TernaryExpr{Cond: expr, Then: then, Else: els}
	case token.QUESTION_COLON:
		pos := p.expect(token.QUESTION_COLON)
		right := p.parseConditional()
		return &ast.ElvisExpr{Left: expr, OpPos: pos, Right: right}
	default:
		return expr
	}
}

func (p *parser) parseOr() ast.Expr {
	expr := p.parseAnd()
	for p.tok == token.OR {
		pos := p.expect(token.OR)
		right := p.parseAnd()
		expr = &ast.LogicalExpr{Left: expr, Op: token.OR, OpPos: pos, Right: right}
	}
	return expr
}

func (p *parser) parseAnd() ast.Expr {
	expr := p.parseEquality()
	for p.tok == token.AND {
		pos := p.expect(token.AND)
		right := p.parseEquality()
		expr = &ast.LogicalExpr{Left: expr, Op: token.AND, OpPos: pos, Right: right}
	}
	return expr
}

func (p *parser) parseEquality() ast.Expr {
	expr := p.parseComparison()
	for p.tok == token.EQ_EQ || p.tok == token.BANG_EQ {
		op := p.tok
		pos := p.expect(p.tok)
		right := p.parseComparison()
		expr = &ast.BinaryExpr{Left: expr, Op: op, OpPos: pos, Right: right}
	}
	return expr
}

func (p *parser) parseComparison() ast.Expr {
	expr := p.parseTerm()
	for p.tok == token.GT || p.tok == token.GT_EQ || p.tok == token.LT || p.tok == token.LT_EQ {
		op := p.tok
		pos := p.expect(p.tok)
		right := p.parseTerm()
		expr = &ast.BinaryExpr{Left: expr, Op: op, OpPos: pos, Right: right}
	}
	return expr
}

func (p *parser) parseTerm() ast.Expr {
	expr := p.parseFactor()
	for p.tok == token.PLUS || p.tok == token.MINUS {
		op := p.tok
		pos := p.expect(p.tok)
		right := p.parseFactor()
		expr = &ast.BinaryExpr{Left: expr, Op: op, OpPos: pos, Right: right}
	}
	return expr
}

func (p *parser) parseFactor() ast.Expr {
	expr := p.parseUnary()
	for p.tok == token.STAR || p.tok == token.SLASH {
		op := p.tok
		pos := p.expect(p.tok)
		right := p.parseUnary()
		expr = &ast.BinaryExpr{Left: expr, Op: op, OpPos: pos, Right: right}
	}
	return expr
}

func (p *parser) parseUnary() ast.Expr {
	if p.tok == token.BANG || p.tok == token.MINUS || p.tok == token.PLUS {
		op := p.tok
		pos := p.expect(p.tok)
		right := p.parseUnary()
		return &ast.UnaryExpr{Op: op, OpStart: pos, Right: right}
	}
	return p.parseCall()
}

func (p *parser) parseCall() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.tok {
		case token.LPAREN:
			expr = p.parseCallArgs(expr)
		case token.DOT:
			dot := p.expect(token.DOT)
			name := p.parseIdentExpr()
			expr = &ast.GetExpr{Object: expr, Dot: dot, Name: name}
		case token.LBRACK:
			lbrack := p.expect(token.LBRACK)
			index := p.parseExpression()
			rbrack := p.expect(token.RBRACK)
			expr = &ast.IndexExpr{Object: expr, Lbrack: lbrack, Index: index, Rbrack: rbrack}
		default:
			return expr
		}
	}
}

func (p *parser) parseCallArgs(callee ast.Expr) *ast.CallExpr {
	var call ast.CallExpr
	call.Callee = callee
	call.Lparen = p.expect(token.LPAREN)
	if p.tok != token.RPAREN {
		call.Args = append(call.Args, p.parseAssignment())
		for p.tok == token.COMMA {
			p.expect(token.COMMA)
			call.Args = append(call.Args, p.parseAssignment())
		}
	}
	call.Rparen = p.expect(token.RPAREN)
	return &call
}

func (p *parser) parsePrimary() ast.Expr {
	switch p.tok {
	case token.FALSE:
		pos := p.expect(token.FALSE)
		return &ast.LiteralExpr{Type: token.FALSE, Start: pos, Raw: "false", Value: false}
	case token.TRUE:
		pos := p.expect(token.TRUE)
		return &ast.LiteralExpr{Type: token.TRUE, Start: pos, Raw: "true", Value: true}
	case token.NIL:
		pos := p.expect(token.NIL)
		return &ast.LiteralExpr{Type: token.NIL, Start: pos, Raw: "nil"}
	case token.NUMBER:
		val := p.val
		pos := p.expect(token.NUMBER)
		return &ast.LiteralExpr{Type: token.NUMBER, Start: pos, Raw: val.Raw, Value: val.Number}
	case token.STRING:
		return p.parseStringExpr()
	case token.THIS:
		pos := p.expect(token.THIS)
		return &ast.ThisExpr{Start: pos}
	case token.SUPER:
		return p.parseSuperExpr()
	case token.IDENT:
		return p.parseIdentExpr()
	case token.LPAREN:
		lparen := p.expect(token.LPAREN)
		inner := p.parseExpression()
		rparen := p.expect(token.RPAREN)
		return &ast.GroupExpr{Lparen: lparen, Expr: inner, Rparen: rparen}
	case token.LBRACK:
		return p.parseArrayExpr()
	case token.FUN:
		fun := p.expect(token.FUN)
		return p.parseFuncTail(fun)
	default:
		pos := p.val.Pos
		p.errorExpected(pos, "expression")
		panic(errPanicMode)
	}
}

// parseStringExpr parses a STRING token and, if the scanner signals an
// interpolation follows (the next token is INTERPOLATION), assembles the
// full interleaved string-and-expression sequence.
func (p *parser) parseStringExpr() ast.Expr {
	first := p.val
	start := p.expect(token.STRING)
	if p.tok != token.INTERPOLATION {
		return &ast.LiteralExpr{Type: token.STRING, Start: start, Raw: first.Raw, Value: first.String}
	}

	expr := &ast.InterpolatedStringExpr{Start: start, Parts: []string{first.String}}
	for p.tok == token.INTERPOLATION {
		p.expect(token.INTERPOLATION)
		expr.Exprs = append(expr.Exprs, p.parseExpression())
		part := p.val
		pos := p.expect(token.STRING)
		expr.Parts = append(expr.Parts, part.String)
		expr.End = pos + token.Pos(len(part.Raw))
	}
	return expr
}

func (p *parser) parseSuperExpr() ast.Expr {
	var expr ast.SuperExpr
	expr.Start = p.expect(token.SUPER)
	if p.tok == token.LBRACK {
		p.expect(token.LBRACK)
		expr.Index = p.parseExpression()
		p.expect(token.RBRACK)
		p.expect(token.DOT)
		expr.Dot = p.parseIdentExpr()
		expr.End = expr.Dot.Start + token.Pos(len(expr.Dot.Name))
	} else {
		p.expect(token.DOT)
		expr.Name = p.parseIdentExpr()
		expr.End = expr.Name.Start + token.Pos(len(expr.Name.Name))
	}
	return &expr
}

func (p *parser) parseArrayExpr() *ast.ArrayExpr {
	var expr ast.ArrayExpr
	expr.Lbrack = p.expect(token.LBRACK)
	if p.tok != token.RBRACK {
		expr.Items = append(expr.Items, p.parseAssignment())
		for p.tok == token.COMMA {
			p.expect(token.COMMA)
			if p.tok == token.RBRACK {
				break // trailing comma
			}
			expr.Items = append(expr.Items, p.parseAssignment())
		}
	}
	expr.Rbrack = p.expect(token.RBRACK)
	return &expr
}
