package parser

import (
	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/token"
)

// parseDeclaration parses a declaration (var/fun/class) or falls back to an
// ordinary statement; it is the entry point at chunk and block level.
// Panic-mode errors are recovered here and synchronized to the next
// statement boundary; the offending statement contributes no AST node.
func (p *parser) parseDeclaration() (stmt ast.Stmt) {
	defer func() {
		if err := recover(); err != nil {
			if err == errPanicMode {
				p.synchronize()
				stmt = nil
				return
			}
			panic(err)
		}
	}()

	switch p.tok {
	case token.VAR:
		return p.parseVarStmt()
	case token.FUN:
		return p.parseFuncStmt()
	case token.CLASS:
		return p.parseClassStmt()
	default:
		return p.parseStatement()
	}
}

func (p *parser) parseVarStmt() *ast.VarStmt {
	var stmt ast.VarStmt
	stmt.Var = p.expect(token.VAR)
	stmt.Name = p.parseIdentExpr()
	if p.tok == token.EQ {
		p.expect(token.EQ)
		stmt.Init = p.parseExpression()
	}
	stmt.Semi = p.expect(token.SEMICOLON)
	return &stmt
}

func (p *parser) parseFuncStmt() *ast.FuncStmt {
	var stmt ast.FuncStmt
	stmt.Fun = p.expect(token.FUN)
	stmt.Name = p.parseIdentExpr()
	stmt.Fn = p.parseFuncTail(stmt.Fun)
	return &stmt
}

// parseFuncTail parses the "(params) { body }" portion shared by named
// function declarations, methods and function-literal expressions. fun is
// the position of the already-consumed `fun` keyword, or zero for an
// implicit lambda.
func (p *parser) parseFuncTail(fun token.Pos) *ast.FuncExpr {
	var fn ast.FuncExpr
	fn.Fun = fun

	p.expect(token.LPAREN)
	if p.tok != token.RPAREN {
		fn.Params = append(fn.Params, p.parseIdentExpr())
		for p.tok == token.COMMA {
			p.expect(token.COMMA)
			fn.Params = append(fn.Params, p.parseIdentExpr())
		}
	}
	p.expect(token.RPAREN)
	fn.Body = p.parseFuncBody()
	return &fn
}

func (p *parser) parseClassStmt() *ast.ClassStmt {
	var stmt ast.ClassStmt
	stmt.Class = p.expect(token.CLASS)
	stmt.Name = p.parseIdentExpr()

	if p.tok == token.LT {
		p.expect(token.LT)
		if p.tok == token.LBRACK {
			p.expect(token.LBRACK)
			stmt.Supers = append(stmt.Supers, p.parseIdentExpr())
			for p.tok == token.COMMA {
				p.expect(token.COMMA)
				stmt.Supers = append(stmt.Supers, p.parseIdentExpr())
			}
			p.expect(token.RBRACK)
		} else {
			stmt.Supers = append(stmt.Supers, p.parseIdentExpr())
		}
	}

	p.expect(token.LBRACE)
	for p.tok != token.RBRACE && p.tok != token.EOF {
		isStatic := p.tok == token.STATIC
		if isStatic {
			p.expect(token.STATIC)
		}
		fun := p.expect(token.FUN)
		name := p.parseIdentExpr()
		method := &ast.FuncStmt{Fun: fun, Name: name, Fn: p.parseFuncTail(fun)}
		if isStatic {
			stmt.StaticDefs = append(stmt.StaticDefs, method)
		} else {
			stmt.Methods = append(stmt.Methods, method)
		}
	}
	stmt.End = p.expect(token.RBRACE)
	return &stmt
}

// parseStatement parses a non-declaration statement.
func (p *parser) parseStatement() ast.Stmt {
	switch p.tok {
	case token.LBRACE:
		return &ast.BlockStmt{Block: p.parseBraceBlock()}
	case token.PRINT:
		return p.parsePrintStmt()
	case token.IF:
		return p.parseIfStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.BREAK:
		return p.parseBreakStmt()
	case token.CONTINUE:
		return p.parseContinueStmt()
	case token.RETURN:
		return p.parseReturnStmt()
	case token.THROW:
		return p.parseThrowStmt()
	case token.TRY:
		return p.parseTryStmt()
	default:
		return p.parseExprStmt()
	}
}

func (p *parser) parsePrintStmt() *ast.PrintStmt {
	var stmt ast.PrintStmt
	stmt.Print = p.expect(token.PRINT)
	stmt.Expr = p.parseExpression()
	stmt.Semi = p.expect(token.SEMICOLON)
	return &stmt
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	var stmt ast.IfStmt
	stmt.If = p.expect(token.IF)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpression()
	p.expect(token.RPAREN)
	stmt.Then = p.parseStmtBody()
	if p.tok == token.ELSE {
		p.expect(token.ELSE)
		stmt.Else = p.parseStmtBody()
	}
	return &stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	var stmt ast.WhileStmt
	stmt.While = p.expect(token.WHILE)
	p.expect(token.LPAREN)
	stmt.Cond = p.parseExpression()
	p.expect(token.RPAREN)
	stmt.Body = p.parseStmtBody()
	return &stmt
}

func (p *parser) parseForStmt() *ast.ForStmt {
	var stmt ast.ForStmt
	stmt.For = p.expect(token.FOR)
	p.expect(token.LPAREN)

	switch p.tok {
	case token.SEMICOLON:
		p.expect(token.SEMICOLON)
	case token.VAR:
		stmt.Init = p.parseVarStmt()
	default:
		stmt.Init = p.parseExprStmt()
	}

	if p.tok != token.SEMICOLON {
		stmt.Cond = p.parseExpression()
	}
	p.expect(token.SEMICOLON)

	if p.tok != token.RPAREN {
		stmt.Post = p.parseExpression()
	}
	p.expect(token.RPAREN)

	stmt.Body = p.parseStmtBody()
	return &stmt
}

func (p *parser) parseBreakStmt() *ast.BreakStmt {
	var stmt ast.BreakStmt
	stmt.Start = p.expect(token.BREAK)
	p.expect(token.SEMICOLON)
	return &stmt
}

func (p *parser) parseContinueStmt() *ast.ContinueStmt {
	var stmt ast.ContinueStmt
	stmt.Start = p.expect(token.CONTINUE)
	p.expect(token.SEMICOLON)
	return &stmt
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	var stmt ast.ReturnStmt
	stmt.Start = p.expect(token.RETURN)
	if p.tok != token.SEMICOLON {
		stmt.Expr = p.parseExpression()
	}
	p.expect(token.SEMICOLON)
	return &stmt
}

func (p *parser) parseThrowStmt() *ast.ThrowStmt {
	var stmt ast.ThrowStmt
	stmt.Start = p.expect(token.THROW)
	stmt.Expr = p.parseExpression()
	p.expect(token.SEMICOLON)
	return &stmt
}

func (p *parser) parseTryStmt() *ast.TryStmt {
	var stmt ast.TryStmt
	stmt.Try = p.expect(token.TRY)
	stmt.Body = p.parseBraceBlock()
	p.expect(token.CATCH)
	p.expect(token.LPAREN)
	stmt.CatchName = p.parseIdentExpr()
	p.expect(token.RPAREN)
	stmt.CatchBody = p.parseBraceBlock()
	return &stmt
}

// parseExprStmt parses an expression statement. The semicolon is optional
// when the expression is immediately followed by the closing '}' of its
// enclosing block, which parseFuncBody uses to implement the
// single-expression lambda-body shorthand.
func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpression()
	var semi token.Pos
	if p.tok == token.SEMICOLON {
		semi = p.expect(token.SEMICOLON)
	} else if p.tok != token.RBRACE {
		p.errorExpected(p.val.Pos, "';'")
	}
	return &ast.ExprStmt{Expr: expr, Semi: semi}
}

func (p *parser) parseIdentExpr() *ast.IdentExpr {
	var expr ast.IdentExpr
	expr.Name = p.val.Raw
	expr.Start = p.expect(token.IDENT)
	return &expr
}
