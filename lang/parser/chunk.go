package parser

import (
	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/token"
)

func (p *parser) parseChunk() *ast.Chunk {
	var chunk ast.Chunk
	start := p.val.Pos

	var stmts []ast.Stmt
	for p.tok != token.EOF {
		if s := p.parseDeclaration(); s != nil {
			stmts = append(stmts, s)
		}
	}
	chunk.Block = &ast.Block{Start: start, End: p.val.Pos, Stmts: stmts}
	chunk.EOF = p.expect(token.EOF)
	return &chunk
}

// parseBraceBlock parses a brace-delimited sequence of declarations; the
// opening '{' must be the current token.
func (p *parser) parseBraceBlock() *ast.Block {
	var block ast.Block
	block.Start = p.expect(token.LBRACE)

	var stmts []ast.Stmt
	for p.tok != token.RBRACE && p.tok != token.EOF {
		if s := p.parseDeclaration(); s != nil {
			stmts = append(stmts, s)
		}
	}
	block.Stmts = stmts
	block.End = p.expect(token.RBRACE)
	return &block
}

// parseFuncBody is like parseBraceBlock, except that a trailing bare
// expression with no semicolon before the closing '}' is rewritten into an
// implicit return, per the lambda/function single-expression-body shorthand.
func (p *parser) parseFuncBody() *ast.Block {
	block := p.parseBraceBlock()
	if n := len(block.Stmts); n > 0 {
		if es, ok := block.Stmts[n-1].(*ast.ExprStmt); ok && !es.Semi.IsValid() {
			start, _ := es.Expr.Span()
			block.Stmts[n-1] = &ast.ReturnStmt{Start: start, Expr: es.Expr}
		}
	}
	return block
}

// parseStmtBody parses the body of an if/while/for statement: either a
// brace-delimited block or a single bare statement, wrapped so both forms
// are a Stmt.
func (p *parser) parseStmtBody() ast.Stmt {
	if p.tok == token.LBRACE {
		return &ast.BlockStmt{Block: p.parseBraceBlock()}
	}
	return p.parseStatement()
}

// synchronize skips tokens after a parse error until it reaches a likely
// statement boundary: just past a ';', or at a statement-introducing
// keyword, so the rest of the chunk can still be parsed and checked.
func (p *parser) synchronize() {
	for p.tok != token.EOF {
		if p.tok == token.SEMICOLON {
			p.advance()
			return
		}
		switch p.tok {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE,
			token.PRINT, token.RETURN, token.BREAK, token.CONTINUE, token.THROW,
			token.TRY, token.LBRACE, token.RBRACE:
			return
		}
		p.advance()
	}
}
