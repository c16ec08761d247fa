package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/token"
)

func parse(t *testing.T, src string) *ast.Chunk {
	t.Helper()
	fset := token.NewFileSet()
	ch, err := ParseChunk(context.Background(), fset, "test.lox", []byte(src))
	require.NoError(t, err)
	return ch
}

func TestParseVarStmt(t *testing.T) {
	ch := parse(t, `var x = 1;`)
	require.Len(t, ch.Block.Stmts, 1)
	stmt, ok := ch.Block.Stmts[0].(*ast.VarStmt)
	require.True(t, ok)
	assert.Equal(t, "x", stmt.Name.Name)
	lit, ok := stmt.Init.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, token.NUMBER, lit.Type)
	assert.Equal(t, "1", lit.Raw)
}

func TestParseVarStmtNoInit(t *testing.T) {
	ch := parse(t, `var x;`)
	stmt := ch.Block.Stmts[0].(*ast.VarStmt)
	assert.Nil(t, stmt.Init)
}

func TestParseIfElse(t *testing.T) {
	ch := parse(t, `if (x) print 1; else print 2;`)
	stmt, ok := ch.Block.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	require.NotNil(t, stmt.Cond)
	_, ok = stmt.Then.(*ast.PrintStmt)
	assert.True(t, ok)
	require.NotNil(t, stmt.Else)
	_, ok = stmt.Else.(*ast.PrintStmt)
	assert.True(t, ok)
}

func TestParseWhile(t *testing.T) {
	ch := parse(t, `while (true) { x = x - 1; }`)
	stmt, ok := ch.Block.Stmts[0].(*ast.WhileStmt)
	require.True(t, ok)
	blk, ok := stmt.Body.(*ast.BlockStmt)
	require.True(t, ok)
	assert.Len(t, blk.Block.Stmts, 1)
}

func TestParseForFull(t *testing.T) {
	ch := parse(t, `for (var i = 0; i < 10; i = i + 1) print i;`)
	stmt, ok := ch.Block.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	_, ok = stmt.Init.(*ast.VarStmt)
	assert.True(t, ok)
	require.NotNil(t, stmt.Cond)
	require.NotNil(t, stmt.Post)
}

func TestParseForEmptyClauses(t *testing.T) {
	ch := parse(t, `for (;;) break;`)
	stmt, ok := ch.Block.Stmts[0].(*ast.ForStmt)
	require.True(t, ok)
	assert.Nil(t, stmt.Init)
	assert.Nil(t, stmt.Cond)
	assert.Nil(t, stmt.Post)
}

func TestParseFuncDecl(t *testing.T) {
	ch := parse(t, `fun add(a, b) { return a + b; }`)
	stmt, ok := ch.Block.Stmts[0].(*ast.FuncStmt)
	require.True(t, ok)
	assert.Equal(t, "add", stmt.Name.Name)
	require.Len(t, stmt.Fn.Params, 2)
	assert.Equal(t, "a", stmt.Fn.Params[0].Name)
	assert.Equal(t, "b", stmt.Fn.Params[1].Name)
	require.Len(t, stmt.Fn.Body.Stmts, 1)
	_, ok = stmt.Fn.Body.Stmts[0].(*ast.ReturnStmt)
	assert.True(t, ok)
}

func TestParseLambdaImplicitReturn(t *testing.T) {
	ch := parse(t, `var f = fun(x) { x + 1 };`)
	stmt := ch.Block.Stmts[0].(*ast.VarStmt)
	fn, ok := stmt.Init.(*ast.FuncExpr)
	require.True(t, ok)
	require.Len(t, fn.Body.Stmts, 1)
	ret, ok := fn.Body.Stmts[0].(*ast.ReturnStmt)
	require.True(t, ok, "bare trailing expression should become a return")
	_, ok = ret.Expr.(*ast.BinaryExpr)
	assert.True(t, ok)
}

func TestParseLambdaExplicitReturnStaysOrdinary(t *testing.T) {
	ch := parse(t, `var f = fun(x) { return x; x + 1; };`)
	stmt := ch.Block.Stmts[0].(*ast.VarStmt)
	fn := stmt.Init.(*ast.FuncExpr)
	require.Len(t, fn.Body.Stmts, 2)
	_, ok := fn.Body.Stmts[1].(*ast.ExprStmt)
	assert.True(t, ok, "a semicolon-terminated trailing expression is not rewritten")
}

func TestParseClassSingleInheritance(t *testing.T) {
	ch := parse(t, `class Dog < Animal {
		fun bark() { print "woof"; }
		static fun create() { return Dog(); }
	}`)
	stmt, ok := ch.Block.Stmts[0].(*ast.ClassStmt)
	require.True(t, ok)
	assert.Equal(t, "Dog", stmt.Name.Name)
	require.Len(t, stmt.Supers, 1)
	assert.Equal(t, "Animal", stmt.Supers[0].Name)
	require.Len(t, stmt.Methods, 1)
	assert.Equal(t, "bark", stmt.Methods[0].Name.Name)
	require.Len(t, stmt.StaticDefs, 1)
	assert.Equal(t, "create", stmt.StaticDefs[0].Name.Name)
}

func TestParseClassMultipleInheritance(t *testing.T) {
	ch := parse(t, `class C < [A, B] {}`)
	stmt := ch.Block.Stmts[0].(*ast.ClassStmt)
	require.Len(t, stmt.Supers, 2)
	assert.Equal(t, "A", stmt.Supers[0].Name)
	assert.Equal(t, "B", stmt.Supers[1].Name)
}

func TestParseClassNoSupers(t *testing.T) {
	ch := parse(t, `class Plain {}`)
	stmt := ch.Block.Stmts[0].(*ast.ClassStmt)
	assert.Empty(t, stmt.Supers)
}

func TestParseAssignmentRewriteToSet(t *testing.T) {
	ch := parse(t, `a.b = 1;`)
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	set, ok := es.Expr.(*ast.SetExpr)
	require.True(t, ok, "assignment to a GetExpr target should parse directly as SetExpr")
	assert.Equal(t, "b", set.Name.Name)
}

func TestParseAssignmentRewriteToIndexSet(t *testing.T) {
	ch := parse(t, `a[0] = 1;`)
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	_, ok := es.Expr.(*ast.IndexSetExpr)
	assert.True(t, ok, "assignment to an IndexExpr target should parse directly as IndexSetExpr")
}

func TestParseCompoundAssignment(t *testing.T) {
	ch := parse(t, `x += 1;`)
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	assign, ok := es.Expr.(*ast.AssignExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS_EQ, assign.Op)
}

func TestParseTernaryAndElvis(t *testing.T) {
	ch := parse(t, `a ? b : c; x ?: y;`)
	require.Len(t, ch.Block.Stmts, 2)
	es1 := ch.Block.Stmts[0].(*ast.ExprStmt)
	_, ok := es1.Expr.(*ast.TernaryExpr)
	assert.True(t, ok)
	es2 := ch.Block.Stmts[1].(*ast.ExprStmt)
	_, ok = es2.Expr.(*ast.ElvisExpr)
	assert.True(t, ok)
}

func TestParsePrecedence(t *testing.T) {
	ch := parse(t, `1 + 2 * 3;`)
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	bin, ok := es.Expr.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, bin.Op)
	_, ok = bin.Left.(*ast.LiteralExpr)
	assert.True(t, ok, "1 is the left operand of +")
	rhs, ok := bin.Right.(*ast.BinaryExpr)
	require.True(t, ok, "2 * 3 should bind tighter than +")
	assert.Equal(t, token.STAR, rhs.Op)
}

func TestParseCallGetIndexChain(t *testing.T) {
	ch := parse(t, `a.b(1, 2)[0];`)
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	idx, ok := es.Expr.(*ast.IndexExpr)
	require.True(t, ok)
	call, ok := idx.Object.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	get, ok := call.Callee.(*ast.GetExpr)
	require.True(t, ok)
	assert.Equal(t, "b", get.Name.Name)
}

func TestParseThisAndSuper(t *testing.T) {
	ch := parse(t, `class C < P {
		fun m() { this.x = super.m(); }
	}`)
	stmt := ch.Block.Stmts[0].(*ast.ClassStmt)
	method := stmt.Methods[0]
	ret := method.Fn.Body.Stmts[0]
	set, ok := ret.(*ast.ExprStmt).Expr.(*ast.SetExpr)
	require.True(t, ok)
	_, ok = set.Object.(*ast.ThisExpr)
	assert.True(t, ok)
	call, ok := set.Value.(*ast.CallExpr)
	require.True(t, ok)
	sup, ok := call.Callee.(*ast.SuperExpr)
	require.True(t, ok)
	assert.Equal(t, "m", sup.Name.Name)
}

func TestParseSuperIndexForm(t *testing.T) {
	ch := parse(t, `class C < [A, B] {
		fun m() { return super[0].m; }
	}`)
	stmt := ch.Block.Stmts[0].(*ast.ClassStmt)
	ret := stmt.Methods[0].Fn.Body.Stmts[0].(*ast.ReturnStmt)
	sup, ok := ret.Expr.(*ast.SuperExpr)
	require.True(t, ok)
	assert.Nil(t, sup.Name)
	require.NotNil(t, sup.Index)
	require.NotNil(t, sup.Dot)
	assert.Equal(t, "m", sup.Dot.Name)
}

func TestParseArrayLiteral(t *testing.T) {
	ch := parse(t, `[1, 2, 3,];`)
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	arr, ok := es.Expr.(*ast.ArrayExpr)
	require.True(t, ok)
	assert.Len(t, arr.Items, 3, "trailing comma should not produce a phantom 4th item")
}

func TestParseStringInterpolation(t *testing.T) {
	ch := parse(t, "\"hi ${name}!\";")
	es := ch.Block.Stmts[0].(*ast.ExprStmt)
	is, ok := es.Expr.(*ast.InterpolatedStringExpr)
	require.True(t, ok)
	require.Len(t, is.Exprs, 1)
	require.Len(t, is.Parts, 2)
	assert.Equal(t, "hi ", is.Parts[0])
	assert.Equal(t, "!", is.Parts[1])
	ident, ok := is.Exprs[0].(*ast.IdentExpr)
	require.True(t, ok)
	assert.Equal(t, "name", ident.Name)
}

func TestParseTryCatch(t *testing.T) {
	ch := parse(t, `try { throw 1; } catch (e) { print e; }`)
	stmt, ok := ch.Block.Stmts[0].(*ast.TryStmt)
	require.True(t, ok)
	require.Len(t, stmt.Body.Stmts, 1)
	_, ok = stmt.Body.Stmts[0].(*ast.ThrowStmt)
	assert.True(t, ok)
	assert.Equal(t, "e", stmt.CatchName.Name)
	require.Len(t, stmt.CatchBody.Stmts, 1)
}

func TestParseErrorRecoverySkipsBadStatement(t *testing.T) {
	fset := token.NewFileSet()
	ch, err := ParseChunk(context.Background(), fset, "test.lox", []byte(`
		var x = ;
		var y = 2;
	`))
	require.Error(t, err, "missing initializer expression should be reported")
	require.Len(t, ch.Block.Stmts, 1, "the malformed statement contributes no node, but parsing resumes after it")
	stmt, ok := ch.Block.Stmts[0].(*ast.VarStmt)
	require.True(t, ok)
	assert.Equal(t, "y", stmt.Name.Name)
}

func TestParseErrorMissingSemicolon(t *testing.T) {
	fset := token.NewFileSet()
	_, err := ParseChunk(context.Background(), fset, "test.lox", []byte(`print 1`))
	assert.Error(t, err)
}
