package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/token"
)

// newPos sets up a FileSet with one dummy 64-byte file and returns a Pos
// within it; the resolver never reads the underlying source, it only uses
// positions to attribute errors, so every node in a test tree can safely
// share the same Pos.
func newPos() (*token.FileSet, token.Pos) {
	fset := token.NewFileSet()
	f := fset.AddFile("test.lox", -1, 64)
	return fset, f.Pos(0)
}

func ident(p token.Pos, name string) *ast.IdentExpr { return &ast.IdentExpr{Start: p, Name: name} }

func block(p token.Pos, stmts ...ast.Stmt) *ast.Block {
	return &ast.Block{Start: p, End: p, Stmts: stmts}
}

func resolve(t *testing.T, fset *token.FileSet, ch *ast.Chunk) error {
	t.Helper()
	return ResolveFiles(context.Background(), fset, []*ast.Chunk{ch})
}

func TestResolveLocal(t *testing.T) {
	fset, p := newPos()
	n := ident(p, "x")
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.BlockStmt{Block: block(p,
		&ast.VarStmt{Var: p, Name: ident(p, "x"), Semi: p},
		&ast.ExprStmt{Expr: n, Semi: p},
	)})}
	err := resolve(t, fset, ch)
	require.NoError(t, err)
	bdg, ok := n.Binding.(*Binding)
	require.True(t, ok)
	assert.Equal(t, Local, bdg.Scope)
}

func TestResolveGlobalFallback(t *testing.T) {
	fset, p := newPos()
	n := ident(p, "undeclared")
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.ExprStmt{Expr: n, Semi: p})}
	err := resolve(t, fset, ch)
	require.NoError(t, err)
	bdg := n.Binding.(*Binding)
	assert.Equal(t, Global, bdg.Scope)
}

func TestResolveDuplicateLocalErrors(t *testing.T) {
	fset, p := newPos()
	ch := &ast.Chunk{EOF: p, Block: block(p,
		&ast.VarStmt{Var: p, Name: ident(p, "x"), Semi: p},
		&ast.VarStmt{Var: p, Name: ident(p, "x"), Semi: p},
	)}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `already a variable named "x"`)
}

func TestResolveCellAndFreeAcrossClosure(t *testing.T) {
	fset, p := newPos()
	use := ident(p, "x")
	inner := &ast.FuncExpr{Fun: p, Body: block(p, &ast.ExprStmt{Expr: use, Semi: p})}
	outerUse := ident(p, "x")
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.BlockStmt{Block: block(p,
		&ast.VarStmt{Var: p, Name: ident(p, "x"), Semi: p},
		&ast.ExprStmt{Expr: &ast.AssignExpr{Target: outerUse, OpPos: p, Value: inner}, Semi: p},
	)})}
	err := resolve(t, fset, ch)
	require.NoError(t, err)

	innerBdg := use.Binding.(*Binding)
	assert.Equal(t, Free, innerBdg.Scope)

	outerBdg := outerUse.Binding.(*Binding)
	assert.Equal(t, Cell, outerBdg.Scope)
}

func TestResolveBreakOutsideLoopErrors(t *testing.T) {
	fset, p := newPos()
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.BreakStmt{Start: p})}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'break' outside of a loop")
}

func TestResolveContinueInsideLoopOK(t *testing.T) {
	fset, p := newPos()
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.WhileStmt{
		While: p,
		Cond:  &ast.LiteralExpr{Start: p, Type: token.TRUE, Value: true},
		Body:  &ast.BlockStmt{Block: block(p, &ast.ContinueStmt{Start: p})},
	})}
	err := resolve(t, fset, ch)
	assert.NoError(t, err)
}

func TestResolveBreakInsideFunctionNestedInLoopErrors(t *testing.T) {
	// break/continue do not cross function boundaries, even from a lambda
	// defined inside a loop body.
	fset, p := newPos()
	fn := &ast.FuncExpr{Fun: p, Body: block(p, &ast.BreakStmt{Start: p})}
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.WhileStmt{
		While: p,
		Cond:  &ast.LiteralExpr{Start: p, Type: token.TRUE, Value: true},
		Body:  &ast.BlockStmt{Block: block(p, &ast.ExprStmt{Expr: fn, Semi: p})},
	})}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'break' outside of a loop")
}

func TestResolveReturnAtTopLevelErrors(t *testing.T) {
	fset, p := newPos()
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.ReturnStmt{Start: p})}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot return from top-level code")
}

func TestResolveReturnInsideFunctionOK(t *testing.T) {
	fset, p := newPos()
	fn := &ast.FuncExpr{Fun: p, Body: block(p, &ast.ReturnStmt{
		Start: p,
		Expr:  &ast.LiteralExpr{Start: p, Type: token.NIL},
	})}
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.ExprStmt{Expr: fn, Semi: p})}
	err := resolve(t, fset, ch)
	assert.NoError(t, err)
}

func TestResolveThisOutsideMethodErrors(t *testing.T) {
	fset, p := newPos()
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.ExprStmt{Expr: &ast.ThisExpr{Start: p}, Semi: p})}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'this' outside of a method")
}

func TestResolveThisInsideMethodOK(t *testing.T) {
	fset, p := newPos()
	method := &ast.FuncStmt{
		Fun:  p,
		Name: ident(p, "greet"),
		Fn:   &ast.FuncExpr{Fun: p, Body: block(p, &ast.ExprStmt{Expr: &ast.ThisExpr{Start: p}, Semi: p})},
	}
	cls := &ast.ClassStmt{Class: p, End: p, Name: ident(p, "Greeter"), Methods: []*ast.FuncStmt{method}}
	ch := &ast.Chunk{EOF: p, Block: block(p, cls)}
	err := resolve(t, fset, ch)
	assert.NoError(t, err)
}

func TestResolveSuperWithoutSuperclassErrors(t *testing.T) {
	fset, p := newPos()
	method := &ast.FuncStmt{
		Fun:  p,
		Name: ident(p, "greet"),
		Fn: &ast.FuncExpr{Fun: p, Body: block(p, &ast.ExprStmt{
			Expr: &ast.SuperExpr{Start: p, End: p, Name: ident(p, "greet")},
			Semi: p,
		})},
	}
	cls := &ast.ClassStmt{Class: p, End: p, Name: ident(p, "Greeter"), Methods: []*ast.FuncStmt{method}}
	ch := &ast.Chunk{EOF: p, Block: block(p, cls)}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class with no superclass")
}

func TestResolveSuperWithSuperclassOK(t *testing.T) {
	fset, p := newPos()
	method := &ast.FuncStmt{
		Fun:  p,
		Name: ident(p, "greet"),
		Fn: &ast.FuncExpr{Fun: p, Body: block(p, &ast.ExprStmt{
			Expr: &ast.SuperExpr{Start: p, End: p, Name: ident(p, "greet")},
			Semi: p,
		})},
	}
	cls := &ast.ClassStmt{
		Class:   p,
		End:     p,
		Name:    ident(p, "Greeter"),
		Supers:  []*ast.IdentExpr{ident(p, "Base")},
		Methods: []*ast.FuncStmt{method},
	}
	ch := &ast.Chunk{EOF: p, Block: block(p,
		&ast.VarStmt{Var: p, Name: ident(p, "Base"), Semi: p},
		cls,
	)}
	err := resolve(t, fset, ch)
	assert.NoError(t, err)
}

func TestResolveInvalidAssignmentTargetErrors(t *testing.T) {
	fset, p := newPos()
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.ExprStmt{
		Expr: &ast.AssignExpr{
			Target: &ast.LiteralExpr{Start: p, Type: token.NIL},
			OpPos:  p,
			Value:  &ast.LiteralExpr{Start: p, Type: token.NIL},
		},
		Semi: p,
	})}
	err := resolve(t, fset, ch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid assignment target")
}

func TestResolveTryCatchBindsNameInCatchScopeOnly(t *testing.T) {
	fset, p := newPos()
	caught := ident(p, "err")
	ch := &ast.Chunk{EOF: p, Block: block(p, &ast.TryStmt{
		Try:       p,
		Body:      block(p),
		CatchName: ident(p, "err"),
		CatchBody: block(p, &ast.ExprStmt{Expr: caught, Semi: p}),
	})}
	err := resolve(t, fset, ch)
	require.NoError(t, err)
	bdg := caught.Binding.(*Binding)
	assert.Equal(t, Local, bdg.Scope)
}
