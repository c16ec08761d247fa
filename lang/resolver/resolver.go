// Much of the resolver package's block/binding machinery is adapted from
// the Starlark source code:
// https://github.com/google/starlark-go/tree/ee8ed142361c69d52fe8e9fb5e311d2a0a7c02de
//
// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package resolver walks a parsed chunk and resolves every identifier to a
// Binding: local (a function's own stack slot), cell (a local captured by
// a nested function), free (a reference to an enclosing function's cell,
// i.e. a closure upvalue), or global (resolved dynamically at runtime
// against the globals/STL tables).
//
// Unlike the compiler, which must linearize control flow as it emits
// bytecode, the resolver can afford a full tree walk: it runs once per
// chunk, before compilation, and annotates the AST in place so the
// compiler never needs to re-derive scoping information.
package resolver

import (
	"context"
	"fmt"

	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/scanner"
	"github.com/mna/glox/lang/token"
)

const thisName = "this"
const superName = "super"
const initName = "init"

// ResolveFiles walks every chunk produced by a successful parse and
// resolves the bindings used in the source code. On success, the AST is
// enriched with binding information and is ready to be compiled.
//
// An AST that resulted in errors in the parse phase should never be passed
// to the resolver; behavior is undefined.
//
// The returned error, if non-nil, is guaranteed to be a scanner.ErrorList.
func ResolveFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	var r resolver
	for _, ch := range chunks {
		start, _ := ch.Span()
		r.init(fset.File(start))
		r.chunk(ch)
	}
	r.errors.Sort()
	return r.errors.Err()
}

// block is one lexical scope: a chunk, a function body, or a brace-delimited
// block nested inside either.
type block struct {
	parent   *block
	fn       *Function // the enclosing function; shared by every block of that function
	bindings map[string]*Binding

	// topLevel is true only for the block pushed directly by chunk(): a
	// declaration made here has no enclosing brace and no enclosing function,
	// so it binds a name in the chunk's globals table (by name, looked up
	// dynamically at runtime) rather than a stack slot. Every other block,
	// including one opened by an explicit `{ }` at chunk depth, declares
	// ordinary locals.
	topLevel bool
}

type resolver struct {
	file   *token.File
	errors scanner.ErrorList

	env *block

	// loopDepth counts enclosing loop blocks within the *current function*;
	// reset to 0 whenever a new function is entered. break/continue are only
	// legal while loopDepth > 0.
	loopDepth int

	// funcDepth counts enclosing function/lambda bodies, so that `return` can
	// be rejected at true chunk top level (funcDepth == 0) while remaining
	// legal anywhere inside a function, method or lambda.
	funcDepth int

	// classes tracks the class bodies currently being resolved, innermost
	// last, to diagnose `this`/`super` used outside of a method and `super`
	// used in a class without a superclass.
	classes []classInfo

	// inMethod tracks, in parallel with the function nesting, whether the
	// current function is (or is nested inside) an instance method, so that
	// `this` and `super` remain valid inside lambdas defined in a method body.
	inMethod []bool

	// inInitializer tracks, in parallel with the function nesting, whether
	// the current function is (or is nested inside, e.g. a lambda) a class's
	// `init` method, so that `return expr;` with a value can be rejected
	// there (an initializer always implicitly returns the receiver).
	inInitializer []bool
}

type classInfo struct {
	hasSuper bool
}

func (r *resolver) init(file *token.File) {
	r.file = file
	r.env = nil
	r.loopDepth = 0
	r.funcDepth = 0
	r.classes = nil
	r.inMethod = nil
	r.inInitializer = nil
}

func (r *resolver) push(b *block) {
	if r.env != nil && b.fn == nil {
		b.fn = r.env.fn
	}
	b.parent = r.env
	b.bindings = make(map[string]*Binding)
	r.env = b
}

func (r *resolver) pop() { r.env = r.env.parent }

func (r *resolver) errorf(p token.Pos, format string, args ...interface{}) {
	r.errors.Add(r.file.Position(p), fmt.Sprintf(format, args...))
}

func (r *resolver) chunk(ch *ast.Chunk) {
	blk := &block{fn: &Function{Definition: ch}, topLevel: true}
	r.push(blk)
	r.inMethod = append(r.inMethod, false)
	if ch.Block != nil {
		for _, s := range ch.Block.Stmts {
			r.stmt(s)
		}
	}
	r.inMethod = r.inMethod[:len(r.inMethod)-1]
	r.pop()
	ch.Function = blk.fn
}

func (r *resolver) block(b *ast.Block) {
	r.push(&block{})
	for _, s := range b.Stmts {
		r.stmt(s)
	}
	r.pop()
}

// scopedStmt resolves a statement that is the body of an if/while/for in a
// fresh block, whether it is a braced BlockStmt or a single bare statement.
func (r *resolver) scopedStmt(s ast.Stmt) {
	if bs, ok := s.(*ast.BlockStmt); ok {
		r.block(bs.Block)
		return
	}
	r.push(&block{})
	r.stmt(s)
	r.pop()
}

func (r *resolver) loopBody(body ast.Stmt) {
	r.loopDepth++
	r.scopedStmt(body)
	r.loopDepth--
}

func (r *resolver) stmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.VarStmt:
		if stmt.Init != nil {
			r.expr(stmt.Init)
		}
		r.bindNamed(stmt.Name)

	case *ast.FuncStmt:
		r.bindNamed(stmt.Name)
		r.function(stmt, stmt.Fn, false, false)

	case *ast.ClassStmt:
		r.bindNamed(stmt.Name)
		r.classDecl(stmt)

	case *ast.ExprStmt:
		r.expr(stmt.Expr)

	case *ast.PrintStmt:
		r.expr(stmt.Expr)

	case *ast.IfStmt:
		r.expr(stmt.Cond)
		r.scopedStmt(stmt.Then)
		if stmt.Else != nil {
			r.scopedStmt(stmt.Else)
		}

	case *ast.BlockStmt:
		r.block(stmt.Block)

	case *ast.WhileStmt:
		r.expr(stmt.Cond)
		r.loopBody(stmt.Body)

	case *ast.ForStmt:
		r.push(&block{})
		if stmt.Init != nil {
			r.stmt(stmt.Init)
		}
		if stmt.Cond != nil {
			r.expr(stmt.Cond)
		}
		if stmt.Post != nil {
			r.expr(stmt.Post)
		}
		r.loopDepth++
		if initVar, ok := stmt.Init.(*ast.VarStmt); ok {
			// Every iteration gets its own copy of the loop variable in the
			// body's own scope, so a closure created in the body captures
			// that iteration's value instead of sharing one cell across all
			// iterations. The compiler copies the outer slot in at the top
			// of the body and back out before Post runs (and before any
			// `continue`).
			r.push(&block{})
			stmt.InnerBinding = r.declareNamed(initVar.Name.Name, initVar.Name)
			if bs, ok := stmt.Body.(*ast.BlockStmt); ok {
				for _, s := range bs.Block.Stmts {
					r.stmt(s)
				}
			} else {
				r.stmt(stmt.Body)
			}
			r.pop()
		} else {
			r.scopedStmt(stmt.Body)
		}
		r.loopDepth--
		r.pop()

	case *ast.BreakStmt:
		if r.loopDepth == 0 {
			r.errorf(stmt.Start, "cannot use 'break' outside of a loop")
		}

	case *ast.ContinueStmt:
		if r.loopDepth == 0 {
			r.errorf(stmt.Start, "cannot use 'continue' outside of a loop")
		}

	case *ast.ReturnStmt:
		if r.funcDepth == 0 {
			r.errorf(stmt.Start, "cannot return from top-level code")
		}
		if stmt.Expr != nil {
			if len(r.inInitializer) > 0 && r.inInitializer[len(r.inInitializer)-1] {
				r.errorf(stmt.Start, "cannot return a value from an initializer")
			}
			r.expr(stmt.Expr)
		}

	case *ast.ThrowStmt:
		r.expr(stmt.Expr)

	case *ast.TryStmt:
		r.block(stmt.Body)
		r.push(&block{})
		r.bindNamed(stmt.CatchName)
		for _, s := range stmt.CatchBody.Stmts {
			r.stmt(s)
		}
		r.pop()

	default:
		panic(fmt.Sprintf("unexpected stmt %T", stmt))
	}
}

func (r *resolver) expr(expr ast.Expr) {
	switch expr := expr.(type) {
	case *ast.LiteralExpr:
		// nothing to resolve

	case *ast.InterpolatedStringExpr:
		for _, e := range expr.Exprs {
			r.expr(e)
		}

	case *ast.IdentExpr:
		r.use(expr)

	case *ast.ThisExpr:
		r.useThis(expr)

	case *ast.SuperExpr:
		r.useSuper(expr)
		if expr.Index != nil {
			r.expr(expr.Index)
		}

	case *ast.GroupExpr:
		r.expr(expr.Expr)

	case *ast.UnaryExpr:
		r.expr(expr.Right)

	case *ast.BinaryExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.LogicalExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.TernaryExpr:
		r.expr(expr.Cond)
		r.expr(expr.Then)
		r.expr(expr.Else)

	case *ast.ElvisExpr:
		r.expr(expr.Left)
		r.expr(expr.Right)

	case *ast.AssignExpr:
		r.expr(expr.Value)
		if !ast.IsAssignable(expr.Target) {
			start, _ := expr.Target.Span()
			r.errorf(start, "invalid assignment target")
		} else {
			r.expr(expr.Target)
		}

	case *ast.CallExpr:
		r.expr(expr.Callee)
		for _, a := range expr.Args {
			r.expr(a)
		}

	case *ast.GetExpr:
		r.expr(expr.Object)

	case *ast.SetExpr:
		r.expr(expr.Object)
		r.expr(expr.Value)

	case *ast.IndexExpr:
		r.expr(expr.Object)
		r.expr(expr.Index)

	case *ast.IndexSetExpr:
		r.expr(expr.Object)
		r.expr(expr.Index)
		r.expr(expr.Value)

	case *ast.ArrayExpr:
		for _, e := range expr.Items {
			r.expr(e)
		}

	case *ast.FuncExpr:
		r.function(expr, expr, false, false)

	default:
		panic(fmt.Sprintf("unexpected expr %T", expr))
	}
}

// function resolves a function or lambda body in a fresh Function context.
// withThis binds the implicit receiver local for instance methods; isInit
// marks a class's `init` method, where a bare `return;` implicitly returns
// the receiver and `return expr;` is rejected.
func (r *resolver) function(definitionNode ast.Node, fn *ast.FuncExpr, withThis, isInit bool) {
	blk := &block{fn: &Function{Definition: definitionNode}}
	r.push(blk)
	savedLoopDepth := r.loopDepth
	r.loopDepth = 0
	r.funcDepth++
	r.inInitializer = append(r.inInitializer, isInit)

	if withThis {
		r.declareNamed(thisName, fn)
	}
	for _, p := range fn.Params {
		r.bindNamed(p)
	}
	for _, s := range fn.Body.Stmts {
		r.stmt(s)
	}

	r.inInitializer = r.inInitializer[:len(r.inInitializer)-1]
	r.loopDepth = savedLoopDepth
	r.funcDepth--
	r.pop()
	fn.Function = blk.fn
}

func (r *resolver) classDecl(stmt *ast.ClassStmt) {
	for _, s := range stmt.Supers {
		r.use(s)
	}

	hasSuper := len(stmt.Supers) > 0
	r.classes = append(r.classes, classInfo{hasSuper: hasSuper})

	if hasSuper {
		// a synthetic scope shared by every method so each can capture
		// `super` as an upvalue of the class body, mirroring how nested
		// functions capture any other enclosing local.
		r.push(&block{})
		stmt.SuperBinding = r.declareNamed(superName, stmt)
	}

	r.inMethod = append(r.inMethod, true)
	for _, m := range stmt.Methods {
		if m.Name.Name == initName {
			r.function(m, m.Fn, true, true)
			continue
		}
		r.function(m, m.Fn, true, false)
	}
	r.inMethod = r.inMethod[:len(r.inMethod)-1]

	r.inMethod = append(r.inMethod, false)
	for _, m := range stmt.StaticDefs {
		if m.Name.Name == initName {
			r.errorf(m.Fun, "'init' is disallowed for static methods")
		}
		r.function(m, m.Fn, false, false)
	}
	r.inMethod = r.inMethod[:len(r.inMethod)-1]

	if hasSuper {
		r.pop()
	}
	r.classes = r.classes[:len(r.classes)-1]
}

// bindNamed declares a new binding for ident in the current block (Global
// in a chunk's own top-level block, Local elsewhere),
// erroring if the name is already declared in that same block.
func (r *resolver) bindNamed(ident *ast.IdentExpr) {
	if _, ok := r.env.bindings[ident.Name]; ok {
		r.errorf(ident.Start, "already a variable named %q in this scope", ident.Name)
		return
	}
	ident.Binding = r.declareNamed(ident.Name, ident)
}

// declareNamed declares name in the current block without a duplicate
// check, used both for ordinary top-level/local declarations and for the
// compiler-synthesized `this`/`super` slots. A declaration made directly in
// the chunk's own block (not inside any `{ }`, function or method) becomes
// a Global, resolved by name at runtime against the globals table; every
// other declaration becomes an ordinary Local stack slot, possibly promoted
// to a Cell later if a nested function captures it.
func (r *resolver) declareNamed(name string, decl ast.Node) *Binding {
	var bdg *Binding
	if r.env.topLevel {
		bdg = &Binding{Scope: Global, Name: name, Decl: decl}
	} else {
		bdg = &Binding{Scope: Local, Name: name, Decl: decl}
		bdg.Index = len(r.env.fn.Locals)
		r.env.fn.Locals = append(r.env.fn.Locals, bdg)
	}
	r.env.bindings[name] = bdg
	return bdg
}

// resolveName walks the block chain looking for name, promoting an
// enclosing function's local to a cell and adding a free-variable entry in
// every intervening function as needed. It returns nil if name is not
// lexically bound anywhere, in which case the caller falls back to a
// dynamic global lookup. A Global binding, once found, is returned as-is:
// globals live in a name-keyed table rather than a slot, so they are never
// captured as an upvalue the way a Local/Cell is.
func (r *resolver) resolveName(name string) *Binding {
	startFn := r.env.fn
	for env := r.env; env != nil; env = env.parent {
		bdg, ok := env.bindings[name]
		if !ok {
			continue
		}
		if bdg.Scope == Global {
			return bdg
		}
		if env.fn == startFn {
			return bdg
		}

		// found in an enclosing function: turn it into a cell there, and
		// thread a free-variable binding through every function between.
		if bdg.Scope == Local {
			bdg.Scope = Cell
		}
		return r.threadFreeVar(name, bdg)
	}
	return nil
}

// threadFreeVar adds (or reuses) a Free binding for name in the current
// function, pointing at the cell binding found in an enclosing function.
func (r *resolver) threadFreeVar(name string, cell *Binding) *Binding {
	if bdg, ok := r.env.bindings[name]; ok && bdg.Scope == Free {
		return bdg
	}
	ix := len(r.env.fn.FreeVars)
	r.env.fn.FreeVars = append(r.env.fn.FreeVars, cell)
	bdg := &Binding{Scope: Free, Name: name, Index: ix, Decl: cell.Decl}
	r.env.bindings[name] = bdg
	return bdg
}

func (r *resolver) use(ident *ast.IdentExpr) {
	if bdg := r.resolveName(ident.Name); bdg != nil {
		ident.Binding = bdg
		return
	}
	ident.Binding = &Binding{Scope: Global, Name: ident.Name, Decl: ident}
}

func (r *resolver) useThis(expr *ast.ThisExpr) {
	if len(r.classes) == 0 {
		r.errorf(expr.Start, "cannot use 'this' outside of a method")
		expr.Binding = &Binding{Scope: Undefined}
		return
	}
	if bdg := r.resolveName(thisName); bdg != nil {
		expr.Binding = bdg
		return
	}
	r.errorf(expr.Start, "cannot use 'this' outside of a method")
	expr.Binding = &Binding{Scope: Undefined}
}

func (r *resolver) useSuper(expr *ast.SuperExpr) {
	if len(r.classes) == 0 {
		r.errorf(expr.Start, "cannot use 'super' outside of a class")
		expr.Binding = &Binding{Scope: Undefined}
		return
	}
	if !r.classes[len(r.classes)-1].hasSuper {
		r.errorf(expr.Start, "cannot use 'super' in a class with no superclass")
		expr.Binding = &Binding{Scope: Undefined}
		return
	}
	if bdg := r.resolveName(superName); bdg != nil {
		expr.Binding = bdg
		expr.This = r.resolveName(thisName)
		return
	}
	r.errorf(expr.Start, "cannot use 'super' outside of a method")
	expr.Binding = &Binding{Scope: Undefined}
}
