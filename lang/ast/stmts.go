package ast

import (
	"fmt"

	"github.com/mna/glox/lang/token"
)

type (
	// VarStmt represents a variable declaration, `var name [= expr];`.
	VarStmt struct {
		Var   token.Pos
		Name  *IdentExpr
		Init  Expr // nil if no initializer; the variable starts out nil
		Semi  token.Pos
	}

	// FuncStmt represents a named function declaration, `fun name(params) {
	// ... }`.
	FuncStmt struct {
		Fun  token.Pos
		Name *IdentExpr
		Fn   *FuncExpr
	}

	// ClassStmt represents a class declaration, including single or multiple
	// inheritance and the method/static-method bodies.
	ClassStmt struct {
		Class      token.Pos
		Name       *IdentExpr
		Supers     []*IdentExpr // 0, 1 (single) or many (multiple inheritance)
		Methods    []*FuncStmt
		StaticDefs []*FuncStmt
		End        token.Pos

		// NameBinding is filled in by the resolver: *resolver.Binding.
		NameBinding any

		// SuperBinding is filled in by the resolver when len(Supers) > 0: the
		// *resolver.Binding of the synthetic `super` slot shared by every
		// method, so the compiler can store the resolved superclass value there
		// once after inheriting, regardless of whether any method actually
		// captures it as a free variable.
		SuperBinding any
	}

	// BlockStmt wraps a brace-delimited Block so it can appear anywhere a
	// Stmt is expected (if/while/for bodies, nested blocks).
	BlockStmt struct {
		Block *Block
	}

	// ExprStmt represents an expression used as a statement.
	ExprStmt struct {
		Expr Expr
		Semi token.Pos
	}

	// PrintStmt represents `print expr;`.
	PrintStmt struct {
		Print token.Pos
		Expr  Expr
		Semi  token.Pos
	}

	// IfStmt represents `if (cond) then [else else]`.
	IfStmt struct {
		If   token.Pos
		Cond Expr
		Then Stmt
		Else Stmt // nil if no else clause
	}

	// WhileStmt represents `while (cond) body`.
	WhileStmt struct {
		While token.Pos
		Cond  Expr
		Body  Stmt
	}

	// ForStmt represents a C-style `for (init; cond; post) body`. Init may be
	// a *VarStmt or *ExprStmt; Cond and Post may be nil.
	ForStmt struct {
		For  token.Pos
		Init Stmt
		Cond Expr
		Post Expr
		Body Stmt

		// InnerBinding is filled in by the resolver only when Init is a
		// *VarStmt: it is the *resolver.Binding of a shadow copy of the loop
		// variable declared inside the body's own scope, so that a closure
		// created in one iteration captures that iteration's value rather
		// than sharing a single cell across every iteration. The compiler
		// copies the outer variable into it at the top of each iteration and
		// copies it back out before evaluating Post (and before any
		// `continue`).
		InnerBinding any
	}

	// BreakStmt represents `break;`.
	BreakStmt struct {
		Start token.Pos
	}

	// ContinueStmt represents `continue;`.
	ContinueStmt struct {
		Start token.Pos
	}

	// ReturnStmt represents `return [expr];`.
	ReturnStmt struct {
		Start token.Pos
		Expr  Expr // nil for a bare return
	}

	// ThrowStmt represents `throw expr;`.
	ThrowStmt struct {
		Start token.Pos
		Expr  Expr
	}

	// TryStmt represents `try block catch (name) block`.
	TryStmt struct {
		Try        token.Pos
		Body       *Block
		CatchName  *IdentExpr
		CatchBody  *Block
	}
)

func (n *BlockStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "block stmt", nil) }
func (n *BlockStmt) Span() (start, end token.Pos)  { return n.Block.Span() }
func (n *BlockStmt) Walk(v Visitor)                { Walk(v, n.Block) }
func (n *BlockStmt) BlockEnding() bool             { return false }

func (n *VarStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "var "+n.Name.Name, nil) }
func (n *VarStmt) Span() (start, end token.Pos)  { return n.Var, n.Semi }
func (n *VarStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	if n.Init != nil {
		Walk(v, n.Init)
	}
}
func (n *VarStmt) BlockEnding() bool { return false }

func (n *FuncStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "fun "+n.Name.Name, nil) }
func (n *FuncStmt) Span() (start, end token.Pos) {
	_, end = n.Fn.Span()
	return n.Fun, end
}
func (n *FuncStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	Walk(v, n.Fn)
}
func (n *FuncStmt) BlockEnding() bool { return false }

func (n *ClassStmt) Format(f fmt.State, verb rune) {
	format(f, verb, n, "class "+n.Name.Name, map[string]int{
		"supers":  len(n.Supers),
		"methods": len(n.Methods),
		"static":  len(n.StaticDefs),
	})
}
func (n *ClassStmt) Span() (start, end token.Pos) { return n.Class, n.End }
func (n *ClassStmt) Walk(v Visitor) {
	Walk(v, n.Name)
	for _, s := range n.Supers {
		Walk(v, s)
	}
	for _, m := range n.Methods {
		Walk(v, m)
	}
	for _, m := range n.StaticDefs {
		Walk(v, m)
	}
}
func (n *ClassStmt) BlockEnding() bool { return false }

func (n *ExprStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "expr stmt", nil) }
func (n *ExprStmt) Span() (start, end token.Pos) {
	start, _ = n.Expr.Span()
	return start, n.Semi
}
func (n *ExprStmt) Walk(v Visitor)    { Walk(v, n.Expr) }
func (n *ExprStmt) BlockEnding() bool { return false }

func (n *PrintStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "print", nil) }
func (n *PrintStmt) Span() (start, end token.Pos)  { return n.Print, n.Semi }
func (n *PrintStmt) Walk(v Visitor)                { Walk(v, n.Expr) }
func (n *PrintStmt) BlockEnding() bool             { return false }

func (n *IfStmt) Format(f fmt.State, verb rune) {
	lbl := "if"
	if n.Else != nil {
		lbl = "if else"
	}
	format(f, verb, n, lbl, nil)
}
func (n *IfStmt) Span() (start, end token.Pos) {
	if n.Else != nil {
		_, end = n.Else.Span()
	} else {
		_, end = n.Then.Span()
	}
	return n.If, end
}
func (n *IfStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	if n.Else != nil {
		Walk(v, n.Else)
	}
}
func (n *IfStmt) BlockEnding() bool { return false }

func (n *WhileStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "while", nil) }
func (n *WhileStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.While, end
}
func (n *WhileStmt) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Body)
}
func (n *WhileStmt) BlockEnding() bool { return false }

func (n *ForStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "for", nil) }
func (n *ForStmt) Span() (start, end token.Pos) {
	_, end = n.Body.Span()
	return n.For, end
}
func (n *ForStmt) Walk(v Visitor) {
	if n.Init != nil {
		Walk(v, n.Init)
	}
	if n.Cond != nil {
		Walk(v, n.Cond)
	}
	if n.Post != nil {
		Walk(v, n.Post)
	}
	Walk(v, n.Body)
}
func (n *ForStmt) BlockEnding() bool { return false }

func (n *BreakStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "break", nil) }
func (n *BreakStmt) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("break"))
}
func (n *BreakStmt) Walk(v Visitor)    {}
func (n *BreakStmt) BlockEnding() bool { return true }

func (n *ContinueStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "continue", nil) }
func (n *ContinueStmt) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("continue"))
}
func (n *ContinueStmt) Walk(v Visitor)    {}
func (n *ContinueStmt) BlockEnding() bool { return true }

func (n *ReturnStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "return", nil) }
func (n *ReturnStmt) Span() (start, end token.Pos) {
	end = n.Start + token.Pos(len("return"))
	if n.Expr != nil {
		_, end = n.Expr.Span()
	}
	return n.Start, end
}
func (n *ReturnStmt) Walk(v Visitor) {
	if n.Expr != nil {
		Walk(v, n.Expr)
	}
}
func (n *ReturnStmt) BlockEnding() bool { return true }

func (n *ThrowStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "throw", nil) }
func (n *ThrowStmt) Span() (start, end token.Pos) {
	_, end = n.Expr.Span()
	return n.Start, end
}
func (n *ThrowStmt) Walk(v Visitor)    { Walk(v, n.Expr) }
func (n *ThrowStmt) BlockEnding() bool { return true }

func (n *TryStmt) Format(f fmt.State, verb rune) { format(f, verb, n, "try catch", nil) }
func (n *TryStmt) Span() (start, end token.Pos) {
	_, end = n.CatchBody.Span()
	return n.Try, end
}
func (n *TryStmt) Walk(v Visitor) {
	Walk(v, n.Body)
	Walk(v, n.CatchName)
	Walk(v, n.CatchBody)
}
func (n *TryStmt) BlockEnding() bool { return false }
