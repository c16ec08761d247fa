package ast

import (
	"fmt"

	"github.com/mna/glox/lang/token"
)

// Unwrap strips GroupExpr wrappers recursively until it reaches a
// non-grouped expression.
func Unwrap(e Expr) Expr {
	if ge, ok := e.(*GroupExpr); ok {
		return Unwrap(ge.Expr)
	}
	return e
}

// IsAssignable reports whether e can appear on the left of an assignment.
// Identifiers, member access and subscript expressions are assignable; the
// left-hand side of a member/subscript must itself be a valid expression
// (not necessarily assignable, since `a.b.c = 1` assigns through `a.b`).
func IsAssignable(e Expr) bool {
	switch Unwrap(e).(type) {
	case *IdentExpr, *GetExpr, *IndexExpr:
		return true
	default:
		return false
	}
}

type (
	// LiteralExpr represents a number, string, true, false or nil literal.
	LiteralExpr struct {
		Type  token.Token // NUMBER, STRING, TRUE, FALSE or NIL
		Start token.Pos
		Raw   string
		Value interface{} // float64 | string | bool | nil
	}

	// InterpolatedStringExpr represents a string literal containing one or
	// more "${expr}" interpolations. Parts alternates literal string chunks
	// (possibly empty) and the interpolated expressions: it always holds
	// len(Exprs)+1 entries.
	InterpolatedStringExpr struct {
		Start token.Pos
		End   token.Pos
		Parts []string
		Exprs []Expr
	}

	// IdentExpr represents an identifier reference.
	IdentExpr struct {
		Start token.Pos
		Name  string

		// Binding is filled in by the resolver: *resolver.Binding, kept as an
		// untyped field to avoid an import cycle between ast and resolver.
		Binding any
	}

	// ThisExpr represents the `this` keyword.
	ThisExpr struct {
		Start token.Pos

		// Binding is filled in by the resolver: *resolver.Binding.
		Binding any
	}

	// SuperExpr represents `super.name`, `super.name(args)` or
	// `super[expr].name`. Exactly one of Name or Index is set.
	SuperExpr struct {
		Start token.Pos
		Name  *IdentExpr // method name, nil if Index is set
		Index Expr       // `super[expr].name`, nil if Name is set directly
		Dot   *IdentExpr // member accessed after Index; nil unless Index != nil
		End   token.Pos

		// Binding is filled in by the resolver: *resolver.Binding, for the
		// implicit `super` local.
		Binding any

		// This is filled in by the resolver alongside Binding: the
		// *resolver.Binding of the enclosing method's implicit `this` receiver,
		// which every super access needs pushed on the stack alongside the
		// superclass it resolves against.
		This any
	}

	// GroupExpr represents a parenthesized expression.
	GroupExpr struct {
		Lparen token.Pos
		Expr   Expr
		Rparen token.Pos
	}

	// UnaryExpr represents a unary `-`, `+` or `!` expression.
	UnaryExpr struct {
		Op      token.Token
		OpStart token.Pos
		Right   Expr
	}

	// BinaryExpr represents a binary arithmetic or relational expression.
	BinaryExpr struct {
		Left  Expr
		Op    token.Token
		OpPos token.Pos
		Right Expr
	}

	// LogicalExpr represents a short-circuiting `and`/`or` expression.
	LogicalExpr struct {
		Left  Expr
		Op    token.Token // AND or OR
		OpPos token.Pos
		Right Expr
	}

	// TernaryExpr represents `cond ? then : else`.
	TernaryExpr struct {
		Cond Expr
		Then Expr
		Else Expr
	}

	// ElvisExpr represents `lhs ?: rhs`: evaluates rhs only if lhs is falsy.
	ElvisExpr struct {
		Left  Expr
		OpPos token.Pos
		Right Expr
	}

	// AssignExpr represents `target = value` or a compound assignment
	// (`+= -= *= /=`). Target is an IdentExpr, GetExpr or IndexExpr.
	AssignExpr struct {
		Target Expr
		Op     token.Token // EQ, PLUS_EQ, MINUS_EQ, STAR_EQ or SLASH_EQ
		OpPos  token.Pos
		Value  Expr
	}

	// CallExpr represents a function or method call.
	CallExpr struct {
		Callee Expr
		Lparen token.Pos
		Args   []Expr
		Rparen token.Pos
	}

	// GetExpr represents member access `expr.name`.
	GetExpr struct {
		Object Expr
		Dot    token.Pos
		Name   *IdentExpr
	}

	// SetExpr represents an assignment to member access `expr.name = value`.
	// The parser produces it directly in place of an AssignExpr whose Target
	// is a GetExpr, so the compiler need not re-inspect assignment targets.
	SetExpr struct {
		Object Expr
		Dot    token.Pos
		Name   *IdentExpr
		Value  Expr
	}

	// IndexExpr represents `expr[index]` or the slice form
	// `expr[Slice(start, end, step)]`; slicing is just a call expression
	// passed as Index, distinguished at runtime by the STL Slice sentinel.
	IndexExpr struct {
		Object Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
	}

	// IndexSetExpr represents an assignment through a subscript,
	// `expr[index] = value`.
	IndexSetExpr struct {
		Object Expr
		Lbrack token.Pos
		Index  Expr
		Rbrack token.Pos
		Value  Expr
	}

	// ArrayExpr represents an array literal `[e, e, ...]`.
	ArrayExpr struct {
		Lbrack token.Pos
		Items  []Expr
		Rbrack token.Pos
	}

	// FuncExpr represents a function or lambda literal.
	FuncExpr struct {
		Fun    token.Pos // zero if an implicit lambda with no `fun` keyword
		Params []*IdentExpr
		Body   *Block

		// Function is filled in by the resolver: *resolver.Function, kept as
		// an untyped field to avoid an import cycle between ast and resolver.
		Function any
	}
)

func (n *LiteralExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, n.Type.String()+" "+n.Raw, nil)
}
func (n *LiteralExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Raw))
}
func (n *LiteralExpr) Walk(v Visitor) {}
func (n *LiteralExpr) expr()          {}

func (n *InterpolatedStringExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "interpolated string", map[string]int{"exprs": len(n.Exprs)})
}
func (n *InterpolatedStringExpr) Span() (start, end token.Pos) { return n.Start, n.End }
func (n *InterpolatedStringExpr) Walk(v Visitor) {
	for _, e := range n.Exprs {
		Walk(v, e)
	}
}
func (n *InterpolatedStringExpr) expr() {}

func (n *IdentExpr) Format(f fmt.State, verb rune) { format(f, verb, n, n.Name, nil) }
func (n *IdentExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len(n.Name))
}
func (n *IdentExpr) Walk(v Visitor) {}
func (n *IdentExpr) expr()          {}

func (n *ThisExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "this", nil) }
func (n *ThisExpr) Span() (start, end token.Pos) {
	return n.Start, n.Start + token.Pos(len("this"))
}
func (n *ThisExpr) Walk(v Visitor) {}
func (n *ThisExpr) expr()          {}

func (n *SuperExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "super", nil) }
func (n *SuperExpr) Span() (start, end token.Pos)  { return n.Start, n.End }
func (n *SuperExpr) Walk(v Visitor) {
	if n.Index != nil {
		Walk(v, n.Index)
	}
}
func (n *SuperExpr) expr() {}

func (n *GroupExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "(expr)", nil) }
func (n *GroupExpr) Span() (start, end token.Pos) {
	return n.Lparen, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *GroupExpr) Walk(v Visitor) { Walk(v, n.Expr) }
func (n *GroupExpr) expr()          {}

func (n *UnaryExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "unary "+n.Op.GoString(), nil)
}
func (n *UnaryExpr) Span() (start, end token.Pos) {
	_, end = n.Right.Span()
	return n.OpStart, end
}
func (n *UnaryExpr) Walk(v Visitor) { Walk(v, n.Right) }
func (n *UnaryExpr) expr()          {}

func (n *BinaryExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "binary "+n.Op.GoString(), nil)
}
func (n *BinaryExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *BinaryExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *BinaryExpr) expr() {}

func (n *LogicalExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "logical "+n.Op.String(), nil)
}
func (n *LogicalExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *LogicalExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *LogicalExpr) expr() {}

func (n *TernaryExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "ternary", nil) }
func (n *TernaryExpr) Span() (start, end token.Pos) {
	start, _ = n.Cond.Span()
	_, end = n.Else.Span()
	return start, end
}
func (n *TernaryExpr) Walk(v Visitor) {
	Walk(v, n.Cond)
	Walk(v, n.Then)
	Walk(v, n.Else)
}
func (n *TernaryExpr) expr() {}

func (n *ElvisExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "elvis", nil) }
func (n *ElvisExpr) Span() (start, end token.Pos) {
	start, _ = n.Left.Span()
	_, end = n.Right.Span()
	return start, end
}
func (n *ElvisExpr) Walk(v Visitor) {
	Walk(v, n.Left)
	Walk(v, n.Right)
}
func (n *ElvisExpr) expr() {}

func (n *AssignExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "assign "+n.Op.GoString(), nil)
}
func (n *AssignExpr) Span() (start, end token.Pos) {
	start, _ = n.Target.Span()
	_, end = n.Value.Span()
	return start, end
}
func (n *AssignExpr) Walk(v Visitor) {
	Walk(v, n.Target)
	Walk(v, n.Value)
}
func (n *AssignExpr) expr() {}

func (n *CallExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "call", map[string]int{"args": len(n.Args)})
}
func (n *CallExpr) Span() (start, end token.Pos) {
	start, _ = n.Callee.Span()
	return start, n.Rparen + token.Pos(len(token.RPAREN.String()))
}
func (n *CallExpr) Walk(v Visitor) {
	Walk(v, n.Callee)
	for _, a := range n.Args {
		Walk(v, a)
	}
}
func (n *CallExpr) expr() {}

func (n *GetExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "get ."+n.Name.Name, nil) }
func (n *GetExpr) Span() (start, end token.Pos) {
	start, _ = n.Object.Span()
	_, end = n.Name.Span()
	return start, end
}
func (n *GetExpr) Walk(v Visitor) { Walk(v, n.Object) }
func (n *GetExpr) expr()          {}

func (n *SetExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "set ."+n.Name.Name, nil) }
func (n *SetExpr) Span() (start, end token.Pos) {
	start, _ = n.Object.Span()
	_, end = n.Value.Span()
	return start, end
}
func (n *SetExpr) Walk(v Visitor) {
	Walk(v, n.Object)
	Walk(v, n.Value)
}
func (n *SetExpr) expr() {}

func (n *IndexExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "index", nil) }
func (n *IndexExpr) Span() (start, end token.Pos) {
	start, _ = n.Object.Span()
	return start, n.Rbrack + token.Pos(len(token.RBRACK.String()))
}
func (n *IndexExpr) Walk(v Visitor) {
	Walk(v, n.Object)
	Walk(v, n.Index)
}
func (n *IndexExpr) expr() {}

func (n *IndexSetExpr) Format(f fmt.State, verb rune) { format(f, verb, n, "index set", nil) }
func (n *IndexSetExpr) Span() (start, end token.Pos) {
	start, _ = n.Object.Span()
	_, end = n.Value.Span()
	return start, end
}
func (n *IndexSetExpr) Walk(v Visitor) {
	Walk(v, n.Object)
	Walk(v, n.Index)
	Walk(v, n.Value)
}
func (n *IndexSetExpr) expr() {}

func (n *ArrayExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "array", map[string]int{"items": len(n.Items)})
}
func (n *ArrayExpr) Span() (start, end token.Pos) {
	return n.Lbrack, n.Rbrack + token.Pos(len(token.RBRACK.String()))
}
func (n *ArrayExpr) Walk(v Visitor) {
	for _, e := range n.Items {
		Walk(v, e)
	}
}
func (n *ArrayExpr) expr() {}

func (n *FuncExpr) Format(f fmt.State, verb rune) {
	format(f, verb, n, "fn", map[string]int{"params": len(n.Params)})
}
func (n *FuncExpr) Span() (start, end token.Pos) {
	start = n.Fun
	if !start.IsValid() && len(n.Params) > 0 {
		start, _ = n.Params[0].Span()
	}
	_, end = n.Body.Span()
	return start, end
}
func (n *FuncExpr) Walk(v Visitor) {
	for _, p := range n.Params {
		Walk(v, p)
	}
	Walk(v, n.Body)
}
func (n *FuncExpr) expr() {}
