package resolver

import (
	"fmt"

	"github.com/mna/glox/lang/ast"
)

// Scope indicates what kind of scope a Binding has.
type Scope uint8

const (
	Undefined   Scope = iota // name is not defined
	Local                    // name is local to its function
	Cell                     // name is function-local but captured by a nested function
	Free                     // name is a cell of some enclosing function
	Global                   // name is a top-level (chunk-scoped) binding
)

var scopeNames = [...]string{
	Undefined: "undefined",
	Local:     "local",
	Cell:      "cell",
	Free:      "free",
	Global:    "global",
}

func (s Scope) String() string {
	if int(s) >= len(scopeNames) {
		return fmt.Sprintf("<invalid Scope %d>", s)
	}
	return scopeNames[s]
}

// A Binding contains resolver information about an identifier: the
// resolver creates one for every declaration and every `this`/`super`
// occurrence, and ties together all uses that denote the same variable.
type Binding struct {
	Scope Scope

	// Name is the identifier this binding was declared for (or the
	// synthetic "this"/"super" for an implicit receiver/superclass slot).
	Name string

	// Index records the slot index:
	//   - into the enclosing function's Locals, if Scope==Local or Cell
	//   - into the enclosing function's FreeVars, if Scope==Free
	// It is meaningless if Scope is Global or Undefined.
	Index int

	// Decl is the node that introduces this binding: an *ast.IdentExpr
	// parameter or VarStmt name, or the *ast.FuncStmt/*ast.ClassStmt name, or
	// the method's *ast.FuncExpr for the implicit `this` slot, or the
	// *ast.ClassStmt for the implicit `super` slot.
	Decl ast.Node
}

// Function groups the resolver's bookkeeping for one function/lambda
// (including the implicit top-level function of a chunk): every local slot
// it declares and every free variable it captures from an enclosing
// function.
type Function struct {
	// Definition is the node this Function was built for: *ast.Chunk,
	// *ast.FuncStmt or *ast.FuncExpr.
	Definition ast.Node
	Locals     []*Binding // local/cell variables, receiver and params first
	FreeVars   []*Binding // enclosing cells captured as upvalues, in capture order
}
