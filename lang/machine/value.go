package machine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mna/glox/lang/compiler"
)

// Value is any runtime value the machine can push on the operand stack,
// store in a local/global/upvalue slot, or pass as an argument. The
// concrete kinds are Nil, Bool, Number, *String, *Array, *Function,
// *Closure, *Native, *Class, *Instance, *BoundMethod, *Exception and
// *Slice.
type Value interface {
	Type() string
	String() string
}

// gcHeader is embedded in every heap-allocated Value kind to give the
// collector a mark bit and a lock bit without a second, parallel registry
// keyed by pointer identity.
type gcHeader struct {
	marked bool
	locked bool
}

// NilType is the type of the single Nil value.
type NilType struct{}

// Nil is the value of an uninitialized variable and of a bare `return;`.
var Nil Value = NilType{}

func (NilType) Type() string   { return "nil" }
func (NilType) String() string { return "nil" }

// Bool is the language's boolean type.
type Bool bool

func (b Bool) Type() string   { return "boolean" }
func (b Bool) String() string { return strconv.FormatBool(bool(b)) }

// Number is the language's only numeric type, a double-precision float.
type Number float64

func (n Number) Type() string { return "number" }
func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'g', -1, 64)
}

// String is an interned string value. Every String denoting the same text
// is the same pointer (see Thread.intern), so Go's == implements value
// equality and a String can be used directly as a key in the generic
// Value-keyed hash table.
type String struct {
	gcHeader
	S string
}

func (s *String) Type() string   { return "string" }
func (s *String) String() string { return s.S }

// Array is a growable, zero-indexed sequence of values.
type Array struct {
	gcHeader
	Items []Value
}

func (a *Array) Type() string { return "array" }
func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, it := range a.Items {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(describe(it))
	}
	b.WriteByte(']')
	return b.String()
}

// describe renders v the way it should appear nested inside a container,
// quoting strings so that print([ "a" ]) reads ["a"]: a string element is
// visually distinguishable from a number or other bare value.
func describe(v Value) string {
	if s, ok := v.(*String); ok {
		return strconv.Quote(s.S)
	}
	return v.String()
}

// Slice describes a `Slice(start, end, step)` value, passed as the Index
// of an IndexExpr to request a slice instead of a single element. Start,
// End and Step are each either a Number or Nil (meaning "unset": the
// beginning, the end, or a step of 1, respectively).
type Slice struct {
	gcHeader
	Start, End, Step Value
}

func (s *Slice) Type() string   { return "slice" }
func (s *Slice) String() string { return fmt.Sprintf("slice(%s, %s, %s)", s.Start, s.End, s.Step) }

// Function is the immutable, compiled form of a function or method body:
// the value shared by every Closure built from the same OP_CLOSURE
// constant.
type Function struct {
	gcHeader
	Chunk *compiler.Funcode
}

func (f *Function) Type() string   { return "function" }
func (f *Function) String() string { return fmt.Sprintf("<fn %s>", f.name()) }

func (f *Function) name() string {
	if f.Chunk.Name == "" {
		return "anonymous"
	}
	return f.Chunk.Name
}

// Cell is a heap-allocated box for a captured local: the local's frame
// slot holds a *Cell instead of the raw value once the resolver marks it
// captured, so every closure built over it shares the same box.
type Cell struct {
	gcHeader
	V Value
}

// Closure pairs a compiled Function with the Cells it captured from
// enclosing functions at the point it was created.
type Closure struct {
	gcHeader
	Fn       *Function
	Upvalues []*Cell
}

func (c *Closure) Type() string   { return "function" }
func (c *Closure) String() string { return c.Fn.String() }

// NativeFn is the Go implementation of a native function or method. args
// does not include the receiver; a method native receives it as recv.
type NativeFn func(th *Thread, recv Value, args []Value) (Value, error)

// Native is a built-in function or sentinel-class method implemented in
// Go rather than compiled Lox bytecode.
type Native struct {
	gcHeader
	NativeName string
	Arity      int // -1 means variadic: args may be any length
	Fn         NativeFn
}

func (n *Native) Type() string   { return "native" }
func (n *Native) String() string { return fmt.Sprintf("<native fn %s>", n.NativeName) }

// Class is a runtime class: a name, its own and inherited methods and
// static methods (already flattened by OP_INHERIT/OP_INHERIT_MULTIPLE at
// class-creation time, so method lookup never walks a superclass chain).
type Class struct {
	gcHeader
	Name    string
	Methods map[string]Value // *Closure or *Native
	Statics map[string]Value // *Closure or *Native

	// New, if set, replaces the generic Instance-allocating construction
	// path in instantiate(): a handful of STL sentinels (e.g. Slice) wrap a
	// concrete Go-side Value kind rather than a map[string]Value of fields,
	// and need the arguments steered into their own representation instead.
	New func(th *Thread, args []Value) (Value, error)
}

func (c *Class) Type() string   { return "class" }
func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

// Instance is an object created by calling a Class.
type Instance struct {
	gcHeader
	Class  *Class
	Fields map[string]Value
}

func (i *Instance) Type() string   { return i.Class.Name }
func (i *Instance) String() string { return fmt.Sprintf("<%s instance>", i.Class.Name) }

// BoundMethod pairs a receiver (an Instance, or a primitive value routed
// through its sentinel class) with one of its class's methods, produced by
// OP_GET_PROPERTY/OP_GET_SUPER when the looked-up name denotes a method
// rather than a field.
type BoundMethod struct {
	gcHeader
	Receiver Value
	Method   Value // *Closure or *Native
}

func (b *BoundMethod) Type() string { return "bound method" }
func (b *BoundMethod) String() string {
	return fmt.Sprintf("<bound method of %s>", b.Receiver.Type())
}

// Exception is the payload of a runtime-raised error (as opposed to a
// user `throw` of an arbitrary value, which throws whatever value the
// expression evaluated to unchanged).
type Exception struct {
	gcHeader
	Message string
}

func (e *Exception) Type() string   { return "exception" }
func (e *Exception) String() string { return e.Message }

// Truthy reports whether v is considered true in a boolean context. nil
// and false are always falsy; everything else is truthy unless extended
// falseness is enabled, in which case 0, the empty string and an empty
// array are falsy too.
func Truthy(v Value, extended bool) bool {
	switch v := v.(type) {
	case NilType:
		return false
	case Bool:
		return bool(v)
	}
	if !extended {
		return true
	}
	switch v := v.(type) {
	case Number:
		return v != 0
	case *String:
		return v.S != ""
	case *Array:
		return len(v.Items) != 0
	}
	return true
}

// Equal implements Lox's `==`: numbers and booleans compare by value,
// strings by content (which, thanks to interning, is also pointer
// equality), nil equals only nil, and every other kind compares by
// identity.
func Equal(a, b Value) bool {
	switch a := a.(type) {
	case NilType:
		_, ok := b.(NilType)
		return ok
	case Bool:
		bb, ok := b.(Bool)
		return ok && a == bb
	case Number:
		bn, ok := b.(Number)
		return ok && a == bn
	case *String:
		bs, ok := b.(*String)
		return ok && (a == bs || a.S == bs.S)
	default:
		return a == b
	}
}
