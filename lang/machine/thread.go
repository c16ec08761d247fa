package machine

import (
	"fmt"
	"io"
	"os"

	"github.com/dolthub/swiss"
	"github.com/mna/glox/lang/compiler"
)

// Thread is one execution context: its operand/locals stack, call frames,
// globals table, string intern table and I/O streams. A Thread is not
// safe for concurrent use; the language has no built-in concurrency, so a
// program runs on exactly one Thread for its whole lifetime.
type Thread struct {
	Name string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxCallStackDepth bounds recursion; exceeding it raises a catchable
	// stack-overflow Exception rather than crashing the Go process. Zero
	// means DefaultMaxCallStackDepth.
	MaxCallStackDepth int

	// ExtendedFalseness selects the extended falseness policy (0, "" and
	// an empty array are falsy in addition to nil/false). Off by default;
	// nothing in this package turns it on.
	ExtendedFalseness bool

	// STL holds the predeclared, always-in-scope names (sentinel classes
	// Boolean/Number/String/Array/Slice/Function/Exception and natives like
	// clock), populated by lang/stl.Install before the thread runs any code.
	// It is a namespace distinct from Globals; OP_GET_GLOBAL consults
	// Globals first, so a user global of the same name hides the builtin
	// from every later lookup of that name. Built on
	// swiss.Map like Globals, for the same reason: it is a flat, rarely
	// resized name table looked up on every OP_GET_GLOBAL fallback.
	STL *swiss.Map[string, Value]

	Globals *globals
	interns *swiss.Map[string, *String]

	stack  []Value
	frames []*frame

	handlers []tryHandler

	gc *collector
}

// DefaultMaxCallStackDepth is used when Thread.MaxCallStackDepth is zero.
const DefaultMaxCallStackDepth = 1000

// NewThread returns a ready-to-run Thread. Stdout/Stderr/Stdin default to
// os.Stdout/os.Stderr/os.Stdin if left nil by the caller.
func NewThread(name string) *Thread {
	th := &Thread{
		Name:    name,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
		Globals: newGlobals(),
		interns: swiss.NewMap[string, *String](64),
		stack:   make([]Value, 0, 256),
	}
	th.gc = newCollector(th)
	return th
}

// InternString returns the canonical *String for s, for use by lang/stl
// and other callers outside the package that need to produce a String
// Value.
func (th *Thread) InternString(s string) *String { return th.intern(s) }

// intern returns the canonical *String for s, allocating it the first
// time s is seen so every subsequent String() of the same text is the
// same pointer.
func (th *Thread) intern(s string) *String {
	if v, ok := th.interns.Get(s); ok {
		return v
	}
	v := &String{S: s}
	th.interns.Put(s, v)
	return v
}

// NewArray returns a fresh, GC-tracked Array wrapping items, for use by
// lang/stl and other callers outside the package that need to produce an
// Array Value (e.g. the sub-array a Slice index produces).
func (th *Thread) NewArray(items []Value) *Array {
	a := &Array{Items: items}
	th.gc.register(a)
	return a
}

// NewSlice returns a fresh, GC-tracked Slice, for use by lang/stl's Slice
// sentinel constructor, which runs outside the package and so cannot
// reach the unexported collector directly.
func (th *Thread) NewSlice(start, end, step Value) *Slice {
	s := &Slice{Start: start, End: end, Step: step}
	th.gc.register(s)
	return s
}

// tryHandler is the bookkeeping for one active `try` block, pushed by
// OP_TRY_CALL and popped by OP_POP_TRY on normal completion.
type tryHandler struct {
	frameDepth int // len(th.frames) at the time of the OP_TRY_CALL
	stackLen   int // len(th.stack) at the time of the OP_TRY_CALL, before the try body ran
	addr       uint32
}

// RuntimeError is a Go error wrapping an uncaught thrown Value: a
// runtime-raised Exception, or any user value thrown with `throw expr;`
// that propagated past every handler.
type RuntimeError struct {
	Value    Value
	Filename string
	Line     int32
}

func (e *RuntimeError) Error() string {
	if e.Filename != "" {
		return fmt.Sprintf("%s:%d: uncaught %s", e.Filename, e.Line, e.Value)
	}
	return fmt.Sprintf("uncaught %s", e.Value)
}

// Run compiles program's toplevel Funcode into a Closure with no upvalues
// and runs it to completion, returning the toplevel chunk's final
// expression value (used by the REPL to auto-print) or an error.
func (th *Thread) Run(program *compiler.Program) (Value, error) {
	fn := &Function{Chunk: program.Toplevel}
	th.gc.register(fn)
	cl := &Closure{Fn: fn}
	th.gc.register(cl)

	base := len(th.stack)
	th.pushFrame(cl, base)
	v, err := th.run(0)
	if re, ok := err.(*RuntimeError); ok {
		re.Filename = program.Filename
	}
	th.stack = th.stack[:0]
	th.frames = th.frames[:0]
	return v, err
}

func (th *Thread) pushFrame(cl *Closure, base int) *frame {
	n := len(cl.Fn.Chunk.Locals)
	for len(th.stack) < base+n {
		th.stack = append(th.stack, Nil)
	}
	fr := &frame{closure: cl, base: base}
	th.frames = append(th.frames, fr)
	return fr
}

func (th *Thread) push(v Value) { th.stack = append(th.stack, v) }

func (th *Thread) pop() Value {
	n := len(th.stack) - 1
	v := th.stack[n]
	th.stack = th.stack[:n]
	return v
}

func (th *Thread) popN(n int) []Value {
	start := len(th.stack) - n
	vs := th.stack[start:]
	out := make([]Value, n)
	copy(out, vs)
	th.stack = th.stack[:start]
	return out
}

func (th *Thread) peek(fromTop int) Value {
	return th.stack[len(th.stack)-1-fromTop]
}
