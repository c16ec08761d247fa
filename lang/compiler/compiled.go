package compiler

import "github.com/mna/glox/lang/token"

// Program is the compiled form of one source chunk: its implicit top-level
// function, which in turn references every nested function/method/lambda it
// declares as a constant consumed by OP_CLOSURE.
type Program struct {
	Filename string
	Toplevel *Funcode
}

// Funcode is the compiled code of one function: the chunk's own implicit
// top-level function, a named function or method, or a lambda.
type Funcode struct {
	Pos       token.Pos // position of the `fun` (or the chunk start, for the top-level function)
	Name      string
	IsMethod  bool // true if Locals[0] is the implicit `this` receiver
	IsInit    bool // true for a class's `init` method: bare `return;` yields the receiver
	NumParams int

	Code  []byte
	lines []lineInfo // sparse pc -> source line mapping, sorted by PC

	// Constants holds the function's constant pool: float64, string, bool or
	// nil literal values, plus *Funcode for every nested function/lambda/
	// method it declares (consumed by OP_CLOSURE to build a closure over it).
	// It is untyped rather than lang/machine.Value to avoid an import cycle;
	// lang/machine converts an entry to its own Value representation each
	// time an instruction reads it.
	Constants []any

	Locals   []Binding // locals/cells, receiver (if any) and params first
	Cells    []int     // indices into Locals that require cell-boxing
	Freevars []Binding // upvalues captured from the enclosing function, in capture order
}

// lineInfo records that the instruction starting at PC begins source Line.
type lineInfo struct {
	PC   uint32
	Line int32
}

// LineForPC returns the source line of the instruction at pc: the line of
// the last entry starting at or before pc (so a pc past the end of Code
// yields the last line), or 0 if no entry starts at or before pc. Used for
// runtime error messages and disassembly.
func (fn *Funcode) LineForPC(pc uint32) int32 {
	line := int32(0)
	for _, li := range fn.lines {
		if li.PC > pc {
			break
		}
		line = li.Line
	}
	return line
}

// Binding names a compiled local or captured variable slot, kept only for
// disassembly and runtime diagnostics ("undefined variable", stack traces).
type Binding struct {
	Name string
	Pos  token.Pos
}
