// Package compiler takes a parsed and resolved AST and compiles it to the
// bytecode executed by lang/machine: a single-pass, recursive-descent
// emitter with no separate IR, one fcomp per function/method/lambda/chunk,
// modeled directly on original_source/src/compiler.c's emitByte/emitJump/
// patchJump machinery and its resolveUpvalue upvalue-chain construction.
package compiler

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/resolver"
	"github.com/mna/glox/lang/token"
)

// CompileFiles takes the file set and corresponding list of chunks from
// a successful resolve result and compiles the AST to bytecode.
//
// An AST that resulted in errors in the resolve phase should never be
// passed to the compiler, the behavior is undefined.
//
// Compiling files does not return an error as a valid resolved AST
// should always generate a valid, executable compiled program.
func CompileFiles(ctx context.Context, fset *token.FileSet, chunks []*ast.Chunk) []*Program {
	if len(chunks) == 0 {
		return nil
	}

	progs := make([]*Program, len(chunks))
	for i, ch := range chunks {
		start, _ := ch.Span()
		file := fset.File(start)
		progs[i] = &Program{
			Filename: file.Name(),
			Toplevel: compileChunk(file, ch),
		}
	}
	return progs
}

// compileChunk compiles a chunk's top-level statements into its implicit
// top-level Funcode. Unlike every other function body, the chunk's last
// statement, if it is a bare expression statement, leaves its value on the
// stack as the return value instead of popping it: this is what lets a
// REPL auto-print the value of `1 + 2;` without a dedicated "print" verb.
func compileChunk(file *token.File, ch *ast.Chunk) *Funcode {
	rfn := ch.Function.(*resolver.Function)
	start, _ := ch.Span()
	fc := newFcomp(nil, file, rfn, "", 0, false, false, start)

	stmts := ch.Block.Stmts
	for i, s := range stmts {
		if i == len(stmts)-1 {
			if es, ok := s.(*ast.ExprStmt); ok {
				line := fc.lineOfExpr(es.Expr)
				fc.compileExpr(es.Expr)
				fc.emit(OP_RETURN, line)
				return fc.finish().fn
			}
		}
		fc.compileStmt(s)
	}
	line := fc.lineOf(ch.EOF)
	fc.emit(OP_NIL, line)
	fc.emit(OP_RETURN, line)
	return fc.finish().fn
}

// fcomp compiles one function, method, lambda or chunk top-level into a
// single Funcode: the Go equivalent of compiler.c's per-function Compiler
// struct, chained to its enclosing fcomp the same way a nested Compiler
// chains to compiler->enclosing.
type fcomp struct {
	parent *fcomp
	file   *token.File
	rfn    *resolver.Function

	fn       *Funcode
	lastLine int32

	constants  []any
	constIndex map[any]uint32

	// upvalueTargets/upvalueIsLocal/upvalueSlot are parallel slices: fc's own
	// upvalue list, built entirely at compile time by resolveUpvalue rather
	// than from the resolver's FreeVars (which only threads a capture into
	// the function where a name is directly used, not through every
	// intervening function between it and the declaring scope).
	upvalueTargets []*resolver.Binding
	upvalueIsLocal []bool
	upvalueSlot    []uint32

	loops []*loopCtx
}

// loopCtx is the break/continue bookkeeping for one enclosing while/for
// loop: where a `continue` loops back to, and the positions of every
// `break`'s forward jump, patched once the loop's own code is fully
// emitted.
type loopCtx struct {
	continueTarget int
	breakJumps     []int
}

// compiledFunc is the result of compiling a nested function/method: its
// Funcode plus the (isLocal, index) pairs the enclosing fcomp must write
// right after the OP_CLOSURE instruction that builds a closure over it.
type compiledFunc struct {
	fn      *Funcode
	upLocal []bool
	upIndex []uint32
}

func newFcomp(parent *fcomp, file *token.File, rfn *resolver.Function, name string, numParams int, isMethod, isInit bool, pos token.Pos) *fcomp {
	return &fcomp{
		parent: parent,
		file:   file,
		rfn:    rfn,
		fn: &Funcode{
			Pos:       pos,
			Name:      name,
			IsMethod:  isMethod,
			IsInit:    isInit,
			NumParams: numParams,
		},
		lastLine: -1,
	}
}

// finish fills in the Funcode's Locals/Cells/Freevars from the resolver's
// binding information and fc's own compile-time upvalue list.
func (fc *fcomp) finish() *compiledFunc {
	locals := make([]Binding, len(fc.rfn.Locals))
	var cells []int
	for i, l := range fc.rfn.Locals {
		locals[i] = Binding{Name: l.Name, Pos: declPos(l.Decl)}
		if l.Scope == resolver.Cell {
			cells = append(cells, i)
		}
	}
	freevars := make([]Binding, len(fc.upvalueTargets))
	for i, t := range fc.upvalueTargets {
		freevars[i] = Binding{Name: t.Name, Pos: declPos(t.Decl)}
	}
	fc.fn.Constants = fc.constants
	fc.fn.Locals = locals
	fc.fn.Cells = cells
	fc.fn.Freevars = freevars
	return &compiledFunc{fn: fc.fn, upLocal: fc.upvalueIsLocal, upIndex: fc.upvalueSlot}
}

func declPos(n ast.Node) token.Pos {
	start, _ := n.Span()
	return start
}

func (fc *fcomp) lineOf(pos token.Pos) int32 {
	return int32(fc.file.Position(pos).Line)
}

func (fc *fcomp) lineOfExpr(e ast.Expr) int32 {
	start, _ := e.Span()
	return fc.lineOf(start)
}

// --- byte/instruction emission -------------------------------------------

func (fc *fcomp) markLine(line int32) {
	if line == fc.lastLine {
		return
	}
	fc.fn.lines = append(fc.fn.lines, lineInfo{PC: uint32(len(fc.fn.Code)), Line: line})
	fc.lastLine = line
}

func (fc *fcomp) emit(op Opcode, line int32) {
	fc.markLine(line)
	fc.fn.Code = append(fc.fn.Code, byte(op))
}

func (fc *fcomp) emitVarint(v uint32) {
	var buf [binary.MaxVarintLen32]byte
	n := binary.PutUvarint(buf[:], uint64(v))
	fc.fn.Code = append(fc.fn.Code, buf[:n]...)
}

func (fc *fcomp) emitArg(op Opcode, arg uint32, line int32) {
	fc.markLine(line)
	fc.fn.Code = append(fc.fn.Code, byte(op))
	fc.emitVarint(arg)
}

// emitInvoke emits OP_INVOKE/OP_SUPER_INVOKE: a varint name-constant index
// followed by a raw (non-varint) argc byte, per opcode.go's encoding note.
func (fc *fcomp) emitInvoke(op Opcode, nameIdx uint32, argc int, line int32) {
	fc.emitArg(op, nameIdx, line)
	fc.fn.Code = append(fc.fn.Code, byte(argc))
}

// emitJump emits op with a placeholder 2-byte operand and returns the
// position of the first placeholder byte, to be patched by patchJump once
// the jump target is known.
func (fc *fcomp) emitJump(op Opcode, line int32) int {
	fc.markLine(line)
	fc.fn.Code = append(fc.fn.Code, byte(op), 0xff, 0xff)
	return len(fc.fn.Code) - 2
}

func (fc *fcomp) patchJump(pos int) {
	offset := len(fc.fn.Code) - (pos + 2)
	fc.fn.Code[pos] = byte(offset >> 8)
	fc.fn.Code[pos+1] = byte(offset)
}

// emitLoop emits OP_LOOP, a fixed-size backward jump to loopStart.
func (fc *fcomp) emitLoop(loopStart int, line int32) {
	fc.markLine(line)
	fc.fn.Code = append(fc.fn.Code, byte(OP_LOOP))
	offset := len(fc.fn.Code) + 2 - loopStart
	fc.fn.Code = append(fc.fn.Code, byte(offset>>8), byte(offset))
}

// emitClosure emits OP_CLOSURE for a just-compiled nested function,
// followed by the (isLocal byte, varint index) pairs that tell OP_CLOSURE's
// decoder in lang/machine how to build each of its upvalues.
func (fc *fcomp) emitClosure(cf *compiledFunc, line int32) {
	idx := fc.addFuncConstant(cf.fn)
	fc.emitArg(OP_CLOSURE, idx, line)
	for i, isLocal := range cf.upLocal {
		b := byte(0)
		if isLocal {
			b = 1
		}
		fc.fn.Code = append(fc.fn.Code, b)
		fc.emitVarint(cf.upIndex[i])
	}
}

// --- constant pool ---------------------------------------------------------

// addConstant interns a simple constant (nil, bool, float64 or string)
// into fc's constant pool, reusing the same index for equal values.
func (fc *fcomp) addConstant(v any) uint32 {
	if idx, ok := fc.constIndex[v]; ok {
		return idx
	}
	idx := uint32(len(fc.constants))
	fc.constants = append(fc.constants, v)
	if fc.constIndex == nil {
		fc.constIndex = make(map[any]uint32)
	}
	fc.constIndex[v] = idx
	return idx
}

// addFuncConstant appends a nested Funcode to the constant pool; unlike
// addConstant it never dedupes, since every nested function literal in the
// source is its own distinct constant.
func (fc *fcomp) addFuncConstant(nested *Funcode) uint32 {
	idx := uint32(len(fc.constants))
	fc.constants = append(fc.constants, nested)
	return idx
}

// --- upvalue resolution -----------------------------------------------------

// resolveUpvalue returns the index into fc's own upvalue list for target,
// an ancestor function's Cell-scoped binding, adding entries to fc and
// every intervening fcomp as needed. It mirrors clox's resolveUpvalue
// (original_source/src/compiler.c) and is what actually threads a capture
// through every function between the declaring scope and the use site: the
// resolver only adds a free-variable entry to the innermost, use-site
// function (see lang/resolver/resolver.go's threadFreeVar), so a closure
// nested two or more levels inside the declaring function would otherwise
// never get told it needs to re-capture the variable as its own upvalue.
func (fc *fcomp) resolveUpvalue(target *resolver.Binding) uint32 {
	for i, t := range fc.upvalueTargets {
		if t == target {
			return uint32(i)
		}
	}

	var isLocal bool
	var index uint32
	found := false
	for _, l := range fc.parent.rfn.Locals {
		if l == target {
			isLocal, index, found = true, uint32(l.Index), true
			break
		}
	}
	if !found {
		index = fc.parent.resolveUpvalue(target)
	}

	idx := uint32(len(fc.upvalueTargets))
	fc.upvalueTargets = append(fc.upvalueTargets, target)
	fc.upvalueIsLocal = append(fc.upvalueIsLocal, isLocal)
	fc.upvalueSlot = append(fc.upvalueSlot, index)
	return idx
}

// --- named bindings ---------------------------------------------------------

func (fc *fcomp) emitGetBinding(b *resolver.Binding, line int32) {
	switch b.Scope {
	case resolver.Global:
		fc.emitArg(OP_GET_GLOBAL, fc.addConstant(b.Name), line)
	case resolver.Free:
		target := fc.rfn.FreeVars[b.Index]
		fc.emitArg(OP_GET_UPVALUE, fc.resolveUpvalue(target), line)
	default: // Local, Cell: OP_GET_LOCAL unboxes a cell slot transparently
		fc.emitArg(OP_GET_LOCAL, uint32(b.Index), line)
	}
}

func (fc *fcomp) emitSetBinding(b *resolver.Binding, line int32) {
	switch b.Scope {
	case resolver.Global:
		fc.emitArg(OP_SET_GLOBAL, fc.addConstant(b.Name), line)
	case resolver.Free:
		target := fc.rfn.FreeVars[b.Index]
		fc.emitArg(OP_SET_UPVALUE, fc.resolveUpvalue(target), line)
	default:
		fc.emitArg(OP_SET_LOCAL, uint32(b.Index), line)
	}
}

// emitDefineBinding emits a declaration's initial store: OP_DEFINE_LOCAL
// boxes a fresh cell the first time it runs for a captured slot, which is
// exactly once per ordinary declaration (see compileFuncStmt/
// compileClassStmt for the one case, self- or sibling-referential local
// declarations, where the slot must already be boxed before this runs).
func (fc *fcomp) emitDefineBinding(b *resolver.Binding, line int32) {
	if b.Scope == resolver.Global {
		fc.emitArg(OP_DEFINE_GLOBAL, fc.addConstant(b.Name), line)
		return
	}
	fc.emitArg(OP_DEFINE_LOCAL, uint32(b.Index), line)
}

// --- statements --------------------------------------------------------------

func (fc *fcomp) compileStmt(stmt ast.Stmt) {
	switch stmt := stmt.(type) {
	case *ast.VarStmt:
		line := fc.lineOf(stmt.Var)
		if stmt.Init != nil {
			fc.compileExpr(stmt.Init)
		} else {
			fc.emit(OP_NIL, line)
		}
		fc.emitDefineBinding(stmt.Name.Binding.(*resolver.Binding), line)

	case *ast.FuncStmt:
		fc.compileFuncStmt(stmt)

	case *ast.ClassStmt:
		fc.compileClassStmt(stmt)

	case *ast.ExprStmt:
		line := fc.lineOfExpr(stmt.Expr)
		fc.compileExpr(stmt.Expr)
		fc.emit(OP_POP, line)

	case *ast.PrintStmt:
		line := fc.lineOf(stmt.Print)
		fc.compileExpr(stmt.Expr)
		fc.emit(OP_PRINT, line)

	case *ast.IfStmt:
		fc.compileIfStmt(stmt)

	case *ast.BlockStmt:
		// Every local in the function occupies a fixed slot for the whole
		// call, never reused across sibling blocks, so entering/leaving a
		// block needs no bytecode of its own.
		for _, s := range stmt.Block.Stmts {
			fc.compileStmt(s)
		}

	case *ast.WhileStmt:
		fc.compileWhileStmt(stmt)

	case *ast.ForStmt:
		fc.compileForStmt(stmt)

	case *ast.BreakStmt:
		line := fc.lineOf(stmt.Start)
		lc := fc.loops[len(fc.loops)-1]
		lc.breakJumps = append(lc.breakJumps, fc.emitJump(OP_JUMP, line))

	case *ast.ContinueStmt:
		line := fc.lineOf(stmt.Start)
		lc := fc.loops[len(fc.loops)-1]
		fc.emitLoop(lc.continueTarget, line)

	case *ast.ReturnStmt:
		line := fc.lineOf(stmt.Start)
		if stmt.Expr != nil {
			fc.compileExpr(stmt.Expr)
		} else {
			fc.emit(OP_NIL, line)
		}
		fc.emit(OP_RETURN, line)

	case *ast.ThrowStmt:
		line := fc.lineOf(stmt.Start)
		fc.compileExpr(stmt.Expr)
		fc.emit(OP_THROW, line)

	case *ast.TryStmt:
		fc.compileTryStmt(stmt)

	default:
		panic(fmt.Sprintf("compiler: unexpected stmt %T", stmt))
	}
}

func (fc *fcomp) compileIfStmt(stmt *ast.IfStmt) {
	line := fc.lineOf(stmt.If)
	fc.compileExpr(stmt.Cond)
	thenJump := fc.emitJump(OP_JUMP_IF_FALSE, line)
	fc.emit(OP_POP, line)
	fc.compileStmt(stmt.Then)

	if stmt.Else == nil {
		fc.patchJump(thenJump)
		fc.emit(OP_POP, line)
		return
	}
	elseJump := fc.emitJump(OP_JUMP, line)
	fc.patchJump(thenJump)
	fc.emit(OP_POP, line)
	fc.compileStmt(stmt.Else)
	fc.patchJump(elseJump)
}

func (fc *fcomp) compileWhileStmt(stmt *ast.WhileStmt) {
	line := fc.lineOf(stmt.While)
	loopStart := len(fc.fn.Code)
	fc.compileExpr(stmt.Cond)
	exitJump := fc.emitJump(OP_JUMP_IF_FALSE, line)
	fc.emit(OP_POP, line)

	fc.loops = append(fc.loops, &loopCtx{continueTarget: loopStart})
	fc.compileStmt(stmt.Body)
	fc.emitLoop(loopStart, line)
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	fc.patchJump(exitJump)
	fc.emit(OP_POP, line)
	for _, p := range lc.breakJumps {
		fc.patchJump(p)
	}
}

// compileForStmt desugars `for (init; cond; post) body` the way
// original_source/src/compiler.c's forStatement does: an unconditional
// jump over the increment clause on the first pass, so the increment runs
// at the *end* of every iteration including the first, right before the
// condition is re-checked. When Init declares a loop variable, every
// iteration also gets its own copy of it in the body's own slot (copied in
// before the body runs, copied back out before the increment), so a
// closure created in the body captures that iteration's value instead of
// sharing one cell across the whole loop.
func (fc *fcomp) compileForStmt(stmt *ast.ForStmt) {
	line := fc.lineOf(stmt.For)
	if stmt.Init != nil {
		fc.compileStmt(stmt.Init)
	}

	var outerBinding, innerBinding *resolver.Binding
	if initVar, ok := stmt.Init.(*ast.VarStmt); ok {
		outerBinding = initVar.Name.Binding.(*resolver.Binding)
		innerBinding = stmt.InnerBinding.(*resolver.Binding)
	}

	loopStart := len(fc.fn.Code)
	var exitJump int
	hasCond := stmt.Cond != nil
	if hasCond {
		fc.compileExpr(stmt.Cond)
		exitJump = fc.emitJump(OP_JUMP_IF_FALSE, line)
		fc.emit(OP_POP, line)
	}

	bodyJump := fc.emitJump(OP_JUMP, line)
	incrementStart := len(fc.fn.Code)
	if innerBinding != nil {
		fc.emitGetBinding(innerBinding, line)
		fc.emitSetBinding(outerBinding, line)
		fc.emit(OP_POP, line)
	}
	if stmt.Post != nil {
		fc.compileExpr(stmt.Post)
		fc.emit(OP_POP, line)
	}
	fc.emitLoop(loopStart, line)
	fc.patchJump(bodyJump)

	fc.loops = append(fc.loops, &loopCtx{continueTarget: incrementStart})
	if innerBinding != nil {
		fc.emitGetBinding(outerBinding, line)
		fc.emitDefineBinding(innerBinding, line)
	}
	fc.compileStmt(stmt.Body)
	fc.emitLoop(incrementStart, line)
	lc := fc.loops[len(fc.loops)-1]
	fc.loops = fc.loops[:len(fc.loops)-1]

	if hasCond {
		fc.patchJump(exitJump)
		fc.emit(OP_POP, line)
	}
	for _, p := range lc.breakJumps {
		fc.patchJump(p)
	}
}

// compileTryStmt matches the unwind performed by lang/machine/calls.go's
// throwValue: OP_TRY_CALL installs a handler recording the frame/stack
// depth as of *before* the try body runs and the address of the catch
// block; a throw while the handler is active truncates back to that depth
// and leaves the thrown value on the stack for the catch binding.
func (fc *fcomp) compileTryStmt(stmt *ast.TryStmt) {
	line := fc.lineOf(stmt.Try)
	tryJump := fc.emitJump(OP_TRY_CALL, line)
	for _, s := range stmt.Body.Stmts {
		fc.compileStmt(s)
	}
	fc.emit(OP_POP_TRY, line)
	skipCatch := fc.emitJump(OP_JUMP, line)

	fc.patchJump(tryJump)
	fc.emitDefineBinding(stmt.CatchName.Binding.(*resolver.Binding), line)
	for _, s := range stmt.CatchBody.Stmts {
		fc.compileStmt(s)
	}
	fc.patchJump(skipCatch)
}

// compileFuncStmt compiles a named function declaration. When the
// function's own binding has been promoted to Cell (it calls itself
// recursively, or a later sibling declaration captures it), the slot must
// already hold a Cell *before* the function body is compiled: the body's
// own OP_CLOSURE, emitted while building the nested Funcode below, tries
// to capture this slot as an upvalue, and that capture runs as part of
// *this* statement's own bytecode, before the ordinary OP_DEFINE_LOCAL
// that would otherwise box it for the first time. Pre-boxing with OP_NIL +
// OP_DEFINE_LOCAL, then finishing with OP_SET_LOCAL (which mutates the
// existing cell) instead of a second OP_DEFINE_LOCAL (which would allocate
// a new one and break the upvalue's identity), avoids a nil-slot capture.
// A global function sidesteps this entirely: it is called by dynamic name
// lookup, never by upvalue, so there is no capture-before-store ordering
// to worry about.
func (fc *fcomp) compileFuncStmt(stmt *ast.FuncStmt) {
	binding := stmt.Name.Binding.(*resolver.Binding)
	line := fc.lineOf(stmt.Fun)
	boxEarly := binding.Scope == resolver.Cell
	if boxEarly {
		fc.emit(OP_NIL, line)
		fc.emitDefineBinding(binding, line)
	}

	cf := fc.compileFunction(stmt.Name.Name, stmt.Fn, false, false, stmt.Fun)
	fc.emitClosure(cf, line)

	if boxEarly {
		fc.emitSetBinding(binding, line)
		fc.emit(OP_POP, line)
	} else {
		fc.emitDefineBinding(binding, line)
	}
}

const initMethodName = "init"

// compileClassStmt builds the class object, links its superclass(es),
// compiles and attaches every method and static method, and (when the
// class has at least one superclass) populates the synthetic `super`
// local every method can capture as a closure upvalue. The same box-early
// concern documented on compileFuncStmt applies identically here: a method
// body referencing its own enclosing class name recursively captures it
// before this statement's own binding store would otherwise run.
func (fc *fcomp) compileClassStmt(stmt *ast.ClassStmt) {
	nameBinding := stmt.Name.Binding.(*resolver.Binding)
	line := fc.lineOf(stmt.Class)
	boxEarly := nameBinding.Scope == resolver.Cell
	if boxEarly {
		fc.emit(OP_NIL, line)
		fc.emitDefineBinding(nameBinding, line)
	}

	fc.emitArg(OP_CLASS, fc.addConstant(stmt.Name.Name), line)

	multi := len(stmt.Supers) > 1
	if len(stmt.Supers) > 0 {
		for _, s := range stmt.Supers {
			fc.compileExpr(s)
		}
		if multi {
			fc.emitArg(OP_INHERIT_MULTIPLE, uint32(len(stmt.Supers)), line)
		} else {
			fc.emit(OP_INHERIT, line)
		}

		// Re-evaluate the (side-effect-free) superclass identifier(s) once
		// more to populate the synthetic `super` local: always a bare
		// *Class for single inheritance, or an array of them (indexed at
		// runtime by compileSuperClass) for multiple inheritance.
		superBinding := stmt.SuperBinding.(*resolver.Binding)
		if multi {
			for _, s := range stmt.Supers {
				fc.compileExpr(s)
			}
			fc.emitArg(OP_ARRAY, uint32(len(stmt.Supers)), line)
		} else {
			fc.compileExpr(stmt.Supers[0])
		}
		fc.emitDefineBinding(superBinding, line)
	}

	for _, m := range stmt.Methods {
		isInit := m.Name.Name == initMethodName
		cf := fc.compileFunction(m.Name.Name, m.Fn, true, isInit, m.Fun)
		fc.emitClosure(cf, line)
		fc.emitArg(OP_METHOD, fc.addConstant(m.Name.Name), line)
	}
	for _, m := range stmt.StaticDefs {
		cf := fc.compileFunction(m.Name.Name, m.Fn, false, false, m.Fun)
		fc.emitClosure(cf, line)
		fc.emitArg(OP_STATIC_METHOD, fc.addConstant(m.Name.Name), line)
	}

	if boxEarly {
		fc.emitSetBinding(nameBinding, line)
		fc.emit(OP_POP, line)
	} else {
		fc.emitDefineBinding(nameBinding, line)
	}
}

// compileFunction compiles a function/method/lambda body into a fresh
// Funcode, chained to fc as its enclosing function.
func (fc *fcomp) compileFunction(name string, fn *ast.FuncExpr, isMethod, isInit bool, pos token.Pos) *compiledFunc {
	rfn := fn.Function.(*resolver.Function)
	child := newFcomp(fc, fc.file, rfn, name, len(fn.Params), isMethod, isInit, pos)
	for _, s := range fn.Body.Stmts {
		child.compileStmt(s)
	}
	// Every path that doesn't end in an explicit `return` falls through to
	// here; the parser already rewrites a semicolon-less trailing
	// expression into a ReturnStmt (see parser/chunk.go's parseFuncBody),
	// so anything reaching this point legitimately returns nil.
	endLine := child.lineOf(fn.Body.End)
	child.emit(OP_NIL, endLine)
	child.emit(OP_RETURN, endLine)
	return child.finish()
}

// --- expressions -------------------------------------------------------------

func (fc *fcomp) compileExpr(expr ast.Expr) {
	line := fc.lineOfExpr(expr)
	switch expr := expr.(type) {
	case *ast.LiteralExpr:
		switch expr.Type {
		case token.NIL:
			fc.emit(OP_NIL, line)
		case token.TRUE:
			fc.emit(OP_TRUE, line)
		case token.FALSE:
			fc.emit(OP_FALSE, line)
		case token.NUMBER:
			fc.emitArg(OP_CONSTANT, fc.addConstant(expr.Value.(float64)), line)
		case token.STRING:
			fc.emitArg(OP_CONSTANT, fc.addConstant(expr.Value.(string)), line)
		}

	case *ast.InterpolatedStringExpr:
		fc.compileInterpolatedString(expr, line)

	case *ast.IdentExpr:
		fc.emitGetBinding(expr.Binding.(*resolver.Binding), line)

	case *ast.ThisExpr:
		fc.emitGetBinding(expr.Binding.(*resolver.Binding), line)

	case *ast.SuperExpr:
		fc.compileSuperGet(expr, line)

	case *ast.GroupExpr:
		fc.compileExpr(expr.Expr)

	case *ast.UnaryExpr:
		fc.compileExpr(expr.Right)
		switch expr.Op {
		case token.BANG:
			fc.emit(OP_NOT, line)
		case token.MINUS:
			fc.emit(OP_NEGATE, line)
		case token.PLUS:
			// unary `+` is accepted but has no runtime effect
		}

	case *ast.BinaryExpr:
		fc.compileExpr(expr.Left)
		fc.compileExpr(expr.Right)
		fc.emitBinaryOp(expr.Op, line)

	case *ast.LogicalExpr:
		fc.compileLogical(expr, line)

	case *ast.TernaryExpr:
		fc.compileTernary(expr, line)

	case *ast.ElvisExpr:
		fc.compileElvis(expr, line)

	case *ast.AssignExpr:
		fc.compileAssign(expr, line)

	case *ast.CallExpr:
		fc.compileCall(expr, line)

	case *ast.GetExpr:
		fc.compileExpr(expr.Object)
		fc.emitArg(OP_GET_PROPERTY, fc.addConstant(expr.Name.Name), line)

	case *ast.SetExpr:
		fc.compileExpr(expr.Object)
		fc.compileExpr(expr.Value)
		fc.emitArg(OP_SET_PROPERTY, fc.addConstant(expr.Name.Name), line)

	case *ast.IndexExpr:
		fc.compileExpr(expr.Object)
		fc.compileExpr(expr.Index)
		fc.emitInvoke(OP_INVOKE, fc.addConstant("get"), 1, line)

	case *ast.IndexSetExpr:
		fc.compileExpr(expr.Object)
		fc.compileExpr(expr.Index)
		fc.compileExpr(expr.Value)
		fc.emitInvoke(OP_INVOKE, fc.addConstant("set"), 2, line)

	case *ast.ArrayExpr:
		for _, it := range expr.Items {
			fc.compileExpr(it)
		}
		fc.emitArg(OP_ARRAY, uint32(len(expr.Items)), line)

	case *ast.FuncExpr:
		cf := fc.compileFunction("", expr, false, false, expr.Fun)
		fc.emitClosure(cf, line)

	default:
		panic(fmt.Sprintf("compiler: unexpected expr %T", expr))
	}
}

func (fc *fcomp) emitBinaryOp(op token.Token, line int32) {
	switch op {
	case token.PLUS:
		fc.emit(OP_ADD, line)
	case token.MINUS:
		fc.emit(OP_SUBTRACT, line)
	case token.STAR:
		fc.emit(OP_MULTIPLY, line)
	case token.SLASH:
		fc.emit(OP_DIVIDE, line)
	case token.EQ_EQ:
		fc.emit(OP_EQUAL, line)
	case token.BANG_EQ:
		fc.emit(OP_EQUAL, line)
		fc.emit(OP_NOT, line)
	case token.GT:
		fc.emit(OP_GREATER, line)
	case token.GT_EQ:
		fc.emit(OP_LESS, line)
		fc.emit(OP_NOT, line)
	case token.LT:
		fc.emit(OP_LESS, line)
	case token.LT_EQ:
		fc.emit(OP_GREATER, line)
		fc.emit(OP_NOT, line)
	default:
		panic(fmt.Sprintf("compiler: unexpected binary operator %s", op))
	}
}

// compileInterpolatedString compiles "a${b}c" into repeated calls to the
// STL's `string` (stringify one value) and `concatenate` (variadic
// string-join) natives, reached the same way any other predeclared name
// is: OP_GET_GLOBAL, which lang/machine falls back to Thread.STL for when
// the name isn't a user global.
func (fc *fcomp) compileInterpolatedString(e *ast.InterpolatedStringExpr, line int32) {
	fc.emitGlobalRef("concatenate", line)
	fc.emitArg(OP_CONSTANT, fc.addConstant(e.Parts[0]), line)
	for i, sub := range e.Exprs {
		fc.emitGlobalRef("string", line)
		fc.compileExpr(sub)
		fc.emitArg(OP_CALL, 1, line)
		fc.emitArg(OP_CONSTANT, fc.addConstant(e.Parts[i+1]), line)
	}
	argc := 1 + 2*len(e.Exprs)
	fc.emitArg(OP_CALL, uint32(argc), line)
}

func (fc *fcomp) emitGlobalRef(name string, line int32) {
	fc.emitArg(OP_GET_GLOBAL, fc.addConstant(name), line)
}

func (fc *fcomp) compileLogical(expr *ast.LogicalExpr, line int32) {
	fc.compileExpr(expr.Left)
	if expr.Op == token.AND {
		end := fc.emitJump(OP_JUMP_IF_FALSE, line)
		fc.emit(OP_POP, line)
		fc.compileExpr(expr.Right)
		fc.patchJump(end)
		return
	}
	elseJump := fc.emitJump(OP_JUMP_IF_FALSE, line)
	end := fc.emitJump(OP_JUMP, line)
	fc.patchJump(elseJump)
	fc.emit(OP_POP, line)
	fc.compileExpr(expr.Right)
	fc.patchJump(end)
}

func (fc *fcomp) compileTernary(expr *ast.TernaryExpr, line int32) {
	fc.compileExpr(expr.Cond)
	elseJump := fc.emitJump(OP_JUMP_IF_FALSE, line)
	fc.emit(OP_POP, line)
	fc.compileExpr(expr.Then)
	end := fc.emitJump(OP_JUMP, line)
	fc.patchJump(elseJump)
	fc.emit(OP_POP, line)
	fc.compileExpr(expr.Else)
	fc.patchJump(end)
}

// compileElvis compiles `left ?: right`: right is evaluated only if left
// is falsy, and the result is left itself otherwise (not just a bool).
func (fc *fcomp) compileElvis(expr *ast.ElvisExpr, line int32) {
	fc.compileExpr(expr.Left)
	fc.emit(OP_DUPLICATE, line)
	falseJump := fc.emitJump(OP_JUMP_IF_FALSE, line)
	fc.emit(OP_POP, line) // drop the duplicate, keep the original as the result
	end := fc.emitJump(OP_JUMP, line)
	fc.patchJump(falseJump)
	fc.emit(OP_POP, line) // drop the duplicate
	fc.emit(OP_POP, line) // drop the falsy original
	fc.compileExpr(expr.Right)
	fc.patchJump(end)
}

// compileAssign compiles `target = value` or a compound assignment to an
// identifier. The parser only ever produces a bare AssignExpr for an
// identifier target: a Get/Index target, compound operator or not, is
// rewritten directly into a SetExpr/IndexSetExpr (see lang/parser/expr.go's
// parseAssignment), with a compound operator folded into its value, so
// `obj.x += 1` arrives here as the SetExpr for `obj.x = obj.x + 1`.
func (fc *fcomp) compileAssign(expr *ast.AssignExpr, line int32) {
	ident, ok := ast.Unwrap(expr.Target).(*ast.IdentExpr)
	if !ok {
		panic(fmt.Sprintf("compiler: unexpected assignment target %T", expr.Target))
	}
	binding := ident.Binding.(*resolver.Binding)
	if expr.Op == token.EQ {
		fc.compileExpr(expr.Value)
	} else {
		fc.emitGetBinding(binding, line)
		fc.compileExpr(expr.Value)
		switch expr.Op {
		case token.PLUS_EQ:
			fc.emit(OP_ADD, line)
		case token.MINUS_EQ:
			fc.emit(OP_SUBTRACT, line)
		case token.STAR_EQ:
			fc.emit(OP_MULTIPLY, line)
		case token.SLASH_EQ:
			fc.emit(OP_DIVIDE, line)
		}
	}
	fc.emitSetBinding(binding, line)
}

// compileCall compiles a call expression, fusing a method call (`recv.m(
// args)` or `super.m(args)`) directly into OP_INVOKE/OP_SUPER_INVOKE
// instead of first materializing an intermediate BoundMethod.
func (fc *fcomp) compileCall(call *ast.CallExpr, line int32) {
	switch callee := ast.Unwrap(call.Callee).(type) {
	case *ast.GetExpr:
		fc.compileExpr(callee.Object)
		for _, a := range call.Args {
			fc.compileExpr(a)
		}
		fc.emitInvoke(OP_INVOKE, fc.addConstant(callee.Name.Name), len(call.Args), line)

	case *ast.SuperExpr:
		fc.compileSuperClass(callee, line)
		for _, a := range call.Args {
			fc.compileExpr(a)
		}
		fc.emitInvoke(OP_SUPER_INVOKE, fc.addConstant(superMethodName(callee)), len(call.Args), line)

	default:
		fc.compileExpr(call.Callee)
		for _, a := range call.Args {
			fc.compileExpr(a)
		}
		fc.emitArg(OP_CALL, uint32(len(call.Args)), line)
	}
}

func superMethodName(se *ast.SuperExpr) string {
	if se.Name != nil {
		return se.Name.Name
	}
	return se.Dot.Name
}

func (fc *fcomp) compileSuperGet(se *ast.SuperExpr, line int32) {
	fc.compileSuperClass(se, line)
	fc.emitArg(OP_GET_SUPER, fc.addConstant(superMethodName(se)), line)
}

// compileSuperClass pushes the bare *Class that OP_GET_SUPER/
// OP_SUPER_INVOKE resolve a method name against. For single inheritance
// the synthetic `super` local already holds that *Class directly. For
// multiple inheritance it holds an Array of every superclass in
// declaration order instead, and `super.name`/`super[i].name` both index
// into it through the STL Array sentinel's `get` method (negative indices
// allowed, so the bare `super.name` form — no explicit index — defaults
// to -1, the last-declared superclass).
func (fc *fcomp) compileSuperClass(se *ast.SuperExpr, line int32) {
	binding := se.Binding.(*resolver.Binding)
	classStmt := binding.Decl.(*ast.ClassStmt)
	fc.emitGetBinding(binding, line)
	if len(classStmt.Supers) <= 1 {
		return
	}
	if se.Index != nil {
		fc.compileExpr(se.Index)
	} else {
		fc.emitArg(OP_CONSTANT, fc.addConstant(-1.0), line)
	}
	fc.emitInvoke(OP_INVOKE, fc.addConstant("get"), 1, line)
}
