package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Disassemble renders program's toplevel chunk and every function nested
// within it as human-readable bytecode listings, one "== name ==" section
// per Funcode, grounded on original_source/src/debug.c's
// disassembleChunk/disassembleInstruction pair. It never touches a
// machine.Thread, so it works on any compiled Program, including one that
// later fails at runtime.
func Disassemble(program *Program) string {
	var b strings.Builder
	disassembleFunc(&b, program.Toplevel)
	return b.String()
}

func disassembleFunc(b *strings.Builder, fn *Funcode) {
	name := fn.Name
	if name == "" {
		name = "<toplevel>"
	}
	fmt.Fprintf(b, "== %s ==\n", name)

	var nested []*Funcode
	for pc := 0; pc < len(fn.Code); {
		next, child := disassembleInsn(b, fn, pc)
		if child != nil {
			nested = append(nested, child)
		}
		pc = next
	}
	for _, n := range nested {
		disassembleFunc(b, n)
	}
}

// disassembleInsn prints the instruction at pc and returns the offset of
// the next instruction, plus the nested Funcode an OP_CLOSURE constant
// refers to (nil for every other opcode).
func disassembleInsn(b *strings.Builder, fn *Funcode, pc int) (next int, nested *Funcode) {
	fmt.Fprintf(b, "%04d ", pc)
	if pc > 0 && fn.LineForPC(uint32(pc)) == fn.LineForPC(uint32(pc-1)) {
		fmt.Fprint(b, "   | ")
	} else {
		fmt.Fprintf(b, "%4d ", fn.LineForPC(uint32(pc)))
	}

	op := Opcode(fn.Code[pc])
	if op > OpcodeMax {
		fmt.Fprintf(b, "illegal op (%d)\n", op)
		return pc + 1, nil
	}

	if !hasArg[op] {
		fmt.Fprintln(b, op)
		return pc + 1, nil
	}

	if isJump(op) {
		off := binary.BigEndian.Uint16(fn.Code[pc+1:])
		target := pc + 3 + int(off)
		if op == OP_LOOP {
			target = pc + 3 - int(off)
		}
		fmt.Fprintf(b, "%-16s %4d -> %04d\n", op, pc, target)
		return pc + 3, nil
	}

	arg, n := binary.Uvarint(fn.Code[pc+1:])
	argPos := pc + 1 + n

	if op == OP_CLOSURE {
		child := fn.Constants[arg].(*Funcode)
		fmt.Fprintf(b, "%-16s %4d %s\n", op, arg, child.Name)
		for i := 0; i < len(child.Freevars); i++ {
			isLocal := fn.Code[argPos]
			index, m := binary.Uvarint(fn.Code[argPos+1:])
			kind := "upvalue"
			if isLocal == 1 {
				kind = "local"
			}
			fmt.Fprintf(b, "%04d      |                     %s %d\n", argPos, kind, index)
			argPos += 1 + m
		}
		return argPos, child
	}

	if op == OP_INVOKE || op == OP_SUPER_INVOKE {
		argc := fn.Code[argPos]
		fmt.Fprintf(b, "%-16s %4d '%s' (%d args)\n", op, arg, fn.Constants[arg], argc)
		return argPos + 1, nil
	}

	switch op {
	case OP_CONSTANT, OP_DEFINE_GLOBAL, OP_GET_GLOBAL, OP_SET_GLOBAL, OP_GET_STL,
		OP_CLASS, OP_METHOD, OP_STATIC_METHOD, OP_GET_PROPERTY, OP_SET_PROPERTY, OP_GET_SUPER:
		fmt.Fprintf(b, "%-16s %4d '%v'\n", op, arg, fn.Constants[arg])
	default:
		fmt.Fprintf(b, "%-16s %4d\n", op, arg)
	}
	return argPos, nil
}
