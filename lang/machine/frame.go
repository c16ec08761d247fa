package machine

import "github.com/mna/glox/lang/compiler"

// frame is one activation record on the thread's call stack. Its locals
// (including the receiver and parameters) occupy a fixed, non-reused
// region of the shared value stack, th.stack[base : base+numSlots];
// operand evaluation for the frame's own code happens in the workspace
// directly above that region, on the very same stack.
type frame struct {
	closure *Closure
	ip      uint32
	base    int

	// invokedName is a slot for the property name OP_INVOKE/OP_SUPER_INVOKE
	// resolved to call this closure; nothing in this package sets or reads
	// it, and it is not part of the calling convention.
	invokedName string
}

func (fr *frame) chunk() *compiler.Funcode { return fr.closure.Fn.Chunk }

// numSlots is the size of the frame's reserved local-variable region.
func (fr *frame) numSlots() int { return len(fr.chunk().Locals) }

// isCellSlot reports whether Locals[slot] is captured by a nested closure
// and must therefore be boxed in a *Cell rather than stored raw.
func (fr *frame) isCellSlot(slot int) bool {
	for _, c := range fr.chunk().Cells {
		if c == slot {
			return true
		}
	}
	return false
}

// line returns the source line the frame is currently executing, for
// error messages and stack traces.
func (fr *frame) line() int32 {
	pc := fr.ip
	if pc > 0 {
		pc--
	}
	return fr.chunk().LineForPC(pc)
}
