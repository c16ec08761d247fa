package compiler

import "fmt"

// Version is incremented to force recompilation of any persisted bytecode.
const Version = 0

// Opcode identifies a single bytecode instruction.
type Opcode uint8

// "x OP y" is a stack picture describing the operand stack before and after
// execution of the instruction. OP<thing> denotes an immediate operand: an
// index into the chunk's constant pool, a local/upvalue slot, a jump
// address, or an argument count, depending on the opcode.
const ( //nolint:revive
	OP_NOP Opcode = iota

	// stack shuffling
	OP_POP        //   x OP_POP          -
	OP_POPN       // x1..xn OP_POPN<n>   -
	OP_DUPLICATE  //   x OP_DUPLICATE    x x

	// literals and constants
	OP_CONSTANT //  - OP_CONSTANT<const> value
	OP_NIL      //  - OP_NIL             nil
	OP_TRUE     //  - OP_TRUE            true
	OP_FALSE    //  - OP_FALSE           false
	OP_ARRAY    // x1..xn OP_ARRAY<n>    array

	// variables
	OP_DEFINE_GLOBAL //          value OP_DEFINE_GLOBAL<name>  -
	OP_GET_GLOBAL     //              - OP_GET_GLOBAL<name>     value
	OP_SET_GLOBAL     //          value OP_SET_GLOBAL<name>     value
	OP_DEFINE_LOCAL   //          value OP_DEFINE_LOCAL<slot>   -        (boxes a fresh cell if slot is captured)
	OP_GET_LOCAL      //              - OP_GET_LOCAL<slot>      value
	OP_SET_LOCAL      //          value OP_SET_LOCAL<slot>      value
	OP_GET_UPVALUE    //              - OP_GET_UPVALUE<slot>    value
	OP_SET_UPVALUE    //          value OP_SET_UPVALUE<slot>    value
	OP_GET_STL        //              - OP_GET_STL<name>        value

	// comparisons
	OP_EQUAL   // a b OP_EQUAL    bool
	OP_GREATER // a b OP_GREATER  bool
	OP_LESS    // a b OP_LESS     bool

	// arithmetic
	OP_ADD      // a b OP_ADD       sum
	OP_SUBTRACT // a b OP_SUBTRACT  diff
	OP_MULTIPLY // a b OP_MULTIPLY  product
	OP_DIVIDE   // a b OP_DIVIDE    quotient

	// unary
	OP_NOT    //   x OP_NOT     bool
	OP_NEGATE //   x OP_NEGATE  -x

	OP_PRINT // x OP_PRINT -

	// control flow; jump addresses are always 2-byte operands
	OP_JUMP          //      - OP_JUMP<addr>           -        (unconditional, relative forward)
	OP_JUMP_IF_FALSE //   cond OP_JUMP_IF_FALSE<addr>   cond     (condition left on stack)
	OP_LOOP          //      - OP_LOOP<addr>            -        (unconditional, relative backward)

	// functions and calls
	OP_CALL        //  fn arg1..argn OP_CALL<argc>             result
	OP_CLOSURE     //              - OP_CLOSURE<const>          closure   (followed, per captured variable, by an isLocal byte and a varint index)
	OP_CLOSE_UPVALUE //           - OP_CLOSE_UPVALUE<slot>      -         (drops the frame's reference to slot's cell so the GC can reclaim it once no closure still holds it)
	OP_RETURN      //          value OP_RETURN                 -
	OP_TRY_CALL    //              - OP_TRY_CALL<addr>          -        (installs a handler at addr, active until OP_POP_TRY)
	OP_POP_TRY     //              - OP_POP_TRY                 -        (deactivates the handler installed by the enclosing OP_TRY_CALL)
	OP_THROW       //          value OP_THROW                  -

	// classes
	OP_CLASS             //            - OP_CLASS<name>               class
	OP_INHERIT           //     class super OP_INHERIT                 class     (copies super's methods/statics into class)
	OP_INHERIT_MULTIPLE  // class super1..supern OP_INHERIT_MULTIPLE<n> class  (later superclass wins on name collision)
	OP_METHOD            //      class closure OP_METHOD<name>          class
	OP_STATIC_METHOD     //      class closure OP_STATIC_METHOD<name>   class
	OP_GET_PROPERTY      //         instance OP_GET_PROPERTY<name>      value
	OP_SET_PROPERTY      //   instance value OP_SET_PROPERTY<name>      value
	OP_GET_SUPER         //           super OP_GET_SUPER<name>          bound     (receiver read from the frame's slot 0)
	OP_INVOKE            //  recv arg1..argn OP_INVOKE<name><argc>      result
	OP_SUPER_INVOKE      // super arg1..argn OP_SUPER_INVOKE<name><argc> result   (receiver read from the frame's slot 0)

	OpcodeMax    = OP_SUPER_INVOKE
	opcodeJMPMin = OP_JUMP
	opcodeJMPMax = OP_LOOP
)

var opcodeNames = [...]string{
	OP_NOP:               "nop",
	OP_POP:                "pop",
	OP_POPN:               "popn",
	OP_DUPLICATE:          "duplicate",
	OP_CONSTANT:           "constant",
	OP_NIL:                "nil",
	OP_TRUE:               "true",
	OP_FALSE:              "false",
	OP_ARRAY:              "array",
	OP_DEFINE_GLOBAL:      "define_global",
	OP_GET_GLOBAL:         "get_global",
	OP_SET_GLOBAL:         "set_global",
	OP_DEFINE_LOCAL:       "define_local",
	OP_GET_LOCAL:          "get_local",
	OP_SET_LOCAL:          "set_local",
	OP_GET_UPVALUE:        "get_upvalue",
	OP_SET_UPVALUE:        "set_upvalue",
	OP_GET_STL:            "get_stl",
	OP_EQUAL:              "equal",
	OP_GREATER:            "greater",
	OP_LESS:               "less",
	OP_ADD:                "add",
	OP_SUBTRACT:           "subtract",
	OP_MULTIPLY:           "multiply",
	OP_DIVIDE:             "divide",
	OP_NOT:                "not",
	OP_NEGATE:             "negate",
	OP_PRINT:              "print",
	OP_JUMP:               "jump",
	OP_JUMP_IF_FALSE:      "jump_if_false",
	OP_LOOP:               "loop",
	OP_CALL:               "call",
	OP_CLOSURE:            "closure",
	OP_CLOSE_UPVALUE:      "close_upvalue",
	OP_RETURN:             "return",
	OP_TRY_CALL:           "try_call",
	OP_POP_TRY:            "pop_try",
	OP_THROW:              "throw",
	OP_CLASS:              "class",
	OP_INHERIT:            "inherit",
	OP_INHERIT_MULTIPLE:   "inherit_multiple",
	OP_METHOD:             "method",
	OP_STATIC_METHOD:      "static_method",
	OP_GET_PROPERTY:       "get_property",
	OP_SET_PROPERTY:       "set_property",
	OP_GET_SUPER:          "get_super",
	OP_INVOKE:             "invoke",
	OP_SUPER_INVOKE:       "super_invoke",
}

var reverseLookupOpcode = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, s := range opcodeNames {
		m[s] = Opcode(op)
	}
	return m
}()

// isJump reports whether op encodes a relative jump offset, which is always
// a fixed 2-byte big-endian operand rather than a varint (see compiler.go's
// emitJump/patchJump/emitLoop, grounded on original_source/src/compiler.c's
// own 2-byte/UINT16_MAX-bounded jump offsets).
func isJump(op Opcode) bool {
	return (opcodeJMPMin <= op && op <= opcodeJMPMax) || op == OP_TRY_CALL
}

// hasArg reports whether op is followed by an immediate operand. Arg-bearing
// and arg-free opcodes are interleaved throughout the enum (grouped instead
// by what they operate on), so this is a table, not a range check.
var hasArg = [...]bool{
	OP_POPN:             true,
	OP_CONSTANT:         true,
	OP_ARRAY:            true,
	OP_DEFINE_GLOBAL:    true,
	OP_GET_GLOBAL:       true,
	OP_SET_GLOBAL:       true,
	OP_DEFINE_LOCAL:     true,
	OP_GET_LOCAL:        true,
	OP_SET_LOCAL:        true,
	OP_GET_UPVALUE:      true,
	OP_SET_UPVALUE:      true,
	OP_GET_STL:          true,
	OP_JUMP:             true,
	OP_JUMP_IF_FALSE:    true,
	OP_LOOP:             true,
	OP_CALL:             true,
	OP_CLOSURE:          true,
	OP_CLOSE_UPVALUE:    true,
	OP_TRY_CALL:         true,
	OP_CLASS:            true,
	OP_METHOD:           true,
	OP_STATIC_METHOD:    true,
	OP_GET_PROPERTY:     true,
	OP_SET_PROPERTY:     true,
	OP_GET_SUPER:        true,
	// OP_INHERIT_MULTIPLE's operand is the count of superclasses on the stack
	// below the class, encoded the same varint way as OP_CALL's argc.
	OP_INHERIT_MULTIPLE: true,
	// OP_INVOKE/OP_SUPER_INVOKE take two operands: a name-constant index (the
	// generic `arg`, varint-encoded same as OP_GET_PROPERTY) and an argc byte
	// appended directly by the compiler, outside the single-operand hasArg scheme.
	OP_INVOKE:       true,
	OP_SUPER_INVOKE: true,
}

// encodedSize returns the number of bytes required to encode op with its
// argument (if it takes one); it does not include the trailing argc byte
// that OP_INVOKE/OP_SUPER_INVOKE append beyond their name-constant operand.
func encodedSize(op Opcode, arg uint32) int {
	if !hasArg[op] {
		return 1
	}
	if isJump(op) {
		return 1 + 2
	}
	return 1 + varArgLen(arg)
}

// varArgLen returns the number of bytes required to encode x as a LEB128
// variable-width unsigned integer.
func varArgLen(x uint32) int {
	n := 0
	for x >= 0x80 {
		n++
		x >>= 7
	}
	return n + 1
}

const variableStackEffect = 0x7f

// stackEffect records the effect on the operand stack size of each
// instruction that does not depend on its operand; CALL/INVOKE/SUPER_INVOKE/
// OP_ARRAY vary with argc and are computed by the caller instead.
var stackEffect = [...]int8{
	OP_NOP:              0,
	OP_POP:              -1,
	OP_POPN:             variableStackEffect,
	OP_DUPLICATE:        +1,
	OP_CONSTANT:         +1,
	OP_NIL:              +1,
	OP_TRUE:             +1,
	OP_FALSE:            +1,
	OP_ARRAY:            variableStackEffect,
	OP_DEFINE_GLOBAL:    -1,
	OP_GET_GLOBAL:       +1,
	OP_SET_GLOBAL:       0,
	OP_DEFINE_LOCAL:     -1,
	OP_GET_LOCAL:        +1,
	OP_SET_LOCAL:        0,
	OP_GET_UPVALUE:      +1,
	OP_SET_UPVALUE:      0,
	OP_GET_STL:          +1,
	OP_EQUAL:            -1,
	OP_GREATER:          -1,
	OP_LESS:             -1,
	OP_ADD:              -1,
	OP_SUBTRACT:         -1,
	OP_MULTIPLY:         -1,
	OP_DIVIDE:           -1,
	OP_NOT:              0,
	OP_NEGATE:           0,
	OP_PRINT:            -1,
	OP_JUMP:             0,
	OP_JUMP_IF_FALSE:    0,
	OP_LOOP:             0,
	OP_CALL:             variableStackEffect,
	OP_CLOSURE:          +1,
	OP_CLOSE_UPVALUE:    0,
	OP_RETURN:           -1,
	OP_TRY_CALL:         0,
	OP_POP_TRY:          0,
	OP_THROW:            -1,
	OP_CLASS:            +1,
	OP_INHERIT:          -1,
	OP_INHERIT_MULTIPLE: variableStackEffect,
	OP_METHOD:           -1,
	OP_STATIC_METHOD:    -1,
	OP_GET_PROPERTY:     0,
	OP_SET_PROPERTY:     -1,
	OP_GET_SUPER:        0,
	OP_INVOKE:           variableStackEffect,
	OP_SUPER_INVOKE:     variableStackEffect,
}

func (op Opcode) String() string {
	if op <= OpcodeMax {
		if name := opcodeNames[op]; name != "" {
			return name
		}
	}
	return fmt.Sprintf("illegal op (%d)", op)
}
