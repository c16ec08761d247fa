package machine

import (
	"encoding/binary"

	"github.com/mna/glox/lang/compiler"
)

// run is the single bytecode dispatch loop, executing frames until the
// thread's call stack unwinds back to startDepth. Pushing a frame (a
// closure call) never recurses: the loop simply keeps dispatching, now
// against the new top frame. The one place this recurses is OP_PRINT of a
// value whose class defines an interpreted toString (see displayString):
// it invokes run again with the depth the frame stack had just before the
// toString frame was pushed.
func (th *Thread) run(startDepth int) (Value, error) {
	for len(th.frames) > startDepth {
		fr := th.frames[len(th.frames)-1]
		code := fr.chunk().Code
		op := compiler.Opcode(code[fr.ip])
		fr.ip++

		switch op {
		case compiler.OP_NOP:

		case compiler.OP_POP:
			th.pop()
		case compiler.OP_POPN:
			n := th.readArg(fr)
			th.popN(int(n))
		case compiler.OP_DUPLICATE:
			th.push(th.peek(0))

		case compiler.OP_CONSTANT:
			idx := th.readArg(fr)
			th.push(th.constantValue(fr, idx))
		case compiler.OP_NIL:
			th.push(Nil)
		case compiler.OP_TRUE:
			th.push(Bool(true))
		case compiler.OP_FALSE:
			th.push(Bool(false))
		case compiler.OP_ARRAY:
			n := th.readArg(fr)
			items := th.popN(int(n))
			arr := &Array{Items: items}
			th.gc.register(arr)
			th.push(arr)

		case compiler.OP_DEFINE_GLOBAL:
			name := th.constName(fr, th.readArg(fr))
			th.Globals.Set(name, th.pop())
		case compiler.OP_GET_GLOBAL:
			name := th.constName(fr, th.readArg(fr))
			v, ok := th.Globals.Get(name)
			if !ok {
				v, ok = th.STL.Get(name.S)
			}
			if !ok {
				return Nil, th.raise("undefined variable '%s'", name.S)
			}
			th.push(v)
		case compiler.OP_SET_GLOBAL:
			name := th.constName(fr, th.readArg(fr))
			if _, ok := th.Globals.Get(name); !ok {
				if err := th.raise("undefined variable '%s'", name.S); err != nil {
					return Nil, err
				}
				continue
			}
			th.Globals.Set(name, th.peek(0))

		case compiler.OP_DEFINE_LOCAL:
			slot := int(th.readArg(fr))
			v := th.pop()
			if fr.isCellSlot(slot) {
				cell := &Cell{V: v}
				th.gc.register(cell)
				th.stack[fr.base+slot] = cell
			} else {
				th.stack[fr.base+slot] = v
			}
		case compiler.OP_GET_LOCAL:
			slot := int(th.readArg(fr))
			v := th.stack[fr.base+slot]
			if fr.isCellSlot(slot) {
				v = v.(*Cell).V
			}
			th.push(v)
		case compiler.OP_SET_LOCAL:
			slot := int(th.readArg(fr))
			v := th.peek(0)
			if fr.isCellSlot(slot) {
				th.stack[fr.base+slot].(*Cell).V = v
			} else {
				th.stack[fr.base+slot] = v
			}
		case compiler.OP_GET_UPVALUE:
			slot := th.readArg(fr)
			th.push(fr.closure.Upvalues[slot].V)
		case compiler.OP_SET_UPVALUE:
			slot := th.readArg(fr)
			fr.closure.Upvalues[slot].V = th.peek(0)
		case compiler.OP_GET_STL:
			name := th.constName(fr, th.readArg(fr))
			v, ok := th.STL.Get(name.S)
			if !ok {
				if err := th.raise("undefined name '%s'", name.S); err != nil {
					return Nil, err
				}
				continue
			}
			th.push(v)

		case compiler.OP_EQUAL:
			b, a := th.pop(), th.pop()
			th.push(Bool(Equal(a, b)))
		case compiler.OP_GREATER:
			b, a := th.pop(), th.pop()
			v, err := th.greater(a, b)
			if err != nil {
				return Nil, err
			}
			th.push(v)
		case compiler.OP_LESS:
			b, a := th.pop(), th.pop()
			v, err := th.less(a, b)
			if err != nil {
				return Nil, err
			}
			th.push(v)

		case compiler.OP_ADD:
			b, a := th.pop(), th.pop()
			v, err := th.add(a, b)
			if err != nil {
				return Nil, err
			}
			th.push(v)
		case compiler.OP_SUBTRACT:
			b, a := th.pop(), th.pop()
			v, err := th.subtract(a, b)
			if err != nil {
				return Nil, err
			}
			th.push(v)
		case compiler.OP_MULTIPLY:
			b, a := th.pop(), th.pop()
			v, err := th.multiply(a, b)
			if err != nil {
				return Nil, err
			}
			th.push(v)
		case compiler.OP_DIVIDE:
			b, a := th.pop(), th.pop()
			v, err := th.divide(a, b)
			if err != nil {
				return Nil, err
			}
			th.push(v)

		case compiler.OP_NOT:
			th.push(Bool(!Truthy(th.pop(), th.ExtendedFalseness)))
		case compiler.OP_NEGATE:
			v, err := th.negate(th.pop())
			if err != nil {
				return Nil, err
			}
			th.push(v)

		case compiler.OP_PRINT:
			v := th.pop()
			if err := th.printValue(v); err != nil {
				return Nil, err
			}

		case compiler.OP_JUMP:
			offset := th.readJump(fr)
			fr.ip += offset
		case compiler.OP_JUMP_IF_FALSE:
			offset := th.readJump(fr)
			if !Truthy(th.peek(0), th.ExtendedFalseness) {
				fr.ip += offset
			}
		case compiler.OP_LOOP:
			offset := th.readJump(fr)
			fr.ip -= offset

		case compiler.OP_CALL:
			argc := int(th.readArg(fr))
			args := th.popN(argc)
			callee := th.pop()
			v, pushed, err := th.callValue(callee, args)
			if err != nil {
				return Nil, err
			}
			if !pushed {
				th.push(v)
			}
		case compiler.OP_CLOSURE:
			idx := th.readArg(fr)
			nested := fr.chunk().Constants[idx].(*compiler.Funcode)
			fn := &Function{Chunk: nested}
			th.gc.register(fn)
			ups := make([]*Cell, len(nested.Freevars))
			for i := range ups {
				isLocal := code[fr.ip]
				fr.ip++
				index := th.readArg(fr)
				if isLocal == 1 {
					ups[i] = th.stack[fr.base+int(index)].(*Cell)
				} else {
					ups[i] = fr.closure.Upvalues[index]
				}
			}
			cl := &Closure{Fn: fn, Upvalues: ups}
			th.gc.register(cl)
			th.push(cl)
		case compiler.OP_CLOSE_UPVALUE:
			slot := th.readArg(fr)
			th.stack[fr.base+int(slot)] = Nil
		case compiler.OP_RETURN:
			v := th.pop()
			if fr.chunk().IsInit {
				v = th.stack[fr.base]
			}
			th.frames = th.frames[:len(th.frames)-1]
			th.stack = th.stack[:fr.base]
			if len(th.frames) == startDepth {
				return v, nil
			}
			th.push(v)
		case compiler.OP_TRY_CALL:
			addr := th.readJump(fr)
			th.handlers = append(th.handlers, tryHandler{
				frameDepth: len(th.frames),
				stackLen:   len(th.stack),
				addr:       fr.ip + addr,
			})
		case compiler.OP_POP_TRY:
			if len(th.handlers) > 0 {
				th.handlers = th.handlers[:len(th.handlers)-1]
			}
		case compiler.OP_THROW:
			v := th.pop()
			if err := th.throwValue(v); err != nil {
				return Nil, err
			}

		case compiler.OP_CLASS:
			name := th.constName(fr, th.readArg(fr))
			class := &Class{
				Name:    name.S,
				Methods: make(map[string]Value),
				Statics: make(map[string]Value),
			}
			th.gc.register(class)
			th.push(class)
		case compiler.OP_INHERIT:
			super := th.pop()
			class, ok := th.peek(0).(*Class)
			if !ok {
				return Nil, th.raise("only classes have methods")
			}
			sup, ok := super.(*Class)
			if !ok {
				return Nil, th.raise("superclass must be a class")
			}
			inherit(class, sup)
		case compiler.OP_INHERIT_MULTIPLE:
			n := int(th.readArg(fr))
			supers := th.popN(n)
			class, ok := th.peek(0).(*Class)
			if !ok {
				return Nil, th.raise("only classes have methods")
			}
			bad := false
			for _, s := range supers {
				sup, ok := s.(*Class)
				if !ok {
					bad = true
					break
				}
				inherit(class, sup)
			}
			if bad {
				return Nil, th.raise("superclass must be a class")
			}
		case compiler.OP_METHOD:
			name := th.constName(fr, th.readArg(fr))
			closure := th.pop()
			class := th.peek(0).(*Class)
			class.Methods[name.S] = closure
		case compiler.OP_STATIC_METHOD:
			name := th.constName(fr, th.readArg(fr))
			closure := th.pop()
			class := th.peek(0).(*Class)
			class.Statics[name.S] = closure
		case compiler.OP_GET_PROPERTY:
			name := th.constName(fr, th.readArg(fr))
			recv := th.pop()
			v, err := th.getProperty(recv, name)
			if err != nil {
				return Nil, err
			}
			th.push(v)
		case compiler.OP_SET_PROPERTY:
			name := th.constName(fr, th.readArg(fr))
			value := th.pop()
			recv := th.pop()
			if err := th.setProperty(recv, value, name); err != nil {
				return Nil, err
			}
			th.push(value)
		case compiler.OP_GET_SUPER:
			name := th.constName(fr, th.readArg(fr))
			super := th.pop()
			sup, ok := super.(*Class)
			if !ok {
				return Nil, th.raise("superclass must be a class")
			}
			m, ok := sup.Methods[name.S]
			if !ok {
				return Nil, th.raise("undefined property '%s'", name.S)
			}
			recv := th.stack[fr.base]
			bm := &BoundMethod{Receiver: recv, Method: m}
			th.gc.register(bm)
			th.push(bm)
		case compiler.OP_INVOKE:
			name := th.constName(fr, th.readArg(fr))
			argc := int(code[fr.ip])
			fr.ip++
			args := th.popN(argc)
			recv := th.pop()
			v, pushed, err := th.invokeNamed(recv, name, args)
			if err != nil {
				return Nil, err
			}
			if !pushed {
				th.push(v)
			}
		case compiler.OP_SUPER_INVOKE:
			name := th.constName(fr, th.readArg(fr))
			argc := int(code[fr.ip])
			fr.ip++
			args := th.popN(argc)
			super := th.pop()
			sup, ok := super.(*Class)
			if !ok {
				return Nil, th.raise("superclass must be a class")
			}
			m, ok := sup.Methods[name.S]
			if !ok {
				return Nil, th.raise("undefined property '%s'", name.S)
			}
			recv := th.stack[fr.base]
			v, pushed, err := th.invokeMethod(m, recv, args)
			if err != nil {
				return Nil, err
			}
			if !pushed {
				th.push(v)
			}

		default:
			return Nil, th.raise("illegal opcode %s", op)
		}
	}
	return Nil, nil
}

func inherit(class, super *Class) {
	for k, v := range super.Methods {
		class.Methods[k] = v
	}
	for k, v := range super.Statics {
		class.Statics[k] = v
	}
}

func (th *Thread) readArg(fr *frame) uint32 {
	v, n := binary.Uvarint(fr.chunk().Code[fr.ip:])
	fr.ip += uint32(n)
	return uint32(v)
}

// readJump reads the fixed 2-byte big-endian offset used by jump/loop/
// try instructions.
func (th *Thread) readJump(fr *frame) uint32 {
	off := binary.BigEndian.Uint16(fr.chunk().Code[fr.ip:])
	fr.ip += 2
	return uint32(off)
}

func (th *Thread) constantValue(fr *frame, idx uint32) Value {
	switch c := fr.chunk().Constants[idx].(type) {
	case nil:
		return Nil
	case bool:
		return Bool(c)
	case float64:
		return Number(c)
	case string:
		return th.intern(c)
	case *compiler.Funcode:
		fn := &Function{Chunk: c}
		th.gc.register(fn)
		return fn
	default:
		return Nil
	}
}

func (th *Thread) constName(fr *frame, idx uint32) *String {
	s := fr.chunk().Constants[idx].(string)
	return th.intern(s)
}

// printValue implements OP_PRINT: it writes v's display form, routing
// through a user-defined toString method when recv has one so that
// print(instance) honors class-defined formatting. An interpreted toString
// runs in a nested call to run that returns once its frame returns.
func (th *Thread) printValue(v Value) error {
	s, err := th.displayString(v)
	if err != nil {
		return err
	}
	_, werr := th.Stdout.Write([]byte(s + "\n"))
	return werr
}

// displayString renders v for `print`, deferring to a "toString" method
// when recv (an instance, or a primitive with a sentinel class) defines
// one.
func (th *Thread) displayString(v Value) (string, error) {
	var method Value
	if inst, ok := v.(*Instance); ok {
		method = inst.Class.Methods["toString"]
	} else if class := th.sentinelClass(v); class != nil {
		method = class.Methods["toString"]
	}
	if method == nil {
		return v.String(), nil
	}
	result, pushed, err := th.invokeMethod(method, v, nil)
	if err != nil {
		return "", err
	}
	if pushed {
		result, err = th.run(len(th.frames) - 1)
		if err != nil {
			return "", err
		}
	}
	if s, ok := result.(*String); ok {
		return s.S, nil
	}
	return result.String(), nil
}
