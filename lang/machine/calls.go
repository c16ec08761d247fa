package machine

import "fmt"

func (th *Thread) maxCallStackDepth() int {
	if th.MaxCallStackDepth > 0 {
		return th.MaxCallStackDepth
	}
	return DefaultMaxCallStackDepth
}

// callClosure pushes a new frame for cl, binding recv (ignored unless
// cl's chunk is a method) and args into the frame's reserved local slots,
// boxing any slot the resolver marked as captured.
func (th *Thread) callClosure(cl *Closure, recv Value, args []Value) error {
	chunk := cl.Fn.Chunk
	if len(args) != chunk.NumParams {
		return th.raise("expected %d argument(s) but got %d", chunk.NumParams, len(args))
	}
	if len(th.frames) >= th.maxCallStackDepth() {
		return th.raise("stack overflow")
	}

	base := len(th.stack)
	slot := 0
	if chunk.IsMethod {
		th.stack = append(th.stack, th.maybeBox(cl, slot, recv))
		slot++
	}
	for _, a := range args {
		th.stack = append(th.stack, th.maybeBox(cl, slot, a))
		slot++
	}
	for slot < len(chunk.Locals) {
		th.stack = append(th.stack, Nil)
		slot++
	}

	th.frames = append(th.frames, &frame{closure: cl, base: base})
	return nil
}

func (th *Thread) maybeBox(cl *Closure, slot int, v Value) Value {
	for _, c := range cl.Fn.Chunk.Cells {
		if c == slot {
			cell := &Cell{V: v}
			th.gc.register(cell)
			return cell
		}
	}
	return v
}

// callValue implements the generic OP_CALL dispatch for a bare callee
// with no already-bound receiver: a *Closure, *Native, *BoundMethod or
// *Class (instantiation). It reports whether it pushed a new frame (in
// which case the eventual OP_RETURN supplies the result) or produced a
// value directly.
func (th *Thread) callValue(callee Value, args []Value) (Value, bool, error) {
	switch c := callee.(type) {
	case *Closure:
		if err := th.callClosure(c, Nil, args); err != nil {
			return Nil, false, err
		}
		return Nil, true, nil
	case *Native:
		if c.Arity >= 0 && len(args) != c.Arity {
			err := th.raise("expected %d argument(s) but got %d", c.Arity, len(args))
			return Nil, false, err
		}
		v, err := c.Fn(th, Nil, args)
		return v, false, err
	case *BoundMethod:
		return th.invokeBound(c, args)
	case *Class:
		return th.instantiate(c, args)
	default:
		err := th.raise("%s is not callable", describe(callee))
		return Nil, false, err
	}
}

func (th *Thread) invokeBound(bm *BoundMethod, args []Value) (Value, bool, error) {
	switch m := bm.Method.(type) {
	case *Closure:
		if err := th.callClosure(m, bm.Receiver, args); err != nil {
			return Nil, false, err
		}
		return Nil, true, nil
	case *Native:
		if m.Arity >= 0 && len(args) != m.Arity {
			err := th.raise("expected %d argument(s) but got %d", m.Arity, len(args))
			return Nil, false, err
		}
		v, err := m.Fn(th, bm.Receiver, args)
		return v, false, err
	default:
		err := th.raise("malformed bound method")
		return Nil, false, err
	}
}

func (th *Thread) instantiate(class *Class, args []Value) (Value, bool, error) {
	if class.New != nil {
		v, err := class.New(th, args)
		return v, false, err
	}

	inst := &Instance{Class: class, Fields: make(map[string]Value)}
	th.gc.register(inst)
	init, ok := class.Methods["init"]
	if !ok {
		if len(args) != 0 {
			err := th.raise("expected 0 argument(s) but got %d", len(args))
			return Nil, false, err
		}
		return inst, false, nil
	}
	switch m := init.(type) {
	case *Closure:
		if err := th.callClosure(m, inst, args); err != nil {
			return Nil, false, err
		}
		return Nil, true, nil
	case *Native:
		if _, err := m.Fn(th, inst, args); err != nil {
			return Nil, false, err
		}
		return inst, false, nil
	default:
		return Nil, false, th.raise("malformed initializer")
	}
}

// getProperty resolves `recv.name`: an instance field, an instance
// method (bound to recv), or a method of recv's sentinel class for a
// primitive value.
func (th *Thread) getProperty(recv Value, name *String) (Value, error) {
	if inst, ok := recv.(*Instance); ok {
		if f, ok := inst.Fields[name.S]; ok {
			return f, nil
		}
		if m, ok := inst.Class.Methods[name.S]; ok {
			return &BoundMethod{Receiver: recv, Method: m}, nil
		}
		return Nil, th.raise("undefined property '%s'", name.S)
	}
	class := th.sentinelClass(recv)
	if class != nil {
		if m, ok := class.Methods[name.S]; ok {
			return &BoundMethod{Receiver: recv, Method: m}, nil
		}
	}
	return Nil, th.raise("%s has no property '%s'", recv.Type(), name.S)
}

func (th *Thread) setProperty(recv, value Value, name *String) error {
	inst, ok := recv.(*Instance)
	if !ok {
		return th.raise("only instances have settable fields")
	}
	inst.Fields[name.S] = value
	return nil
}

// sentinelNames maps a primitive Value's Type() to the name of its
// sentinel class in Thread.STL.
var sentinelNames = map[string]string{
	"boolean":   "Boolean",
	"number":    "Number",
	"string":    "String",
	"array":     "Array",
	"slice":     "Slice",
	"function":  "Function",
	"native":    "Function",
	"exception": "Exception",
}

// sentinelClass returns the STL class backing method calls on a
// primitive value (e.g. "abc".length()), or nil if recv is already an
// *Instance or no such class was installed.
func (th *Thread) sentinelClass(recv Value) *Class {
	if th.STL == nil {
		return nil
	}
	name, ok := sentinelNames[recv.Type()]
	if !ok {
		return nil
	}
	v, ok := th.STL.Get(name)
	if !ok {
		return nil
	}
	class, _ := v.(*Class)
	return class
}

// invokeNamed implements the fused OP_INVOKE: look up name on recv and
// call it with args directly, without materializing an intermediate
// *BoundMethod.
func (th *Thread) invokeNamed(recv Value, name *String, args []Value) (Value, bool, error) {
	if inst, ok := recv.(*Instance); ok {
		if f, ok := inst.Fields[name.S]; ok {
			return th.callValue(f, args)
		}
		if m, ok := inst.Class.Methods[name.S]; ok {
			return th.invokeMethod(m, recv, args)
		}
		return Nil, false, th.raise("undefined property '%s'", name.S)
	}
	class := th.sentinelClass(recv)
	if class != nil {
		if m, ok := class.Methods[name.S]; ok {
			return th.invokeMethod(m, recv, args)
		}
	}
	return Nil, false, th.raise("%s has no method '%s'", recv.Type(), name.S)
}

func (th *Thread) invokeMethod(m Value, recv Value, args []Value) (Value, bool, error) {
	switch m := m.(type) {
	case *Closure:
		if err := th.callClosure(m, recv, args); err != nil {
			return Nil, false, err
		}
		return Nil, true, nil
	case *Native:
		if m.Arity >= 0 && len(args) != m.Arity {
			return Nil, false, th.raise("expected %d argument(s) but got %d", m.Arity, len(args))
		}
		v, err := m.Fn(th, recv, args)
		return v, false, err
	default:
		return Nil, false, th.raise("malformed method")
	}
}

func (th *Thread) raise(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	exc := &Exception{Message: msg}
	th.gc.register(exc)
	return th.throwValue(exc)
}

// throwValue implements OP_THROW's unwinding: if a `try` handler is
// active, truncate frames and stack back to the point it was installed,
// jump to its catch address and leave v on the stack for the catch
// binding's OP_DEFINE_LOCAL. If no handler is active, v escapes as a
// RuntimeError.
func (th *Thread) throwValue(v Value) error {
	if len(th.handlers) == 0 {
		var line int32
		if len(th.frames) > 0 {
			line = th.frames[len(th.frames)-1].line()
		}
		return &RuntimeError{Value: v, Line: line}
	}
	h := th.handlers[len(th.handlers)-1]
	th.handlers = th.handlers[:len(th.handlers)-1]
	th.frames = th.frames[:h.frameDepth]
	th.stack = th.stack[:h.stackLen]
	fr := th.frames[len(th.frames)-1]
	fr.ip = h.addr
	th.push(v)
	return nil
}
