// Package stl installs the predeclared names every program starts with:
// a handful of global natives (clock, string, concatenate) and the
// sentinel classes (Boolean, Number, String, Array, Slice, Function,
// Exception) that method calls on primitive values are dispatched
// through. It is grounded on original_source/src/native.c's
// importLibrary table and vm.c's stl install routine, reworked from a
// static C array into a small Go registration table.
package stl

import (
	"fmt"
	"time"

	"github.com/dolthub/swiss"
	"github.com/mna/glox/lang/machine"
)

// Install populates th.STL with every predeclared name. It must be
// called once before the thread runs any program.
func Install(th *machine.Thread) {
	th.STL = swiss.NewMap[string, machine.Value](uint32(len(natives) + len(sentinels)))
	for _, n := range natives {
		th.STL.Put(n.name, native(n.name, n.arity, n.fn))
	}
	for _, s := range sentinels {
		th.STL.Put(s.name, s.build())
	}
}

type nativeDef struct {
	name  string
	arity int
	fn    machine.NativeFn
}

func native(name string, arity int, fn machine.NativeFn) *machine.Native {
	return &machine.Native{NativeName: name, Arity: arity, Fn: fn}
}

// natives are global, not attached to any sentinel class.
var natives = []nativeDef{
	{"clock", 0, clockNative},
	{"string", 1, stringNative},
	{"concatenate", -1, concatenateNative},
}

func clockNative(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	return machine.Number(float64(time.Now().UnixNano()) / float64(time.Second)), nil
}

// stringNative converts any value to its display string, the Go
// equivalent of native.c's stringNative switch over VAL_* kinds.
func stringNative(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	return th.InternString(args[0].String()), nil
}

// concatenateNative joins any number of strings, erroring if a non-string
// argument is passed, mirroring concatenateNative's AS_STRING cast.
func concatenateNative(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	var out string
	for _, a := range args {
		s, ok := a.(*machine.String)
		if !ok {
			return nil, fmt.Errorf("concatenate: argument %s is not a string", a.Type())
		}
		out += s.S
	}
	return th.InternString(out), nil
}

// sentinelDef describes one built-in class and the methods installed on
// it, the Go equivalent of an ImportSentinel entry.
type sentinelDef struct {
	name    string
	methods []nativeDef
	statics []nativeDef

	// newFn, if set, becomes the sentinel's Class.New: called in place of
	// the generic Instance allocation whenever Lox code calls the
	// sentinel (e.g. `Slice(1, 4, 1)`), producing a concrete Go-side Value
	// instead of a generic *machine.Instance.
	newFn func(th *machine.Thread, args []machine.Value) (machine.Value, error)
}

func (s sentinelDef) build() *machine.Class {
	class := &machine.Class{
		Name:    s.name,
		Methods: make(map[string]machine.Value, len(s.methods)),
		Statics: make(map[string]machine.Value, len(s.statics)),
		New:     s.newFn,
	}
	for _, m := range s.methods {
		class.Methods[m.name] = native(m.name, m.arity, m.fn)
	}
	for _, m := range s.statics {
		class.Statics[m.name] = native(m.name, m.arity, m.fn)
	}
	return class
}

var sentinels = []sentinelDef{
	{
		name: "Boolean",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
		},
	},
	{
		name: "Number",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
		},
	},
	{
		name: "String",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
			{"length", 0, stringLength},
		},
	},
	{
		name: "Function",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
		},
	},
	{
		name: "Exception",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
			{"message", 0, exceptionMessage},
		},
	},
	{
		name: "Array",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
			{"length", 0, arrayLength},
			{"push", 1, arrayPush},
			{"pop", 0, arrayPop},
			{"get", 1, arrayGet},
			{"set", 2, arraySet},
		},
	},
	{
		name: "Slice",
		methods: []nativeDef{
			{"toString", 0, toStringNative},
		},
		newFn: sliceNew,
	},
}

// sliceNew constructs a *machine.Slice from a `Slice(start, end, step)`
// call: each argument must be a Number or nil, and step (if given) must
// not be zero. This is what lets the Slice sentinel (stl.go's
// sentinels table) build the concrete Value that arrayGet/arraySet
// special-case, instead of falling through to a generic *Instance.
func sliceNew(th *machine.Thread, args []machine.Value) (machine.Value, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("Slice: expected 3 argument(s) but got %d", len(args))
	}
	for i, a := range args {
		switch a.(type) {
		case machine.Number, machine.NilType:
		default:
			return nil, fmt.Errorf("Slice: argument %d must be a number or nil", i+1)
		}
	}
	if step, ok := args[2].(machine.Number); ok && step == 0 {
		return nil, fmt.Errorf("Slice: step must not be zero")
	}
	return th.NewSlice(args[0], args[1], args[2]), nil
}

func toStringNative(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	return th.InternString(recv.String()), nil
}

func exceptionMessage(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	exc, ok := recv.(*machine.Exception)
	if !ok {
		return nil, fmt.Errorf("message: receiver is not an exception")
	}
	return th.InternString(exc.Message), nil
}

func stringLength(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	s, ok := recv.(*machine.String)
	if !ok {
		return nil, fmt.Errorf("length: receiver is not a string")
	}
	return machine.Number(len([]rune(s.S))), nil
}

func arrayLength(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	a, ok := recv.(*machine.Array)
	if !ok {
		return nil, fmt.Errorf("length: receiver is not an array")
	}
	return machine.Number(len(a.Items)), nil
}

func arrayPush(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	a, ok := recv.(*machine.Array)
	if !ok {
		return nil, fmt.Errorf("push: receiver is not an array")
	}
	a.Items = append(a.Items, args[0])
	return recv, nil
}

func arrayPop(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	a, ok := recv.(*machine.Array)
	if !ok {
		return nil, fmt.Errorf("pop: receiver is not an array")
	}
	if len(a.Items) == 0 {
		return nil, fmt.Errorf("pop: array is empty")
	}
	last := a.Items[len(a.Items)-1]
	a.Items = a.Items[:len(a.Items)-1]
	return last, nil
}

// normalizeIndex resolves a Lox-level array index against n items,
// Python-style: a negative index counts back from the end (-1 is the last
// item). This is what lets `super.name` with no explicit bracket index
// default to the last-declared superclass via `super[-1].name`.
func normalizeIndex(i, n int) int {
	if i < 0 {
		return n + i
	}
	return i
}

func arrayGet(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	a, ok := recv.(*machine.Array)
	if !ok {
		return nil, fmt.Errorf("get: receiver is not an array")
	}
	switch idx := args[0].(type) {
	case machine.Number:
		i := normalizeIndex(int(idx), len(a.Items))
		if i < 0 || i >= len(a.Items) {
			return nil, fmt.Errorf("get: index %d out of range", int(idx))
		}
		return a.Items[i], nil
	case *machine.Slice:
		items, err := sliceSelect(idx, a.Items)
		if err != nil {
			return nil, err
		}
		return th.NewArray(items), nil
	default:
		return nil, fmt.Errorf("get: index must be a number or a slice")
	}
}

// sliceIndex reads one of a Slice's three components, defaulting to def
// when the component is Nil, Python-slice-style.
func sliceIndex(v machine.Value, def int) (int, error) {
	switch v := v.(type) {
	case machine.NilType:
		return def, nil
	case machine.Number:
		return int(v), nil
	default:
		return 0, fmt.Errorf("get: slice component must be a number or nil")
	}
}

// sliceSelect resolves sl against n items and returns the selected
// sub-sequence, Python-slice-style: start/end default to the whole array
// (run backward if step is negative), negative start/end count back from
// the end, and the range is clamped rather than erroring out of bounds.
func sliceSelect(sl *machine.Slice, items []machine.Value) ([]machine.Value, error) {
	n := len(items)
	step, err := sliceIndex(sl.Step, 1)
	if err != nil {
		return nil, err
	}
	if step == 0 {
		return nil, fmt.Errorf("get: slice step must not be zero")
	}

	defStart, defEnd := 0, n
	if step < 0 {
		defStart, defEnd = n-1, -1
	}
	start, err := sliceIndex(sl.Start, defStart)
	if err != nil {
		return nil, err
	}
	end, err := sliceIndex(sl.End, defEnd)
	if err != nil {
		return nil, err
	}
	if _, ok := sl.Start.(machine.NilType); !ok {
		start = normalizeIndex(start, n)
	}
	if _, ok := sl.End.(machine.NilType); !ok {
		end = normalizeIndex(end, n)
	}
	start = clampSliceIndex(start, n, step)
	end = clampSliceIndex(end, n, step)

	var out []machine.Value
	if step > 0 {
		for i := start; i < end; i += step {
			out = append(out, items[i])
		}
	} else {
		for i := start; i > end; i += step {
			out = append(out, items[i])
		}
	}
	return out, nil
}

// clampSliceIndex bounds i to the valid range for iterating items of
// length n in the given step direction, the way Python's slice.indices
// clamps an out-of-range start/end instead of erroring.
func clampSliceIndex(i, n, step int) int {
	if step > 0 {
		if i < 0 {
			return 0
		}
		if i > n {
			return n
		}
		return i
	}
	if i < -1 {
		return -1
	}
	if i >= n {
		return n - 1
	}
	return i
}

func arraySet(th *machine.Thread, recv machine.Value, args []machine.Value) (machine.Value, error) {
	a, ok := recv.(*machine.Array)
	if !ok {
		return nil, fmt.Errorf("set: receiver is not an array")
	}
	switch idx := args[0].(type) {
	case machine.Number:
		i := normalizeIndex(int(idx), len(a.Items))
		if i < 0 || i >= len(a.Items) {
			return nil, fmt.Errorf("set: index %d out of range", int(idx))
		}
		a.Items[i] = args[1]
		return args[1], nil
	case *machine.Slice:
		return arraySetSlice(a, idx, args[1])
	default:
		return nil, fmt.Errorf("set: index must be a number or a slice")
	}
}

// arraySetSlice replaces the sub-range idx denotes with the contents of
// repl, Python-style "extended slice assignment" restricted to a step of
// 1 (the only shape an assignment target needs: replacing a contiguous
// run, possibly with a different number of elements).
func arraySetSlice(a *machine.Array, idx *machine.Slice, repl machine.Value) (machine.Value, error) {
	replArr, ok := repl.(*machine.Array)
	if !ok {
		return nil, fmt.Errorf("set: slice assignment value must be an array")
	}
	step, err := sliceIndex(idx.Step, 1)
	if err != nil {
		return nil, err
	}
	if step != 1 {
		return nil, fmt.Errorf("set: slice assignment only supports a step of 1")
	}

	n := len(a.Items)
	start, err := sliceIndex(idx.Start, 0)
	if err != nil {
		return nil, err
	}
	end, err := sliceIndex(idx.End, n)
	if err != nil {
		return nil, err
	}
	start = clampSliceIndex(normalizeIndex(start, n), n, 1)
	end = clampSliceIndex(normalizeIndex(end, n), n, 1)
	if end < start {
		end = start
	}

	out := make([]machine.Value, 0, start+len(replArr.Items)+(n-end))
	out = append(out, a.Items[:start]...)
	out = append(out, replArr.Items...)
	out = append(out, a.Items[end:]...)
	a.Items = out
	return repl, nil
}
