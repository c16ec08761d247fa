package stl

import (
	"testing"

	"github.com/mna/glox/lang/machine"
	"github.com/stretchr/testify/require"
)

func newArray(items ...machine.Value) *machine.Array {
	return &machine.Array{Items: items}
}

func nums(vs ...float64) []machine.Value {
	out := make([]machine.Value, len(vs))
	for i, v := range vs {
		out[i] = machine.Number(v)
	}
	return out
}

func TestArrayGetNumberIndex(t *testing.T) {
	a := newArray(nums(1, 2, 3)...)
	v, err := arrayGet(nil, a, []machine.Value{machine.Number(1)})
	require.NoError(t, err)
	require.Equal(t, machine.Number(2), v)
}

func TestArrayGetNegativeIndex(t *testing.T) {
	a := newArray(nums(1, 2, 3)...)
	v, err := arrayGet(nil, a, []machine.Value{machine.Number(-1)})
	require.NoError(t, err)
	require.Equal(t, machine.Number(3), v)
}

func TestArrayGetOutOfRangeErrors(t *testing.T) {
	a := newArray(nums(1, 2, 3)...)
	_, err := arrayGet(nil, a, []machine.Value{machine.Number(5)})
	require.Error(t, err)
}

func TestArraySetNumberIndex(t *testing.T) {
	a := newArray(nums(1, 2, 3)...)
	_, err := arraySet(nil, a, []machine.Value{machine.Number(1), machine.Number(20)})
	require.NoError(t, err)
	require.Equal(t, machine.Number(20), a.Items[1])
}

// spec §8 concrete scenario 5's own assertion on a Slice-indexed get.
func TestArrayGetSliceIndex(t *testing.T) {
	th := machine.NewThread("test")
	a := newArray(nums(1, 20, 3, 4, 5)...)
	sl := &machine.Slice{Start: machine.Number(1), End: machine.Number(4), Step: machine.Number(1)}
	v, err := arrayGet(th, a, []machine.Value{sl})
	require.NoError(t, err)
	sub, ok := v.(*machine.Array)
	require.True(t, ok)
	require.Equal(t, "[20, 3, 4]", sub.String())
}

func TestArrayGetSliceDefaultsToWholeArray(t *testing.T) {
	th := machine.NewThread("test")
	a := newArray(nums(1, 2, 3)...)
	sl := &machine.Slice{Start: machine.Nil, End: machine.Nil, Step: machine.Nil}
	v, err := arrayGet(th, a, []machine.Value{sl})
	require.NoError(t, err)
	sub := v.(*machine.Array)
	require.Equal(t, "[1, 2, 3]", sub.String())
}

func TestArrayGetSliceNegativeStep(t *testing.T) {
	th := machine.NewThread("test")
	a := newArray(nums(1, 2, 3, 4, 5)...)
	sl := &machine.Slice{Start: machine.Nil, End: machine.Nil, Step: machine.Number(-1)}
	v, err := arrayGet(th, a, []machine.Value{sl})
	require.NoError(t, err)
	sub := v.(*machine.Array)
	require.Equal(t, "[5, 4, 3, 2, 1]", sub.String())
}

func TestArraySetSliceReplacesRange(t *testing.T) {
	a := newArray(nums(1, 2, 3, 4, 5)...)
	sl := &machine.Slice{Start: machine.Number(1), End: machine.Number(4), Step: machine.Nil}
	repl := newArray(nums(20, 30)...)
	_, err := arraySet(nil, a, []machine.Value{sl, repl})
	require.NoError(t, err)
	require.Equal(t, "[1, 20, 30, 5]", a.String())
}

func TestSliceNewRejectsWrongArity(t *testing.T) {
	_, err := sliceNew(nil, []machine.Value{machine.Number(1)})
	require.Error(t, err)
}

func TestSliceNewRejectsZeroStep(t *testing.T) {
	_, err := sliceNew(nil, []machine.Value{machine.Nil, machine.Nil, machine.Number(0)})
	require.Error(t, err)
}

func TestSliceNewRejectsNonNumberComponent(t *testing.T) {
	s := &machine.String{S: "nope"}
	_, err := sliceNew(nil, []machine.Value{s, machine.Nil, machine.Nil})
	require.Error(t, err)
}

func TestStringLength(t *testing.T) {
	s := &machine.String{S: "héllo"}
	v, err := stringLength(nil, s, nil)
	require.NoError(t, err)
	require.Equal(t, machine.Number(5), v)
}

func TestConcatenateNativeJoinsStrings(t *testing.T) {
	th := machine.NewThread("test")
	a := th.InternString("foo")
	b := th.InternString("bar")
	v, err := concatenateNative(th, machine.Nil, []machine.Value{a, b})
	require.NoError(t, err)
	require.Equal(t, "foobar", v.String())
}

func TestConcatenateNativeRejectsNonString(t *testing.T) {
	_, err := concatenateNative(nil, machine.Nil, []machine.Value{machine.Number(1)})
	require.Error(t, err)
}
