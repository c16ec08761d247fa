package machine_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/compiler"
	"github.com/mna/glox/lang/machine"
	"github.com/mna/glox/lang/parser"
	"github.com/mna/glox/lang/resolver"
	"github.com/mna/glox/lang/stl"
	"github.com/mna/glox/lang/token"
	"github.com/stretchr/testify/require"
)

// run compiles and executes src on a fresh Thread, returning everything
// written to stdout. It fails the test immediately on a scan/parse/
// resolve error, but returns a runtime error to the caller so tests that
// exercise an uncaught throw can assert on it.
func run(t *testing.T, src string) (string, error) {
	t.Helper()

	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), fs, "<test>", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}))

	programs := compiler.CompileFiles(context.Background(), fs, []*ast.Chunk{ch})
	require.Len(t, programs, 1)

	var out bytes.Buffer
	th := machine.NewThread("test")
	th.Stdout = &out
	th.Stderr = &out
	stl.Install(th)

	_, runErr := th.Run(programs[0])
	return out.String(), runErr
}

// spec §8 concrete scenario 1: closures over a loop variable.
func TestClosuresOverLoopVariable(t *testing.T) {
	out, err := run(t, `
		var fns = [];
		for (var i = 0; i < 3; i = i + 1) fns.push(fun(){ return i; });
		print fns[0]();
		print fns[1]();
		print fns[2]();
	`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n2\n", out)
}

// spec §8 concrete scenario 2: single inheritance and `super`.
func TestInheritanceAndSuper(t *testing.T) {
	out, err := run(t, `
		class A { fun greet() { return "A"; } }
		class B < A { fun greet() { return super.greet() + "B"; } }
		print B().greet();
	`)
	require.NoError(t, err)
	require.Equal(t, "AB\n", out)
}

// spec §8 concrete scenario 3: try/throw/catch.
func TestTryThrowCatch(t *testing.T) {
	out, err := run(t, `try { throw "boom"; } catch (e) { print e; }`)
	require.NoError(t, err)
	require.Equal(t, "boom\n", out)
}

// spec §8 concrete scenario 4: string interpolation.
func TestStringInterpolation(t *testing.T) {
	out, err := run(t, `var x = 2; var y = 3; print "x+y=${x+y}";`)
	require.NoError(t, err)
	require.Equal(t, "x+y=5\n", out)
}

// spec §8 concrete scenario 5: array subscript and slice.
func TestArraySubscriptAndSlice(t *testing.T) {
	out, err := run(t, `
		var a = [1,2,3,4,5];
		print a[1];
		a[1] = 20;
		print a;
		print a[Slice(1, 4, 1)];
	`)
	require.NoError(t, err)
	require.Equal(t, "2\n[1, 20, 3, 4, 5]\n[20, 3, 4]\n", out)
}

// spec §8 concrete scenario 6: an uncaught throw reports the value and
// the line it escaped from.
func TestUncaughtThrowReportsLine(t *testing.T) {
	_, err := run(t, "fun f() { throw \"x\"; }\nf();")
	require.Error(t, err)
	re, ok := err.(*machine.RuntimeError)
	require.True(t, ok)
	require.True(t, strings.Contains(re.Error(), "x"))
	require.Equal(t, int32(1), re.Line)
}
