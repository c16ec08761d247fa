package compiler_test

import (
	"context"
	"testing"

	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/compiler"
	"github.com/mna/glox/lang/parser"
	"github.com/mna/glox/lang/resolver"
	"github.com/mna/glox/lang/token"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, src string) *compiler.Program {
	t.Helper()
	fs := token.NewFileSet()
	ch, err := parser.ParseChunk(context.Background(), fs, "<test>", []byte(src))
	require.NoError(t, err)
	require.NoError(t, resolver.ResolveFiles(context.Background(), fs, []*ast.Chunk{ch}))
	progs := compiler.CompileFiles(context.Background(), fs, []*ast.Chunk{ch})
	require.Len(t, progs, 1)
	return progs[0]
}

// spec.md's round-trip law: disassemble(compile(src)) must be stable
// across runs for identical src.
func TestDisassembleIsStableAcrossRuns(t *testing.T) {
	const src = `
		class A { fun greet() { return "A"; } }
		class B < A {
			fun greet() { return super.greet() + "B"; }
		}
		var fns = [];
		for (var i = 0; i < 3; i = i + 1) fns.push(fun(){ return i; });
		print B().greet();
	`
	p1 := compileSource(t, src)
	p2 := compileSource(t, src)
	d1 := compiler.Disassemble(p1)
	d2 := compiler.Disassemble(p2)
	require.NotEmpty(t, d1)
	require.Equal(t, d1, d2)
}

func TestDisassembleListsNestedClosures(t *testing.T) {
	p := compileSource(t, `var f = fun(x) { return x + 1; };`)
	out := compiler.Disassemble(p)
	require.Contains(t, out, "== <toplevel> ==")
	require.Contains(t, out, "closure")
}

func TestCompileChunkReturnsTrailingExpr(t *testing.T) {
	p := compileSource(t, `1 + 2;`)
	require.NotEmpty(t, p.Toplevel.Code)
	// the final instruction must be OP_RETURN so the REPL can auto-print
	// the trailing expression statement's value.
	last := compiler.Opcode(p.Toplevel.Code[len(p.Toplevel.Code)-1])
	require.Equal(t, compiler.OP_RETURN, last)
}
