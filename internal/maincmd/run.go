package maincmd

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mna/mainer"
	"github.com/mna/glox/lang/ast"
	"github.com/mna/glox/lang/compiler"
	"github.com/mna/glox/lang/machine"
	"github.com/mna/glox/lang/parser"
	"github.com/mna/glox/lang/resolver"
	"github.com/mna/glox/lang/scanner"
	"github.com/mna/glox/lang/stl"
	"github.com/mna/glox/lang/token"
)

// replPrompt is printed before every line read in interactive mode,
// grounded on original_source/src/main.c's repl().
const replPrompt = ">>> "

// Run compiles and executes the given files in a single shared Thread, or
// starts an interactive REPL if no file is given, satisfying spec.md §6's
// `lox [path]` CLI contract.
func (c *Cmd) Run(ctx context.Context, stdio mainer.Stdio, args []string) error {
	if len(args) == 0 {
		return c.repl(ctx, stdio)
	}
	return c.runFiles(ctx, stdio, args)
}

// runFiles reads, compiles and runs every file in turn on a single Thread,
// stopping at the first error with the sysexits.h-style exit code spec.md
// §6 requires: 74 for a file that cannot be read, 65 for a scan/parse/
// resolve error, 70 for an uncaught runtime error.
func (c *Cmd) runFiles(ctx context.Context, stdio mainer.Stdio, files []string) error {
	fs := token.NewFileSet()
	chunks := make([]*ast.Chunk, 0, len(files))
	for _, file := range files {
		b, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return &cmdError{code: exitIOError, err: err}
		}
		ch, err := parser.ParseChunk(ctx, fs, file, b)
		if err != nil {
			scanner.PrintError(stdio.Stderr, err)
			return &cmdError{code: exitDataError, err: err}
		}
		chunks = append(chunks, ch)
	}

	if err := resolver.ResolveFiles(ctx, fs, chunks); err != nil {
		scanner.PrintError(stdio.Stderr, err)
		return &cmdError{code: exitDataError, err: err}
	}

	programs := compiler.CompileFiles(ctx, fs, chunks)
	if c.Dis {
		for _, p := range programs {
			fmt.Fprint(stdio.Stdout, compiler.Disassemble(p))
		}
	}

	th := newThread(stdio)
	for _, p := range programs {
		if _, err := th.Run(p); err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			return &cmdError{code: exitRuntimeError, err: err}
		}
	}
	return nil
}

func newThread(stdio mainer.Stdio) *machine.Thread {
	th := machine.NewThread("main")
	th.Stdout = stdio.Stdout
	th.Stderr = stdio.Stderr
	th.Stdin = stdio.Stdin
	stl.Install(th)
	return th
}

// repl runs an interactive read-compile-run loop over stdio.Stdin, one
// chunk per line, auto-printing the value of a non-nil top-level
// expression statement (machine.Thread.Run's return value). The `exit`
// command quits, `reset` discards the thread and starts a fresh one;
// both are grounded on original_source/src/main.c's repl().
func (c *Cmd) repl(ctx context.Context, stdio mainer.Stdio) error {
	fs := token.NewFileSet()
	th := newThread(stdio)

	in := bufio.NewScanner(stdio.Stdin)
	for {
		fmt.Fprint(stdio.Stdout, replPrompt)
		if !in.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return nil
		}
		line := in.Text()
		switch line {
		case "exit":
			return nil
		case "reset":
			fs = token.NewFileSet()
			th = newThread(stdio)
			continue
		case "":
			continue
		}

		ch, err := parser.ParseChunk(ctx, fs, "<stdin>", []byte(line))
		if err != nil {
			scanner.PrintError(stdio.Stderr, err)
			continue
		}
		if err := resolver.ResolveFiles(ctx, fs, []*ast.Chunk{ch}); err != nil {
			scanner.PrintError(stdio.Stderr, err)
			continue
		}
		programs := compiler.CompileFiles(ctx, fs, []*ast.Chunk{ch})
		if c.Dis {
			fmt.Fprint(stdio.Stdout, compiler.Disassemble(programs[0]))
		}
		v, err := th.Run(programs[0])
		if err != nil {
			fmt.Fprintln(stdio.Stderr, err)
			continue
		}
		if v != nil && v != machine.Nil {
			fmt.Fprintln(stdio.Stdout, v)
		}
	}
}
