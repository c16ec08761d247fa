package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/mna/mainer"
)

const binName = "nenuphar"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] <command> [<path>...]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<command>] [<path>...] [-- <arg>...]
       %[1]s -h|--help
       %[1]s -v|--version

Compiler and all-in-one tool for the %[1]s programming language.

With no <command> and a <path>, compiles and runs that file. With no
<command> and no <path>, starts an interactive REPL (type 'exit' to quit,
'reset' to discard all REPL-defined state).

The <command> can be one of:
       run                       Compile and run the given file(s), or
                                 start the REPL if none are given. This
                                 is the implicit command when <path>
                                 does not name one of the below.
       parse                     Execute the parser phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST).
       resolve                   Execute the resolver phase of the
                                 compilation and print the resulting
                                 abstract syntax tree (AST) with symbol
                                 resolution information.
       tokenize                  Execute the scanner phase of the
                                 compilation and print the resulting
                                 tokens.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.

Valid flag options for the <run> command are:
       --dis                     Print the disassembly of every
                                 compiled chunk to stdout before
                                 running it.

Valid flag options for the <parse> command are:
       --with-comments           Include comments in the AST (excluded
                                 by default).

Exit codes for the <run> command (and the implicit form) follow the
classic sysexits.h convention: 0 on success, 65 on a compile-time
(scan/parse/resolve) error, 70 on an uncaught runtime error, 74 on an
I/O error reading a source file.

More information on the %[1]s repository:
       https://github.com/mna/glox
`, binName)
)

type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	WithComments bool `flag:"with-comments"`
	Dis          bool `flag:"dis"`

	args    []string
	flags   map[string]bool
	cmdFn   func(context.Context, mainer.Stdio, []string) error
	cmdArgs []string
}

// exitCoder is implemented by errors that carry the sysexits.h-style exit
// code the run command must terminate with, distinct from the generic
// mainer.Failure every other command returns on error.
type exitCoder interface {
	ExitCode() mainer.ExitCode
}

// cmdError pairs an error with the process exit code it should produce,
// used by the run command to report compile/runtime/I-O errors with the
// distinct exit codes spec.md's CLI contract requires instead of the
// generic mainer.Failure.
type cmdError struct {
	code mainer.ExitCode
	err  error
}

func (e *cmdError) Error() string            { return e.err.Error() }
func (e *cmdError) Unwrap() error            { return e.err }
func (e *cmdError) ExitCode() mainer.ExitCode { return e.code }

const (
	// exitDataError is returned when a source file fails to scan, parse or
	// resolve, the EX_DATAERR of sysexits.h.
	exitDataError mainer.ExitCode = 65
	// exitRuntimeError is returned when a compiled program throws past every
	// handler, the EX_SOFTWARE of sysexits.h.
	exitRuntimeError mainer.ExitCode = 70
	// exitIOError is returned when a source file cannot be read, the
	// EX_IOERR of sysexits.h.
	exitIOError mainer.ExitCode = 74
)

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {
	c.flags = flags
}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}

	commands := buildCmds(c)

	// no arguments at all: start the REPL.
	if len(c.args) == 0 {
		c.cmdFn = c.Run
		c.cmdArgs = nil
		return c.validateRunFlags()
	}

	cmdName := c.args[0]
	if fn, ok := commands[cmdName]; ok {
		c.cmdFn = fn
		c.cmdArgs = c.args[1:]

		if cmdName == "tokenize" || cmdName == "parse" {
			// at least one file is required, or TODO: read from stdin
			if len(c.cmdArgs) == 0 {
				return fmt.Errorf("%s: at least one file must be provided", cmdName)
			}
		}
		if c.flags["with-comments"] && cmdName != "parse" && cmdName != "resolve" {
			return fmt.Errorf("%s: invalid flag 'with-comments'", cmdName)
		}
		if cmdName == "run" {
			return c.validateRunFlags()
		}
		if c.flags["dis"] {
			return errors.New("invalid flag '--dis'")
		}
		return nil
	}

	// no recognized command name: treat every argument as a source file
	// path for the implicit run command.
	c.cmdFn = c.Run
	c.cmdArgs = c.args
	return c.validateRunFlags()
}

func (c *Cmd) validateRunFlags() error {
	if c.flags["with-comments"] {
		return errors.New("invalid flag '--with-comments'")
	}
	return nil
}

func printError(stdio mainer.Stdio, err error) error {
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "%s\n", err)
	}
	return err
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false, // leaving this here for now in case some flags can use this
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return mainer.InvalidArgs
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)
	if err := c.cmdFn(ctx, stdio, c.cmdArgs); err != nil {
		// each command takes care of printing its errors, just return with an error code
		var ec exitCoder
		if errors.As(err, &ec) {
			return ec.ExitCode()
		}
		return mainer.Failure
	}
	return mainer.Success
}

// valid commands are those that take a mainer.Stdio and a slice of strings as
// input, and return an error as output.
func buildCmds(v interface{}) map[string]func(context.Context, mainer.Stdio, []string) error {
	cmds := make(map[string]func(context.Context, mainer.Stdio, []string) error)

	vv := reflect.ValueOf(v)
	vt := vv.Type()
	for i := 0; i < vt.NumMethod(); i++ {
		m := vt.Method(i)
		mt := m.Type

		// must take 4 parameters (including receiver) and return 1
		if mt.NumIn() != 4 || mt.NumOut() != 1 {
			continue
		}

		if rt := mt.Out(0); rt.Kind() != reflect.Interface || rt.Name() != "error" {
			continue
		}
		if p0 := mt.In(0); p0.Kind() != reflect.Ptr || p0.Elem().Name() != "Cmd" {
			continue
		}
		if p1 := mt.In(1); p1.Kind() != reflect.Interface || p1.Name() != "Context" {
			continue
		}
		if p2 := mt.In(2); p2.Kind() != reflect.Struct || p2.Name() != "Stdio" {
			continue
		}
		if p3 := mt.In(3); p3.Kind() != reflect.Slice || p3.Elem().Name() != "string" {
			continue
		}
		cmds[strings.ToLower(m.Name)] = vv.Method(i).Interface().(func(context.Context, mainer.Stdio, []string) error)
	}
	return cmds
}
