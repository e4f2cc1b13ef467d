// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package shell drives an interactive read-eval-print loop over a
// debugger.Debugger: it parses one command line at a time and dispatches to
// the core's break/run/step/continue/print/memdump/symbols/disassemble
// operations, formatting results and errors for a terminal.
package shell

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dotandev/wasmdbg/internal/debugger"
	"github.com/dotandev/wasmdbg/internal/terminal"
)

// Session is one REPL session bound to a loaded debugger instance.
type Session struct {
	dbg          *debugger.Debugger
	out          io.Writer
	render       terminal.Renderer
	commandCount int
	lastErr      error
}

// NewSession wraps dbg in an interactive session writing prompts and
// results to out, colorized via an ANSI renderer that decides from the
// process's standard output and the NO_COLOR/FORCE_COLOR/TERM variables,
// not from out itself.
func NewSession(dbg *debugger.Debugger, out io.Writer) *Session {
	return &Session{dbg: dbg, out: out, render: terminal.NewANSIRenderer()}
}

// StateSummary reports how many commands have run and the debugger's
// current state, for a status line or `info` command.
type StateSummary struct {
	CommandCount int
	State        debugger.State
	LastError    error
}

// Summary returns the session's current StateSummary.
func (s *Session) Summary() StateSummary {
	return StateSummary{CommandCount: s.commandCount, State: s.dbg.State(), LastError: s.lastErr}
}

// Run reads one command per line from in until EOF or a `quit`/`exit`
// command, printing the prompt and each command's result to the session's
// output writer.
func (s *Session) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "(wasmdbg) ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if s.Dispatch(line) {
			return nil
		}
	}
}

// Dispatch executes one command line and reports whether the session
// should terminate (the `quit`/`exit` command).
func (s *Session) Dispatch(line string) (done bool) {
	fields := strings.Fields(line)
	cmdName, args := fields[0], fields[1:]
	s.commandCount++
	s.lastErr = nil

	switch cmdName {
	case "quit", "exit":
		s.dbg.Quit()
		return true

	case "break", "b":
		if len(args) != 1 {
			s.printErr(fmt.Errorf("usage: break <function>"))
			return false
		}
		s.dbg.Break(args[0])
		fmt.Fprintf(s.out, "%s Breakpoint set on %s\n", s.render.Symbol("pin"), args[0])

	case "breakpoints":
		for _, name := range s.dbg.Breakpoints() {
			fmt.Fprintln(s.out, name)
		}

	case "run", "r":
		s.printStep(s.dbg.Run())

	case "step", "s":
		s.printStep(s.dbg.Step())

	case "continue", "c":
		s.printStep(s.dbg.Continue())

	case "print", "p":
		if len(args) != 1 {
			s.printErr(fmt.Errorf("usage: print <name>"))
			return false
		}
		text, err := s.dbg.Print(args[0])
		if err != nil {
			s.printErr(err)
			return false
		}
		fmt.Fprintln(s.out, text)

	case "memdump", "mem":
		if len(args) < 1 {
			s.printErr(fmt.Errorf("usage: memdump <name> [length]"))
			return false
		}
		length := 0
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err == nil {
				length = n
			}
		}
		text, err := s.dbg.Memdump(args[0], length)
		if err != nil {
			s.printErr(err)
			return false
		}
		fmt.Fprintln(s.out, text)

	case "symbols", "sym":
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		for _, sym := range s.dbg.Symbols(query) {
			if sym.HasDwarf {
				fmt.Fprintf(s.out, "%-20s %-10s 0x%08x %s\n", sym.Name, sym.Kind, sym.Address, sym.TypeName)
			} else {
				fmt.Fprintf(s.out, "%-20s %s\n", sym.Name, sym.Kind)
			}
		}

	case "disassemble", "disass":
		if len(args) != 1 {
			s.printErr(fmt.Errorf("usage: disassemble <function>"))
			return false
		}
		text, err := s.dbg.Disassemble(args[0])
		if err != nil {
			s.printErr(err)
			return false
		}
		fmt.Fprintln(s.out, text)

	default:
		s.printErr(fmt.Errorf("unknown command %q", cmdName))
	}
	return false
}

func (s *Session) printErr(err error) {
	s.lastErr = err
	fmt.Fprintf(s.out, "%s %v\n", s.render.Error(), err)
}

func (s *Session) printStep(res debugger.StepResult, err error) {
	if err != nil {
		s.printErr(err)
		return
	}
	state := res.State.String()
	if res.State == debugger.AtBreakpoint {
		state = s.render.Colorize(state, "yellow")
	}
	if res.FunctionName == "" {
		fmt.Fprintf(s.out, "[%s]\n", state)
		return
	}
	if res.HasLine {
		fmt.Fprintf(s.out, "[%s] %s+%d: %s  ; %s:%d\n", state, res.FunctionName, res.InstrIndex, res.Text, res.File, res.Line)
	} else {
		fmt.Fprintf(s.out, "[%s] %s+%d: %s\n", state, res.FunctionName, res.InstrIndex, res.Text)
	}
}
