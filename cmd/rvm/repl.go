package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"rvm/asm"
	"rvm/vm"
)

// replSession holds the state of one interactive session: the
// growing assembly source buffer, the history of committed chunks,
// and the VM/container produced by the most recent successful
// assembly. This generalizes the teacher's own single-instruction
// stepping debug REPL (ExecProgramDebugMode/RunProgramDebugMode) from
// stepping a fixed, pre-compiled program to incrementally assembling
// a growing buffer and re-running it from scratch after each commit.
type replSession struct {
	source    strings.Builder
	history   []string
	container []byte
	lastVM    *vm.VM
}

const replHelp = `rvm REPL — enter assembly source, one instruction or directive per line.
A blank line commits the buffered lines, assembles the program so far, and
re-runs it from the start, printing register state after each instruction.

Meta commands (must start a line on their own):
  .help        show this message
  .registers   print the last run's register file
  .program     disassemble the last successfully assembled container
  .history     print every chunk of source committed so far
  .quit, .exit leave the REPL
`

func runRepl() error {
	sess := &replSession{}
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("rvm REPL. Type .help for usage, .quit to leave.")
	var buffer []string
	for {
		fmt.Print("rvm> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil // EOF (Ctrl-D): leave quietly
		}
		line = strings.TrimRight(line, "\r\n")
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == ".help", trimmed == ".registers", trimmed == ".program",
			trimmed == ".history", trimmed == ".quit", trimmed == ".exit":
			if sess.handleMeta(trimmed) {
				return nil
			}
		case trimmed == "" && len(buffer) > 0:
			sess.commit(buffer)
			buffer = buffer[:0]
		case trimmed == "":
			// blank line with nothing buffered: ignore
		default:
			buffer = append(buffer, line)
		}
	}
}

// handleMeta processes a "."-prefixed command. It returns true when
// the REPL should exit.
func (s *replSession) handleMeta(cmd string) bool {
	switch cmd {
	case ".help":
		fmt.Print(replHelp)
	case ".registers":
		if s.lastVM == nil {
			fmt.Println("no program has been run yet")
			return false
		}
		fmt.Println(s.lastVM.Registers)
	case ".program":
		if s.container == nil {
			fmt.Println("nothing assembled yet")
			return false
		}
		text, err := vm.Disassemble(s.container)
		if err != nil {
			fmt.Println("error:", err)
			return false
		}
		fmt.Print(text)
	case ".history":
		for i, chunk := range s.history {
			fmt.Printf("[%d] %s\n", i, chunk)
		}
	case ".quit", ".exit":
		return true
	default:
		fmt.Printf("unknown command %q, try .help\n", cmd)
	}
	return false
}

// commit assembles the buffer appended to the running source, and on
// success re-runs the whole program from the start one instruction at
// a time, printing register state after each step.
func (s *replSession) commit(buffer []string) {
	chunk := strings.Join(buffer, " ")
	candidate := s.source.String() + chunk + " "

	container, errs := asm.Assemble(candidate)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Println("error:", e)
		}
		return
	}

	s.source.Reset()
	s.source.WriteString(candidate)
	s.history = append(s.history, chunk)
	s.container = container

	v := vm.New()
	v.Stdout = os.Stdout
	v.AddBytes(container)
	s.lastVM = v

	for {
		if err := v.RunOnce(); err != nil {
			fmt.Println("runtime error:", err)
			return
		}
		fmt.Printf("  pc=%d registers=%v\n", v.PC(), v.Registers)
		if v.Halted() {
			return
		}
	}
}
