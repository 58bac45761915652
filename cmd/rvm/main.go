// Command rvm is the CLI front end for the assembler and VM: it
// assembles and runs source files, writes containers to disk for
// inspection, disassembles them back to text, and hosts an
// interactive REPL. The assembler and VM packages never touch
// os.Args, stdin/stdout framing, or process exit codes; this is the
// one place that does.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"rvm/asm"
	"rvm/vm"
)

var (
	verbose   bool
	debugStep bool
	logger    *slog.Logger
	levelVar  slog.LevelVar
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar}))

	rootCmd := &cobra.Command{
		Use:   "rvm [file]",
		Short: "rvm assembles and runs programs for the toy register-VM ISA",
		Long: "rvm assembles and runs programs for the toy register-VM ISA.\n" +
			"With a file argument it assembles and executes that file, matching\n" +
			"`rvm run <file>`. With no arguments it launches the interactive REPL.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runRepl()
			}
			return runFile(args[0])
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "raise the structured-log level to debug")
	rootCmd.PersistentFlags().BoolVar(&debugStep, "debug", false, "single-step mode: print register state between instructions")
	cobra.OnInitialize(func() {
		if verbose {
			levelVar.Set(slog.LevelDebug)
		} else {
			levelVar.Set(slog.LevelInfo)
		}
	})

	rootCmd.AddCommand(newRunCmd(), newAsmCmd(), newDisasmCmd(), newReplCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Assemble and execute a source file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0])
		},
	}
}

func newAsmCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "asm <file>",
		Short: "Assemble a source file, writing the container to disk (or stdout)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := assembleFile(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				_, err := os.Stdout.Write(container)
				return err
			}
			logger.Info("writing container", "path", output, "bytes", len(container))
			return os.WriteFile(output, container, 0o644)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output container path (default: stdout)")
	return cmd
}

func newDisasmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file>",
		Short: "Load a container and print its disassembly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := vm.Disassemble(container)
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
}

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Launch the interactive REPL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}
}

// assembleFile reads and assembles a source file, logging and
// returning a combined error on assembler failure.
func assembleFile(path string) ([]byte, error) {
	logger.Debug("assembling", "file", path)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	container, errs := asm.Assemble(string(src))
	if len(errs) > 0 {
		logger.Info("assembler errors found", "count", len(errs))
		return nil, combineErrors(errs)
	}
	return container, nil
}

// runFile assembles then executes a source file, mapping assembler
// and VM failures onto the process's nonzero exit code.
func runFile(path string) error {
	container, err := assembleFile(path)
	if err != nil {
		return err
	}

	v := vm.New()
	v.Stdout = os.Stdout
	v.AddBytes(container)

	if debugStep {
		return runStepping(v)
	}

	logger.Debug("running", "file", path)
	if err := v.RunWithGCDisabled(); err != nil {
		return err
	}
	logger.Debug("exit", "code", 0)
	return nil
}

func runStepping(v *vm.VM) error {
	for {
		if err := v.RunOnce(); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "pc=%d registers=%v\n", v.PC(), v.Registers)
		if v.Halted() {
			return nil
		}
	}
}

func combineErrors(errs []error) error {
	msg := fmt.Sprintf("%d assembler error(s):", len(errs))
	for _, e := range errs {
		msg += "\n  " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
