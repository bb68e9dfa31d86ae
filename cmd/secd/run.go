package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"secd/internal/compiler"
	"secd/internal/diag"
	"secd/internal/evaluator"
	"secd/internal/object"
	"secd/internal/repl"
	"secd/internal/runtimeio"
	"secd/internal/vm"
)

func newRunCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [file|dir]",
		Short: "Run a program",
		Long: `Run a Scheme file, or the entry of a project directory holding secd.toml.
Expressions given with -e run after the file and their values are printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			} else if len(o.exprs) == 0 {
				target = "."
			}
			p, err := loadProject(target)
			if err != nil {
				return err
			}
			ev, err := a.newEvaluator(cmd, p, o)
			if err != nil {
				return err
			}
			if p.entry != "" {
				src, err := os.ReadFile(p.entry)
				if err != nil {
					return err
				}
				if err := a.runSource(ev, p.entry, string(src), o.dis, false); err != nil {
					return err
				}
			}
			for _, expr := range o.exprs {
				if err := a.runSource(ev, "<expr>", expr, o.dis, true); err != nil {
					return err
				}
			}
			return nil
		},
	}
	o.bind(cmd)
	cmd.Flags().StringArrayVarP(&o.exprs, "expression", "e", nil, "evaluate an expression and print its value (repeatable)")
	cmd.Flags().BoolVar(&o.dis, "dis", false, "print the compiled code of each form before running it")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive read-eval-print loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.repl(cmd, o)
		},
	}
	o.bind(cmd)
	return cmd
}

func newDisCmd(a *app) *cobra.Command {
	o := &runOptions{dis: true}
	cmd := &cobra.Command{
		Use:   "dis <file>",
		Short: "Print the compiled code of every form in a file",
		Long: `Print the compiled code of every form in a file. Each form also runs,
with program output discarded, so later forms see the definitions and
macros of earlier ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(args[0])
			if err != nil {
				return err
			}
			if p.entry == "" {
				return fmt.Errorf("%s: not a file", args[0])
			}
			src, err := os.ReadFile(p.entry)
			if err != nil {
				return err
			}
			quiet := *a
			quiet.out = io.Discard
			ev, err := quiet.newEvaluator(cmd, p, o)
			if err != nil {
				return err
			}
			return a.runSource(ev, p.entry, string(src), true, false)
		},
	}
	o.bind(cmd)
	return cmd
}

func (a *app) repl(cmd *cobra.Command, o *runOptions) error {
	p, err := loadProject("")
	if err != nil {
		return err
	}
	ev, err := a.newEvaluator(cmd, p, o)
	if err != nil {
		return err
	}
	var code int
	if a.in == os.Stdin && runtimeio.IsInteractive() {
		code = repl.StartInteractive(a.out, ev)
	} else {
		code = repl.Start(a.in, a.out, ev)
	}
	if code != 0 {
		return exitCode(code)
	}
	return nil
}

// runSource reads and runs src form by form. dis prints each form's code
// first; echo prints each value that is not unspecified. Errors are
// reported on errOut as path:line:col diagnostics.
func (a *app) runSource(ev *evaluator.Evaluator, name, src string, dis, echo bool) error {
	p := ev.Parser(src)
	for {
		d, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return a.fail(name, err)
		}
		program, err := ev.Compile(d.Value)
		if err != nil {
			return a.fail(name, diag.At(err, d.Line, d.Col))
		}
		if dis {
			fmt.Fprintf(a.out, ";; %s\n%s", object.Write(d.Value), compiler.Disassemble(program))
		}
		v, err := ev.Run(program)
		if err != nil {
			return a.fail(name, diag.At(err, d.Line, d.Col))
		}
		if echo && v != object.Unspecified {
			fmt.Fprintln(a.out, object.Write(v))
		}
	}
}

// fail turns a program error into an exit status. (exit n) ends quietly.
func (a *app) fail(name string, err error) error {
	var exit *vm.ExitError
	if errors.As(err, &exit) {
		return exitCode(exit.Code)
	}
	fmt.Fprintln(a.errOut, diag.FromError(err).Format(name))
	return exitCode(1)
}
