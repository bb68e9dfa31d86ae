package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// exitCode ends a command with a status after it has reported on its own.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

// app is the state shared by every command: its streams and the -v count.
type app struct {
	in        io.Reader
	out       io.Writer
	errOut    io.Writer
	verbosity int
}

func execute(args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd(&app{in: in, out: out, errOut: errOut})
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	err := root.Execute()
	if err == nil {
		return 0
	}
	var code exitCode
	if errors.As(err, &code) {
		return int(code)
	}
	fmt.Fprintln(errOut, "error:", err)
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "secd",
		Short: "Scheme compiler and SECD virtual machine",
		Long: `secd compiles Scheme forms to SECD machine code and runs them.
Without a command it starts the interactive REPL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.configureLogging(0)
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.repl(cmd, &runOptions{})
		},
	}
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	root.AddCommand(
		newRunCmd(a),
		newReplCmd(a),
		newDisCmd(a),
		newTestCmd(a),
		newInitCmd(a),
		newToolsCmd(a),
	)
	return root
}

// configureLogging uses the larger of the -v count and the manifest level.
func (a *app) configureLogging(manifestLevel int) {
	commonlog.Configure(max(a.verbosity, manifestLevel), nil)
}
