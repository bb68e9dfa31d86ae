package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"secd/internal/tools"
)

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Developer tooling",
	}
	var bin string
	install := &cobra.Command{
		Use:   "install",
		Short: "Build secd and secd-lsp from this checkout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := tools.Install(tools.InstallOptions{BinDir: bin, Stdout: a.out, Stderr: a.errOut})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(a.out, "installed %s\n", p)
			}
			return nil
		},
	}
	install.Flags().StringVar(&bin, "bin", "bin", "output directory for the binaries")
	cmd.AddCommand(install)
	return cmd
}
