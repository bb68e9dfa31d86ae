package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"secd/internal/spectest"
)

func newTestCmd(a *app) *cobra.Command {
	o := &runOptions{}
	cmd := &cobra.Command{
		Use:   "test [path|dir]...",
		Short: "Run test programs and check their expect directives",
		Long: `Run *_test.scm files and .scm files under tests/ directories. Each file
states its expected outcome in leading comments:

  ;; expect: ok | error | error contains "text"
  ;; expect: stdout "text" | stdout contains "text" | stdout file "path"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := args
			if len(targets) == 0 {
				targets = []string{"."}
			}
			files, err := spectest.Collect(targets)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(a.out, "no tests found")
				return nil
			}
			sort.Strings(files)

			passed, failed := 0, 0
			for _, path := range files {
				p, err := loadProject(path)
				if err != nil {
					return err
				}
				a.configureLogging(p.manifest.Verbosity)
				res, err := p.resolver()
				if err != nil {
					return err
				}
				if err := spectest.CheckFile(path, res, o.evaluatorOptions(cmd, p.manifest)...); err != nil {
					failed++
					fmt.Fprintf(a.out, "FAIL %s: %s\n", path, err)
					continue
				}
				passed++
			}
			fmt.Fprintf(a.out, "passed %d, failed %d\n", passed, failed)
			if failed > 0 {
				return exitCode(1)
			}
			return nil
		},
	}
	o.bind(cmd)
	return cmd
}
