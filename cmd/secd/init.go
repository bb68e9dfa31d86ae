package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"secd/internal/config"
)

const starterProgram = `;; expect: stdout "hello from secd\n(1 4 9)\n"

(define (square x) (* x x))

(display "hello from secd")
(newline)
(write (map square '(1 2 3)))
(newline)
`

func newInitCmd(a *app) *cobra.Command {
	var name string
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create secd.toml and a starter program",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Join(dir, "lib"), 0o755); err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(dir)
			}

			manifestPath := filepath.Join(dir, config.ManifestName)
			exists, err := pathExists(manifestPath)
			if err != nil {
				return err
			}
			if exists && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", config.ManifestName)
			}
			if err := os.WriteFile(manifestPath, []byte(config.Starter(name)), 0o644); err != nil {
				return err
			}

			m, err := config.LoadManifest(manifestPath)
			if err != nil {
				return err
			}
			entryPath := filepath.Join(dir, m.Entry)
			exists, err = pathExists(entryPath)
			if err != nil {
				return err
			}
			if !exists || force {
				if err := os.WriteFile(entryPath, []byte(starterProgram), 0o644); err != nil {
					return err
				}
			}
			fmt.Fprintf(a.out, "created %s\n", manifestPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (default: directory name)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func pathExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}
