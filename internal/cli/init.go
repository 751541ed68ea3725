package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/1ikeadragon/subconverge/internal/infra/fsworkspace"
	"github.com/1ikeadragon/subconverge/internal/usecase"
)

func initCmd(f *rootFlags) *cobra.Command {
	var force bool

	c := &cobra.Command{
		Use:   "init [dir]",
		Short: "Write a default subconverge.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			abs, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("invalid directory: %w", err)
			}

			uc := usecase.NewInitWorkspace(fsworkspace.NewInitializer(f.out))
			written, err := uc.Execute(abs, force)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintf(out, "%s already initialized (use --force to overwrite)\n", abs)
				return nil
			}
			for _, p := range written {
				if rel, rerr := filepath.Rel(mustGetwd(), p); rerr == nil {
					p = rel
				}
				fmt.Fprintf(out, "wrote %s\n", p)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&force, "force", false, "overwrite an existing subconverge.yaml")
	return c
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
