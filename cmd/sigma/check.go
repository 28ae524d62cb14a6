package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deicod/sigma/runtime"
)

func newCheckCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check [NAME...]",
		Short: "Check templates for structural errors without rendering them",
		Long: `Check loads each template and the templates it extends or includes and
reports unbalanced tags, invalid block names and reference cycles. With no
names, every template under the views is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := c.environment()
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				lister, ok := env.Loader().(runtime.TemplateLister)
				if !ok {
					return errors.New("no template names given")
				}
				if names, err = lister.ListTemplates(); err != nil {
					return err
				}
			}

			failed := 0
			for _, name := range names {
				if err := env.Check(name); err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed", failed, len(names))
			}
			return nil
		},
	}
}
