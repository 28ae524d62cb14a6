package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrecompileCommand(c *cli) *cobra.Command {
	var (
		dataFile string
		sets     []string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "precompile",
		Short: "Render every template under the views into an output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadData(dataFile, sets)
			if err != nil {
				return err
			}
			env, err := c.environment()
			if err != nil {
				return err
			}

			written, err := env.PrecompileDir(cmd.Context(), outDir, data)
			if err != nil {
				return err
			}
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "JSON or YAML file with template variables")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a variable, key=value (repeatable)")
	cmd.Flags().StringVar(&outDir, "out", "dist", "output directory")
	return cmd
}
