package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRenderCommand(c *cli) *cobra.Command {
	var (
		dataFile string
		sets     []string
		outFile  string
	)

	cmd := &cobra.Command{
		Use:   "render NAME",
		Short: "Render a template to stdout or a file",
		Example: `  sigma render pages.home --views ./views --data data.yaml
  sigma render mail --set user.name=Ada --set count=3 --out mail.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := loadData(dataFile, sets)
			if err != nil {
				return err
			}
			env, err := c.environment()
			if err != nil {
				return err
			}

			out, err := env.RenderContext(cmd.Context(), args[0], data)
			if err != nil {
				return err
			}

			if outFile == "" {
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			return os.WriteFile(outFile, []byte(out), 0o644)
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "JSON or YAML file with template variables")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a variable, key=value (repeatable)")
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write output to a file")
	return cmd
}
