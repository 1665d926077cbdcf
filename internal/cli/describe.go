package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"infranest/internal/dsl"
)

func newDescribeCmd(e *env) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "describe <description...>",
		Short: "Translate a description into a specification",
		Long: `Send a plain-language description to the generation service and print the
resulting specification as YAML, or write it to --out.

Examples:
  infranest describe "a blog with users, posts and comments"
  infranest describe -o api.yaml "an inventory service"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, warnings, err := e.client().ParsePrompt(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			for _, w := range warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			if out != "" {
				if err := dsl.WriteFile(out, spec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d models)\n", out, len(spec.ModelNames()))
				return nil
			}
			data, err := dsl.Encode(spec, dsl.FormatYAML)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the specification to this file")
	return cmd
}
