package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"infranest/internal/dsl"
)

func newLintCmd(e *env) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "lint <file>",
		Short: "Check a specification file locally",
		Long: `Report local contradictions in the models: unknown types, relations to
undeclared models, missing primary keys. Lint is advisory; only the
generation service decides validity. --strict exits non-zero on issues.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := dsl.LoadFile(args[0])
			if err != nil {
				return err
			}
			reg, err := e.registry()
			if err != nil {
				return err
			}
			issues := dsl.Lint(spec, dsl.WithFrameworks(reg.IDs()))
			printIssues(cmd, issues)
			if strict && len(issues) > 0 {
				return fmt.Errorf("%d lint issues", len(issues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when issues are found")
	return cmd
}

func printIssues(cmd *cobra.Command, issues []dsl.Issue) {
	w := cmd.OutOrStdout()
	if len(issues) == 0 {
		fmt.Fprintln(w, "no issues")
		return
	}
	for _, is := range issues {
		where := strings.Trim(is.Model+"."+is.Field, ".")
		if where == "" {
			where = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", where, is.Code, is.Message)
	}
}
