package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"infranest/internal/dsl"
	"infranest/internal/validation"
)

// errInvalid makes the process exit non-zero after the report is printed.
var errInvalid = errors.New("specification is invalid")

func newValidateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a specification file with the generation service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := dsl.LoadFile(args[0])
			if err != nil {
				return err
			}
			res, err := e.client().Validate(cmd.Context(), spec)
			if err != nil {
				return err
			}
			printResult(cmd, res)
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
}

func printResult(cmd *cobra.Command, res validation.Result) {
	w := cmd.OutOrStdout()
	if res.Valid {
		fmt.Fprintln(w, "valid")
	} else {
		fmt.Fprintln(w, "invalid")
	}
	for _, msg := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", msg)
	}
	for _, msg := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", msg)
	}
}
