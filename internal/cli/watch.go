package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"infranest/internal/dsl"
	"infranest/internal/watch"
)

func newWatchCmd(e *env) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Lint a specification file on every save",
		Long: `Watch a specification file and lint it each time it changes. With --remote
each change is also validated by the generation service. Stops on Ctrl-C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := e.registry()
			if err != nil {
				return err
			}
			w, err := watch.NewWatcher(args[0], watch.WithLogger(e.logger))
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "watching %s\n", w.Path)
			for {
				select {
				case <-ctx.Done():
					return nil
				case r, ok := <-w.Changes:
					if !ok {
						return nil
					}
					if r.Err != nil {
						fmt.Fprintf(out, "%s: %v\n", r.Path, r.Err)
						continue
					}
					fmt.Fprintf(out, "%s changed\n", r.Path)
					printIssues(cmd, dsl.Lint(r.Specification, dsl.WithFrameworks(reg.IDs())))
					if !remote {
						continue
					}
					res, err := e.client().Validate(ctx, r.Specification)
					if err != nil {
						fmt.Fprintf(out, "validation unavailable: %v\n", err)
						continue
					}
					printResult(cmd, res)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "also validate with the generation service")
	return cmd
}
