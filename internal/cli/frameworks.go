package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newFrameworksCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "frameworks",
		Short: "List the frameworks code can be generated for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fws, source, err := e.frameworks(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tLANGUAGE\tFEATURES")
			for _, fw := range fws {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", fw.ID, fw.Name, fw.Language, strings.Join(fw.Features, ", "))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "source: %s\n", source)
			return nil
		},
	}
}
