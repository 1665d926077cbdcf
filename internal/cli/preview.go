package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/filetree"
)

func newPreviewCmd(e *env) *cobra.Command {
	var (
		framework string
		show      string
	)
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Generate a project and print its file tree",
		Long: `Generate the project for a specification file and print the resulting file
tree. --show prints one file's content instead.

Examples:
  infranest preview api.yaml -f fastapi
  infranest preview api.yaml -f fastapi --show app/main.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := dsl.LoadFile(args[0])
			if err != nil {
				return err
			}
			if framework == "" {
				framework = spec.Meta().Framework
			}
			if framework == "" {
				return nesterrors.Wrap(nesterrors.ErrUnsupportedFramework, "no framework given and meta.framework is empty")
			}
			art, err := e.client().GenerateCode(cmd.Context(), spec, framework)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if show != "" {
				content, ok := art.Content(show)
				if !ok {
					return nesterrors.Wrapf(nesterrors.ErrUnknownFile, "%s", show)
				}
				_, err := fmt.Fprint(w, content)
				return err
			}
			fmt.Fprintf(w, "%s (%s, %d files)\n", art.Name, art.Framework, len(art.Paths()))
			root := filetree.Build(art.Paths())
			state := filetree.NewExpandState()
			state.ExpandAll(root)
			for _, r := range filetree.Rows(root, state) {
				name := r.Node.Name
				if r.Node.Kind == filetree.KindFolder {
					name += "/"
				}
				fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", r.Depth+1), name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&framework, "framework", "f", "", "target framework (defaults to meta.framework)")
	cmd.Flags().StringVar(&show, "show", "", "print this generated file")
	return cmd
}
