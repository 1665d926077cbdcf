package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"infranest/internal/dsl"
	nesterrors "infranest/internal/errors"
	"infranest/internal/logging"
	"infranest/internal/pg"
)

func newSchemaCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Derive and apply the PostgreSQL schema of a specification",
	}
	cmd.PersistentFlags().String("schema", "", "PostgreSQL schema name")
	cmd.AddCommand(newSchemaDDLCmd(e), newSchemaApplyCmd(e))
	return cmd
}

func newSchemaDDLCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "ddl <file>",
		Short: "Print the DDL for a specification file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ddl, err := loadDDL(e, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), ddl.Script())
			return err
		},
	}
}

func newSchemaApplyCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply <file>",
		Short: "Create the tables of a specification file in a database",
		Long: `Apply the derived DDL to the database at --db (or database.url). Objects that
already exist are skipped, so running it twice is safe.

Example:
  infranest schema apply api.yaml --db postgres://localhost/app --schema app`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := e.cfg.Database.URL
			if url == "" {
				return nesterrors.Wrap(nesterrors.ErrConfigInvalid, "database.url is not set (use --db)")
			}
			ddl, err := loadDDL(e, args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := pg.Open(ctx, url)
			if err != nil {
				return err
			}
			defer db.Close()

			e.logger.Info().Str("db", logging.RedactURL(url)).Str("schema", ddl.Schema).Msg("applying schema")
			n, err := pg.ApplyDDL(ctx, db, ddl, e.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d statements to schema %s\n", n, ddl.Schema)
			return nil
		},
	}
	cmd.Flags().String("db", "", "PostgreSQL connection URL")
	return cmd
}

func loadDDL(e *env, path string) (pg.DDL, error) {
	spec, err := dsl.LoadFile(path)
	if err != nil {
		return pg.DDL{}, err
	}
	return pg.GenerateDDL(spec, e.cfg.Database.Schema)
}
