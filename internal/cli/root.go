// Package cli provides the infranest command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"infranest/internal/config"
	"infranest/internal/logging"
)

// BuildInfo is set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// GlobalFlags holds flags available to all commands. Flags that map to a
// config key are bound through config.Load.
type GlobalFlags struct {
	ConfigPath string
}

// env is what every subcommand gets after PersistentPreRunE.
type env struct {
	cfg       *config.Config
	logger    zerolog.Logger
	logCloser io.Closer
}

func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	e := &env{logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "infranest",
		Short: "Describe a backend, edit its specification, generate the code",
		Long: `infranest turns a plain-language description of a backend into an editable
specification, keeps it validated against the generation service and produces
the project for the chosen framework.

Run 'infranest serve' for the HTTP workspace, or use the commands below on
specification files directly.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.ConfigPath, cmd.Flags())
			if err != nil {
				return err
			}
			logger, closer, err := logging.New(logging.Options{
				Level: cfg.Log.Level,
				File:  cfg.Log.File,
				Out:   cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			e.cfg, e.logger, e.logCloser = cfg, logger, closer
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if e.logCloser != nil {
				return e.logCloser.Close()
			}
			return nil
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&flags.ConfigPath, "config", "c", "", "config file (yaml or json)")
	pf.String("upstream", "", "generation service base URL")
	pf.Duration("timeout", 0, "upstream request timeout")
	pf.String("catalog", "", "directory of framework YAML files")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	pf.String("log-file", "", "also write JSON logs to this file")

	cmd.AddCommand(
		newServeCmd(e),
		newDescribeCmd(e),
		newValidateCmd(e),
		newLintCmd(e),
		newPreviewCmd(e),
		newFrameworksCmd(e),
		newSchemaCmd(e),
		newWatchCmd(e),
	)
	return cmd
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(ctx)
}
