// Package commands implements the chitieuctl operator CLI.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"chitieu/internal/backend"
	"chitieu/internal/cli"
	"chitieu/internal/config"
	"chitieu/internal/log"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chitieuctl",
		Short: "Operator tools for the chitieu expense tracker",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newReportCommand(),
		newExportCommand(),
		newTokenCommand(),
	)

	return rootCmd
}

// loadConfig reads .env and the environment. Only the parts a command uses
// are validated, so a missing JWT secret does not block a migration.
func loadConfig() *config.Config {
	cli.LoadEnvFile()
	return config.Load()
}

// commandLogger writes diagnostics to stderr, keeping stdout for output.
func commandLogger(cmd *cobra.Command, cfg *config.Config) *log.Logger {
	c := log.DefaultConfig()
	c.Level = log.ParseLevel(cfg.LogLevel)
	c.Format = cfg.LogFormat
	c.Component = log.ComponentCLI
	c.Output = cmd.ErrOrStderr()
	return log.New(c)
}

// openBackend opens the configured store read-write without publishing
// change events.
func openBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.Result, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bc.AMQPURL = ""
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", bc.Type, err)
	}
	return res, nil
}

func closeBackend(res *backend.Result, w io.Writer) {
	if err := res.Cleanup(); err != nil {
		fmt.Fprintf(w, "warning: closing backend: %v\n", err)
	}
}
