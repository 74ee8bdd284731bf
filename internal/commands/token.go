package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chitieu/internal/auth"
)

func newTokenCommand() *cobra.Command {
	var (
		owner string
		ttl   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed identity token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			if cfg.JWTSecret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			a := auth.New(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, commandLogger(cmd, cfg))
			token, err := a.Issue(owner, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "subject of the token (required)")
	_ = cmd.MarkFlagRequired("owner")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
