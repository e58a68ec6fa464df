package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/Moonsong-Labs/akton25-cobalt/internal/config"
	"github.com/Moonsong-Labs/akton25-cobalt/internal/httpapi/middleware"
	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token for the quest admin routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			// only the secret matters here; skip full validation
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is required")
			}
			token, err := middleware.GenerateToken(subject, cfg.JWTSecret, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "operator", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
