package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lorrc/ticket-monitor/internal/auth"
	"github.com/lorrc/ticket-monitor/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the control API",
	Long: `Sign a token with CONTROL_JWT_SECRET for use against POST /start,
POST /stop and the /ws feed.

Example:
  ticket-monitor token --operator oncall --ttl 8h`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringP("operator", "o", "", "name recorded in the token (required)")
	tokenCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to CONTROL_TOKEN_TTL)")
	_ = tokenCmd.MarkFlagRequired("operator")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.LoadUnvalidated()
	if !cfg.AuthEnabled() {
		return errors.New("CONTROL_JWT_SECRET is not set")
	}

	operator, _ := cmd.Flags().GetString("operator")
	ttl, _ := cmd.Flags().GetDuration("ttl")
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}

	token, err := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl).GenerateToken(operator)
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", time.Now().Add(ttl).UTC().Format(time.RFC3339))
	return nil
}
