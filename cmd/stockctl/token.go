package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/safar/stockmaster-sync/internal/auth"
	"github.com/safar/stockmaster-sync/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Bearer token helpers",
}

var tokenIssueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Print a signed bearer token for a tenant",
	RunE: func(cmd *cobra.Command, args []string) error {
		tenant, _ := cmd.Flags().GetString("tenant")
		subject, _ := cmd.Flags().GetString("subject")
		ttl, _ := cmd.Flags().GetDuration("ttl")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.Auth.SigningKey == "" {
			return errors.New("JWT_SIGNING_KEY must be set to issue tokens")
		}
		if ttl == 0 {
			ttl = cfg.Auth.TokenTTL
		}

		tokens, err := auth.NewTokens(cfg.Auth.SigningKey, ttl)
		if err != nil {
			return err
		}

		signed, err := tokens.Issue(tenant, subject)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), signed)
		return nil
	},
}

func init() {
	tokenIssueCmd.Flags().String("tenant", "", "tenant id the token grants access to")
	tokenIssueCmd.Flags().String("subject", "", "device or user the token is for")
	tokenIssueCmd.Flags().Duration("ttl", 0, "token lifetime (defaults to JWT_TOKEN_TTL)")
	_ = tokenIssueCmd.MarkFlagRequired("tenant")

	tokenCmd.AddCommand(tokenIssueCmd)
}
