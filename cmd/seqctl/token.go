package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"seqstore/internal/domain/auth"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token signed with JWT_SECRET.",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		scopes, _ := cmd.Flags().GetStringSlice("scope")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		secret, _ := cmd.Flags().GetString("secret")

		cfg := auth.DefaultJWTConfig(secret)
		if ttl > 0 {
			cfg.AccessTokenTTL = ttl
		}

		token, expiresAt, err := auth.NewJWTService(cfg).GenerateAccessToken(subject, scopes)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expiresAt.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	f := tokenCmd.Flags()
	f.String("subject", "", "client the token is issued to")
	f.StringSlice("scope", auth.AllScopes, "granted scopes")
	f.Duration("ttl", 0, "token lifetime, 0 for the default")
	f.String("secret", os.Getenv("JWT_SECRET"), "signing secret")
	_ = tokenCmd.MarkFlagRequired("subject")
}
