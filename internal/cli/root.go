package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	cfg    *Config
	client *Client
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cfg = DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "shra",
		Short: "CLI tool for the secret role assigner API",
		Long: `shra is a CLI tool for the secret role assigner JSON API.

It creates and joins sessions, deals roles, and shows each player their
private role. Tokens returned by "session join" are kept per session in the
token directory and reused by later commands.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL, "")
			return nil
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Server URL (env: SHRA_SERVER)")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", cfg.Token, "Player token (env: SHRA_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&cfg.TokenDir, "token-dir", cfg.TokenDir, "Directory for stored player tokens (env: SHRA_TOKEN_DIR)")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "Output format: text, json")

	// Add subcommands
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newDevCmd())
	rootCmd.AddCommand(newHealthCmd())

	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// useSessionToken points the client at the token stored for a session
func useSessionToken(id string) error {
	token, err := cfg.LoadToken(id)
	if err != nil {
		return err
	}
	client.SetToken(token)
	return nil
}
