package cli

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

func newDevCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Dev mode helpers (the server must run with DEV_MODE=true)",
	}

	cmd.AddCommand(newDevStatusCmd())
	cmd.AddCommand(newDevAddPlayersCmd())
	cmd.AddCommand(newDevRolesCmd())

	return cmd
}

func newDevStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether dev mode is enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result DevStatus

			if err := client.Get("/api/v1/dev/status", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}

func newDevAddPlayersCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "add-players <id>",
		Short: "Fill a session with fake players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result AddedPlayers

			path := fmt.Sprintf("/api/v1/dev/sessions/%s/players", url.PathEscape(args[0]))
			if err := client.Post(path, map[string]int{"count": count}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Number of players to add (1-10)")

	return cmd
}

func newDevRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles <id>",
		Short: "Show every player's role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Roster

			if err := client.Get(fmt.Sprintf("/api/v1/dev/sessions/%s/roles", url.PathEscape(args[0])), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}
