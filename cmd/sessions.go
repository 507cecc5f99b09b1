package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/bnema/volumebot/internal/adapters/render/status"
	"github.com/bnema/volumebot/internal/application"
	"github.com/bnema/volumebot/internal/domain"
	"github.com/spf13/cobra"
)

func newSessionsCmd(app *app) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored sessions without starting the bot",
	}

	sessionsCmd.AddCommand(newSessionsListCmd(app), newSessionsShowCmd(app))
	return sessionsCmd
}

func newSessionsListCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := app.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}

			overviews := application.Overviews(registry.Snapshot())
			return writeOverviews(cmd, app, overviews, statusadapter.RenderOptions{Now: app.now()}, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print sessions as JSON")
	return cmd
}

func newSessionsShowCmd(app *app) *cobra.Command {
	var (
		id     int64
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one session with its wallet addresses",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := app.loadRegistry(cmd.Context())
			if err != nil {
				return err
			}

			session, err := registry.Get(domain.SessionID(id))
			if err != nil {
				return fmt.Errorf("session %d: %w", id, err)
			}

			overviews := []application.SessionOverview{application.Overview(session)}
			return writeOverviews(cmd, app, overviews, statusadapter.RenderOptions{Now: app.now(), ShowWallets: true}, asJSON)
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Session (chat) id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the session as JSON")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func writeOverviews(cmd *cobra.Command, app *app, overviews []application.SessionOverview, opts statusadapter.RenderOptions, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(overviews)
	}

	rendered, err := app.statusRenderer(overviews, opts)
	if err != nil {
		return fmt.Errorf("render sessions: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
