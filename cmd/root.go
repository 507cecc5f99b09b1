package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vbot",
		Short:         "vbot: Telegram-driven Solana volume sessions",
		Long:          "vbot runs the Telegram volume bot: one encrypted session per chat, a main wallet funding a pool of secondaries, and background jobs that watch deposits and run buy/sell cycles.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newServeCmd(app),
		newSessionsCmd(app),
		newKeygenCmd(app),
	)

	return rootCmd
}
