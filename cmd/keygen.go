package cmd

import (
	"fmt"

	"github.com/bnema/volumebot/internal/adapters/repo/sealed"
	"github.com/spf13/cobra"
)

func newKeygenCmd(app *app) *cobra.Command {
	var saveRef string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a random store key",
		Long:  "keygen prints a fresh base64 AES-256 key for the session store. With --save the key is written behind a pass:// or file:// reference instead, and the reference is printed.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			key, err := sealed.GenerateKey()
			if err != nil {
				return err
			}

			if saveRef == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
				return err
			}

			if err := app.secrets.Store(cmd.Context(), saveRef, key); err != nil {
				return fmt.Errorf("save store key: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "store key saved, set VBOT_DB_KEY=%s\n", saveRef)
			return err
		},
	}

	cmd.Flags().StringVar(&saveRef, "save", "", "Secret reference to write the key to (pass://... or file://...)")
	return cmd
}
