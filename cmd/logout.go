package cmd

import (
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and remove the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Restore first so the server-side logout gets a token to invalidate.
		authMgr.TryRestoreSession(cmd.Context())
		authMgr.Logout(cmd.Context())
		cmd.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
