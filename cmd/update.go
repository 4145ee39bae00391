package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/api/admin"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Check for a newer release",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := admin.New(cfg).CheckVersion(cmd.Context(), appVersion)
		if info.Err != nil {
			return fmt.Errorf("version check failed: %w", info.Err)
		}
		if !info.HasUpdate {
			cmd.Printf("whisk %s is up to date.\n", appVersion)
			return nil
		}

		cmd.Printf("New version available: %s (current %s)\n", info.LatestVersion, appVersion)
		if info.DownloadURL != "" {
			cmd.Println("Download:", info.DownloadURL)
		}
		if info.Changelog != "" {
			cmd.Println("\n" + info.Changelog)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
