package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/api/admin"
	"github.com/whiskdesk/whisk/internal/auth"
	"github.com/whiskdesk/whisk/internal/config"
	"github.com/whiskdesk/whisk/internal/session"
)

// appVersion is stamped at release time.
const appVersion = "1.0.0"

// cfg holds the resolved API configuration, populated in PersistentPreRunE.
var cfg *config.Config

// authMgr owns the user session for the lifetime of the process.
var authMgr *auth.Manager

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "whisk",
	Short: "Generate Whisk videos and manage flows from the terminal",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose || os.Getenv("WHISK_LOG") == "debug" {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))

		cfg = config.Load(".")

		store, err := session.NewStore()
		if err != nil {
			return fmt.Errorf("initializing session store: %w", err)
		}
		authMgr = auth.NewManager(store, admin.New(cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// requireSession restores the saved session, failing the command when no
// usable credentials remain.
func requireSession(ctx context.Context) error {
	if authMgr.IsLoggedIn() {
		return nil
	}
	if authMgr.TryRestoreSession(ctx) {
		return nil
	}
	return fmt.Errorf("not logged in, run `whisk login` first")
}
