package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/prefs"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change preferences",
}

var prefsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show current preferences",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefs.NewStore()
		if err != nil {
			return err
		}
		p, err := store.Load()
		if err != nil {
			return err
		}
		cmd.Printf("theme:        %s\n", p.Theme)
		cmd.Printf("language:     %s\n", p.Language)
		cmd.Printf("captcha_mode: %s\n", p.CaptchaMode)
		return nil
	},
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one preference",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prefs.NewStore()
		if err != nil {
			return err
		}
		p, err := store.Load()
		if err != nil {
			return err
		}

		key, value := args[0], args[1]
		switch key {
		case "theme":
			p.Theme = value
		case "language":
			p.Language = value
		case "captcha_mode":
			if value != prefs.CaptchaAuto && value != prefs.CaptchaManual {
				return fmt.Errorf("captcha_mode must be %q or %q", prefs.CaptchaAuto, prefs.CaptchaManual)
			}
			p.CaptchaMode = value
		default:
			return fmt.Errorf("unknown preference %q", key)
		}

		if err := store.Save(p); err != nil {
			return err
		}
		cmd.Printf("%s = %s\n", key, value)
		return nil
	},
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd, prefsSetCmd)
	rootCmd.AddCommand(prefsCmd)
}
