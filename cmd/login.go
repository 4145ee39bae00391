package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var loginKey string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with a key code",
	RunE: func(cmd *cobra.Command, args []string) error {
		key := loginKey
		if key == "" {
			if !term.IsTerminal(os.Stdin.Fd()) {
				return fmt.Errorf("no key code given, pass --key or run interactively")
			}
			form := huh.NewForm(huh.NewGroup(
				huh.NewInput().
					Title("Key code").
					EchoMode(huh.EchoModePassword).
					Value(&key),
			))
			if err := form.Run(); err != nil {
				return err
			}
		}
		if key == "" {
			return fmt.Errorf("key code must not be empty")
		}

		ok, msg := authMgr.Login(cmd.Context(), key)
		if !ok {
			return fmt.Errorf("%s", msg)
		}

		s := authMgr.Session()
		cmd.Printf("%s\nLogged in as %s (credit: %d)\n", msg, s.Username, s.Credit)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVarP(&loginKey, "key", "k", "", "key code")
	rootCmd.AddCommand(loginCmd)
}
