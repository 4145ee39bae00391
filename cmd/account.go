package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	accountName      string
	accountMail      string
	accountUseCredit bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage the logged-in account",
}

var accountSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update account fields",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		// Only flags the user actually passed become part of the PATCH.
		fields := map[string]any{}
		if cmd.Flags().Changed("name") {
			fields["name"] = accountName
		}
		if cmd.Flags().Changed("mail") {
			fields["mail"] = accountMail
		}
		if cmd.Flags().Changed("use-credit") {
			fields["use_credit"] = accountUseCredit
		}
		if len(fields) == 0 {
			return fmt.Errorf("nothing to update, pass --name, --mail or --use-credit")
		}

		ok, msg := authMgr.UpdateUser(cmd.Context(), fields)
		if !ok {
			return fmt.Errorf("%s", msg)
		}
		cmd.Println(msg)
		return nil
	},
}

func init() {
	accountSetCmd.Flags().StringVar(&accountName, "name", "", "display name")
	accountSetCmd.Flags().StringVar(&accountMail, "mail", "", "mail address")
	accountSetCmd.Flags().BoolVar(&accountUseCredit, "use-credit", false, "spend credit on generations")
	accountCmd.AddCommand(accountSetCmd)
	rootCmd.AddCommand(accountCmd)
}
