package cmd

import (
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		s := authMgr.Session()
		cmd.Printf("Username:   %s\n", s.Username)
		if s.Name != "" {
			cmd.Printf("Name:       %s\n", s.Name)
		}
		if s.Mail != "" {
			cmd.Printf("Mail:       %s\n", s.Mail)
		}
		if s.Roles != "" {
			cmd.Printf("Roles:      %s\n", s.Roles)
		}
		cmd.Printf("Credit:     %d\n", s.Credit)
		cmd.Printf("Use credit: %v\n", s.UseCredit)
		if len(s.ToolsAccess) > 0 {
			cmd.Print("Tools:     ")
			for tool, allowed := range s.ToolsAccess {
				if allowed {
					cmd.Printf(" %s", tool)
				}
			}
			cmd.Println()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
