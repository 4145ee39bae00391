package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/api/keys"
)

var (
	keysFlowID       int
	keysProvider     string
	keysStatus       string
	keysOffset       int
	keysLimit        int
	keysAll          bool
	keysLabel        string
	keysSessionToken string
	keysCSRFToken    string
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage cookies stored as api-keys on the server",
}

func keysClient() *keys.Client {
	return keys.New(cfg, authMgr.Session().AccessToken)
}

// cookieFields assembles the test/save payload from the shared flags.
func cookieFields() map[string]any {
	fields := map[string]any{
		"cookies": map[string]string{
			"session-token": keysSessionToken,
			"csrf-token":    keysCSRFToken,
		},
		"label":   keysLabel,
		"flow_id": keysFlowID,
	}
	if keysProvider != "" {
		fields["provider"] = keysProvider
	}
	return fields
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored api-keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		res := keysClient().List(cmd.Context(), keys.ListQuery{
			FlowID:   keysFlowID,
			Provider: keysProvider,
			Status:   keysStatus,
			Offset:   keysOffset,
			Limit:    keysLimit,
			All:      keysAll,
		})
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}

		items := res.Data.Get("items").Array()
		if len(items) == 0 {
			cmd.Println("No api-keys.")
			return nil
		}
		for _, item := range items {
			cmd.Printf("%6d  %-20s  %-10s  %s\n",
				item.Get("id").Int(),
				item.Get("label").String(),
				item.Get("status").String(),
				item.Get("updated_at").String())
		}
		cmd.Printf("Total: %d\n", res.Data.Get("total").Int())
		return nil
	},
}

var keysTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test a cookie without storing it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		res := keysClient().Test(cmd.Context(), cookieFields())
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Println(res.Message)
		if email := res.Data.Get("provider_info.user_email").String(); email != "" {
			cmd.Printf("Account: %s\n", email)
		}
		return nil
	},
}

var keysSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save a cookie as an api-key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		res := keysClient().Save(cmd.Context(), cookieFields())
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Println(res.Message)
		return nil
	},
}

var keysDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an api-key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("api-key id must be a number: %q", args[0])
		}

		res := keysClient().Delete(cmd.Context(), id)
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Println(res.Message)
		return nil
	},
}

var keysRefreshCmd = &cobra.Command{
	Use:   "refresh <id>",
	Short: "Re-test whether a stored cookie is still alive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("api-key id must be a number: %q", args[0])
		}

		res := keysClient().Refresh(cmd.Context(), id)
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Printf("%s (status %s)\n", res.Message, res.Data.Get("status").String())
		return nil
	},
}

var keysAssignCmd = &cobra.Command{
	Use:   "assign <id> <flow-id>",
	Short: "Assign an api-key to a flow",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("api-key id must be a number: %q", args[0])
		}
		flowID, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("flow id must be a number: %q", args[1])
		}

		res := keysClient().AssignFlow(cmd.Context(), id, flowID)
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Println(res.Message)
		return nil
	},
}

func init() {
	keysCmd.PersistentFlags().IntVar(&keysFlowID, "flow", 0, "flow id")
	keysCmd.PersistentFlags().StringVar(&keysProvider, "provider", "", "api-key provider (default VEO3_V2)")

	keysListCmd.Flags().StringVar(&keysStatus, "status", "", "filter by status (default ALL)")
	keysListCmd.Flags().IntVar(&keysOffset, "offset", 0, "pagination offset")
	keysListCmd.Flags().IntVar(&keysLimit, "limit", 0, "page size (default 1000)")
	keysListCmd.Flags().BoolVar(&keysAll, "all", false, "include keys owned by other users")

	for _, c := range []*cobra.Command{keysTestCmd, keysSaveCmd} {
		c.Flags().StringVar(&keysLabel, "label", "", "key label")
		c.Flags().StringVar(&keysSessionToken, "session-token", "", "Labs session cookie")
		c.Flags().StringVar(&keysCSRFToken, "csrf-token", "", "Labs csrf cookie")
	}

	keysCmd.AddCommand(keysListCmd, keysTestCmd, keysSaveCmd, keysDeleteCmd, keysRefreshCmd, keysAssignCmd)
	rootCmd.AddCommand(keysCmd)
}
