package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/api/flow"
)

var (
	flowsOffset int
	flowsLimit  int
	flowsSort   string
	flowsType   string
)

var flowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "Manage flows on the server",
}

var flowsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flows",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		client := flow.New(cfg, authMgr.Session().AccessToken)
		res := client.List(cmd.Context(), flowsOffset, flowsLimit, flowsSort, flowsType)
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}

		items := res.Data.Get("items").Array()
		if len(items) == 0 {
			cmd.Println("No flows.")
			return nil
		}
		for _, item := range items {
			cmd.Printf("%6d  %-30s  %s\n",
				item.Get("id").Int(),
				item.Get("name").String(),
				item.Get("updated_at").String())
		}
		cmd.Printf("Total: %d\n", res.Data.Get("total").Int())
		return nil
	},
}

var flowsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}

		client := flow.New(cfg, authMgr.Session().AccessToken)
		res := client.Create(cmd.Context(), map[string]any{"name": args[0]})
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Printf("%s (id %d)\n", res.Message, res.Data.Get("id").Int())
		return nil
	},
}

var flowsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("flow id must be a number: %q", args[0])
		}

		client := flow.New(cfg, authMgr.Session().AccessToken)
		res := client.Delete(cmd.Context(), id)
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}
		cmd.Println(res.Message)
		return nil
	},
}

func init() {
	flowsListCmd.Flags().IntVar(&flowsOffset, "offset", 0, "pagination offset")
	flowsListCmd.Flags().IntVar(&flowsLimit, "limit", 20, "page size")
	flowsListCmd.Flags().StringVar(&flowsSort, "sort", "", "sort order (default updated_at:desc)")
	flowsListCmd.Flags().StringVar(&flowsType, "type", "", "flow type (default WHISK)")
	flowsCmd.AddCommand(flowsListCmd, flowsCreateCmd, flowsDeleteCmd)
	rootCmd.AddCommand(flowsCmd)
}
