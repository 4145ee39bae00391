package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/prompts"
)

var promptIdea string

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage saved prompt templates",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved prompts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prompts.NewStore()
		if err != nil {
			return err
		}
		list, err := store.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			cmd.Println("No saved prompts.")
			return nil
		}
		for i, p := range list {
			cmd.Printf("%3d  %s", i, p.Template)
			if p.Idea != "" {
				cmd.Printf("  (idea: %s)", p.Idea)
			}
			cmd.Printf("  [%s]\n", p.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var promptsAddCmd = &cobra.Command{
	Use:   "add <template>",
	Short: "Save a prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := prompts.NewStore()
		if err != nil {
			return err
		}
		if _, err := store.Add(args[0], promptIdea); err != nil {
			return err
		}
		cmd.Println("Prompt saved.")
		return nil
	},
}

var promptsRmCmd = &cobra.Command{
	Use:   "rm <index>",
	Short: "Delete a saved prompt by index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("index must be a number: %q", args[0])
		}
		store, err := prompts.NewStore()
		if err != nil {
			return err
		}
		if err := store.Remove(index); err != nil {
			return err
		}
		cmd.Println("Prompt deleted.")
		return nil
	},
}

func init() {
	promptsAddCmd.Flags().StringVar(&promptIdea, "idea", "", "the idea this template was written for")
	promptsCmd.AddCommand(promptsListCmd, promptsAddCmd, promptsRmCmd)
	rootCmd.AddCommand(promptsCmd)
}
