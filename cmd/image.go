package cmd

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/api/labs"
	"github.com/whiskdesk/whisk/internal/api/sandbox"
)

var (
	imgLabsToken   string
	imgCSRFToken   string
	imgGoogleToken string
	imgWorkflowID  string
	imgAspect      string
	imgModel       string
	imgSeed        int
	imgOut         string
)

var imageCmd = &cobra.Command{
	Use:   "image <prompt>",
	Short: "Generate an image from a prompt",
	Long: `Generates a single image synchronously. Without --workflow a fresh Labs
workflow is created first; the decoded image is written to --out.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}
		googleToken := firstEnvFallback(imgGoogleToken, "WHISK_GOOGLE_TOKEN")
		if googleToken == "" {
			return fmt.Errorf("no Google token, pass --google-token or set WHISK_GOOGLE_TOKEN")
		}

		workflowID := imgWorkflowID
		if workflowID == "" {
			labsToken := firstEnvFallback(imgLabsToken, "WHISK_LABS_TOKEN")
			if labsToken == "" {
				return fmt.Errorf("no workflow, pass --workflow, or --labs-token / WHISK_LABS_TOKEN to create one")
			}
			wf := labs.New(cfg).CreateWorkflow(cmd.Context(), labsToken, imgCSRFToken)
			if !wf.Success {
				return fmt.Errorf("create workflow: %s", wf.Message)
			}
			workflowID = wf.Data.Get("workflowId").String()
			cmd.Printf("Workflow: %s\n", workflowID)
		}

		res := sandbox.New().GenerateImage(cmd.Context(), googleToken, sandbox.GenerateImageRequest{
			WorkflowID:  workflowID,
			Prompt:      args[0],
			AspectRatio: imgAspect,
			Model:       imgModel,
			Seed:        imgSeed,
		})
		if !res.Success {
			return fmt.Errorf("%s", res.Message)
		}

		raw, err := base64.StdEncoding.DecodeString(res.Data.Get("encodedImage").String())
		if err != nil {
			return fmt.Errorf("decode image: %w", err)
		}
		if err := os.WriteFile(imgOut, raw, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}

		cmd.Printf("Image written to %s (seed %d, media %s)\n",
			imgOut, res.Data.Get("seed").Int(), res.Data.Get("mediaGenerationId").String())
		return nil
	},
}

func init() {
	imageCmd.Flags().StringVar(&imgLabsToken, "labs-token", "", "Labs next-auth session cookie")
	imageCmd.Flags().StringVar(&imgCSRFToken, "csrf-token", "", "Labs csrf cookie")
	imageCmd.Flags().StringVar(&imgGoogleToken, "google-token", "", "Google OAuth bearer token")
	imageCmd.Flags().StringVar(&imgWorkflowID, "workflow", "", "reuse an existing Labs workflow id")
	imageCmd.Flags().StringVar(&imgAspect, "aspect", "16:9", "aspect ratio (16:9, 9:16, 1:1, 4:3, 3:4)")
	imageCmd.Flags().StringVar(&imgModel, "model", "", "image model key")
	imageCmd.Flags().IntVar(&imgSeed, "seed", 0, "generation seed (0 = random)")
	imageCmd.Flags().StringVar(&imgOut, "out", "whisk.png", "output image file")
	rootCmd.AddCommand(imageCmd)
}
