package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/whiskdesk/whisk/internal/api/flow"
	"github.com/whiskdesk/whisk/internal/api/labs"
	"github.com/whiskdesk/whisk/internal/api/sandbox"
	"github.com/whiskdesk/whisk/internal/tui"
)

var (
	genLabsToken   string
	genCSRFToken   string
	genGoogleToken string
	genFlowID      int
	genSubject     string
	genScene       string
	genStyle       string
	genAspect      string
	genModel       string
	genSeed        int
	genRecaptcha   string
	genPollEvery   time.Duration
	genPollFor     time.Duration
)

const (
	stepWorkflow = iota
	stepLink
	stepUploads
	stepGenerate
	stepPoll
)

var genSteps = []string{
	"Create workflow",
	"Link flow",
	"Upload references",
	"Start generation",
	"Wait for video",
}

var generateCmd = &cobra.Command{
	Use:   "generate <prompt>",
	Short: "Generate a video from a prompt",
	Long: `Runs the full pipeline: creates a Labs workflow, links it to a server
flow, uploads any reference images in parallel, starts the async generation
and polls until the video is ready.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(cmd.Context()); err != nil {
			return err
		}
		labsToken := firstEnvFallback(genLabsToken, "WHISK_LABS_TOKEN")
		googleToken := firstEnvFallback(genGoogleToken, "WHISK_GOOGLE_TOKEN")
		if labsToken == "" {
			return fmt.Errorf("no Labs session token, pass --labs-token or set WHISK_LABS_TOKEN")
		}
		if googleToken == "" {
			return fmt.Errorf("no Google token, pass --google-token or set WHISK_GOOGLE_TOKEN")
		}

		prompt := args[0]
		work := func(send func(tea.Msg)) (string, error) {
			return runPipeline(cmd.Context(), send, prompt, labsToken, googleToken)
		}

		if term.IsTerminal(os.Stdout.Fd()) {
			model, err := tui.Run("whisk generate", genSteps, work)
			if err != nil {
				return err
			}
			if model.Err != nil {
				return model.Err
			}
			cmd.Println(model.Result)
			return nil
		}

		// Non-interactive: plain line output instead of the TUI.
		result, err := work(func(msg tea.Msg) {
			if step, ok := msg.(tui.StepMsg); ok && step.Status == tui.StepDone {
				cmd.Printf("done: %s\n", genSteps[step.Index])
			}
		})
		if err != nil {
			return err
		}
		cmd.Println(result)
		return nil
	},
}

// runPipeline executes the generation pipeline, reporting progress through
// send. Returns the final video URL.
func runPipeline(ctx context.Context, send func(tea.Msg), prompt, labsToken, googleToken string) (string, error) {
	step := func(i int, status tui.StepStatus, detail string) {
		send(tui.StepMsg{Index: i, Status: status, Detail: detail})
	}
	fail := func(i int, msg string) (string, error) {
		step(i, tui.StepFailed, msg)
		return "", fmt.Errorf("%s", msg)
	}

	// 1. Labs workflow (project).
	step(stepWorkflow, tui.StepRunning, "")
	labsClient := labs.New(cfg)
	wf := labsClient.CreateWorkflow(ctx, labsToken, genCSRFToken)
	if !wf.Success {
		return fail(stepWorkflow, wf.Message)
	}
	workflowID := wf.Data.Get("workflowId").String()
	workflowName := wf.Data.Get("workflowName").String()
	step(stepWorkflow, tui.StepDone, workflowID)

	// 2. Attach the workflow to a server flow, when one was given.
	if genFlowID != 0 {
		step(stepLink, tui.StepRunning, "")
		s := authMgr.Session()
		flowClient := flow.New(cfg, s.AccessToken)
		link := flowClient.LinkWorkflow(ctx, genFlowID, workflowID, workflowName, s.UseCredit)
		if !link.Success {
			return fail(stepLink, link.Message)
		}
		step(stepLink, tui.StepDone, "")
	} else {
		step(stepLink, tui.StepDone, "skipped")
	}

	// 3. Reference uploads run in parallel; one failure aborts the batch.
	refs := map[string]string{}
	for slot, path := range map[string]string{
		"subject": genSubject, "scene": genScene, "style": genStyle,
	} {
		if path != "" {
			refs[slot] = path
		}
	}
	if len(refs) > 0 {
		step(stepUploads, tui.StepRunning, fmt.Sprintf("%d image(s)", len(refs)))
		g, gctx := errgroup.WithContext(ctx)
		for slot, path := range refs {
			g.Go(func() error {
				res := labsClient.UploadReferenceImage(gctx, labsToken, path, slot, workflowID)
				if !res.Success {
					return fmt.Errorf("%s: %s", slot, res.Message)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return fail(stepUploads, err.Error())
		}
		step(stepUploads, tui.StepDone, "")
	} else {
		step(stepUploads, tui.StepDone, "none")
	}

	// 4. Kick off the async generation.
	step(stepGenerate, tui.StepRunning, "")
	sandboxClient := sandbox.New()
	gen := sandboxClient.GenerateVideo(ctx, googleToken, sandbox.GenerateRequest{
		WorkflowID:     workflowID,
		Prompt:         prompt,
		AspectRatio:    genAspect,
		Model:          genModel,
		Seed:           genSeed,
		RecaptchaToken: genRecaptcha,
	})
	if !gen.Success {
		return fail(stepGenerate, gen.Message)
	}
	operation := gen.Data.Get("response.operations.0.operation.name").String()
	if operation == "" {
		return fail(stepGenerate, "No operation name in generation response")
	}
	sceneID := gen.Data.Get("sceneId").String()
	step(stepGenerate, tui.StepDone, "")

	// 5. Poll until the operation leaves ACTIVE.
	step(stepPoll, tui.StepRunning, "")
	deadline := time.Now().Add(genPollFor)
	status := sandbox.StatusActive
	for {
		if time.Now().After(deadline) {
			return fail(stepPoll, "Timed out waiting for the video")
		}
		select {
		case <-ctx.Done():
			return fail(stepPoll, ctx.Err().Error())
		case <-time.After(genPollEvery):
		}

		res := sandboxClient.CheckStatus(ctx, googleToken, operation, sceneID, status)
		if !res.Success {
			return fail(stepPoll, res.Message)
		}
		status = res.Data.Get("status").String()
		if status == sandbox.StatusSuccessful {
			step(stepPoll, tui.StepDone, "")
			url := res.Data.Get("fifeUrl").String()
			return "Video ready: " + url, nil
		}
		step(stepPoll, tui.StepRunning, strings.TrimPrefix(status, "MEDIA_GENERATION_STATUS_"))
	}
}

func firstEnvFallback(value, envKey string) string {
	if value != "" {
		return value
	}
	return os.Getenv(envKey)
}

func init() {
	generateCmd.Flags().StringVar(&genLabsToken, "labs-token", "", "Labs next-auth session cookie")
	generateCmd.Flags().StringVar(&genCSRFToken, "csrf-token", "", "Labs csrf cookie")
	generateCmd.Flags().StringVar(&genGoogleToken, "google-token", "", "Google OAuth bearer token")
	generateCmd.Flags().IntVar(&genFlowID, "flow", 0, "server flow id to link the workflow to")
	generateCmd.Flags().StringVar(&genSubject, "subject", "", "subject reference image")
	generateCmd.Flags().StringVar(&genScene, "scene", "", "scene reference image")
	generateCmd.Flags().StringVar(&genStyle, "style", "", "style reference image")
	generateCmd.Flags().StringVar(&genAspect, "aspect", "16:9", "aspect ratio (16:9, 9:16, 1:1)")
	generateCmd.Flags().StringVar(&genModel, "model", "", "video model key")
	generateCmd.Flags().IntVar(&genSeed, "seed", 0, "generation seed (0 = random)")
	generateCmd.Flags().StringVar(&genRecaptcha, "recaptcha-token", "", "recaptcha token from `whisk captcha`")
	generateCmd.Flags().DurationVar(&genPollEvery, "poll-every", 5*time.Second, "status poll interval")
	generateCmd.Flags().DurationVar(&genPollFor, "poll-for", 10*time.Minute, "how long to wait for the video")
	rootCmd.AddCommand(generateCmd)
}
