package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/whiskdesk/whisk/internal/sidecar"
)

var (
	captchaCount  int
	captchaAction string
	captchaProxy  string
	captchaWait   time.Duration
)

// captchaListener bridges sidecar events onto channels the command can
// select on.
type captchaListener struct {
	mgr    *sidecar.Manager
	count  int
	tokens chan []string
	errs   chan string
	done   chan struct{}
}

func (l *captchaListener) Ready() {
	l.mgr.RequestTokens(l.count, sidecar.ActionVideoGeneration)
}

func (l *captchaListener) TokensReceived(tokens []string, action string) {
	l.tokens <- tokens
}

func (l *captchaListener) Error(msg string) {
	select {
	case l.errs <- msg:
	default:
	}
}

func (l *captchaListener) Stopped() { close(l.done) }

var captchaCmd = &cobra.Command{
	Use:   "captcha",
	Short: "Fetch recaptcha tokens via the Puppeteer sidecar",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := sidecar.NewManager(captchaProxy, captchaAction)
		l := &captchaListener{
			mgr:    mgr,
			count:  captchaCount,
			tokens: make(chan []string, 1),
			errs:   make(chan string, 1),
			done:   make(chan struct{}),
		}
		mgr.AddListener(l)
		mgr.Start()
		defer mgr.Stop()

		select {
		case tokens := <-l.tokens:
			for _, t := range tokens {
				cmd.Println(t)
			}
			return nil
		case msg := <-l.errs:
			return fmt.Errorf("%s", msg)
		case <-l.done:
			return fmt.Errorf("sidecar stopped before delivering tokens")
		case <-time.After(captchaWait):
			return fmt.Errorf("timed out waiting for tokens")
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		}
	},
}

func init() {
	captchaCmd.Flags().IntVarP(&captchaCount, "count", "n", 1, "number of tokens")
	captchaCmd.Flags().StringVar(&captchaAction, "action", sidecar.ActionVideoGeneration, "token action type")
	captchaCmd.Flags().StringVar(&captchaProxy, "proxy", "", "proxy URL for the sidecar browser")
	captchaCmd.Flags().DurationVar(&captchaWait, "wait", 2*time.Minute, "how long to wait for tokens")
	rootCmd.AddCommand(captchaCmd)
}
