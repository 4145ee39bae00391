// Package sandbox is the client for the sandboxed generation API
// (aisandbox-pa.googleapis.com): async video generation, status polling, and
// the credit balance check. Auth is a Google OAuth bearer token.
package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
)

// DefaultBaseURL is the production endpoint; tests override it.
const DefaultBaseURL = "https://aisandbox-pa.googleapis.com"

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"

// Generation status values returned by the status poll.
const (
	StatusActive     = "MEDIA_GENERATION_STATUS_ACTIVE"
	StatusSuccessful = "MEDIA_GENERATION_STATUS_SUCCESSFUL"
	StatusFailed     = "MEDIA_GENERATION_STATUS_FAILED"
)

// DefaultModel is the video model used when the caller does not pick one.
const DefaultModel = "veo_3_1_t2v_fast"

// AspectRatio maps a user-facing ratio onto the API enum. Unknown ratios
// fall back to landscape.
func AspectRatio(ratio string) string {
	switch ratio {
	case "9:16":
		return "VIDEO_ASPECT_RATIO_PORTRAIT"
	case "1:1":
		return "VIDEO_ASPECT_RATIO_SQUARE"
	default:
		return "VIDEO_ASPECT_RATIO_LANDSCAPE"
	}
}

// Client issues requests against the generation API.
type Client struct {
	BaseURL string
	hc      *http.Client
}

// New returns a sandbox client against the production endpoint.
func New() *Client {
	return &Client{BaseURL: DefaultBaseURL, hc: api.NewClient(api.GenerateTimeout)}
}

func headers(googleToken string) map[string]string {
	return map[string]string{
		"Accept":        "*/*",
		"Content-Type":  "text/plain;charset=UTF-8",
		"Authorization": "Bearer " + googleToken,
		"Origin":        "https://labs.google",
		"Referer":       "https://labs.google/",
		"User-Agent":    userAgent,
	}
}

// GenerateRequest describes one video generation call.
type GenerateRequest struct {
	WorkflowID     string
	Prompt         string
	AspectRatio    string // user-facing, e.g. "16:9"
	Model          string // empty means DefaultModel
	Seed           int    // 0 means pick a random seed
	RecaptchaToken string // optional
}

// GenerateVideo starts an async video generation. Result.Data carries the
// raw response plus {seed, sceneId, workflowId, prompt}.
func (c *Client) GenerateVideo(ctx context.Context, googleToken string, req GenerateRequest) api.Result {
	seed := req.Seed
	if seed == 0 {
		seed = 1000 + rand.Intn(99000)
	}
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	sceneID := uuid.New().String()

	clientContext := map[string]any{
		"sessionId":       fmt.Sprintf(";%d", time.Now().UnixMilli()),
		"projectId":       req.WorkflowID,
		"tool":            "PINHOLE",
		"userPaygateTier": "PAYGATE_TIER_ONE",
	}
	if req.RecaptchaToken != "" {
		clientContext["recaptchaContext"] = map[string]string{
			"token":           req.RecaptchaToken,
			"applicationType": "RECAPTCHA_APPLICATION_TYPE_WEB",
		}
	}

	payload, _ := json.Marshal(map[string]any{
		"clientContext": clientContext,
		"requests": []map[string]any{{
			"aspectRatio":   AspectRatio(req.AspectRatio),
			"seed":          seed,
			"textInput":     map[string]string{"prompt": req.Prompt},
			"videoModelKey": model,
			"metadata":      map[string]string{"sceneId": sceneID},
		}},
	})

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.BaseURL+"/v1/video:batchAsyncGenerateVideoText", headers(googleToken), payload)
	if err != nil {
		return api.Fail(err)
	}

	data, _ := json.Marshal(map[string]any{
		"response":   json.RawMessage(body),
		"seed":       seed,
		"sceneId":    sceneID,
		"workflowId": req.WorkflowID,
		"prompt":     req.Prompt,
	})
	return api.Result{Success: true, Data: gjson.ParseBytes(data), Message: "Video generation started"}
}

// CheckStatus polls one async generation operation. On success Result.Data
// includes status plus, once successful, fifeUrl / mediaGenerationId / seed
// from the operation metadata. A FAILED status yields Success=false with the
// server's error message.
func (c *Client) CheckStatus(ctx context.Context, googleToken, operationName, sceneID, currentStatus string) api.Result {
	if currentStatus == "" {
		currentStatus = StatusActive
	}
	payload, _ := json.Marshal(map[string]any{
		"operations": []map[string]any{{
			"operation": map[string]string{"name": operationName},
			"sceneId":   sceneID,
			"status":    currentStatus,
		}},
	})

	hc := api.NewClient(api.ServerTimeout)
	body, err := api.Do(ctx, hc, http.MethodPost,
		c.BaseURL+"/v1/video:batchCheckAsyncVideoGenerationStatus", headers(googleToken), payload)
	if err != nil {
		return api.Fail(err)
	}

	root := gjson.ParseBytes(body)
	op := root.Get("operations.0")
	if !op.Exists() {
		return api.Result{Success: false, Data: root, Message: "No operations in status response"}
	}

	status := op.Get("status").String()
	out := map[string]any{
		"status":           status,
		"operationName":    operationName,
		"sceneId":          sceneID,
		"remainingCredits": root.Get("remainingCredits").Value(),
	}

	switch status {
	case StatusSuccessful:
		video := op.Get("operation.metadata.video")
		out["fifeUrl"] = video.Get("fifeUrl").String()
		out["mediaGenerationId"] = video.Get("mediaGenerationId").String()
		out["prompt"] = video.Get("prompt").String()
		out["seed"] = video.Get("seed").Value()
		data, _ := json.Marshal(out)
		return api.Result{Success: true, Data: gjson.ParseBytes(data), Message: "Video generation completed"}

	case StatusFailed:
		msg := op.Get("error.message").String()
		if msg == "" {
			msg = "Generation failed"
		}
		data, _ := json.Marshal(out)
		return api.Result{Success: false, Data: gjson.ParseBytes(data), Message: "Video generation failed: " + msg}

	default:
		data, _ := json.Marshal(out)
		return api.Result{Success: true, Data: gjson.ParseBytes(data), Message: "Status: " + status}
	}
}

// CreditStatus fetches the remaining generation credits for the account.
func (c *Client) CreditStatus(ctx context.Context, googleToken string) api.Result {
	hc := api.NewClient(api.CheckTimeout)
	body, err := api.Do(ctx, hc, http.MethodPost,
		c.BaseURL+"/v1/whisk:getVideoCreditStatus", headers(googleToken), []byte("{}"))
	if err != nil {
		return api.Fail(err)
	}
	return api.Result{Success: true, Data: gjson.ParseBytes(body)}
}
