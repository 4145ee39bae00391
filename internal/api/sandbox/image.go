package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
)

// DefaultImageModel is the image model used when the caller does not pick one.
const DefaultImageModel = "IMAGEN_3_5"

// ImageAspectRatio maps a user-facing ratio onto the image API enum. Unknown
// ratios fall back to landscape.
func ImageAspectRatio(ratio string) string {
	switch ratio {
	case "9:16":
		return "IMAGE_ASPECT_RATIO_PORTRAIT"
	case "1:1":
		return "IMAGE_ASPECT_RATIO_SQUARE"
	case "4:3":
		return "IMAGE_ASPECT_RATIO_FOUR_THREE"
	case "3:4":
		return "IMAGE_ASPECT_RATIO_THREE_FOUR"
	default:
		return "IMAGE_ASPECT_RATIO_LANDSCAPE"
	}
}

// GenerateImageRequest describes one image generation call.
type GenerateImageRequest struct {
	WorkflowID  string
	Prompt      string
	AspectRatio string // user-facing, e.g. "16:9"
	Model       string // empty means DefaultImageModel
	Seed        int    // 0 means pick a random seed
}

// GenerateImage generates an image synchronously. Result.Data carries
// {encodedImage, seed, mediaGenerationId, workflowId, prompt}; encodedImage
// is the base64 image payload.
func (c *Client) GenerateImage(ctx context.Context, googleToken string, req GenerateImageRequest) api.Result {
	seed := req.Seed
	if seed == 0 {
		seed = 100000 + rand.Intn(900000)
	}
	model := req.Model
	if model == "" {
		model = DefaultImageModel
	}

	payload, _ := json.Marshal(map[string]any{
		"clientContext": map[string]any{
			"workflowId": req.WorkflowID,
			"tool":       "BACKBONE",
			"sessionId":  fmt.Sprintf(";%d", time.Now().UnixMilli()),
		},
		"imageModelSettings": map[string]any{
			"imageModel":  model,
			"aspectRatio": ImageAspectRatio(req.AspectRatio),
		},
		"seed":          seed,
		"prompt":        req.Prompt,
		"mediaCategory": "MEDIA_CATEGORY_BOARD",
	})

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.BaseURL+"/v1/whisk:generateImage", headers(googleToken), payload)
	if err != nil {
		return api.Fail(err)
	}

	root := gjson.ParseBytes(body)
	panels := root.Get("imagePanels")
	if !panels.Exists() || len(panels.Array()) == 0 {
		return api.Result{Success: false, Data: root, Message: "No imagePanels in response"}
	}
	img := panels.Get("0.generatedImages.0")
	if !img.Exists() {
		return api.Result{Success: false, Data: root, Message: "No generatedImages in response"}
	}

	out := map[string]any{
		"encodedImage":      img.Get("encodedImage").String(),
		"seed":              seed,
		"mediaGenerationId": img.Get("mediaGenerationId").String(),
		"workflowId":        req.WorkflowID,
		"prompt":            req.Prompt,
	}
	if v := img.Get("seed"); v.Exists() {
		out["seed"] = v.Int()
	}
	if v := root.Get("workflowId"); v.Exists() && v.String() != "" {
		out["workflowId"] = v.String()
	}
	if v := img.Get("prompt"); v.Exists() && v.String() != "" {
		out["prompt"] = v.String()
	}

	data, _ := json.Marshal(out)
	return api.Result{Success: true, Data: gjson.ParseBytes(data), Message: "Image generated successfully"}
}
