// Package labs is the client for the Google Labs tRPC-style endpoints:
// workflow (project) creation, image captioning, and reference image upload.
// Auth is cookie-based (next-auth session token), not bearer tokens.
package labs

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
	"github.com/whiskdesk/whisk/internal/config"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36"

// Media categories for reference images.
const (
	CategorySubject = "MEDIA_CATEGORY_SUBJECT"
	CategoryScene   = "MEDIA_CATEGORY_SCENE"
	CategoryStyle   = "MEDIA_CATEGORY_STYLE"
)

// MediaCategory maps the user-facing reference slot names onto the API's
// media categories. Unknown names fall back to subject.
func MediaCategory(slot string) string {
	switch slot {
	case "scene":
		return CategoryScene
	case "style":
		return CategoryStyle
	default:
		return CategorySubject
	}
}

// Client issues requests against the Labs tRPC API.
type Client struct {
	cfg *config.Config
	hc  *http.Client
}

// New returns a labs client using the resolved base URLs in cfg.
func New(cfg *config.Config) *Client {
	return &Client{cfg: cfg, hc: api.NewClient(api.UploadTimeout)}
}

func (c *Client) headers(sessionToken, csrfToken string) map[string]string {
	cookies := "__Secure-next-auth.session-token=" + sessionToken
	if csrfToken != "" {
		cookies += "; __Host-next-auth.csrf-token=" + csrfToken
	}
	return map[string]string{
		"Accept":       "*/*",
		"Content-Type": "application/json",
		"Origin":       "https://labs.google",
		"Referer":      "https://labs.google/",
		"Cookie":       cookies,
		"User-Agent":   userAgent,
	}
}

// trpcResult unwraps the nested result.data.json.result envelope.
func trpcResult(body []byte) gjson.Result {
	return gjson.GetBytes(body, "result.data.json.result")
}

// sessionID builds the millisecond-timestamp session ID the Labs frontend
// sends with every call.
func sessionID() string {
	return fmt.Sprintf(";%d", time.Now().UnixMilli())
}

// CreateWorkflow creates a Labs project and returns its ID and title in
// Result.Data as {workflowId, workflowName}.
func (c *Client) CreateWorkflow(ctx context.Context, sessionToken, csrfToken string) api.Result {
	title := time.Now().Format("Jan 02 - 15:04")
	payload, _ := json.Marshal(map[string]any{
		"json": map[string]any{
			"projectTitle": title,
			"toolName":     "PINHOLE",
		},
	})

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.LabsURL("api/trpc/media.createOrUpdateWorkflow"),
		c.headers(sessionToken, csrfToken), payload)
	if err != nil {
		return api.Fail(err)
	}

	result := trpcResult(body)
	projectID := result.Get("projectId").String()
	if projectID == "" {
		return api.Result{Success: false, Data: gjson.ParseBytes(body), Message: "No projectId in response"}
	}

	name := result.Get("projectInfo.projectTitle").String()
	if name == "" {
		name = title
	}
	data, _ := json.Marshal(map[string]string{"workflowId": projectID, "workflowName": name})
	return api.Result{
		Success: true,
		Data:    gjson.ParseBytes(data),
		Message: "Project created: " + projectID,
	}
}

// CaptionImage sends a base64 data-URI image and returns the AI caption in
// Result.Data as {caption}.
func (c *Client) CaptionImage(ctx context.Context, sessionToken, imageDataURI, mediaCategory, workflowID string) api.Result {
	payload, _ := json.Marshal(map[string]any{
		"json": map[string]any{
			"clientContext": map[string]any{
				"sessionId":  sessionID(),
				"workflowId": workflowID,
			},
			"captionInput": map[string]any{
				"candidatesCount": 1,
				"mediaInput": map[string]any{
					"mediaCategory": mediaCategory,
					"rawBytes":      imageDataURI,
				},
			},
		},
	})

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.LabsURL("api/trpc/backbone.captionImage"),
		c.headers(sessionToken, ""), payload)
	if err != nil {
		return api.Fail(err)
	}

	caption := trpcResult(body).Get("candidates.0.output").String()
	if caption == "" {
		return api.Result{Success: false, Data: gjson.ParseBytes(body), Message: "No caption candidates"}
	}
	data, _ := json.Marshal(map[string]string{"caption": caption})
	return api.Result{Success: true, Data: gjson.ParseBytes(data)}
}

// UploadImage uploads a base64 data-URI image and returns the generation ID
// in Result.Data as {uploadMediaGenerationId}.
func (c *Client) UploadImage(ctx context.Context, sessionToken, imageDataURI, mediaCategory, workflowID string) api.Result {
	payload, _ := json.Marshal(map[string]any{
		"json": map[string]any{
			"clientContext": map[string]any{
				"workflowId": workflowID,
				"sessionId":  sessionID(),
			},
			"uploadMediaInput": map[string]any{
				"mediaCategory": mediaCategory,
				"rawBytes":      imageDataURI,
			},
		},
	})

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.LabsURL("api/trpc/backbone.uploadImage"),
		c.headers(sessionToken, ""), payload)
	if err != nil {
		return api.Fail(err)
	}

	uploadID := trpcResult(body).Get("uploadMediaGenerationId").String()
	if uploadID == "" {
		return api.Result{Success: false, Data: gjson.ParseBytes(body), Message: "No uploadMediaGenerationId"}
	}
	data, _ := json.Marshal(map[string]string{"uploadMediaGenerationId": uploadID})
	return api.Result{Success: true, Data: gjson.ParseBytes(data)}
}

// UploadReferenceImage reads a local image file, converts it to a data URI,
// captions it (best effort) and uploads it. Result.Data carries
// {uploadMediaGenerationId, caption, mediaCategory}.
func (c *Client) UploadReferenceImage(ctx context.Context, sessionToken, imagePath, slot, workflowID string) api.Result {
	mediaCategory := MediaCategory(slot)

	dataURI, err := fileToDataURI(imagePath)
	if err != nil {
		return api.Result{Success: false, Message: "Cannot read image: " + err.Error()}
	}

	// Caption failure is tolerated; the upload is what matters.
	caption := ""
	if res := c.CaptionImage(ctx, sessionToken, dataURI, mediaCategory, workflowID); res.Success {
		caption = res.Data.Get("caption").String()
	}

	upload := c.UploadImage(ctx, sessionToken, dataURI, mediaCategory, workflowID)
	if !upload.Success {
		return upload
	}

	data, _ := json.Marshal(map[string]string{
		"uploadMediaGenerationId": upload.Data.Get("uploadMediaGenerationId").String(),
		"caption":                 caption,
		"mediaCategory":           mediaCategory,
	})
	return api.Result{Success: true, Data: gjson.ParseBytes(data), Message: "Reference image uploaded"}
}

// fileToDataURI reads a file and encodes it as a base64 data URI with a MIME
// type guessed from the extension.
func fileToDataURI(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	mime := map[string]string{
		"jpg": "image/jpeg", "jpeg": "image/jpeg", "png": "image/png",
		"webp": "image/webp", "gif": "image/gif",
	}[ext]
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}
