// Package keys is the client for cookie/api-key management on the flow
// server: testing a Labs cookie, saving it as an api-key, and CRUD on the
// stored keys. Auth is the admin bearer token.
package keys

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
	"github.com/whiskdesk/whisk/internal/config"
)

// DefaultProvider is the api-key provider this client manages.
const DefaultProvider = "VEO3_V2"

// Client issues requests against the flow server's api-key endpoints.
type Client struct {
	cfg   *config.Config
	hc    *http.Client
	token string
}

// New returns a keys client authenticating with the given bearer token.
func New(cfg *config.Config, accessToken string) *Client {
	return &Client{cfg: cfg, hc: api.NewClient(api.ServerTimeout), token: accessToken}
}

// SetAccessToken swaps the bearer token used for subsequent requests.
func (c *Client) SetAccessToken(token string) {
	c.token = token
}

// Test checks a cookie's validity without storing it. fields must include
// "cookies", "label" and "flow_id"; "provider" defaults to DefaultProvider.
// The server signals the outcome in an "ok" field, with the reason in
// "msg_error" on failure.
func (c *Client) Test(ctx context.Context, fields map[string]any) api.Result {
	if _, ok := fields["provider"]; !ok {
		fields["provider"] = DefaultProvider
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return api.Fail(err)
	}

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.FlowURL("api-keys/test"), api.JSONHeaders(c.token), payload)
	if err != nil {
		return api.Fail(err)
	}

	root := gjson.ParseBytes(body)
	if !root.Get("ok").Bool() {
		return api.Result{Success: false, Data: root, Message: root.Get("msg_error").String()}
	}
	return api.Result{Success: true, Data: root, Message: "Cookie is valid"}
}

// Save stores a cookie as an api-key. fields must include "cookies", "label"
// and "flow_id"; a "provider" entry selects the endpoint's type parameter and
// is not sent in the body. The server reports success via status=="ok".
func (c *Client) Save(ctx context.Context, fields map[string]any) api.Result {
	provider := DefaultProvider
	if p, ok := fields["provider"].(string); ok && p != "" {
		provider = p
	}
	delete(fields, "provider")
	payload, err := json.Marshal(fields)
	if err != nil {
		return api.Fail(err)
	}

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.FlowURL("tools/token/frame/run")+"?type="+url.QueryEscape(provider),
		api.JSONHeaders(c.token), payload)
	if err != nil {
		return api.Fail(err)
	}

	root := gjson.ParseBytes(body)
	return api.Result{
		Success: root.Get("status").String() == "ok",
		Data:    root,
		Message: root.Get("message").String(),
	}
}

// ListQuery filters a key listing. Zero values mean the server defaults:
// provider VEO3_V2, limit 1000, status ALL, only the caller's own keys,
// sorted by update time descending.
type ListQuery struct {
	FlowID   int
	Provider string
	Offset   int
	Limit    int
	Status   string
	All      bool // include keys owned by other users
	Sort     string
}

// List fetches api-keys matching the query. Result.Data is the raw body
// ({items, total, offset, limit}).
func (c *Client) List(ctx context.Context, q ListQuery) api.Result {
	if q.Provider == "" {
		q.Provider = DefaultProvider
	}
	if q.Limit == 0 {
		q.Limit = 1000
	}
	if q.Status == "" {
		q.Status = "ALL"
	}
	if q.Sort == "" {
		q.Sort = "updated_at:desc"
	}
	params := url.Values{
		"provider": {q.Provider},
		"offset":   {strconv.Itoa(q.Offset)},
		"limit":    {strconv.Itoa(q.Limit)},
		"status":   {q.Status},
		"mine":     {strconv.FormatBool(!q.All)},
		"sort":     {q.Sort},
		"flow_id":  {strconv.Itoa(q.FlowID)},
	}

	body, err := api.Do(ctx, c.hc, http.MethodGet,
		c.cfg.FlowURL("api-keys")+"?"+params.Encode(), api.JSONHeaders(c.token), nil)
	if err != nil {
		return api.Fail(err)
	}
	return api.Result{Success: true, Data: gjson.ParseBytes(body), Message: "API keys fetched"}
}

// Delete removes an api-key by ID. The server signals the outcome in an
// "ok" field rather than the status code.
func (c *Client) Delete(ctx context.Context, keyID int) api.Result {
	body, err := api.Do(ctx, c.hc, http.MethodDelete,
		c.cfg.FlowURL("api-keys/"+strconv.Itoa(keyID)), api.JSONHeaders(c.token), nil)
	if err != nil {
		return api.Fail(err)
	}
	root := gjson.ParseBytes(body)
	if !root.Get("ok").Bool() {
		return api.Result{Success: false, Data: root, Message: "Delete failed"}
	}
	return api.Result{Success: true, Data: root, Message: "API key deleted"}
}

// Refresh re-tests whether a stored cookie is still alive. The updated key
// record comes back in Result.Data.
func (c *Client) Refresh(ctx context.Context, keyID int) api.Result {
	body, err := api.Do(ctx, c.hc, http.MethodPut,
		c.cfg.FlowURL("api-keys/"+strconv.Itoa(keyID)+"/refresh"),
		api.JSONHeaders(c.token), []byte("{}"))
	if err != nil {
		return api.Fail(err)
	}
	return api.Result{Success: true, Data: gjson.ParseBytes(body), Message: "Cookie refreshed"}
}

// AssignFlow links an api-key to a flow.
func (c *Client) AssignFlow(ctx context.Context, keyID, flowID int) api.Result {
	payload, _ := json.Marshal(map[string]any{"flow_id": flowID})
	body, err := api.Do(ctx, c.hc, http.MethodPut,
		c.cfg.FlowURL("api-keys/"+strconv.Itoa(keyID)),
		api.JSONHeaders(c.token), payload)
	if err != nil {
		return api.Fail(err)
	}
	return api.Result{Success: true, Data: gjson.ParseBytes(body), Message: "API key assigned to flow"}
}
