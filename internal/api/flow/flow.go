// Package flow is the client for the flow server: flow CRUD and linking a
// Labs workflow to a server flow. Auth is the admin bearer token.
package flow

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

// DefaultType is the flow type this client manages.
const DefaultType = "WHISK"

// Client issues requests against the flow server.
type Client struct {
	cfg   *config.Config
	hc    *http.Client
	token string
}

// New returns a flow client authenticating with the given bearer token.
func New(cfg *config.Config, accessToken string) *Client {
	return &Client{cfg: cfg, hc: api.NewClient(api.ServerTimeout), token: accessToken}
}

// SetAccessToken swaps the bearer token used for subsequent requests.
func (c *Client) SetAccessToken(token string) {
	c.token = token
}

// Create creates a new flow. fields must include at least "name"; "type"
// defaults to WHISK.
func (c *Client) Create(ctx context.Context, fields map[string]any) api.Result {
	if _, ok := fields["type"]; !ok {
		fields["type"] = DefaultType
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return api.Fail(err)
	}

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.FlowURL("flows"), api.JSONHeaders(c.token), payload)
	if err != nil {
		return api.Fail(err)
	}
	return api.Result{Success: true, Data: gjson.ParseBytes(body), Message: "Flow created"}
}

// List fetches flows with pagination. Result.Data is the raw body
// ({items, total, offset, limit, has_more}).
func (c *Client) List(ctx context.Context, offset, limit int, sort, flowType string) api.Result {
	if sort == "" {
		sort = "updated_at:desc"
	}
	if flowType == "" {
		flowType = DefaultType
	}
	params := url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
		"sort":   {sort},
		"type":   {flowType},
	}

	body, err := api.Do(ctx, c.hc, http.MethodGet,
		c.cfg.FlowURL("flows")+"?"+params.Encode(), api.JSONHeaders(c.token), nil)
	if err != nil {
		return api.Fail(err)
	}
	return api.Result{Success: true, Data: gjson.ParseBytes(body), Message: "Flows fetched"}
}

// Delete removes a flow by ID. The server signals the outcome in an "ok"
// field rather than the status code.
func (c *Client) Delete(ctx context.Context, flowID int) api.Result {
	body, err := api.Do(ctx, c.hc, http.MethodDelete,
		c.cfg.FlowURL("flows/"+strconv.Itoa(flowID)), api.JSONHeaders(c.token), nil)
	if err != nil {
		return api.Fail(err)
	}
	root := gjson.ParseBytes(body)
	if !root.Get("ok").Bool() {
		return api.Result{Success: false, Data: root, Message: "Delete failed"}
	}
	return api.Result{Success: true, Data: root, Message: "Flow deleted"}
}

// LinkWorkflow attaches a Labs workflow (project) to a server flow. The
// server reports success via status=="ok" in the body.
func (c *Client) LinkWorkflow(ctx context.Context, flowID int, projectID, projectName string, useCredit bool) api.Result {
	payload, _ := json.Marshal(map[string]any{
		"project_name": projectName,
		"flow_id":      flowID,
		"use_credit":   useCredit,
		"project_id":   projectID,
	})

	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.FlowURL("tools/upload/frame/run")+"?type=VEO3_V2",
		api.JSONHeaders(c.token), payload)
	if err != nil {
		return api.Fail(err)
	}

	root := gjson.ParseBytes(body)
	msg := root.Get("message").String()
	if msg == "" {
		msg = "Linked workflow " + projectID
	}
	return api.Result{
		Success: root.Get("status").String() == "ok",
		Data:    root,
		Message: msg,
	}
}
