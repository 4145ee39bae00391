// Package admin is the client for the admin backend: key-code login, profile
// ("me"), token refresh, logout, user updates, and the app version check.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
	"github.com/whiskdesk/whisk/internal/config"
)

// Client issues requests against the admin API.
type Client struct {
	cfg *config.Config
	hc  *http.Client
}

// New returns an admin client using the resolved base URLs in cfg.
func New(cfg *config.Config) *Client {
	return &Client{cfg: cfg, hc: api.NewClient(api.DefaultTimeout)}
}

// UserInfo is the profile snapshot carried in login and me responses.
// Missing fields keep their zero values; the server may add fields at any
// time without breaking this client.
type UserInfo struct {
	ID          int
	Username    string
	Name        string
	Mail        string
	Roles       string
	Credit      int
	ToolsAccess map[string]bool
	Status      string
	UpdatedAt   string
	UseCredit   bool
}

// LoginResponse is the result of a successful key-code exchange.
type LoginResponse struct {
	AccessToken  string
	RefreshToken string
	Message      string
	User         UserInfo
}

func userInfoFrom(data gjson.Result) UserInfo {
	info := UserInfo{
		ID:          int(data.Get("id").Int()),
		Username:    data.Get("username").String(),
		Name:        data.Get("name").String(),
		Mail:        data.Get("mail").String(),
		Roles:       data.Get("roles").String(),
		Credit:      int(data.Get("credit").Int()),
		Status:      data.Get("status").String(),
		UpdatedAt:   data.Get("updated_at").String(),
		UseCredit:   data.Get("use_credit").Bool(),
		ToolsAccess: map[string]bool{},
	}
	data.Get("tools_access").ForEach(func(key, value gjson.Result) bool {
		info.ToolsAccess[key.String()] = value.Bool()
		return true
	})
	return info
}

// LoginByKey exchanges a key code for an access/refresh token pair.
func (c *Client) LoginByKey(ctx context.Context, keyCode string) (*LoginResponse, error) {
	payload, _ := json.Marshal(map[string]string{"key_code": keyCode})
	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.AdminURL("auth/login-by-key"), api.JSONHeaders(""), payload)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	return &LoginResponse{
		AccessToken:  root.Get("access_token").String(),
		RefreshToken: root.Get("refresh_token").String(),
		Message:      root.Get("message").String(),
		User:         userInfoFrom(root.Get("data")),
	}, nil
}

// Me fetches the current user profile with the given bearer token. The raw
// JSON is returned so callers can distinguish absent fields from zero values
// when merging into an existing session.
func (c *Client) Me(ctx context.Context, accessToken string) (gjson.Result, error) {
	body, err := api.Do(ctx, c.hc, http.MethodGet,
		c.cfg.AdminURL("auth/me"), api.JSONHeaders(accessToken), nil)
	if err != nil {
		return gjson.Result{}, err
	}
	return gjson.ParseBytes(body), nil
}

// Refresh exchanges a refresh token (presented as the bearer credential) for
// a new access token. An empty token in the response is the caller's problem
// to treat as failure.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.AdminURL("auth/refresh"), api.JSONHeaders(refreshToken), nil)
	if err != nil {
		return "", err
	}
	return gjson.GetBytes(body, "access_token").String(), nil
}

// Logout tells the server to invalidate the session. Callers treat failures
// as non-fatal.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	_, err := api.Do(ctx, c.hc, http.MethodPost,
		c.cfg.AdminURL("auth/logout"), api.JSONHeaders(accessToken), nil)
	return err
}

// UpdateUser PATCHes arbitrary field updates to the user record and returns
// the server's message plus any returned `data` fields.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, userID int, fields map[string]any) (string, gjson.Result, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return "", gjson.Result{}, err
	}
	body, err := api.Do(ctx, c.hc, http.MethodPatch,
		c.cfg.AdminURL("auth")+"/"+strconv.Itoa(userID), api.JSONHeaders(accessToken), payload)
	if err != nil {
		return "", gjson.Result{}, err
	}
	root := gjson.ParseBytes(body)
	msg := root.Get("message").String()
	if msg == "" {
		msg = "Updated successfully"
	}
	return msg, root.Get("data"), nil
}
