// Package auth owns the single current user session and mediates all
// credential-related I/O: login, session restore, token refresh, profile
// sync, and logout.
package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/whiskdesk/whisk/internal/api"
	"github.com/whiskdesk/whisk/internal/api/admin"
	"github.com/whiskdesk/whisk/internal/session"
)

// Listener receives session lifecycle notifications. Implementations must
// not block: they are invoked synchronously from whichever goroutine drove
// the operation.
type Listener interface {
	LoginSucceeded(s *session.UserSession)
	LoginFailed(message string)
	LoggedOut()
	TokenRefreshed(accessToken string)
}

// Manager is the session lifecycle state machine. It exclusively owns the
// current UserSession; other components only read it via Session.
type Manager struct {
	store  session.Store
	client *admin.Client

	mu        sync.Mutex
	sess      *session.UserSession
	listeners []Listener
}

// NewManager returns a Manager persisting through store and talking to the
// admin API through client.
func NewManager(store session.Store, client *admin.Client) *Manager {
	return &Manager{store: store, client: client}
}

// AddListener registers a lifecycle listener.
func (m *Manager) AddListener(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) snapshotListeners() []Listener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Listener(nil), m.listeners...)
}

// Session returns the current session, or nil when logged out.
func (m *Manager) Session() *session.UserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// IsLoggedIn reports whether a valid session is present.
func (m *Manager) IsLoggedIn() bool {
	return m.Session().Valid()
}

func (m *Manager) setSession(s *session.UserSession) {
	m.mu.Lock()
	m.sess = s
	m.mu.Unlock()
}

// save persists the current session; persistence failures are logged but do
// not fail the operation that mutated the session.
func (m *Manager) save() {
	s := m.Session()
	if s == nil {
		return
	}
	if err := m.store.Save(s); err != nil {
		slog.Warn("session persist failed", "err", err)
	}
}

// Login exchanges a key code for a token pair and installs the resulting
// session. Returns (false, reason) on any failure; the session is left
// unset and exactly one LoginFailed notification is emitted.
func (m *Manager) Login(ctx context.Context, keyCode string) (bool, string) {
	resp, err := m.client.LoginByKey(ctx, keyCode)
	if err != nil {
		msg := api.ErrorMessage(err)
		slog.Error("login failed", "err", err)
		for _, l := range m.snapshotListeners() {
			l.LoginFailed(msg)
		}
		return false, msg
	}

	u := resp.User
	s := &session.UserSession{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		UserID:       u.ID,
		Username:     u.Username,
		Name:         u.Name,
		Mail:         u.Mail,
		Roles:        u.Roles,
		Credit:       u.Credit,
		KeyCode:      keyCode,
		ToolsAccess:  u.ToolsAccess,
		Status:       u.Status,
		UpdatedAt:    u.UpdatedAt,
		UseCredit:    u.UseCredit,
	}
	m.setSession(s)
	m.save()

	for _, l := range m.snapshotListeners() {
		l.LoginSucceeded(s)
	}

	msg := resp.Message
	if msg == "" {
		msg = "Login successful"
	}
	return true, msg
}

// TryRestoreSession attempts to bring back a saved session without user
// interaction. The cascade is ordered cheapest-first and never gives up
// while any still-valid credential exists:
//
//  1. load the session file; fail if it has neither access token nor key code
//  2. validate the access token by fetching the profile
//  3. refresh the token, then best-effort re-fetch the profile
//  4. clear the session and re-login with the saved key code
func (m *Manager) TryRestoreSession(ctx context.Context) bool {
	s, err := m.store.Load()
	if err != nil {
		slog.Debug("no session to restore", "err", err)
		return false
	}
	if s.AccessToken == "" && s.KeyCode == "" {
		return false
	}

	m.setSession(s)

	if s.AccessToken != "" && m.FetchUserInfo(ctx) {
		for _, l := range m.snapshotListeners() {
			l.LoginSucceeded(m.Session())
		}
		return true
	}

	if s.RefreshToken != "" {
		if ok, _ := m.RefreshToken(ctx); ok {
			// The profile fetch is best-effort: a stale snapshot is
			// acceptable as long as the token works.
			m.FetchUserInfo(ctx)
			return true
		}
	}

	if s.KeyCode != "" {
		keyCode := s.KeyCode
		m.setSession(nil)
		if ok, _ := m.Login(ctx, keyCode); ok {
			return true
		}
	}

	m.setSession(nil)
	return false
}

// RefreshToken exchanges the session's refresh token for a new access token.
// Returns the new token on success, or a reason string on failure.
func (m *Manager) RefreshToken(ctx context.Context) (bool, string) {
	s := m.Session()
	if s == nil || s.RefreshToken == "" {
		return false, "No refresh token available"
	}

	token, err := m.client.Refresh(ctx, s.RefreshToken)
	if err != nil {
		return false, api.ErrorMessage(err)
	}
	if token == "" {
		return false, "Server returned empty access_token"
	}

	s.AccessToken = token
	m.save()
	for _, l := range m.snapshotListeners() {
		l.TokenRefreshed(token)
	}
	return true, token
}

// FetchUserInfo re-fetches the profile and merges it into the session.
// Fields absent from the response keep their current values: a partial
// profile must never erase previously known fields.
func (m *Manager) FetchUserInfo(ctx context.Context) bool {
	s := m.Session()
	if s == nil || s.AccessToken == "" {
		return false
	}

	profile, err := m.client.Me(ctx, s.AccessToken)
	if err != nil {
		slog.Warn("profile fetch failed", "err", err)
		return false
	}

	mergeProfile(s, profile)
	m.save()
	return true
}

// UpdateUser PATCHes field updates to the user record and merges any
// returned data back into the session.
func (m *Manager) UpdateUser(ctx context.Context, fields map[string]any) (bool, string) {
	s := m.Session()
	if s == nil || s.AccessToken == "" {
		return false, "Not logged in"
	}

	msg, data, err := m.client.UpdateUser(ctx, s.AccessToken, s.UserID, fields)
	if err != nil {
		return false, api.ErrorMessage(err)
	}

	if data.Exists() {
		mergeProfile(s, data)
		m.save()
	}
	return true, msg
}

// Logout clears the session locally and best-effort invalidates it on the
// server. The server call failing never blocks the local logout, and the
// LoggedOut notification fires exactly once regardless.
func (m *Manager) Logout(ctx context.Context) {
	s := m.Session()
	if s != nil && s.AccessToken != "" {
		if err := m.client.Logout(ctx, s.AccessToken); err != nil {
			slog.Warn("server logout failed", "err", err)
		}
	}

	m.setSession(nil)
	if err := m.store.Delete(); err != nil {
		slog.Warn("session file delete failed", "err", err)
	}

	for _, l := range m.snapshotListeners() {
		l.LoggedOut()
	}
}

// mergeProfile overwrites only the session fields present in data.
func mergeProfile(s *session.UserSession, data gjson.Result) {
	if v := data.Get("username"); v.Exists() {
		s.Username = v.String()
	}
	if v := data.Get("name"); v.Exists() {
		s.Name = v.String()
	}
	if v := data.Get("mail"); v.Exists() {
		s.Mail = v.String()
	}
	if v := data.Get("roles"); v.Exists() {
		s.Roles = v.String()
	}
	if v := data.Get("credit"); v.Exists() {
		s.Credit = int(v.Int())
	}
	if v := data.Get("tools_access"); v.Exists() {
		access := map[string]bool{}
		v.ForEach(func(key, value gjson.Result) bool {
			access[key.String()] = value.Bool()
			return true
		})
		s.ToolsAccess = access
	}
	if v := data.Get("status"); v.Exists() {
		s.Status = v.String()
	}
	if v := data.Get("updated_at"); v.Exists() {
		s.UpdatedAt = v.String()
	}
	if v := data.Get("use_credit"); v.Exists() {
		s.UseCredit = v.Bool()
	}
}
