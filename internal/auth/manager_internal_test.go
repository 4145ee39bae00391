package auth

import (
	"context"
	"testing"

	"github.com/whiskdesk/whisk/internal/api/admin"
	"github.com/whiskdesk/whisk/internal/config"
	"github.com/whiskdesk/whisk/internal/session"
)

// FetchUserInfo must refuse to call out without an access token. A token-less
// session cannot be installed through the public API, so this check goes
// through setSession directly.
func TestFetchUserInfoRequiresToken(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	store, err := session.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	m := NewManager(store, admin.New(&config.Config{AdminBaseURL: "http://127.0.0.1:1"}))

	if m.FetchUserInfo(context.Background()) {
		t.Error("no session: must return false")
	}
	m.setSession(&session.UserSession{Username: "admin"})
	if m.FetchUserInfo(context.Background()) {
		t.Error("no access token: must return false")
	}
}
