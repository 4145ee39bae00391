package keys

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/whiskdesk/whisk/internal/config"
)

func testClient(srvURL string) *Client {
	return New(&config.Config{FlowBaseURL: srvURL}, "tok")
}

func TestTestCookieDefaultsProvider(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api-keys/test" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer tok" {
			t.Errorf("Authorization: got %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"ok": true, "provider_info": {"user_email": "a@b.c"}}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Test(context.Background(), map[string]any{
		"cookies": map[string]string{"session-token": "s"},
		"label":   "main",
		"flow_id": 4,
	})
	if !res.Success {
		t.Fatalf("Test failed: %s", res.Message)
	}
	if res.Message != "Cookie is valid" {
		t.Errorf("message: got %q", res.Message)
	}
	if got["provider"] != DefaultProvider {
		t.Errorf("provider: got %v", got["provider"])
	}
	if res.Data.Get("provider_info.user_email").String() != "a@b.c" {
		t.Errorf("provider_info: %s", res.Data.Raw)
	}
}

func TestTestCookieReportsServerReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "msg_error": "cookie expired"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Test(context.Background(), map[string]any{"label": "x"})
	if res.Success {
		t.Fatal("ok=false must fail")
	}
	if res.Message != "cookie expired" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestSaveMovesProviderToQuery(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/token/frame/run" || r.URL.Query().Get("type") != "VEO2" {
			t.Errorf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"status": "ok", "message": "saved"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Save(context.Background(), map[string]any{
		"label":    "main",
		"flow_id":  4,
		"provider": "VEO2",
	})
	if !res.Success {
		t.Fatalf("Save failed: %s", res.Message)
	}
	if res.Message != "saved" {
		t.Errorf("message: got %q", res.Message)
	}
	if _, ok := got["provider"]; ok {
		t.Error("provider must not ride in the body")
	}
}

func TestSaveNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "message": "flow is full"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Save(context.Background(), map[string]any{"label": "x"})
	if res.Success {
		t.Fatal("status!=ok must fail")
	}
	if res.Message != "flow is full" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestListQueryDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("provider") != DefaultProvider || q.Get("limit") != "1000" {
			t.Errorf("defaults: %v", q)
		}
		if q.Get("status") != "ALL" || q.Get("mine") != "true" {
			t.Errorf("defaults: %v", q)
		}
		if q.Get("sort") != "updated_at:desc" || q.Get("flow_id") != "9" {
			t.Errorf("defaults: %v", q)
		}
		w.Write([]byte(`{"items": [{"id": 1}], "total": 1}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).List(context.Background(), ListQuery{FlowID: 9})
	if !res.Success {
		t.Fatalf("List failed: %s", res.Message)
	}
	if res.Data.Get("total").Int() != 1 {
		t.Errorf("total: got %d", res.Data.Get("total").Int())
	}
}

func TestListAllUsers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mine") != "false" {
			t.Errorf("mine: got %q", r.URL.Query().Get("mine"))
		}
		w.Write([]byte(`{"items": []}`))
	}))
	defer srv.Close()

	if res := testClient(srv.URL).List(context.Background(), ListQuery{All: true}); !res.Success {
		t.Fatalf("List failed: %s", res.Message)
	}
}

func TestDeleteChecksOKField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/api-keys/12" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"ok": false}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Delete(context.Background(), 12)
	if res.Success {
		t.Fatal("ok=false must fail")
	}
	if res.Message != "Delete failed" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestRefreshSendsEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api-keys/3/refresh" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "{}" {
			t.Errorf("body: got %q", body)
		}
		w.Write([]byte(`{"id": 3, "status": "ACTIVE"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Refresh(context.Background(), 3)
	if !res.Success {
		t.Fatalf("Refresh failed: %s", res.Message)
	}
	if res.Message != "Cookie refreshed" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestAssignFlowPayload(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api-keys/3" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"id": 3, "flow_id": 8}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).AssignFlow(context.Background(), 3, 8)
	if !res.Success {
		t.Fatalf("AssignFlow failed: %s", res.Message)
	}
	if got["flow_id"].(float64) != 8 {
		t.Errorf("payload: %v", got)
	}
	if res.Message != "API key assigned to flow" {
		t.Errorf("message: got %q", res.Message)
	}
}
