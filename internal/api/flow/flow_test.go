package flow

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

func TestCreateDefaultsType(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/flows" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"id": 7, "name": "My Flow"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Create(context.Background(), map[string]any{"name": "My Flow"})
	if !res.Success {
		t.Fatalf("Create failed: %s", res.Message)
	}
	if got["type"] != DefaultType {
		t.Errorf("type: got %v", got["type"])
	}
	if res.Data.Get("id").Int() != 7 {
		t.Errorf("id: got %d", res.Data.Get("id").Int())
	}
}

func TestListQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("offset") != "20" || q.Get("limit") != "10" {
			t.Errorf("pagination: %v", q)
		}
		if q.Get("sort") != "updated_at:desc" || q.Get("type") != "WHISK" {
			t.Errorf("defaults: %v", q)
		}
		w.Write([]byte(`{"items": [{"id": 1}], "total": 1}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).List(context.Background(), 20, 10, "", "")
	if !res.Success {
		t.Fatalf("List failed: %s", res.Message)
	}
	if res.Data.Get("total").Int() != 1 {
		t.Errorf("total: got %d", res.Data.Get("total").Int())
	}
}

func TestDeleteChecksOKField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/flows/3" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"ok": false}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).Delete(context.Background(), 3)
	if res.Success {
		t.Fatal("ok=false must fail")
	}
	if res.Message != "Delete failed" {
		t.Errorf("message: got %q", res.Message)
	}
}

func TestLinkWorkflowStatusOK(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tools/upload/frame/run" || r.URL.Query().Get("type") != "VEO3_V2" {
			t.Errorf("unexpected request: %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.Write([]byte(`{"status": "ok"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).LinkWorkflow(context.Background(), 5, "wf_9", "proj", true)
	if !res.Success {
		t.Fatalf("LinkWorkflow failed: %s", res.Message)
	}
	if got["flow_id"].(float64) != 5 || got["project_id"] != "wf_9" {
		t.Errorf("payload: %v", got)
	}
	if got["use_credit"] != true {
		t.Errorf("use_credit: got %v", got["use_credit"])
	}
}

func TestLinkWorkflowNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "message": "flow is archived"}`))
	}))
	defer srv.Close()

	res := testClient(srv.URL).LinkWorkflow(context.Background(), 5, "wf", "p", false)
	if res.Success {
		t.Fatal("status!=ok must fail")
	}
	if res.Message != "flow is archived" {
		t.Errorf("message: got %q", res.Message)
	}
}
