package prefs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/whiskdesk/whisk/internal/prefs"
)

func testStore(t *testing.T) (*prefs.Store, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	st, err := prefs.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st, filepath.Join(dir, "whisk", "preferences.json")
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	st, _ := testStore(t)
	p, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p != prefs.Defaults() {
		t.Errorf("got %+v, want defaults", p)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	st, _ := testStore(t)
	want := prefs.Preferences{Theme: "light", Language: "vi", CaptchaMode: prefs.CaptchaManual}
	if err := st.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestLoadMergesOldFileWithDefaults(t *testing.T) {
	// A file written before captcha_mode existed must still pick up its
	// default.
	st, path := testStore(t)
	if err := os.WriteFile(path, []byte(`{"theme": "light"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Theme != "light" {
		t.Errorf("theme: got %q", p.Theme)
	}
	if p.Language != "en" || p.CaptchaMode != prefs.CaptchaAuto {
		t.Errorf("defaults not merged: %+v", p)
	}
}

func TestLoadIgnoresUnknownKeys(t *testing.T) {
	st, path := testStore(t)
	body := `{"theme": "light", "experimental_flag": true}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Theme != "light" {
		t.Errorf("theme: got %q", p.Theme)
	}
}

func TestLoadCorruptFileFallsBackToDefaults(t *testing.T) {
	st, path := testStore(t)
	if err := os.WriteFile(path, []byte(`{nope`), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := st.Load()
	if err == nil {
		t.Error("expected parse error")
	}
	if p != prefs.Defaults() {
		t.Errorf("corrupt file must yield defaults, got %+v", p)
	}
}
