package prompts_test

import (
	"testing"

	"github.com/whiskdesk/whisk/internal/prompts"
)

func testStore(t *testing.T) *prompts.Store {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	st, err := prompts.NewStore()
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return st
}

func TestListEmptyWhenNoFile(t *testing.T) {
	st := testStore(t)
	list, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d entries", len(list))
	}
}

func TestAddPrependsNewest(t *testing.T) {
	st := testStore(t)
	if _, err := st.Add("first template", "dog"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := st.Add("second template", "cat"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	list, err := st.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len: got %d", len(list))
	}
	if list[0].Idea != "cat" || list[1].Idea != "dog" {
		t.Errorf("order: %+v", list)
	}
	if list[0].CreatedAt.IsZero() {
		t.Error("created_at must be set")
	}
}

func TestRemove(t *testing.T) {
	st := testStore(t)
	st.Add("a", "one")
	st.Add("b", "two")

	if err := st.Remove(0); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	list, _ := st.List()
	if len(list) != 1 || list[0].Idea != "one" {
		t.Errorf("after remove: %+v", list)
	}
}

func TestRemoveOutOfRange(t *testing.T) {
	st := testStore(t)
	st.Add("a", "one")
	if err := st.Remove(5); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if err := st.Remove(-1); err == nil {
		t.Error("expected error for negative index")
	}
}
