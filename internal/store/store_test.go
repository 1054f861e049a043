package store

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mzassist/internal/types"
)

func TestReadMissingCollection(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	raw, err := s.Read(CollectionHistory)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if raw != nil {
		t.Errorf("expected nil payload for missing collection, got %q", raw)
	}
}

func TestWriteReadDelete(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Write(CollectionSettings, []byte(`{"theme":"dark"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	raw, err := s.Read(CollectionSettings)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(raw) != `{"theme":"dark"}` {
		t.Errorf("unexpected payload: %s", raw)
	}

	// Overwrite is last-write-wins.
	if err := s.Write(CollectionSettings, []byte(`{"theme":"light"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	raw, _ = s.Read(CollectionSettings)
	if string(raw) != `{"theme":"light"}` {
		t.Errorf("overwrite not applied: %s", raw)
	}

	if err := s.Delete(CollectionSettings); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	raw, _ = s.Read(CollectionSettings)
	if raw != nil {
		t.Error("collection survived delete")
	}
}

func TestConversationRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mz.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	history := []types.Conversation{
		{
			ID:        "c-1",
			Title:     "رحلة الغروب",
			Timestamp: 1700000002000,
			Messages: []types.Turn{
				{ID: "m-1", Role: types.RoleModel, Parts: []types.Part{types.TextPart("أهلاً بك!")}},
				{ID: "m-2", Role: types.RoleUser, Parts: []types.Part{
					types.TextPart("مرحبا"),
					types.ImagePart("aGVsbG8=", "image/png"),
				}},
			},
		},
		{
			ID:        "c-2",
			Title:     "محادثة جديدة",
			Timestamp: 1700000001000,
			Messages: []types.Turn{
				{ID: "m-3", Role: types.RoleModel, Parts: []types.Part{types.TextPart("hi")},
					DebugInfo: &types.DebugInfo{ResponseTimeMs: 120, Provider: "Gemini", Model: "gemini-2.5-flash"}},
			},
		},
	}

	if err := s.WriteJSON(CollectionHistory, history); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	s.Close()

	// Reload from disk to prove the data survives the process boundary.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	var loaded []types.Conversation
	ok, err := s2.ReadJSON(CollectionHistory, &loaded)
	if err != nil {
		t.Fatalf("ReadJSON failed: %v", err)
	}
	if !ok {
		t.Fatal("history collection missing after reopen")
	}
	if diff := cmp.Diff(history, loaded); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestCorruptedCollectionIsDiscarded(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if err := s.Write(CollectionHistory, []byte(`{not json!`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var loaded []types.Conversation
	ok, err := s.ReadJSON(CollectionHistory, &loaded)
	if err != nil {
		t.Fatalf("ReadJSON must not fail on corruption: %v", err)
	}
	if ok {
		t.Error("corrupted payload reported as present")
	}

	// The corrupted entry must have been discarded.
	raw, _ := s.Read(CollectionHistory)
	if raw != nil {
		t.Errorf("corrupted payload not discarded: %s", raw)
	}
}

func TestSettingsDefaults(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	st := s.LoadSettings()
	if st.DefaultMode != "" {
		t.Errorf("unset default mode must stay empty, got %q", st.DefaultMode)
	}

	st.DeveloperMode = true
	st.DefaultMode = types.ModeQuickResponse
	if err := s.SaveSettings(st); err != nil {
		t.Fatalf("SaveSettings failed: %v", err)
	}
	got := s.LoadSettings()
	if !got.DeveloperMode || got.DefaultMode != types.ModeQuickResponse {
		t.Errorf("settings not round-tripped: %+v", got)
	}

	// An unknown stored mode is cleared, not surfaced.
	if err := s.Write(CollectionSettings, []byte(`{"default_mode":"telepathy"}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if mode := s.LoadSettings().DefaultMode; mode != "" {
		t.Errorf("unknown stored mode surfaced as %q", mode)
	}
}
