package protocol

import (
	"encoding/json"
	"testing"
)

func TestCompletionItemKind(t *testing.T) {
	kinds := map[CompletionItemKind]int{
		CompletionItemKindFunction: 3,
		CompletionItemKindField:    5,
		CompletionItemKindClass:    7,
		CompletionItemKindKeyword:  14,
	}

	for kind, want := range kinds {
		if int(kind) != want {
			t.Errorf("Kind mismatch: got %d, want %d", kind, want)
		}
	}
}

func TestPosition(t *testing.T) {
	pos := Position{Line: 1, Character: 5}
	if pos.Line != 1 {
		t.Errorf("Line mismatch: got %d, want %d", pos.Line, 1)
	}
	if pos.Character != 5 {
		t.Errorf("Character mismatch: got %d, want %d", pos.Character, 5)
	}
}

func TestRange(t *testing.T) {
	r := Range{
		Start: Position{Line: 0, Character: 0},
		End:   Position{Line: 1, Character: 5},
	}

	if r.Start.Line != 0 {
		t.Errorf("Start line mismatch: got %d, want %d", r.Start.Line, 0)
	}
	if r.End.Character != 5 {
		t.Errorf("End character mismatch: got %d, want %d", r.End.Character, 5)
	}
	if r.IsEmpty() {
		t.Error("non-empty range reported empty")
	}
	if !(Range{Start: r.End, End: r.End}).IsEmpty() {
		t.Error("collapsed range reported non-empty")
	}
}

func TestCompletionItemJSON(t *testing.T) {
	data, err := json.Marshal(CompletionItem{Label: "users", Kind: CompletionItemKindClass})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"label":"users","kind":7}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestContentChangeFullSync(t *testing.T) {
	var ev TextDocumentContentChangeEvent
	if err := json.Unmarshal([]byte(`{"text":"select 1"}`), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Range != nil {
		t.Error("full sync change should have no range")
	}
	if ev.Text != "select 1" {
		t.Errorf("text mismatch: %q", ev.Text)
	}
}
