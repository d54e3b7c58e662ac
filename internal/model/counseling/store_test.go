package counseling

import (
	"encoding/json"
	"testing"
)

func sampleRecords() []Record {
	return []Record{
		{PersonaID: "Pro_1", Emotion: "E18", Content: []Utterance{{Content: "a"}, {Content: "b"}}},
		{PersonaID: "Pro_2", Emotion: `{"type":"E31"}`, Content: []Utterance{{Content: "c"}}},
		{PersonaID: "Pro_1", Emotion: "E18", Content: []Utterance{}},
		{Content: []Utterance{{Content: "d"}}},
	}
}

func TestMemoryStoreFindByPersonaID(t *testing.T) {
	store := NewMemoryStore(sampleRecords())

	got := store.FindByPersonaID("Pro_1")
	if len(got) != 2 {
		t.Fatalf("expected 2 records for Pro_1, got %d", len(got))
	}
	if len(got[0].Content) != 2 || len(got[1].Content) != 0 {
		t.Fatalf("records returned out of load order: %+v", got)
	}

	if missing := store.FindByPersonaID("nobody"); len(missing) != 0 {
		t.Fatalf("expected no records, got %d", len(missing))
	}
}

func TestMemoryStoreFilterByEmotion(t *testing.T) {
	store := NewMemoryStore(sampleRecords())

	if got := store.FilterByEmotion("e31"); len(got) != 1 || got[0].PersonaID != "Pro_2" {
		t.Fatalf("unexpected filter result: %+v", got)
	}
	if got := store.FilterByEmotion(""); len(got) != store.Len() {
		t.Fatalf("empty filter should return all records, got %d", len(got))
	}
}

func TestMemoryStoreStats(t *testing.T) {
	stats := NewMemoryStore(sampleRecords()).Stats()

	if stats.Records != 4 {
		t.Fatalf("records = %d, want 4", stats.Records)
	}
	if stats.Utterances != 4 {
		t.Fatalf("utterances = %d, want 4", stats.Utterances)
	}
	if stats.Personas != 2 {
		t.Fatalf("personas = %d, want 2", stats.Personas)
	}
	if stats.Emotions["E18"] != 2 || stats.Emotions["unknown"] != 1 {
		t.Fatalf("unexpected emotion counts: %v", stats.Emotions)
	}
}

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := NewMemoryStore(sampleRecords())
	list := store.List()
	list[0].PersonaID = "mutated"

	if store.List()[0].PersonaID != "Pro_1" {
		t.Fatal("List must not expose internal storage")
	}
}

func TestUtteranceJSONHasSingleKey(t *testing.T) {
	body, err := json.Marshal(Utterance{Content: "b", Field: "SS01"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(body) != `{"content":"b"}` {
		t.Fatalf("unexpected slot json %s", body)
	}
}
