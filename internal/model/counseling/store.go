package counseling

import "strings"

// Store exposes read-only access to the normalized corpus for HTTP handlers.
type Store interface {
	List() []Record
	Len() int
	FindByPersonaID(id string) []Record
	FilterByEmotion(emotion string) []Record
	Stats() Stats
}

// MemoryStore implements Store over an in-memory slice loaded once at start-up.
type MemoryStore struct {
	items     []Record
	byPersona map[string][]int
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied records.
func NewMemoryStore(items []Record) *MemoryStore {
	s := &MemoryStore{
		items:     append([]Record(nil), items...),
		byPersona: make(map[string][]int),
	}
	for i, item := range s.items {
		if item.PersonaID == "" {
			continue
		}
		s.byPersona[item.PersonaID] = append(s.byPersona[item.PersonaID], i)
	}
	return s
}

// List returns every record in load order.
func (s *MemoryStore) List() []Record {
	return append([]Record(nil), s.items...)
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	return len(s.items)
}

// FindByPersonaID returns the records that belong to one persona, in load order.
func (s *MemoryStore) FindByPersonaID(id string) []Record {
	idx := s.byPersona[strings.TrimSpace(id)]
	out := make([]Record, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.items[i])
	}
	return out
}

// FilterByEmotion returns records whose emotion label contains the given text (case-insensitive).
// Emotion labels in the corpus are either plain codes or compact JSON objects, so substring
// matching covers both.
func (s *MemoryStore) FilterByEmotion(emotion string) []Record {
	needle := strings.ToLower(strings.TrimSpace(emotion))
	if needle == "" {
		return s.List()
	}

	var out []Record
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Emotion), needle) {
			out = append(out, item)
		}
	}
	return out
}

// Stats counts records, utterances, distinct personas and records per emotion label.
func (s *MemoryStore) Stats() Stats {
	stats := Stats{
		Records:  len(s.items),
		Personas: len(s.byPersona),
		Emotions: make(map[string]int),
	}
	for _, item := range s.items {
		stats.Utterances += len(item.Content)
		label := item.Emotion
		if label == "" {
			label = "unknown"
		}
		stats.Emotions[label]++
	}
	return stats
}
