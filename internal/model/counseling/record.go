package counseling

// Utterance is one normalized content slot of a counseling conversation.
type Utterance struct {
	Content string `json:"content"`
	Field   string `json:"-"` // 来源字段，例如 HS01 / SS03；仅内部使用，不对外输出
}

// Record is the normalized persona + conversation representation of a corpus entry.
type Record struct {
	PersonaID string      `json:"persona_id"`
	Persona   string      `json:"persona"`
	Emotion   string      `json:"emotion"`
	Content   []Utterance `json:"content"`
}

// Stats summarizes a loaded corpus.
type Stats struct {
	Records    int            `json:"records"`
	Utterances int            `json:"utterances"`
	Personas   int            `json:"personas"`
	Emotions   map[string]int `json:"emotions"`
}
