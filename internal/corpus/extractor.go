package corpus

import (
	"github.com/buger/jsonparser"

	"github.com/zhouzirui/emotalk/backend/internal/model/counseling"
)

// SlotFields are the utterance keys of a content slot, lowest priority first.
// Extraction keeps only the last one present, so a slot holding both HS01 and SS01
// normalizes to the SS01 text.
var SlotFields = []string{"HS01", "SS01", "HS02", "SS02", "HS03", "SS03"}

// Extract normalizes raw documents into counseling records. Documents that are
// not JSON objects are skipped.
func Extract(documents []Document) []counseling.Record {
	records := make([]counseling.Record, 0, len(documents))
	for _, doc := range documents {
		if !doc.IsObject() {
			continue
		}
		records = append(records, extractRecord(doc.Raw))
	}
	return records
}

func extractRecord(raw []byte) counseling.Record {
	profile := objectAt(raw, "Profile")

	record := counseling.Record{
		PersonaID: stringAt(profile, "persona-id"),
		Persona:   stringAt(profile, "persona"),
		Emotion:   stringAt(profile, "emotion"),
		Content:   []counseling.Utterance{},
	}

	conversation := objectAt(raw, "Conversation")
	if conversation == nil {
		return record
	}

	_ = jsonparser.ObjectEach(conversation, func(_ []byte, turn []byte, kind jsonparser.ValueType, _ int) error {
		if kind != jsonparser.Object {
			return nil
		}
		record.Content = append(record.Content, extractTurn(turn)...)
		return nil
	})

	return record
}

func extractTurn(turn []byte) []counseling.Utterance {
	content, kind, _, err := jsonparser.Get(turn, "Content")
	if err != nil || kind != jsonparser.Array {
		return nil
	}

	var utterances []counseling.Utterance
	_, _ = jsonparser.ArrayEach(content, func(slot []byte, slotKind jsonparser.ValueType, _ int, err error) {
		if err != nil || slotKind != jsonparser.Object {
			return
		}
		utterances = append(utterances, extractSlot(slot))
	})
	return utterances
}

// extractSlot applies the last-wins policy over SlotFields.
func extractSlot(slot []byte) counseling.Utterance {
	var utterance counseling.Utterance
	for _, field := range SlotFields {
		if _, kind, _, err := jsonparser.Get(slot, field); err != nil || kind == jsonparser.NotExist {
			continue
		}
		utterance = counseling.Utterance{Content: stringAt(slot, field), Field: field}
	}
	return utterance
}

// objectAt returns the raw object stored under key, or nil when absent or not an object.
func objectAt(data []byte, key string) []byte {
	if data == nil {
		return nil
	}
	value, kind, _, err := jsonparser.Get(data, key)
	if err != nil || kind != jsonparser.Object {
		return nil
	}
	return value
}

// stringAt reads key as text. Strings are unescaped, null and absent keys give "",
// any other JSON value is kept as its raw JSON text.
func stringAt(data []byte, key string) string {
	if data == nil {
		return ""
	}
	value, kind, _, err := jsonparser.Get(data, key)
	if err != nil {
		return ""
	}

	switch kind {
	case jsonparser.String:
		text, err := jsonparser.ParseString(value)
		if err != nil {
			return string(value)
		}
		return text
	case jsonparser.Null, jsonparser.NotExist:
		return ""
	default:
		return string(value)
	}
}
