package contenthash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Components is a normalized component sequence. Raw is what gets persisted
// and is nil when the block carries no components.
type Components struct {
	Raw  json.RawMessage
	Hash string
}

// NormalizeComponents accepts the shapes clients send for a block body: a JSON
// array, a single structured value, a string holding JSON, or plain text that
// becomes one paragraph component.
func NormalizeComponents(raw json.RawMessage) (Components, error) {
	value, err := decode(raw)
	if err != nil {
		return Components{}, err
	}

	var items []any
	switch typed := value.(type) {
	case nil:
		return Components{Hash: Sum(nil)}, nil
	case []any:
		items = typed
	case string:
		items = fromText(typed)
	default:
		items = []any{typed}
	}

	encoded, err := json.Marshal(items)
	if err != nil {
		return Components{}, fmt.Errorf("encode components: %w", err)
	}
	return Components{Raw: encoded, Hash: Sum(items)}, nil
}

func fromText(text string) []any {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		decoder := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
		decoder.UseNumber()
		var parsed any
		if err := decoder.Decode(&parsed); err == nil {
			if list, ok := parsed.([]any); ok {
				return list
			}
			return []any{parsed}
		}
	}
	return []any{map[string]any{"type": "paragraph", "text": text}}
}
