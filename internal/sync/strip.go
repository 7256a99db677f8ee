package sync

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// StripNulls removes null-valued object members at any depth. Array
// elements are kept as they are positional.
func StripNulls(data json.RawMessage) (json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	out, err := json.Marshal(stripValue(value))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}

func stripValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, member := range v {
			if member == nil {
				delete(v, key)
				continue
			}
			v[key] = stripValue(member)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = stripValue(item)
		}
		return v
	default:
		return v
	}
}
