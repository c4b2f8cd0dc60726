package profiles

import (
	"encoding/json"
	"strings"
)

type jsonAuto struct{}

func (jsonAuto) Normalize(raw string) (map[string]any, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "{") {
		return map[string]any{"message": raw}, nil
	}

	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return map[string]any{"message": raw}, nil
	}

	if m, ok := obj.(map[string]any); ok {
		return m, nil
	}
	return map[string]any{"value": obj, "message": raw}, nil
}
