package profiles

type passthrough struct{}

func (passthrough) Normalize(raw string) (map[string]any, error) {
	return map[string]any{"message": raw}, nil
}
