// Package state persists the agent's small on-disk state directory:
// agent_token.json and offsets.json. Both files are written atomically
// (temp file + rename), the same pattern the connection manager uses for
// its own agent-state.json.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// TokenState is the contents of agent_token.json. Token is currently
// unenforced anywhere in the request path (see the auth open question);
// it is persisted so a future auth rollout has somewhere to read it from.
type TokenState struct {
	Token string `json:"token"`
}

// OffsetsState is the contents of offsets.json: per-source-path byte
// offsets, reserved for future use by a file-tail source that wants to
// resume across restarts rather than always starting at EOF.
type OffsetsState struct {
	Offsets map[string]int64 `json:"offsets"`
}

func tokenPath(stateDir string) string   { return filepath.Join(stateDir, "agent_token.json") }
func offsetsPath(stateDir string) string { return filepath.Join(stateDir, "offsets.json") }

// LoadToken reads agent_token.json, returning a zero-value TokenState if
// the file does not exist yet.
func LoadToken(stateDir string) (TokenState, error) {
	var s TokenState
	if err := loadJSON(tokenPath(stateDir), &s); err != nil {
		return TokenState{}, err
	}
	return s, nil
}

// SaveToken writes agent_token.json atomically.
func SaveToken(stateDir string, s TokenState) error {
	return saveJSON(stateDir, tokenPath(stateDir), s)
}

// LoadOffsets reads offsets.json, returning an empty map if the file does
// not exist yet.
func LoadOffsets(stateDir string) (OffsetsState, error) {
	var s OffsetsState
	if err := loadJSON(offsetsPath(stateDir), &s); err != nil {
		return OffsetsState{}, err
	}
	if s.Offsets == nil {
		s.Offsets = map[string]int64{}
	}
	return s, nil
}

// SaveOffsets writes offsets.json atomically.
func SaveOffsets(stateDir string, s OffsetsState) error {
	return saveJSON(stateDir, offsetsPath(stateDir), s)
}

func loadJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("state: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("state: corrupted state file %s: %w", path, err)
	}
	return nil
}

// saveJSON marshals v and writes it to path via a temp file in the same
// directory followed by a rename, so a crash mid-write never leaves a
// truncated state file behind.
func saveJSON(stateDir, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: marshal %s: %w", path, err)
	}
	if err := os.MkdirAll(stateDir, 0o750); err != nil {
		return fmt.Errorf("state: create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(stateDir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmpPath)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("state: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("state: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("state: rename into place: %w", err)
	}
	ok = true
	return nil
}
