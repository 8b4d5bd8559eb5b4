package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// nowFn is a test seam for timestamps written to the state file.
var nowFn = time.Now

// State is the token cache persisted between invocations. It never holds
// the password or any key material, only the bearer tokens.
type State struct {
	UserID       string    `json:"user_id,omitempty"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ObtainedAt   time.Time `json:"obtained_at,omitempty"`
}

// DefaultStateDir returns ~/.srpvault, the directory used when no explicit
// state file is configured.
func DefaultStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".srpvault"), nil
}

// LoadState reads the state file at path. A missing file is not an error
// and yields an empty state.
func LoadState(path string) (*State, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &State{}, nil
		}
		return nil, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return &s, nil
}

// Save writes the state to path with owner-only permissions, creating the
// parent directory if needed.
func (s *State) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o600)
}

// Clear empties the tokens and rewrites the file.
func (s *State) Clear(path string) error {
	*s = State{}
	return s.Save(path)
}
