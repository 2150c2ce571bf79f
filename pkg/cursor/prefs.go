package cursor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

// KeyPrefix is prepended to the account name in the preferences file.
const KeyPrefix = "largest_change_id:"

// PrefsStore keeps cursors in a JSON key/value preferences file.
type PrefsStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewPrefsStore creates a Store writing to path on fs.
func NewPrefsStore(fs afero.Fs, path string) *PrefsStore {
	return &PrefsStore{fs: fs, path: path}
}

func (s *PrefsStore) read() (map[string]int64, error) {
	prefs := make(map[string]int64)

	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return nil, fmt.Errorf("failed to read preferences %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return prefs, nil
	}
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences %s: %w", s.path, err)
	}
	return prefs, nil
}

func (s *PrefsStore) write(prefs map[string]int64) error {
	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	// Write then rename so a crash never leaves a truncated file.
	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *PrefsStore) Load(ctx context.Context, account string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.read()
	if err != nil {
		return 0, false, err
	}
	v, ok := prefs[KeyPrefix+account]
	return v, ok, nil
}

// Advance implements Store.
func (s *PrefsStore) Advance(ctx context.Context, account string, value int64) error {
	if value < 0 {
		return fmt.Errorf("%w: negative value %d", ErrBackward, value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.read()
	if err != nil {
		return err
	}
	key := KeyPrefix + account
	if current, ok := prefs[key]; ok && value < current {
		return fmt.Errorf("%w: %d < %d", ErrBackward, value, current)
	}
	prefs[key] = value
	return s.write(prefs)
}
