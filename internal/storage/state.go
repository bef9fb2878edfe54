// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caurisai/cauris-tui/internal/util"
)

// TokenEnv overrides the stored bearer token when set.
const TokenEnv = "CAURIS_TOKEN"

// =============================================================================
// STATE TYPE
// =============================================================================

// State is everything cauris keeps between runs. The transcript and the
// history cache are deliberately absent: they live only for one session.
type State struct {
	Token     string `json:"token,omitempty"`
	UserEmail string `json:"user_email,omitempty"`

	// DarkMode is nil until the user toggles the theme; until then the
	// configured ui.theme decides.
	DarkMode *bool `json:"dark_mode,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// LoggedIn reports whether a token is present.
func (s *State) LoggedIn() bool {
	return s != nil && s.Token != ""
}

// =============================================================================
// STATE STORE
// =============================================================================

// StateStore persists State as a single JSON file with 0600 permissions.
type StateStore struct {
	// Path is the state file, default ~/.cauris/state.json
	Path string

	mu sync.Mutex
}

// NewStateStore creates a store rooted in dir.
func NewStateStore(dir string) (*StateStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &StateStore{Path: filepath.Join(dir, "state.json")}, nil
}

// Load reads the state file. A missing file is an empty State, not an error.
func (s *StateStore) Load() (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *StateStore) load() (*State, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, &StateError{Message: "corrupt state file", Path: s.Path, Err: err}
	}
	return &st, nil
}

// Save writes st atomically.
func (s *StateStore) Save(st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(st)
}

func (s *StateStore) save(st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	if err := util.AtomicWriteFile(s.Path, data, 0600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// update applies fn to the current state and saves it.
func (s *StateStore) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	fn(st)
	return s.save(st)
}

// SetAuth stores the token and e-mail returned by a successful login.
func (s *StateStore) SetAuth(token, email string) error {
	return s.update(func(st *State) {
		st.Token = token
		st.UserEmail = email
	})
}

// ClearAuth forgets the token and e-mail. Display preferences survive.
func (s *StateStore) ClearAuth() error {
	return s.update(func(st *State) {
		st.Token = ""
		st.UserEmail = ""
	})
}

// SetDarkMode records the user's theme choice.
func (s *StateStore) SetDarkMode(dark bool) error {
	return s.update(func(st *State) {
		st.DarkMode = &dark
	})
}

// Token returns the bearer token, preferring the CAURIS_TOKEN environment
// variable over the stored one. An empty result means "not logged in".
func (s *StateStore) Token() (string, error) {
	if v := strings.TrimSpace(os.Getenv(TokenEnv)); v != "" {
		return v, nil
	}
	st, err := s.Load()
	if err != nil {
		return "", err
	}
	return st.Token, nil
}

// =============================================================================
// ERRORS
// =============================================================================

// StateError reports an unreadable state file.
type StateError struct {
	Message string
	Path    string
	Err     error
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Message, e.Path, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *StateError) Unwrap() error {
	return e.Err
}
