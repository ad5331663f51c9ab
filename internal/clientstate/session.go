// Package clientstate is the client side of the API: an explicit session,
// an HTTP client and a feed cache with optimistic likes and comments.
package clientstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"sociallink/internal/models"
)

// Theme is the UI colour scheme saved with the session.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// SessionData is what a SessionStore persists.
type SessionData struct {
	User  *models.User `json:"user,omitempty"`
	Token string       `json:"token,omitempty"`
	Theme Theme        `json:"theme,omitempty"`
}

// SessionStore loads and saves session data between runs.
type SessionStore interface {
	Load() (SessionData, error)
	Save(SessionData) error
}

// FileSessionStore keeps the session as a JSON file.
type FileSessionStore struct {
	Path string
}

// DefaultSessionPath is sociallink/session.json under the user config dir.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "sociallink", "session.json"), nil
}

// Load returns empty data when the file does not exist yet.
func (s FileSessionStore) Load() (SessionData, error) {
	var data SessionData
	raw, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("decode session: %w", err)
	}
	return data, nil
}

// Save writes through a temp file so a crash never leaves half a session.
func (s FileSessionStore) Save(data SessionData) error {
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.Path)
}

// Session is the signed-in user, their token and the UI theme. Build one
// with NewSession and pass it to whatever needs it.
type Session struct {
	mu    sync.RWMutex
	store SessionStore
	data  SessionData
}

// NewSession restores the last saved session from store.
func NewSession(store SessionStore) (*Session, error) {
	data, err := store.Load()
	if err != nil {
		return nil, err
	}
	if data.Theme == "" {
		data.Theme = ThemeLight
	}
	return &Session{store: store, data: data}, nil
}

func (s *Session) User() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.User
}

// UserID is 0 when signed out.
func (s *Session) UserID() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.data.User == nil {
		return 0
	}
	return s.data.User.ID
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Token
}

func (s *Session) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Theme
}

func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// SignIn records the user and token and persists them.
func (s *Session) SignIn(user *models.User, token string) error {
	return s.update(func(d *SessionData) {
		d.User = user
		d.Token = token
	})
}

// SignOut forgets the user and token but keeps the theme.
func (s *Session) SignOut() error {
	return s.update(func(d *SessionData) {
		d.User = nil
		d.Token = ""
	})
}

func (s *Session) SetTheme(theme Theme) error {
	if theme != ThemeLight && theme != ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return s.update(func(d *SessionData) { d.Theme = theme })
}

func (s *Session) update(fn func(*SessionData)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.data
	fn(&next)
	if err := s.store.Save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}
