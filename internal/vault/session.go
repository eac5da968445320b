package vault

import (
	"sync"

	"github.com/dmitrijs2005/linkdeck/internal/common"
)

// PasswordMode selects which credential protects the vault.
type PasswordMode string

const (
	// ModeSync: the vault password is the sync password. Default; the vault
	// unlocks implicitly whenever sync is configured.
	ModeSync PasswordMode = "sync"
	// ModeSeparate: an independently set vault password, for defense in
	// depth against someone who holds the sync password.
	ModeSeparate PasswordMode = "separate"
)

// Session keeps the vault unlocked for the lifetime of a single process.
// The password is held in memory only and is never persisted, so a restart
// always comes up locked. Not shared across processes or devices.
type Session struct {
	mu       sync.Mutex
	mode     PasswordMode
	password string
	unlocked bool
}

func NewSession() *Session {
	return &Session{mode: ModeSync}
}

func (s *Session) Mode() PasswordMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Unlock verifies the password against the given ciphertext and, on
// success, caches it for the rest of the session. An empty ciphertext
// (vault not yet created) accepts any password: the first Encrypt will
// establish it.
func (s *Session) Unlock(password, ciphertext string) error {
	if ciphertext != "" {
		if _, err := Decrypt(password, ciphertext); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = password
	s.unlocked = true
	return nil
}

// Lock drops the cached password.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.password = ""
	s.unlocked = false
}

func (s *Session) Unlocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unlocked
}

// Password returns the cached password, or ErrUnauthorized when locked.
func (s *Session) Password() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.unlocked {
		return "", common.ErrUnauthorized
	}
	return s.password, nil
}

// SwitchMode re-encrypts the vault under newPassword and changes the mode.
// The old password must be proven first; switching a locked session fails
// with ErrUnauthorized. Returns the re-encrypted ciphertext.
func (s *Session) SwitchMode(mode PasswordMode, oldPassword, newPassword, ciphertext string) (string, error) {
	s.mu.Lock()
	unlocked := s.unlocked
	s.mu.Unlock()
	if !unlocked {
		return "", common.ErrUnauthorized
	}

	out := ciphertext
	if ciphertext != "" {
		var err error
		out, err = ChangePassword(oldPassword, newPassword, ciphertext)
		if err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	s.mode = mode
	s.password = newPassword
	s.mu.Unlock()
	return out, nil
}
