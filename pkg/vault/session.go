package vault

import (
	"sync"

	"github.com/forest6511/hygienectl/pkg/crypto"
)

// Session holds the master key while the vault is unlocked.
// It is the only source of truth for the locked/unlocked state.
type Session struct {
	mu     sync.RWMutex
	key    []byte
	locked bool // whether mlock succeeded
}

// NewSession takes ownership of key and tries to keep it out of swap.
// A failed mlock is not an error.
func NewSession(key []byte) *Session {
	s := &Session{key: key}
	s.locked = lockMemory(key) == nil
	return s
}

// Key returns the master key, or ErrVaultLocked once the session is destroyed.
func (s *Session) Key() ([]byte, error) {
	if s == nil {
		return nil, ErrVaultLocked
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.key == nil {
		return nil, ErrVaultLocked
	}
	return s.key, nil
}

// Unlocked reports whether the session still holds a key.
func (s *Session) Unlocked() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// MemoryLocked reports whether the key pages were locked in RAM.
func (s *Session) MemoryLocked() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked && s.key != nil
}

// Destroy wipes the key. It is safe to call more than once.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return
	}
	crypto.SecureWipe(s.key)
	if s.locked {
		_ = unlockMemory(s.key)
	}
	s.key = nil
	s.locked = false
}
