// Package session holds the current access/refresh tokens and user identity
// with durable, encrypted persistence.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/rumoro-app/rumoro-go/internal/crypto/statecrypto"
	"github.com/rumoro-app/rumoro-go/internal/model"
)

const (
	stateName     = "session"
	stateFile     = "session.bin"
	deviceKeyFile = "device.key"
)

// Store is the process-wide session holder. All mutations persist the sealed
// state before returning, so a crash cannot lose a freshly rotated token.
type Store struct {
	mu  sync.Mutex
	cur model.Session

	dir string // empty = memory only
	key []byte // derived state key
	log *zap.Logger
}

// NewMemory returns a Store without durable persistence (tests, ephemeral use).
func NewMemory() *Store {
	return &Store{log: zap.NewNop()}
}

// Open loads (or initializes) the session state under dir. A missing state
// file means logged out; an unreadable one is discarded with a warning rather
// than blocking startup.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session dir: %w", err)
	}
	dk, err := loadOrCreateDeviceKey(filepath.Join(dir, deviceKeyFile))
	if err != nil {
		return nil, err
	}
	key, err := statecrypto.DeriveStateKey(dk, stateName)
	if err != nil {
		return nil, err
	}

	s := &Store{dir: dir, key: key, log: log}
	blob, err := os.ReadFile(filepath.Join(dir, stateFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, err
	}
	pt, err := statecrypto.Open(key, stateName, blob)
	if err != nil {
		log.Warn("discarding unreadable session state", zap.Error(err))
		return s, nil
	}
	if err := json.Unmarshal(pt, &s.cur); err != nil {
		log.Warn("discarding malformed session state", zap.Error(err))
		s.cur = model.Session{}
	}
	return s, nil
}

func loadOrCreateDeviceKey(path string) ([]byte, error) {
	if b, err := os.ReadFile(path); err == nil && len(b) == statecrypto.KeyLen {
		return b, nil
	}
	dk, err := statecrypto.Rand(statecrypto.KeyLen)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, dk, 0o600); err != nil {
		return nil, fmt.Errorf("device key: %w", err)
	}
	return dk, nil
}

// AccessToken returns the current access token, "" when logged out.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur.AccessToken
}

// Session returns a snapshot of the current session.
func (s *Store) Session() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

// SetTokens atomically replaces both tokens and persists before returning.
// Both tokens are issued together; setting one without the other is a bug.
func (s *Store) SetTokens(access, refresh string) error {
	if access == "" || refresh == "" {
		return errors.New("session: both tokens required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur.AccessToken, s.cur.RefreshToken = access, refresh
	if err := s.persistLocked(); err != nil {
		s.cur = prev
		return err
	}
	return nil
}

// SetIdentity records the authenticated user id and persists.
func (s *Store) SetIdentity(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur.UserID = userID
	if err := s.persistLocked(); err != nil {
		s.cur = prev
		return err
	}
	return nil
}

// Clear wipes tokens and identity and persists the cleared state.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.cur
	s.cur = model.Session{}
	if err := s.persistLocked(); err != nil {
		s.cur = prev
		return err
	}
	return nil
}

// ExpiresAt decodes the access token's exp claim without signature validation
// (the client holds no signing key). ok=false when logged out or no claim.
func (s *Store) ExpiresAt() (time.Time, bool) {
	tok := s.AccessToken()
	if tok == "" {
		return time.Time{}, false
	}
	var claims jwt.RegisteredClaims
	_, _ = jwt.ParseWithClaims(tok, &claims, func(*jwt.Token) (any, error) { return nil, nil },
		jwt.WithoutClaimsValidation(),
	)
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// persistLocked seals and writes the state atomically (temp file + rename).
func (s *Store) persistLocked() error {
	if s.dir == "" {
		return nil
	}
	pt, err := json.Marshal(s.cur)
	if err != nil {
		return err
	}
	blob, err := statecrypto.Seal(s.key, stateName, pt)
	if err != nil {
		return err
	}
	dst := filepath.Join(s.dir, stateFile)
	tmp, err := os.CreateTemp(s.dir, stateFile+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
