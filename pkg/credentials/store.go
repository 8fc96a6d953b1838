// Package credentials provides a self-contained CredentialVerifier backed
// by bcrypt hashes. Production deployments replace it with an adapter over
// their user directory; the engine only sees the protocol interface.
package credentials

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-id/gatehouse/pkg/protocol"
)

type user struct {
	id           string
	passwordHash []byte
}

// Store keeps realm-scoped users and SSO cookies in memory.
type Store struct {
	mu      sync.RWMutex
	users   map[string]user   // realm + "/" + username
	cookies map[string]string // realm + "/" + sha256(token) -> user id
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]user),
		cookies: make(map[string]string),
	}
}

// AddUser registers a user with a bcrypt-hashed password.
func (s *Store) AddUser(realmID, username, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.users[realmID+"/"+username] = user{id: userID, passwordHash: hash}

	return nil
}

// AddCookie binds an SSO cookie token to a user within a realm.
func (s *Store) AddCookie(realmID, token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cookies[cookieKey(realmID, token)] = userID
}

func (s *Store) VerifyPassword(ctx context.Context, realmID, username, password string) (string, error) {
	s.mu.RLock()
	u, ok := s.users[realmID+"/"+username]
	s.mu.RUnlock()

	if !ok {
		// Burn comparable time for unknown users.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))

		return "", protocol.ErrInvalidCredentials
	}

	err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password))
	if err != nil {
		return "", protocol.ErrInvalidCredentials
	}

	return u.id, nil
}

func (s *Store) VerifyCookie(ctx context.Context, realmID, token string) (string, error) {
	s.mu.RLock()
	userID, ok := s.cookies[cookieKey(realmID, token)]
	s.mu.RUnlock()

	if !ok {
		return "", protocol.ErrInvalidCredentials
	}

	return userID, nil
}

var dummyHash = func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("gatehouse-dummy"), bcrypt.DefaultCost)

	return h
}()

func cookieKey(realmID, token string) string {
	sum := sha256.Sum256([]byte(token))

	return realmID + "/" + hex.EncodeToString(sum[:])
}
