package partition

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// JoinToken authorizes a node to join a partition's Raft configuration.
type JoinToken struct {
	Token     string
	Role      string // role name given by the requester, e.g. "worker" or "manager"
	CreatedAt time.Time
	ExpiresAt time.Time
}

// TokenManager issues and validates join tokens for a single partition.
// Tokens live only in memory. TokenManager does not check leadership
// itself; Node.RequestJoinToken mints only while this node leads the
// system partition. Tokens are not cleared on step-down: they stay until
// RevokeToken or CleanupExpired removes them, and ValidateToken rejects
// expired ones.
type TokenManager struct {
	mu     sync.RWMutex
	tokens map[string]*JoinToken
}

// NewTokenManager creates an empty token manager.
func NewTokenManager() *TokenManager {
	return &TokenManager{tokens: make(map[string]*JoinToken)}
}

// GenerateToken mints a new token for role, valid for duration.
func (tm *TokenManager) GenerateToken(role string, duration time.Duration) (*JoinToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	jt := &JoinToken{
		Token:     hex.EncodeToString(buf),
		Role:      role,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(duration),
	}

	tm.mu.Lock()
	tm.tokens[jt.Token] = jt
	tm.mu.Unlock()

	return jt, nil
}

// ValidateToken returns the role a token was issued for, or an error if
// it is unknown or expired.
func (tm *TokenManager) ValidateToken(token string) (string, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	jt, ok := tm.tokens[token]
	if !ok {
		return "", fmt.Errorf("invalid join token")
	}
	if time.Now().After(jt.ExpiresAt) {
		return "", fmt.Errorf("join token expired")
	}
	return jt.Role, nil
}

// RevokeToken forgets a token immediately.
func (tm *TokenManager) RevokeToken(token string) {
	tm.mu.Lock()
	delete(tm.tokens, token)
	tm.mu.Unlock()
}

// CleanupExpired removes expired tokens from memory.
func (tm *TokenManager) CleanupExpired() {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	now := time.Now()
	for token, jt := range tm.tokens {
		if now.After(jt.ExpiresAt) {
			delete(tm.tokens, token)
		}
	}
}
