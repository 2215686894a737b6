package jwt

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
	ErrEmptyUserID  = errors.New("user id is required")
)

// SessionClaims are the claims carried by identity-provider session tokens.
// The viewer id is the subject.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// ChatClaims are the claims of a chat/video service user token.
type ChatClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// Config holds the secrets and lifetimes used by Manager.
type Config struct {
	SessionSecret string
	SessionIssuer string // empty disables the issuer check
	ChatSecret    string
	ChatTokenTTL  time.Duration // zero issues non-expiring chat tokens
	Leeway        time.Duration
}

// Manager verifies viewer sessions and issues chat tokens.
type Manager struct {
	sessionSecret []byte
	sessionIssuer string
	chatSecret    []byte
	chatTTL       time.Duration
	leeway        time.Duration
	now           func() time.Time

	// user id -> sessions issued at or before this instant are rejected
	revokedBefore map[string]time.Time
	mu            sync.RWMutex
}

// NewManager creates a new JWT manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.SessionSecret == "" || cfg.ChatSecret == "" {
		return nil, errors.New("jwt: session and chat secrets are required")
	}

	return &Manager{
		sessionSecret: []byte(cfg.SessionSecret),
		sessionIssuer: cfg.SessionIssuer,
		chatSecret:    []byte(cfg.ChatSecret),
		chatTTL:       cfg.ChatTokenTTL,
		leeway:        cfg.Leeway,
		now:           time.Now,
		revokedBefore: make(map[string]time.Time),
	}, nil
}

// IssueChatToken creates a token the chat/video SDK accepts for userID.
func (m *Manager) IssueChatToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := m.now()
	claims := &ChatClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: userID,
	}
	if m.chatTTL > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.chatTTL))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.chatSecret)
}

// IssueSession signs a session token for userID. Production sessions come
// from the identity provider; this exists for local development and tests.
func (m *Manager) IssueSession(userID, email string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := m.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.sessionIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.sessionSecret)
}

// VerifySession validates a session token and returns its claims.
func (m *Manager) VerifySession(tokenString string) (*SessionClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	}
	if m.sessionIssuer != "" {
		opts = append(opts, jwt.WithIssuer(m.sessionIssuer))
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.sessionSecret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	if m.isRevoked(claims) {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// RevokeUserSessions rejects every session of userID issued up to now.
func (m *Manager) RevokeUserSessions(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedBefore[userID] = m.now()
}

func (m *Manager) isRevoked(claims *SessionClaims) bool {
	m.mu.RLock()
	cutoff, ok := m.revokedBefore[claims.Subject]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	if claims.IssuedAt == nil {
		return true
	}
	return !claims.IssuedAt.Time.After(cutoff)
}

// UnverifiedSubject returns the subject of a session token without checking
// its signature. Clients use it to learn their own id; servers must call
// VerifySession.
func UnverifiedSubject(tokenString string) (string, error) {
	claims := &SessionClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
