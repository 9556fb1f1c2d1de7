// Package session signs and verifies HS256 session tokens.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the claims carried by a session token.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs session tokens and remembers revoked ones until they expire.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // jti -> expiry
}

// NewIssuer creates an issuer. now may be nil.
func NewIssuer(secret string, ttl time.Duration, now func() time.Time) *Issuer {
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		secret:  []byte(secret),
		ttl:     ttl,
		now:     now,
		revoked: make(map[string]time.Time),
	}
}

// TTL returns the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Sign issues a session token for the user.
func (i *Issuer) Sign(userID, email string) (string, error) {
	now := i.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			Issuer:    "chalet-manager",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Verify parses and checks a session token.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &domain.ErrUnauthorized{Message: "session expired"}
		}
		return nil, &domain.ErrUnauthorized{Message: "invalid session"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid session"}
	}
	if i.isRevoked(claims.ID) {
		return nil, &domain.ErrUnauthorized{Message: "session revoked"}
	}
	return claims, nil
}

// Revoke invalidates a token before it expires. Unparseable tokens are ignored.
func (i *Issuer) Revoke(tokenString string) {
	claims, err := i.Verify(tokenString)
	if err != nil || claims.ID == "" {
		return
	}
	expiry := i.now().Add(i.ttl)
	if claims.ExpiresAt != nil {
		expiry = claims.ExpiresAt.Time
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.revoked[claims.ID] = expiry
	now := i.now()
	for id, exp := range i.revoked {
		if exp.Before(now) {
			delete(i.revoked, id)
		}
	}
}

func (i *Issuer) isRevoked(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.revoked[id]
	return ok
}
