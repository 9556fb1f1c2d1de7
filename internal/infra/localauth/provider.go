// Package localauth is a self-hosted AuthProvider for running without the
// managed auth module: one operator account from configuration plus
// accounts created through sign-up, kept in memory.
package localauth

import (
	"context"
	"strings"
	"sync"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/session"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const operatorID = "operator"

type account struct {
	id           string
	email        string
	passwordHash []byte
}

// Provider authenticates against bcrypt password hashes and issues
// session tokens with an Issuer.
type Provider struct {
	issuer *session.Issuer
	cost   int

	mu       sync.RWMutex
	accounts map[string]account // lower-cased email -> account
}

// NewProvider creates a provider. When operatorEmail is set,
// operatorHash must be its bcrypt password hash.
func NewProvider(issuer *session.Issuer, operatorEmail, operatorHash string, cost int) *Provider {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	p := &Provider{
		issuer:   issuer,
		cost:     cost,
		accounts: make(map[string]account),
	}
	if operatorEmail != "" && operatorHash != "" {
		key := normalizeEmail(operatorEmail)
		p.accounts[key] = account{id: operatorID, email: key, passwordHash: []byte(operatorHash)}
	}
	return p
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	p.mu.RLock()
	acc, ok := p.accounts[normalizeEmail(email)]
	p.mu.RUnlock()
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "invalid login credentials"}
	}
	if err := bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)); err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid login credentials"}
	}
	return p.issue(acc)
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	key := normalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	if _, exists := p.accounts[key]; exists {
		p.mu.Unlock()
		return nil, &domain.ErrConflict{Message: "user already registered"}
	}
	acc := account{id: uuid.NewString(), email: key, passwordHash: hash}
	p.accounts[key] = acc
	p.mu.Unlock()

	return p.issue(acc)
}

func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	p.issuer.Revoke(accessToken)
	return nil
}

func (p *Provider) issue(acc account) (*domain.Session, error) {
	token, err := p.issuer.Sign(acc.id, acc.email)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		AccessToken: token,
		ExpiresIn:   int(p.issuer.TTL().Seconds()),
		UserID:      acc.id,
		Email:       acc.email,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
