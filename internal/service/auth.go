package service

import (
	"context"
	"errors"
	"strings"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/observability"
	"github.com/imranbb88/chalet-manager/internal/port"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthService validates credentials and delegates session issuance to the
// configured provider.
type AuthService struct {
	provider port.AuthProvider
	validate *validator.Validate
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(provider port.AuthProvider, metrics *observability.Metrics, logger *zap.Logger) *AuthService {
	return &AuthService{
		provider: provider,
		validate: validator.New(),
		metrics:  metrics,
		logger:   logger,
	}
}

// ============================================================
// SignIn — POST /login
// ============================================================

func (s *AuthService) SignIn(ctx context.Context, req *domain.Credentials) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	if err := s.check(req); err != nil {
		s.metrics.IncrAuth("signin", "invalid")
		return nil, err
	}

	sess, err := s.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		s.record("signin", req.Email, err)
		return nil, err
	}
	s.metrics.IncrAuth("signin", "success")
	s.logger.Info("user signed in", zap.String("user_id", sess.UserID))
	return sess, nil
}

// ============================================================
// SignUp — POST /signup
// ============================================================

func (s *AuthService) SignUp(ctx context.Context, req *domain.Credentials) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignUp")
	defer span.End()

	if err := s.check(req); err != nil {
		s.metrics.IncrAuth("signup", "invalid")
		return nil, err
	}

	sess, err := s.provider.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		s.record("signup", req.Email, err)
		return nil, err
	}
	s.metrics.IncrAuth("signup", "success")
	s.logger.Info("user signed up", zap.String("user_id", sess.UserID))
	return sess, nil
}

// ============================================================
// SignOut — POST /logout
// ============================================================

// SignOut revokes the session. Failures are logged and swallowed: the
// caller clears the cookie either way.
func (s *AuthService) SignOut(ctx context.Context, accessToken string) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignOut")
	defer span.End()

	if accessToken == "" {
		return
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		s.metrics.IncrAuth("signout", "error")
		s.logger.Warn("sign out failed", zap.Error(err))
		return
	}
	s.metrics.IncrAuth("signout", "success")
}

func (s *AuthService) check(req *domain.Credentials) error {
	if req == nil {
		return &domain.ErrValidation{Field: "body", Message: "required"}
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validate.Struct(req); err != nil {
		return validationError(err)
	}
	return nil
}

func (s *AuthService) record(action, email string, err error) {
	var (
		unauth   *domain.ErrUnauthorized
		conflict *domain.ErrConflict
	)
	switch {
	case errors.As(err, &unauth):
		s.metrics.IncrAuth(action, "rejected")
		s.logger.Warn(action+": rejected", zap.String("email", email))
	case errors.As(err, &conflict):
		s.metrics.IncrAuth(action, "conflict")
		s.logger.Warn(action+": already registered", zap.String("email", email))
	default:
		s.metrics.IncrAuth(action, "error")
		s.logger.Error(action+": provider failure", zap.Error(err))
	}
}
