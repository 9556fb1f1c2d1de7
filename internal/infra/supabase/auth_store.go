package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/imranbb88/chalet-manager/internal/domain"
)

// ============================================================
// AuthProvider implementation — GoTrue
// ============================================================

type authResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	User         authUser `json:"user"`

	// Sign-up with email confirmation enabled returns the bare user.
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type authErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	return c.authenticate(ctx, "token?grant_type=password", email, password)
}

// SignUp registers a new user. When the project requires email
// confirmation the returned session has no access token.
func (c *Client) SignUp(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	return c.authenticate(ctx, "signup", email, password)
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	err := c.execute(ctx, func() error {
		_, err := c.doAuth(ctx, "logout", accessToken, nil)
		return err
	})
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Status == http.StatusUnauthorized {
			// Already expired or revoked.
			return nil
		}
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*domain.Session, error) {
	var sess *domain.Session
	err := c.execute(ctx, func() error {
		body, err := c.doAuth(ctx, path, "", map[string]string{"email": email, "password": password})
		if err != nil {
			return err
		}
		var resp authResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode auth response: %w", err)
		}
		sess = &domain.Session{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresIn:    resp.ExpiresIn,
			UserID:       resp.User.ID,
			Email:        resp.User.Email,
		}
		if sess.UserID == "" {
			sess.UserID = resp.ID
			sess.Email = resp.Email
		}
		return nil
	})
	if err != nil {
		return nil, authError(err)
	}
	return sess, nil
}

// authError maps GoTrue rejections to domain errors.
func authError(err error) error {
	var status *StatusError
	if !errors.As(err, &status) {
		return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
	}

	var body authErrorBody
	_ = json.Unmarshal([]byte(status.Body), &body)
	msg := body.Msg
	if msg == "" {
		msg = body.ErrorDescription
	}
	if msg == "" {
		msg = body.Error
	}

	switch {
	case body.ErrorCode == "user_already_exists" || strings.Contains(strings.ToLower(msg), "already registered"):
		return &domain.ErrConflict{Message: msg}
	case status.Status == http.StatusBadRequest || status.Status == http.StatusUnauthorized:
		if msg == "" {
			msg = "invalid login credentials"
		}
		return &domain.ErrUnauthorized{Message: msg}
	case status.Status == http.StatusUnprocessableEntity:
		return &domain.ErrValidation{Field: "credentials", Message: msg}
	}
	return &domain.ErrExternalService{Service: "supabase/auth", Err: err}
}
