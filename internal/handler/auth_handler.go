package handler

import (
	"net/http"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Auth — login, signup, logout
// ============================================================

func signInHandler(authSvc *service.AuthService, sessions *sessionGuard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /login")
		defer span.End()

		req, err := decodeCredentials(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := authSvc.SignIn(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		sessions.set(w, sess)
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, sessionResponse(sess, "/dashboard"))
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func signUpHandler(authSvc *service.AuthService, sessions *sessionGuard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /signup")
		defer span.End()

		req, err := decodeCredentials(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		sess, err := authSvc.SignUp(ctx, req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		// Email confirmation pending: no session yet.
		if sess.AccessToken == "" {
			if wantsJSON(r) {
				writeJSON(w, http.StatusAccepted, domain.SuccessResponse{Message: "check your email to confirm your account"})
				return
			}
			http.Redirect(w, r, "/login?confirm=1", http.StatusSeeOther)
			return
		}

		sessions.set(w, sess)
		if wantsJSON(r) {
			writeJSON(w, http.StatusCreated, sessionResponse(sess, "/dashboard"))
			return
		}
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	}
}

func signOutHandler(authSvc *service.AuthService, dash *service.DashboardService, sessions *sessionGuard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /logout")
		defer span.End()

		if c, err := r.Cookie(sessions.cookieName); err == nil && c.Value != "" {
			authSvc.SignOut(ctx, c.Value)
			dash.Forget(keyOf(c.Value))
		}
		sessions.clear(w)

		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "signed out"})
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}

type signedInResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	ExpiresIn int    `json:"expires_in"`
	Redirect  string `json:"redirect"`
}

// sessionResponse omits the tokens: they only travel in the HttpOnly cookie.
func sessionResponse(s *domain.Session, to string) signedInResponse {
	return signedInResponse{UserID: s.UserID, Email: s.Email, ExpiresIn: s.ExpiresIn, Redirect: to}
}
