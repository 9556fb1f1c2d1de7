package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/session"

	"go.uber.org/zap"
)

// DefaultCookieName is the session cookie name used by Supabase auth helpers.
const DefaultCookieName = "sb-access-token"

// SessionVerifier checks a session token.
type SessionVerifier interface {
	Verify(token string) (*session.Claims, error)
}

type contextKey string

const sessionKey contextKey = "session"

type sessionInfo struct {
	token string
	key   string
}

// SessionKeyFromContext returns the opaque per-session key of an
// authenticated request.
func SessionKeyFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionKey).(sessionInfo)
	return v.key
}

// sessionGuard implements the route guards on top of the session cookie.
type sessionGuard struct {
	cookieName string
	secure     bool
	verifier   SessionVerifier
	logger     *zap.Logger
}

func newSessionGuard(opts Options, logger *zap.Logger) *sessionGuard {
	return &sessionGuard{
		cookieName: opts.CookieName,
		secure:     opts.SecureCookies,
		verifier:   opts.Verifier,
		logger:     logger,
	}
}

// current returns the session token of r, or "" when there is none. A
// cookie that fails verification is cleared.
func (g *sessionGuard) current(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(g.cookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	if g.verifier != nil {
		if _, err := g.verifier.Verify(c.Value); err != nil {
			g.logger.Warn("session: invalid cookie",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			g.clear(w)
			return ""
		}
	}
	return c.Value
}

// RequireSession sends requests without a session to the login page. The
// session token travels on the request context for the data backend.
func (g *sessionGuard) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := g.current(w, r)
		if token == "" {
			redirect(w, r, "/login")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sessionInfo{token: token, key: keyOf(token)})
		ctx = domain.WithAccessToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RedirectIfSession sends signed-in users away from the guest pages.
func (g *sessionGuard) RedirectIfSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.current(w, r) != "" {
			redirect(w, r, "/dashboard")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (g *sessionGuard) set(w http.ResponseWriter, s *domain.Session) {
	c := &http.Cookie{
		Name:     g.cookieName,
		Value:    s.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.ExpiresIn > 0 {
		c.MaxAge = s.ExpiresIn
		c.Expires = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	http.SetCookie(w, c)
}

func (g *sessionGuard) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     g.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

// redirect uses 302 for GET and 303 otherwise, so a POST is never replayed.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	status := http.StatusSeeOther
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		status = http.StatusFound
	}
	http.Redirect(w, r, to, status)
}

// keyOf derives the view-state key from the session token so raw tokens
// never sit in the cache.
func keyOf(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}
