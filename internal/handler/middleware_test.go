package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/imranbb88/chalet-manager/internal/domain"
	"github.com/imranbb88/chalet-manager/internal/infra/memory"
	"github.com/imranbb88/chalet-manager/internal/port"
)

var errNetwork = errors.New("network unreachable")

func TestRequireSession_RedirectsToLogin(t *testing.T) {
	h := newHarness(t, false)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/dashboard", http.StatusFound},
		{http.MethodGet, "/dashboard/export.xlsx", http.StatusFound},
		{http.MethodGet, "/income", http.StatusFound},
		{http.MethodGet, "/expenses", http.StatusFound},
		{http.MethodPost, "/income", http.StatusSeeOther},
		{http.MethodPost, "/expenses", http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := h.do(httptest.NewRequest(tt.method, tt.path, nil), "")
			if rec.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, rec.Code)
			}
			if rec.Header().Get("Location") != "/login" {
				t.Errorf("expected redirect to /login, got %q", rec.Header().Get("Location"))
			}
		})
	}
}

func TestRedirectIfSession(t *testing.T) {
	h := newHarness(t, false)
	tok := h.token(t)

	for _, path := range []string{"/login", "/signup"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, path, nil), tok)
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/dashboard" {
			t.Errorf("%s: expected 302 to /dashboard, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestRedirectIfSession_GuestPosts(t *testing.T) {
	h := newHarness(t, false)
	tok := h.token(t)

	for _, path := range []string{"/login", "/signup"} {
		form := url.Values{"email": {"owner@chalet.test"}, "password": {"chalet-pass"}}
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := h.do(req, tok)

		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
			t.Errorf("%s: expected 303 to /dashboard, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Errorf("%s: expected no new session cookie", path)
		}
	}
}

// tokenRecordingStore records the access token each income fetch carries.
type tokenRecordingStore struct {
	*memory.Store
	mu     sync.Mutex
	tokens []string
}

func (s *tokenRecordingStore) FetchIncome(ctx context.Context, r domain.DateRange) ([]domain.Income, error) {
	s.mu.Lock()
	s.tokens = append(s.tokens, domain.AccessTokenFromContext(ctx))
	s.mu.Unlock()
	return s.Store.FetchIncome(ctx, r)
}

func TestRequireSession_PassesAccessTokenToStore(t *testing.T) {
	recording := &tokenRecordingStore{}
	h := newHarnessWithStore(t, false, func(s *memory.Store) port.LedgerStore {
		recording.Store = s
		return recording
	})
	tok := h.token(t)

	for _, path := range []string{"/dashboard", "/income"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, path, nil), tok)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	recording.mu.Lock()
	defer recording.mu.Unlock()
	if len(recording.tokens) == 0 {
		t.Fatal("expected income fetches")
	}
	for _, got := range recording.tokens {
		if got != tok {
			t.Errorf("expected the session token on the store context, got %q", got)
		}
	}
}

func TestGuestPagesWithoutSession(t *testing.T) {
	h := newHarness(t, false)

	for _, path := range []string{"/login", "/signup"} {
		rec := h.do(httptest.NewRequest(http.MethodGet, path, nil), "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestInvalidCookieIsClearedAndTreatedAsAbsent(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/login", nil), "not-a-jwt")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login page, got %d", rec.Code)
	}
	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == cookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected invalid cookie to be cleared")
	}

	rec = h.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil), "not-a-jwt")
	if rec.Code != http.StatusFound || !strings.HasSuffix(rec.Header().Get("Location"), "/login") {
		t.Errorf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
