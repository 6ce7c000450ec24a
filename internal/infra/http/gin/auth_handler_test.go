package ginserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pgnest/internal/app/dto"
	authsvc "pgnest/internal/app/services/auth"
	"pgnest/internal/infra/config"
	"pgnest/internal/infra/obs"
	"pgnest/internal/infra/security"
	"pgnest/internal/infra/storage/memory"
)

func newAuthServer(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := &authsvc.Service{
		Users:      memory.NewUserRepository(),
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: time.Hour,
		Logger:     logger,
	}
	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Auth:           AuthHandler{Service: svc, Logger: logger},
		AuthMiddleware: AuthMiddleware{Service: svc, Logger: logger}.Handle,
	})
	return server.Handler
}

func TestRegisterLoginMeLogout(t *testing.T) {
	handler := newAuthServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email:    "ravi@example.com",
		Name:     "Ravi",
		Password: "sup3r-secret",
		IsOwner:  true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/auth/login", dto.LoginRequest{
		Email:    "ravi@example.com",
		Password: "sup3r-secret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var session dto.AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if session.Token == "" {
		t.Fatalf("login returned no token")
	}
	hasOwner := false
	for _, role := range session.User.Roles {
		if role == "owner" {
			hasOwner = true
		}
	}
	if !hasOwner {
		t.Fatalf("roles = %v, want owner", session.User.Roles)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", res.Code, res.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d", res.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout status = %d", res.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	handler := newAuthServer(t)

	rec := doJSON(t, handler, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email:    "asha@example.com",
		Name:     "Asha",
		Password: "sup3r-secret",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/auth/login", dto.LoginRequest{
		Email:    "asha@example.com",
		Password: "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/auth/register", dto.RegisterRequest{
		Email:    "asha@example.com",
		Name:     "Asha",
		Password: "sup3r-secret",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d", rec.Code)
	}
}
