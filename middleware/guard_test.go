package middleware

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tokengate "github.com/ethrwln/tokengate"
	"github.com/redis/go-redis/v9"
)

func newMiddlewareEngine(t *testing.T, roles []string) (*tokengate.Engine, string) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	verifier := tokengate.CredentialVerifierFunc(func(_ context.Context, identifier, _ string) (tokengate.Verification, error) {
		return tokengate.Verification{
			Valid:     true,
			SubjectID: identifier,
			Status:    tokengate.AccountActive,
			Roles:     roles,
		}, nil
	})

	engine, err := tokengate.New().
		WithConfig(tokengate.Config{
			JWT: tokengate.JWTConfig{
				AccessTTL:     15 * time.Minute,
				RefreshTTL:    24 * time.Hour,
				SigningMethod: "ed25519",
				PrivateKey:    priv,
				PublicKey:     pub,
			},
			Verifier: tokengate.VerifierConfig{Timeout: 5 * time.Second},
		}).
		WithRedis(rdb).
		WithCredentialVerifier(verifier).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}

	t.Cleanup(func() {
		engine.Close()
		rdb.Close()
		mr.Close()
	})

	res, err := engine.Login(context.Background(), "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	return engine, res.AccessToken
}

func TestGuardAllowsValidBearerToken(t *testing.T) {
	engine, access := newMiddlewareEngine(t, []string{"member"})

	var gotSubject string
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok {
			t.Fatal("expected auth result in context")
		}
		gotSubject = res.SubjectID
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotSubject != "alice" {
		t.Fatalf("subject = %q, want alice", gotSubject)
	}
}

func TestGuardRejectsMissingOrBadToken(t *testing.T) {
	engine, _ := newMiddlewareEngine(t, []string{"member"})

	handler := Guard(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Bearer ", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestGuardRejectsRevokedToken(t *testing.T) {
	engine, access := newMiddlewareEngine(t, []string{"member"})

	if err := engine.Logout(context.Background(), access); err != nil {
		t.Fatalf("logout: %v", err)
	}

	handler := Guard(engine)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine, access := newMiddlewareEngine(t, []string{"member"})

	allowed := RequireRole(engine, "member")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	denied := RequireRole(engine, "admin")(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without the role")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+access)

	rec := httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("member route status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	denied.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("admin route status = %d, want 403", rec.Code)
	}
}
