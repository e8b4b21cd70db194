package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartpantry/smartpantry/internal/database"
	"github.com/smartpantry/smartpantry/internal/inference"
)

func setupServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, Config{
		JWTSecret:  "test-secret",
		CORSOrigin: "http://localhost:5173",
		Inference: inference.Config{
			GenerateURL: "http://localhost:1",
			AnalysisURL: "http://localhost:1",
		},
	}, logger)
	return srv, srv.Router()
}

func TestHealth(t *testing.T) {
	_, router := setupServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status field = %q", resp["status"])
	}
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	_, router := setupServer(t)

	req := httptest.NewRequest("GET", "/api/nonexistent", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
}

func TestDashboardRequiresBearer(t *testing.T) {
	srv, router := setupServer(t)

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	token, err := srv.tokens.Issue(1, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200; body %s", rec.Code, rec.Body)
	}
}

func TestPantryRoutesArePublic(t *testing.T) {
	_, router := setupServer(t)

	req := httptest.NewRequest("GET", "/api/pantry", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 without a token", rec.Code)
	}
}

func TestCORSHeadersPresent(t *testing.T) {
	_, router := setupServer(t)

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("allow origin = %q", got)
	}
}

func TestAuthRoutesRateLimited(t *testing.T) {
	_, router := setupServer(t)

	login := func(i int) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{
			"email":    fmt.Sprintf("user%d@example.com", i),
			"password": "hunter22",
		})
		req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader(body))
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 10; i++ {
		if rec := login(i); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rate-limited too early", i+1)
		}
	}
	if rec := login(10); rec.Code != http.StatusTooManyRequests {
		t.Errorf("11th request status = %d, want 429", rec.Code)
	}
}

func TestBackupRunWithoutConfig(t *testing.T) {
	srv, router := setupServer(t)

	token, err := srv.tokens.Issue(1, "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req := httptest.NewRequest("POST", "/api/backups", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when backups unconfigured", rec.Code)
	}
}
