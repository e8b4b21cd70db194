package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smartpantry/smartpantry/internal/auth"
	"github.com/smartpantry/smartpantry/internal/store"
)

// fakeGoogleVerifier returns a fixed identity or error without calling Google.
type fakeGoogleVerifier struct {
	identity *auth.GoogleIdentity
	err      error
}

func (f *fakeGoogleVerifier) Verify(ctx context.Context, token string) (*auth.GoogleIdentity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

func setupAuthHandler(t *testing.T, google auth.GoogleVerifier) (*store.UserStore, *auth.TokenService, http.Handler) {
	t.Helper()
	db := openTestDB(t)
	us := store.NewUserStore(db)
	tokens := auth.NewTokenService("test-secret")
	h := NewAuthHandler(us, tokens, google, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/google", h.Google)
	mux.HandleFunc("GET /api/dashboard", h.Dashboard)
	return us, tokens, mux
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) authResponse {
	t.Helper()
	var resp authResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	return resp
}

func TestSignup(t *testing.T) {
	_, tokens, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	rec := doJSON(t, mux, "POST", "/api/auth/signup", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter22",
		"name":     "Alice",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	resp := decodeAuthResponse(t, rec)
	if resp.Token == "" {
		t.Fatal("expected token in response")
	}
	claims, err := tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("claims email = %q", claims.Email)
	}
	if resp.User == nil || resp.User.Name != "Alice" {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestSignupMissingFields(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	rec := doJSON(t, mux, "POST", "/api/auth/signup", map[string]any{"email": "a@example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, mux, "POST", "/api/auth/signup", map[string]any{"password": "hunter22"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing email status = %d, want 400", rec.Code)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	body := map[string]any{"email": "alice@example.com", "password": "hunter22"}
	rec := doJSON(t, mux, "POST", "/api/auth/signup", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first signup status = %d", rec.Code)
	}

	rec = doJSON(t, mux, "POST", "/api/auth/signup", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate signup status = %d, want 409", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	rec := doJSON(t, mux, "POST", "/api/auth/signup", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup status = %d", rec.Code)
	}

	rec = doJSON(t, mux, "POST", "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeAuthResponse(t, rec)
	if resp.Token == "" {
		t.Error("expected token")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	doJSON(t, mux, "POST", "/api/auth/signup", map[string]any{
		"email":    "alice@example.com",
		"password": "hunter22",
	})

	rec := doJSON(t, mux, "POST", "/api/auth/login", map[string]any{
		"email":    "alice@example.com",
		"password": "wrong",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	rec := doJSON(t, mux, "POST", "/api/auth/login", map[string]any{
		"email":    "nobody@example.com",
		"password": "hunter22",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginFederatedOnlyAccount(t *testing.T) {
	us, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	sub := "google-sub-1"
	if _, err := us.Create("fed@example.com", "Fed", nil, &sub); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doJSON(t, mux, "POST", "/api/auth/login", map[string]any{
		"email":    "fed@example.com",
		"password": "anything",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for passwordless account", rec.Code)
	}
}

func TestGoogleSignInCreatesUser(t *testing.T) {
	verifier := &fakeGoogleVerifier{identity: &auth.GoogleIdentity{
		Subject: "sub-123",
		Email:   "new@example.com",
		Name:    "New User",
	}}
	us, _, mux := setupAuthHandler(t, verifier)

	rec := doJSON(t, mux, "POST", "/api/auth/google", map[string]any{"idToken": "fake-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decodeAuthResponse(t, rec)
	if resp.Token == "" {
		t.Error("expected token")
	}

	user, err := us.GetByEmail("new@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user == nil {
		t.Fatal("expected user created")
	}
	if user.GoogleSub == nil || *user.GoogleSub != "sub-123" {
		t.Error("expected google sub stored")
	}
	if user.PasswordHash != nil {
		t.Error("federated account should have no password hash")
	}
}

func TestGoogleSignInBackfillsSub(t *testing.T) {
	verifier := &fakeGoogleVerifier{identity: &auth.GoogleIdentity{
		Subject: "sub-456",
		Email:   "alice@example.com",
		Name:    "Alice",
	}}
	us, _, mux := setupAuthHandler(t, verifier)

	// Existing email/password account, no sub yet.
	hash := "notarealhash"
	existing, err := us.Create("alice@example.com", "Alice", &hash, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doJSON(t, mux, "POST", "/api/auth/google", map[string]any{"idToken": "fake-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	user, err := us.GetByID(existing.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.GoogleSub == nil || *user.GoogleSub != "sub-456" {
		t.Error("expected sub backfilled onto existing account")
	}

	users, err := us.GetByGoogleSubOrEmail("sub-456", "alice@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if users == nil || users.ID != existing.ID {
		t.Error("expected same account, not a duplicate")
	}
}

func TestGoogleSignInInvalidToken(t *testing.T) {
	verifier := &fakeGoogleVerifier{err: errors.New("bad token")}
	_, _, mux := setupAuthHandler(t, verifier)

	rec := doJSON(t, mux, "POST", "/api/auth/google", map[string]any{"idToken": "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGoogleSignInMissingToken(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	rec := doJSON(t, mux, "POST", "/api/auth/google", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDashboard(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	id := auth.Identity{UserID: 9, Email: "alice@example.com", Name: "Alice"}
	req = req.WithContext(auth.WithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Message string        `json:"message"`
		User    auth.Identity `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Message != "Welcome to your dashboard, Alice!" {
		t.Errorf("message = %q", resp.Message)
	}
	if resp.User != id {
		t.Errorf("user = %+v", resp.User)
	}
}

func TestDashboardNoIdentity(t *testing.T) {
	_, _, mux := setupAuthHandler(t, &fakeGoogleVerifier{})

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
