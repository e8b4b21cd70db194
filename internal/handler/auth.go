package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/smartpantry/smartpantry/internal/auth"
	"github.com/smartpantry/smartpantry/internal/model"
	"github.com/smartpantry/smartpantry/internal/store"
)

type AuthHandler struct {
	userStore *store.UserStore
	tokens    *auth.TokenService
	google    auth.GoogleVerifier
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tokens *auth.TokenService, google auth.GoogleVerifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, tokens: tokens, google: google, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, status int, user *model.User) {
	token, err := h.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		h.logger.Error("issue token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue token"})
		return
	}
	writeJSON(w, status, authResponse{Token: token, User: user})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password required"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	hashStr := string(hash)
	user, err := h.userStore.Create(req.Email, req.Name, &hashStr, nil)
	if errors.Is(err, store.ErrDuplicateEmail) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already exists"})
		return
	}
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create account"})
		return
	}

	h.issueToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	user, err := h.userStore.GetByEmail(strings.TrimSpace(req.Email))
	if err != nil {
		h.logger.Error("get user by email", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
		return
	}
	// A federated-only account has no password hash and cannot log in this way.
	if user == nil || user.PasswordHash == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}

	h.issueToken(w, http.StatusOK, user)
}

// Google verifies an ID token issued by Google, then finds the account by
// subject or email (backfilling the subject on first federated sign-in) or
// creates a fresh one.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDToken string `json:"idToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.IDToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "idToken required"})
		return
	}

	identity, err := h.google.Verify(r.Context(), req.IDToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid Google token"})
		return
	}

	user, err := h.userStore.GetByGoogleSubOrEmail(identity.Subject, identity.Email)
	if err != nil {
		h.logger.Error("get user by google sub", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sign in"})
		return
	}

	if user == nil {
		user, err = h.userStore.Create(identity.Email, identity.Name, nil, &identity.Subject)
		if err != nil {
			h.logger.Error("create federated user", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sign in"})
			return
		}
	} else if user.GoogleSub == nil {
		if err := h.userStore.SetGoogleSub(user.ID, identity.Subject); err != nil {
			h.logger.Error("backfill google sub", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sign in"})
			return
		}
	}

	h.issueToken(w, http.StatusOK, user)
}

// Dashboard echoes the identity embedded in the bearer token.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	greeting := id.Name
	if greeting == "" {
		greeting = id.Email
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Welcome to your dashboard, %s!", greeting),
		"user":    id,
	})
}
