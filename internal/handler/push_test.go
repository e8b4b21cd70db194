package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/smartpantry/smartpantry/internal/model"
	"github.com/smartpantry/smartpantry/internal/push"
	"github.com/smartpantry/smartpantry/internal/store"
)

func setupPushHandler(t *testing.T) (*store.PushStore, http.Handler) {
	t.Helper()
	db := openTestDB(t)
	ps := store.NewPushStore(db)
	svc := push.NewService("test-public-key", "test-private-key")
	h := NewPushHandler(ps, svc, testLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/push/subscribe", h.Subscribe)
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", h.Unsubscribe)
	mux.HandleFunc("GET /api/push/vapid-key", h.VAPIDKey)
	return ps, mux
}

func TestPushSubscribe(t *testing.T) {
	_, mux := setupPushHandler(t)

	rec := doJSON(t, mux, "POST", "/api/push/subscribe", map[string]any{
		"endpoint": "https://push.example.com/ep1",
		"keys":     map[string]string{"p256dh": "pk", "auth": "ak"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var sub model.PushSubscription
	if err := json.NewDecoder(rec.Body).Decode(&sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.Endpoint != "https://push.example.com/ep1" {
		t.Errorf("endpoint = %q", sub.Endpoint)
	}
}

func TestPushSubscribeMissingKeys(t *testing.T) {
	_, mux := setupPushHandler(t)

	rec := doJSON(t, mux, "POST", "/api/push/subscribe", map[string]any{
		"endpoint": "https://push.example.com/ep1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestPushUnsubscribe(t *testing.T) {
	ps, mux := setupPushHandler(t)

	sub, err := ps.CreateSubscription("https://push.example.com/ep1", "pk", "ak")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := doJSON(t, mux, "DELETE", fmt.Sprintf("/api/push/subscriptions/%d", sub.ID), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}

	rec = doJSON(t, mux, "DELETE", fmt.Sprintf("/api/push/subscriptions/%d", sub.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("second unsubscribe status = %d, want 404", rec.Code)
	}
}

func TestPushVAPIDKey(t *testing.T) {
	_, mux := setupPushHandler(t)

	rec := doJSON(t, mux, "GET", "/api/push/vapid-key", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["key"] != "test-public-key" {
		t.Errorf("key = %q", resp["key"])
	}
}
