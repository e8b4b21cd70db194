package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/smartpantry/smartpantry/internal/model"
	"github.com/smartpantry/smartpantry/internal/store"
	ws "github.com/smartpantry/smartpantry/internal/websocket"
)

const dateLayout = "2006-01-02"

type PantryHandler struct {
	pantryStore *store.PantryStore
	hub         *ws.Hub
	logger      *slog.Logger
}

func NewPantryHandler(ps *store.PantryStore, hub *ws.Hub, logger *slog.Logger) *PantryHandler {
	return &PantryHandler{pantryStore: ps, hub: hub, logger: logger}
}

type pantryItemRequest struct {
	Name       *string  `json:"name"`
	Quantity   *float64 `json:"quantity"`
	Unit       *string  `json:"unit"`
	ExpiryDate *string  `json:"expiry_date"`
	Notes      *string  `json:"notes"`
}

// validExpiryDate checks the YYYY-MM-DD format and rejects days before today.
// Comparison is at day granularity; today is always acceptable.
func validExpiryDate(value string) (string, bool) {
	d, err := time.ParseInLocation(dateLayout, value, time.Local)
	if err != nil {
		return "expiry date must be YYYY-MM-DD", false
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if d.Before(today) {
		return "expiry date cannot be in the past", false
	}
	return "", true
}

func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.pantryStore.List()
	if err != nil {
		h.logger.Error("list pantry items", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list items"})
		return
	}
	if items == nil {
		items = []model.PantryItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *PantryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	item, err := h.pantryStore.GetByID(id)
	if err != nil {
		h.logger.Error("get pantry item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get item"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *PantryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req pantryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	quantity := 1.0
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be greater than 0"})
		return
	}

	if req.ExpiryDate != nil && *req.ExpiryDate != "" {
		if msg, ok := validExpiryDate(*req.ExpiryDate); !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
	}

	unit, notes := "", ""
	if req.Unit != nil {
		unit = *req.Unit
	}
	if req.Notes != nil {
		notes = *req.Notes
	}

	item, err := h.pantryStore.Create(name, quantity, unit, req.ExpiryDate, notes)
	if err != nil {
		h.logger.Error("create pantry item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("pantry_item", "created", item.ID, nil))
	writeJSON(w, http.StatusCreated, item)
}

func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req pantryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	update := model.PantryItemUpdate{
		Quantity:   req.Quantity,
		Unit:       req.Unit,
		ExpiryDate: req.ExpiryDate,
		Notes:      req.Notes,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
			return
		}
		update.Name = &name
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be greater than 0"})
		return
	}
	if req.ExpiryDate != nil && *req.ExpiryDate != "" {
		if msg, ok := validExpiryDate(*req.ExpiryDate); !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
			return
		}
	}
	if update.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fields to update"})
		return
	}

	item, err := h.pantryStore.Update(id, update)
	if err != nil {
		h.logger.Error("update pantry item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update item"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("pantry_item", "updated", item.ID, nil))
	writeJSON(w, http.StatusOK, item)
}

func (h *PantryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	deleted, err := h.pantryStore.Delete(id)
	if err != nil {
		h.logger.Error("delete pantry item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete item"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("pantry_item", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func parseIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
