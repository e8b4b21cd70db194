package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/smartpantry/smartpantry/internal/model"
	"github.com/smartpantry/smartpantry/internal/store"
	ws "github.com/smartpantry/smartpantry/internal/websocket"
)

type ShoppingHandler struct {
	shoppingStore *store.ShoppingStore
	hub           *ws.Hub
	logger        *slog.Logger
}

func NewShoppingHandler(ss *store.ShoppingStore, hub *ws.Hub, logger *slog.Logger) *ShoppingHandler {
	return &ShoppingHandler{shoppingStore: ss, hub: hub, logger: logger}
}

func (h *ShoppingHandler) ListLists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.shoppingStore.ListAll()
	if err != nil {
		h.logger.Error("list shopping lists", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shopping lists"})
		return
	}
	if lists == nil {
		lists = []model.ShoppingList{}
	}
	writeJSON(w, http.StatusOK, lists)
}

func (h *ShoppingHandler) CreateList(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "list name is required"})
		return
	}

	list, err := h.shoppingStore.CreateList(req.Name)
	if err != nil {
		h.logger.Error("create shopping list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create list"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("shopping_list", "created", list.ID, nil))
	writeJSON(w, http.StatusCreated, list)
}

func (h *ShoppingHandler) DeleteList(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	deleted, err := h.shoppingStore.DeleteList(id)
	if err != nil {
		h.logger.Error("delete shopping list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete list"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "list not found"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("shopping_list", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

type shoppingItemRequest struct {
	Name     *string `json:"name"`
	Quantity *int64  `json:"quantity"`
	Checked  *bool   `json:"checked"`
}

func (h *ShoppingHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	listID, err := parseListIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list_id"})
		return
	}

	var req shoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	name := ""
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
	}
	if name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item name is required"})
		return
	}

	quantity := int64(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	if quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be greater than 0"})
		return
	}

	list, err := h.shoppingStore.GetList(listID)
	if err != nil {
		h.logger.Error("get shopping list", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get list"})
		return
	}
	if list == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "list not found"})
		return
	}

	item, err := h.shoppingStore.CreateItem(listID, name, quantity)
	if err != nil {
		h.logger.Error("create shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("shopping_item", "created", item.ID, map[string]any{"list_id": listID}))
	writeJSON(w, http.StatusCreated, item)
}

func (h *ShoppingHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	listID, itemID, err := parseItemParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req shoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	update := model.ShoppingItemUpdate{
		Quantity: req.Quantity,
		Checked:  req.Checked,
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "item name is required"})
			return
		}
		update.Name = &name
	}
	if req.Quantity != nil && *req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity must be greater than 0"})
		return
	}
	if update.Empty() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no fields to update"})
		return
	}

	item, err := h.shoppingStore.UpdateItem(listID, itemID, update)
	if err != nil {
		h.logger.Error("update shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update item"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("shopping_item", "updated", item.ID, map[string]any{"list_id": listID}))
	writeJSON(w, http.StatusOK, item)
}

func (h *ShoppingHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	listID, itemID, err := parseItemParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	deleted, err := h.shoppingStore.DeleteItem(listID, itemID)
	if err != nil {
		h.logger.Error("delete shopping item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete item"})
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "item not found"})
		return
	}

	h.hub.Broadcast(ws.NewMessage("shopping_item", "deleted", itemID, map[string]any{"list_id": listID}))
	w.WriteHeader(http.StatusNoContent)
}

func parseListIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("list_id"), 10, 64)
}

func parseItemParams(r *http.Request) (listID, itemID int64, err error) {
	listID, err = parseListIDParam(r)
	if err != nil {
		return 0, 0, err
	}
	itemID, err = strconv.ParseInt(r.PathValue("item_id"), 10, 64)
	return listID, itemID, err
}
