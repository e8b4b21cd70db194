package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/smartpantry/smartpantry/internal/inference"
)

const recipePromptTemplate = `You are a professional chef. Summarize the recipe and only the recipe relevant for the following food:

food: %s

Provide a concise recipe with:
- A brief description of the dish
- Key ingredients
- Simplified cooking steps
- Total cooking time
- Number of servings.`

const recipeFallback = "The model did not generate a complete recipe. Please try again with a more specific request."

type MCPHandler struct {
	inference *inference.Client
	logger    *slog.Logger
}

func NewMCPHandler(client *inference.Client, logger *slog.Logger) *MCPHandler {
	return &MCPHandler{inference: client, logger: logger}
}

// Recipes wraps the user's food prompt in the fixed chef prompt, forwards it
// to the generation service, and returns the first result.
func (h *MCPHandler) Recipes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt is required"})
		return
	}

	results, err := h.inference.Generate(fmt.Sprintf(recipePromptTemplate, req.Prompt))
	if err != nil {
		h.writeUpstreamError(w, err, "model inference failed")
		return
	}

	reply := recipeFallback
	if len(results) > 0 {
		reply = results[0]
	}
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *MCPHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, h.inference.Analyze, "analysis failed")
}

func (h *MCPHandler) Embed(w http.ResponseWriter, r *http.Request) {
	h.passthrough(w, r, h.inference.Embed, "embedding failed")
}

func (h *MCPHandler) passthrough(w http.ResponseWriter, r *http.Request, call func(string) (json.RawMessage, error), failMsg string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	data, err := call(req.Text)
	if err != nil {
		h.writeUpstreamError(w, err, failMsg)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *MCPHandler) writeUpstreamError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, inference.ErrModelLoading) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Model is loading, please try again in a moment."})
		return
	}
	var upstream *inference.UpstreamError
	if errors.As(err, &upstream) {
		writeJSON(w, upstream.StatusCode, map[string]string{"error": upstream.Message})
		return
	}
	h.logger.Error("inference request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
}
