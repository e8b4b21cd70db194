package inference

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrModelLoading signals the upstream's transient "model is loading" state.
// Callers surface it as service-unavailable; nothing here retries.
var ErrModelLoading = errors.New("model is loading")

// UpstreamError carries a non-2xx upstream response so handlers can forward
// the status code.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// Config holds the external inference endpoints.
type Config struct {
	GenerateURL string // text-generation space, expects POST /invoke
	AnalysisURL string // NLP space, expects POST /analyze and /embed
}

// Client forwards prompts and text to the external inference services.
type Client struct {
	cfg    Config
	client *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		cfg: cfg,
		// Generation can take a while on a cold space.
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type generateRequest struct {
	Prompt             string  `json:"prompt"`
	MaxNewTokens       int     `json:"max_new_tokens"`
	Temperature        float64 `json:"temperature"`
	TopP               float64 `json:"top_p"`
	NumReturnSequences int     `json:"num_return_sequences"`
}

type generateResponse struct {
	Results []string `json:"results"`
}

// Generate forwards the prompt with fixed decoding parameters and returns the
// generated sequences. An empty slice means the model produced nothing usable.
func (c *Client) Generate(prompt string) ([]string, error) {
	body, err := json.Marshal(generateRequest{
		Prompt:             prompt,
		MaxNewTokens:       800,
		Temperature:        0.8,
		TopP:               0.9,
		NumReturnSequences: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	resp, err := c.client.Post(c.cfg.GenerateURL+"/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("generate request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read generate response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := upstreamMessage(data)
		if resp.StatusCode == http.StatusServiceUnavailable && strings.Contains(msg, "loading") {
			return nil, ErrModelLoading
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	var parsed generateResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode generate response: %w", err)
	}
	return parsed.Results, nil
}

// Analyze forwards text to the analysis endpoint and returns the upstream
// JSON unchanged.
func (c *Client) Analyze(text string) (json.RawMessage, error) {
	return c.passthrough(c.cfg.AnalysisURL+"/analyze", text)
}

// Embed forwards text to the embedding endpoint and returns the upstream
// JSON unchanged.
func (c *Client) Embed(text string) (json.RawMessage, error) {
	return c.passthrough(c.cfg.AnalysisURL+"/embed", text)
}

func (c *Client) passthrough(url, text string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("inference request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: upstreamMessage(data)}
	}
	return json.RawMessage(data), nil
}

// upstreamMessage digs an error string out of an upstream body, which may be
// JSON carrying "detail" or "error", or plain text.
func upstreamMessage(data []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Detail != "" {
			return parsed.Detail
		}
		if parsed.Error != "" {
			return parsed.Error
		}
	}
	if len(data) > 0 {
		return string(data)
	}
	return "request failed"
}
