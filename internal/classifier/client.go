// Package classifier wraps the Ollama-compatible chat API used for spam
// classification. The model is a black box: this package only builds the
// prompt, parses the yes/no label, and manages the model catalog.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Message is a single chat message in the model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the subset of the chat API response the service consumes.
type ChatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at,omitempty"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
}

// ModelInfo describes one model available on the inference host.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

// Client talks to an Ollama-compatible inference host. The active model can
// be switched at runtime through the admin API.
type Client struct {
	host  string
	http  *http.Client
	mu    sync.RWMutex
	model string
}

// NewClient creates a client for the given host (e.g. http://127.0.0.1:11434)
// with the named model active.
func NewClient(host, model string) *Client {
	return &Client{
		host:  strings.TrimRight(host, "/"),
		model: model,
		http:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the name of the active model.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel switches the active model. The model must already be present on
// the inference host.
func (c *Client) SetModel(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("model name must be non-empty")
	}
	models, err := c.ListModels(ctx)
	if err != nil {
		return "", err
	}
	found := false
	for _, m := range models {
		if m.Model == name || m.Name == name {
			found = true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("model %q is not available on the inference host", name)
	}
	c.mu.Lock()
	c.model = name
	c.mu.Unlock()
	return name, nil
}

// Chat sends the message list to the active model and returns its reply.
// think enables the model's reasoning mode where supported.
func (c *Client) Chat(ctx context.Context, messages []Message, think bool) (*ChatResponse, error) {
	body := map[string]interface{}{
		"model":    c.Model(),
		"messages": messages,
		"stream":   false,
	}
	if think {
		body["think"] = true
	}

	var resp ChatResponse
	if err := c.post(ctx, "/api/chat", body, &resp); err != nil {
		return nil, err
	}
	resp.Message.Content = stripThinking(resp.Message.Content)
	return &resp, nil
}

// ListModels returns the models present on the inference host.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.host+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: unexpected status %d", res.StatusCode)
	}

	var out struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}
	return out.Models, nil
}

// PullModel downloads a model onto the inference host.
func (c *Client) PullModel(ctx context.Context, name string) error {
	return c.post(ctx, "/api/pull", map[string]interface{}{"model": name, "stream": false}, nil)
}

// DeleteModel removes a model from the inference host.
func (c *Client) DeleteModel(ctx context.Context, name string) error {
	body, err := json.Marshal(map[string]string{"model": name})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.host+"/api/delete", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body) //nolint:errcheck
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("delete model: unexpected status %d", res.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference host: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("inference host: unexpected status %d on %s", res.StatusCode, path)
	}
	if out == nil {
		io.Copy(io.Discard, res.Body) //nolint:errcheck
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// stripThinking removes a leading <think>...</think> block some reasoning
// models emit before the answer.
func stripThinking(content string) string {
	start := strings.Index(content, "<think>")
	end := strings.Index(content, "</think>")
	if start == -1 || end == -1 || end < start {
		return strings.TrimSpace(content)
	}
	return strings.TrimSpace(content[end+len("</think>"):])
}
