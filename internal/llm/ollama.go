package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	"TickerSage/internal/model"
)

// Completer produces a chat completion for an assembled message sequence.
type Completer interface {
	Chat(ctx context.Context, msgs []model.ChatMessage, s model.Sampling) (string, error)
}

// Client talks to a locally hosted Ollama-compatible chat endpoint.
type Client struct {
	BaseURL string
	Model   string
	HTTP    *http.Client
}

// NewClient creates a chat client with optional proxy support.
func NewClient(baseURL, modelName, proxyURL string) *Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &Client{
		BaseURL: baseURL,
		Model:   modelName,
		HTTP: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
	}
}

type chatRequest struct {
	Model    string              `json:"model"`
	Messages []model.ChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  chatOptions         `json:"options"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatResponse struct {
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

// Chat sends the message sequence and returns the generated text.
func (c *Client) Chat(ctx context.Context, msgs []model.ChatMessage, s model.Sampling) (string, error) {
	payload := chatRequest{
		Model:    c.Model,
		Messages: msgs,
		Stream:   false,
		Options: chatOptions{
			Temperature: s.Temperature,
			NumPredict:  s.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("chat api error: %s", result.Error)
	}
	return result.Message.Content, nil
}

// IsConnectionError reports whether err looks like the model host being
// unreachable, as opposed to a bad request or a slow generation.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
