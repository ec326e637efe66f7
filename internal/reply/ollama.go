package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	generatePath   = "/api/generate"
	requestTimeout = 30 * time.Second
)

// OllamaClient is a client for a local Ollama server.
type OllamaClient struct {
	host       string
	model      string
	httpClient *http.Client
}

// OllamaConfig holds configuration for the Ollama client.
type OllamaConfig struct {
	Host  string // e.g. http://localhost:11434
	Model string // e.g. gemma3:1b
}

// NewOllamaClient creates a new Ollama API client.
func NewOllamaClient(config OllamaConfig) *OllamaClient {
	host := config.Host
	if host == "" {
		host = "http://localhost:11434"
	}

	return &OllamaClient{
		host:  host,
		model: config.Model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// Options are the sampling options sent with a generate request.
type Options struct {
	Temperature float64  `json:"temperature"`
	TopK        int      `json:"top_k"`
	TopP        float64  `json:"top_p"`
	Stop        []string `json:"stop,omitempty"`
}

// generateRequest is the request body for /api/generate.
type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

// generateResponse is the non-streaming response from /api/generate.
type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// Generate sends a completion request to Ollama. Connection, HTTP and
// decoding failures surface as errors so callers can distinguish them from
// a valid empty completion.
func (c *OllamaClient) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	req := generateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: opts,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.host+generatePath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if genResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", genResp.Error)
	}

	return genResp.Response, nil
}
