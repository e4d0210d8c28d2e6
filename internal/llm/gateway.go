package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayClient talks to a shared model gateway that fronts whatever provider
// the deployment uses. The gateway exposes a single generate endpoint with a
// flat request contract, so callers never carry provider credentials.
type GatewayClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewGatewayClient creates a gateway client. baseURL is the gateway root;
// apiKey is optional and sent as X-API-Key when set.
func NewGatewayClient(baseURL, apiKey, model string, timeout time.Duration) (*GatewayClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("gateway url not set")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GatewayClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type gatewayRequest struct {
	Model       string  `json:"model,omitempty"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type gatewayResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Generate implements Client.
func (c *GatewayClient) Generate(ctx context.Context, req Request) (string, error) {
	body := gatewayRequest{
		Model:       c.model,
		System:      req.System,
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: float64(req.Temperature),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/generate", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &Error{Kind: KindBackend, Msg: "unparseable response", Err: err}
	}
	if parsed.Error != "" {
		return "", &Error{Kind: KindBackend, Msg: parsed.Error}
	}
	if parsed.Text == "" {
		return "", &Error{Kind: KindBackend, Msg: "empty completion"}
	}
	return parsed.Text, nil
}

var _ Client = (*GatewayClient)(nil)
