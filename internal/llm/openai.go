package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient talks directly to an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewOpenAIClient creates a direct provider client. baseURL may be empty to
// use the public OpenAI endpoint; any OpenAI-compatible server works.
func NewOpenAIClient(apiKey, baseURL, model string, timeout time.Duration) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, errors.New("api key not set")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate implements Client.
func (c *OpenAIClient) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float64(req.Temperature),
		MaxTokens:   maxTokens,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, respBody)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", &Error{Kind: KindBackend, Msg: "unparseable response", Err: err}
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", &Error{Kind: KindBackend, Msg: "empty completion"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Msg: "request deadline exceeded", Err: err}
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return &Error{Kind: KindTimeout, Msg: "request timed out", Err: err}
	}
	return &Error{Kind: KindBackend, Msg: "request failed", Err: err}
}

func classifyStatus(code int, body []byte) error {
	msg := fmt.Sprintf("status %d: %s", code, truncateBody(body))
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{Kind: KindAuth, Msg: msg}
	case code == http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimited, Msg: msg}
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return &Error{Kind: KindTimeout, Msg: msg}
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return &Error{Kind: KindInvalid, Msg: msg}
	default:
		return &Error{Kind: KindBackend, Msg: msg}
	}
}

func truncateBody(body []byte) string {
	const limit = 512
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

var _ Client = (*OpenAIClient)(nil)
