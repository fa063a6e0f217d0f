package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	defaultModel     = "claude-sonnet-4-5-20250929"
	defaultMaxTokens = 1024
	defaultBaseURL   = "https://api.anthropic.com"
	messagesPath     = "/v1/messages"
	apiVersion       = "2023-06-01"
)

// APIError is a non-200 answer from the Messages API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// HTTPStatus exposes the status code for error classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

// AnthropicOracle completes prompts with the Claude Messages API.
type AnthropicOracle struct {
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	baseURL     string
	client      *http.Client
}

// AnthropicOption customizes an AnthropicOracle.
type AnthropicOption func(*AnthropicOracle)

// WithBaseURL points the oracle at a different API host.
func WithBaseURL(u string) AnthropicOption {
	return func(o *AnthropicOracle) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) AnthropicOption {
	return func(o *AnthropicOracle) {
		if c != nil {
			o.client = c
		}
	}
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) AnthropicOption {
	return func(o *AnthropicOracle) { o.temperature = t }
}

// NewAnthropic creates an oracle backed by the Claude API.
func NewAnthropic(
	apiKey string,
	modelName string,
	maxTokens int,
	opts ...AnthropicOption,
) *AnthropicOracle {
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	o := &AnthropicOracle{
		apiKey:      apiKey,
		model:       modelName,
		maxTokens:   maxTokens,
		temperature: DefaultTemperature,
		baseURL:     defaultBaseURL,
		client:      &http.Client{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Complete sends one system + user turn and returns the concatenated text
// blocks of the answer.
func (o *AnthropicOracle) Complete(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
) (string, error) {
	resp, err := o.callAPI(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(sb.String()), nil
}

// callAPI makes a single request to the Claude Messages API.
func (o *AnthropicOracle) callAPI(
	ctx context.Context,
	systemPrompt string,
	userPrompt string,
) (*apiResponse, error) {
	temperature := o.temperature
	reqBody := apiRequest{
		Model:       o.model,
		MaxTokens:   o.maxTokens,
		System:      systemPrompt,
		Temperature: &temperature,
		Messages: []apiMessage{
			{
				Role:    "user",
				Content: []apiContentBlock{{Type: "text", Text: userPrompt}},
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, o.baseURL+messagesPath, bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", o.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Claude API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp apiErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		return nil, apiErr
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}

type apiRequest struct {
	Model       string       `json:"model"`
	MaxTokens   int          `json:"max_tokens"`
	System      string       `json:"system"`
	Temperature *float64     `json:"temperature,omitempty"`
	Messages    []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
