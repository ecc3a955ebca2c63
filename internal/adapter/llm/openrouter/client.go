// Package openrouter generates review comments through the OpenRouter chat
// completions API.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/sherpai/sherpai/internal/adapter/httpclient"
	"github.com/sherpai/sherpai/internal/diff"
	"github.com/sherpai/sherpai/internal/domain"
	"github.com/sherpai/sherpai/internal/usecase/review"
)

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultTimeout = 60 * time.Second

	// Low but nonzero: comments should be stable across runs without being
	// word-for-word canned.
	defaultTemperature = 0.3

	serviceName = "openrouter"
)

// HTTPClient is an HTTP client for the OpenRouter API implementing the
// review.CommentGenerator port.
type HTTPClient struct {
	apiKey    string
	model     string
	baseURL   string
	client    *http.Client
	retryConf httpclient.RetryConfig
}

// NewHTTPClient creates a new OpenRouter client for the given model,
// e.g. "anthropic/claude-3.5-sonnet".
func NewHTTPClient(apiKey, model string) *HTTPClient {
	return &HTTPClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		retryConf: httpclient.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// SetTimeout sets the HTTP timeout.
func (c *HTTPClient) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (c *HTTPClient) SetInitialBackoff(backoff time.Duration) {
	c.retryConf.InitialBackoff = backoff
}

// Generate implements review.CommentGenerator. The returned comments carry
// added-line ordinals matching the [Line N] markers in the prompt; comments
// without a line number apply to the file as a whole.
func (c *HTTPClient) Generate(ctx context.Context, req review.GenerateRequest) ([]domain.ReviewComment, error) {
	index := diff.Build(req.Patch)
	prompt := BuildPrompt(req.Filename, req.Instructions, index)

	text, err := c.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	comments, err := parseComments(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", review.ErrMalformedOutput, err)
	}
	return comments, nil
}

// call makes one chat completion request with retry and returns the message
// content of the first choice.
func (c *HTTPClient) call(ctx context.Context, prompt string) (string, error) {
	reqBody := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var text string
	operation := func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("X-Title", "sherpai")

		resp, callErr := c.client.Do(req)
		if callErr != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return httpclient.NewTimeoutError(serviceName, "request timed out")
			}
			return httpclient.NewTimeoutError(serviceName, callErr.Error())
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("failed to read response: %w", readErr)
		}

		if resp.StatusCode != http.StatusOK {
			return handleErrorResponse(resp.StatusCode, body)
		}

		var chatResp ChatCompletionResponse
		if unmarshalErr := json.Unmarshal(body, &chatResp); unmarshalErr != nil {
			return fmt.Errorf("failed to parse response: %w", unmarshalErr)
		}
		if len(chatResp.Choices) == 0 {
			return fmt.Errorf("no choices in response")
		}

		text = chatResp.Choices[0].Message.Content
		return nil
	}

	if err := httpclient.RetryWithBackoff(ctx, operation, c.retryConf); err != nil {
		return "", err
	}
	return text, nil
}

// handleErrorResponse converts HTTP error responses to typed errors.
func handleErrorResponse(statusCode int, body []byte) error {
	message := fmt.Sprintf("HTTP %d", statusCode)

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	} else if len(body) > 0 && len(body) < 200 {
		message = string(body)
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return httpclient.NewAuthenticationError(serviceName, message)
	case http.StatusTooManyRequests:
		return httpclient.NewRateLimitError(serviceName, message)
	case http.StatusBadRequest:
		return httpclient.NewInvalidRequestError(serviceName, message)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return httpclient.NewServiceUnavailableError(serviceName, message)
	default:
		return &httpclient.Error{
			Type:       httpclient.ErrTypeUnknown,
			Message:    message,
			StatusCode: statusCode,
			Retryable:  false,
			Service:    serviceName,
		}
	}
}

// fenceRe matches a ```json ... ``` or ``` ... ``` block wrapping a JSON array.
var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\[.*?\\])\\s*```")

// parseComments extracts the comment list from the model's response text.
// Models often wrap JSON in markdown fences despite instructions; both the
// fenced and the bare form are accepted. Anything else is malformed.
func parseComments(text string) ([]domain.ReviewComment, error) {
	jsonText := strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(jsonText); len(m) > 1 {
		jsonText = m[1]
	}

	var comments []domain.ReviewComment
	if err := json.Unmarshal([]byte(jsonText), &comments); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %v", err)
	}
	return comments, nil
}
