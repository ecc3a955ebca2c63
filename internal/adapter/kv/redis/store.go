// Package redis implements the dedup.KVStore port against an Upstash Redis
// REST endpoint. Commands go over plain HTTPS, which keeps the serverless
// deployment story free of connection pooling.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sherpai/sherpai/internal/adapter/httpclient"
)

const (
	defaultTimeout = 10 * time.Second

	serviceName = "redis"
)

// Store talks the Upstash REST protocol: the request body is a JSON array
// forming one Redis command, the response is {"result": ...}.
type Store struct {
	url       string
	token     string
	client    *http.Client
	retryConf httpclient.RetryConfig
}

// NewStore creates a store for the given REST URL and token.
func NewStore(url, token string) *Store {
	return &Store{
		url:    strings.TrimRight(url, "/"),
		token:  token,
		client: &http.Client{Timeout: defaultTimeout},
		retryConf: httpclient.RetryConfig{
			MaxRetries:     2,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     4 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (s *Store) SetInitialBackoff(backoff time.Duration) {
	s.retryConf.InitialBackoff = backoff
}

type restResponse struct {
	Result *string `json:"result"`
	Error  string  `json:"error"`
}

// Get implements dedup.KVStore. A null result means the key is absent or
// expired.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	resp, err := s.command(ctx, []string{"GET", key})
	if err != nil {
		return "", false, err
	}
	if resp.Result == nil {
		return "", false, nil
	}
	return *resp.Result, true, nil
}

// Set implements dedup.KVStore. TTLs are rounded down to whole seconds, with
// a one second floor so an entry never becomes immortal by accident.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	_, err := s.command(ctx, []string{"SET", key, value, "EX", strconv.FormatInt(seconds, 10)})
	return err
}

// command executes one Redis command with retry.
func (s *Store) command(ctx context.Context, args []string) (*restResponse, error) {
	jsonData, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal command: %w", err)
	}

	var result *restResponse
	operation := func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, "POST", s.url, bytes.NewReader(jsonData))
		if reqErr != nil {
			return fmt.Errorf("failed to create request: %w", reqErr)
		}
		req.Header.Set("Authorization", "Bearer "+s.token)
		req.Header.Set("Content-Type", "application/json")

		resp, callErr := s.client.Do(req)
		if callErr != nil {
			return httpclient.NewTimeoutError(serviceName, callErr.Error())
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("failed to read response: %w", readErr)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return httpclient.NewAuthenticationError(serviceName, string(body))
		case resp.StatusCode == http.StatusTooManyRequests:
			return httpclient.NewRateLimitError(serviceName, string(body))
		case resp.StatusCode >= 500:
			return httpclient.NewServiceUnavailableError(serviceName, fmt.Sprintf("HTTP %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return httpclient.NewInvalidRequestError(serviceName, string(body))
		}

		var restResp restResponse
		if unmarshalErr := json.Unmarshal(body, &restResp); unmarshalErr != nil {
			return fmt.Errorf("failed to parse response: %w", unmarshalErr)
		}
		if restResp.Error != "" {
			return httpclient.NewInvalidRequestError(serviceName, restResp.Error)
		}

		result = &restResp
		return nil
	}

	if err := httpclient.RetryWithBackoff(ctx, operation, s.retryConf); err != nil {
		return nil, err
	}
	return result, nil
}
