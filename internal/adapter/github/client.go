// Package github is an HTTP adapter for the GitHub REST API, covering the
// three calls the reviewer needs: listing a pull request's changed files,
// creating positioned review comments, and creating issue comments.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sherpai/sherpai/internal/adapter/httpclient"
	"github.com/sherpai/sherpai/internal/domain"
)

const (
	defaultBaseURL        = "https://api.github.com"
	defaultTimeout        = 30 * time.Second
	defaultMaxRetries     = 3
	defaultInitialBackoff = 2 * time.Second

	filesPerPage = 100
)

// Client is an HTTP client for the GitHub pull request and issue APIs.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  httpclient.RetryConfig
}

// NewClient creates a new GitHub API client with the given token.
// The token should be a personal access token or an installation token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf: httpclient.RetryConfig{
			MaxRetries:     defaultMaxRetries,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetBaseURL sets a custom base URL (for testing). Trailing slashes are
// trimmed so joined paths never carry double slashes.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = strings.TrimRight(url, "/")
}

// SetTimeout sets the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetMaxRetries sets the maximum number of retry attempts.
func (c *Client) SetMaxRetries(maxRetries int) {
	c.retryConf.MaxRetries = maxRetries
}

// SetInitialBackoff sets the initial backoff duration for retries.
func (c *Client) SetInitialBackoff(backoff time.Duration) {
	c.retryConf.InitialBackoff = backoff
}

// ListPullRequestFiles fetches every changed file of a pull request,
// following pagination until a short page.
func (c *Client) ListPullRequestFiles(ctx context.Context, pr domain.PullRequest) ([]domain.ChangedFile, error) {
	var files []domain.ChangedFile

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			c.baseURL, pr.Owner, pr.Repo, pr.Number, filesPerPage, page)

		body, err := c.do(ctx, "GET", url, nil)
		if err != nil {
			return nil, err
		}

		var batch []PullRequestFile
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		for _, f := range batch {
			files = append(files, domain.ChangedFile{
				Filename: f.Filename,
				Status:   f.Status,
				Patch:    f.Patch,
			})
		}

		if len(batch) < filesPerPage {
			return files, nil
		}
	}
}

// GetPullRequest fetches a pull request's current head SHA. Comment webhook
// payloads do not carry it, so the trigger path resolves it here.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, number int) (domain.PullRequest, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d", c.baseURL, owner, repo, number)

	body, err := c.do(ctx, "GET", url, nil)
	if err != nil {
		return domain.PullRequest{}, err
	}

	var prResp PullRequestResponse
	if err := json.Unmarshal(body, &prResp); err != nil {
		return domain.PullRequest{}, fmt.Errorf("failed to parse response: %w", err)
	}

	return domain.PullRequest{
		Owner:   owner,
		Repo:    repo,
		Number:  number,
		HeadSHA: prResp.Head.SHA,
	}, nil
}

// CreateReviewComment posts an inline comment anchored to a diff position on
// the right side of the pull request's head commit.
func (c *Client) CreateReviewComment(ctx context.Context, pr domain.PullRequest, path string, position int, body string) (*CreateCommentResponse, error) {
	reqBody := CreateCommentRequest{
		Body:     body,
		CommitID: pr.HeadSHA,
		Path:     path,
		Position: position,
		Side:     "RIGHT",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/pulls/%d/comments",
		c.baseURL, pr.Owner, pr.Repo, pr.Number)

	respBody, err := c.do(ctx, "POST", url, jsonData)
	if err != nil {
		return nil, err
	}

	var commentResp CreateCommentResponse
	if err := json.Unmarshal(respBody, &commentResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &commentResp, nil
}

// CreateIssueComment posts a plain comment on the pull request's conversation
// thread. Pull requests are issues for this endpoint.
func (c *Client) CreateIssueComment(ctx context.Context, pr domain.PullRequest, body string) error {
	jsonData, err := json.Marshal(CreateIssueCommentRequest{Body: body})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/repos/%s/%s/issues/%d/comments",
		c.baseURL, pr.Owner, pr.Repo, pr.Number)

	_, err = c.do(ctx, "POST", url, jsonData)
	return err
}

// do executes one API call with retry, returning the response body on
// success and a typed *httpclient.Error on failure.
func (c *Client) do(ctx context.Context, method, url string, jsonData []byte) ([]byte, error) {
	var respBody []byte

	err := httpclient.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var bodyReader io.Reader
		if jsonData != nil {
			bodyReader = bytes.NewReader(jsonData)
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if reqErr != nil {
			return &httpclient.Error{
				Type:      httpclient.ErrTypeUnknown,
				Message:   reqErr.Error(),
				Retryable: false,
				Service:   serviceName,
			}
		}

		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if jsonData != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, callErr := c.httpClient.Do(req)
		if callErr != nil {
			// Could be timeout or network error
			return &httpclient.Error{
				Type:      httpclient.ErrTypeTimeout,
				Message:   callErr.Error(),
				Retryable: true,
				Service:   serviceName,
			}
		}
		defer resp.Body.Close()

		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return &httpclient.Error{
				Type:       httpclient.ErrTypeUnknown,
				Message:    fmt.Sprintf("HTTP %d (failed to read response: %v)", resp.StatusCode, readErr),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
				Service:    serviceName,
			}
		}

		if resp.StatusCode >= 400 {
			return MapHTTPError(resp.StatusCode, bodyBytes)
		}

		respBody = bodyBytes
		return nil
	}, c.retryConf)

	if err != nil {
		return nil, err
	}
	return respBody, nil
}
