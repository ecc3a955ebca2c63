package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sherpai/sherpai/internal/adapter/github"
	"github.com/sherpai/sherpai/internal/adapter/httpclient"
	"github.com/sherpai/sherpai/internal/domain"
)

var testPR = domain.PullRequest{
	Owner:   "owner",
	Repo:    "repo",
	Number:  123,
	HeadSHA: "sha123",
}

func TestNewClient(t *testing.T) {
	client := github.NewClient("test-token")

	require.NotNil(t, client)
}

func TestClient_CreateReviewComment_Success(t *testing.T) {
	requestReceived := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestReceived = true

		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/repos/owner/repo/pulls/123/comments", r.URL.Path)

		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))

		var req github.CreateCommentRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)
		assert.Equal(t, "sha123", req.CommitID)
		assert.Equal(t, "main.go", req.Path)
		assert.Equal(t, 5, req.Position)
		assert.Equal(t, "RIGHT", req.Side)
		assert.Equal(t, "Possible nil dereference", req.Body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(github.CreateCommentResponse{
			ID:      456,
			HTMLURL: "https://github.com/owner/repo/pull/123#discussion_r456",
		})
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL)

	resp, err := client.CreateReviewComment(context.Background(), testPR, "main.go", 5, "Possible nil dereference")

	require.NoError(t, err)
	require.True(t, requestReceived)
	assert.Equal(t, int64(456), resp.ID)
}

func TestClient_CreateIssueComment_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/repos/owner/repo/issues/123/comments", r.URL.Path)

		var req github.CreateIssueCommentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "found 2 issues", req.Body)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1}`))
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL)

	err := client.CreateIssueComment(context.Background(), testPR, "found 2 issues")
	require.NoError(t, err)
}

func TestClient_ListPullRequestFiles_SinglePage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/repos/owner/repo/pulls/123/files", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		json.NewEncoder(w).Encode([]github.PullRequestFile{
			{Filename: "main.go", Status: "modified", Patch: "@@ -1 +1,2 @@\n ctx\n+added"},
			{Filename: "image.png", Status: "added"},
		})
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL)

	files, err := client.ListPullRequestFiles(context.Background(), testPR)

	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "main.go", files[0].Filename)
	assert.Equal(t, "@@ -1 +1,2 @@\n ctx\n+added", files[0].Patch)
	assert.Empty(t, files[1].Patch, "binary files carry no patch")
}

func TestClient_ListPullRequestFiles_Paginates(t *testing.T) {
	var pagesServed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		pagesServed = append(pagesServed, page)

		if page == "1" {
			full := make([]github.PullRequestFile, 100)
			for i := range full {
				full[i] = github.PullRequestFile{Filename: fmt.Sprintf("file%d.go", i)}
			}
			json.NewEncoder(w).Encode(full)
			return
		}
		json.NewEncoder(w).Encode([]github.PullRequestFile{{Filename: "last.go"}})
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL)

	files, err := client.ListPullRequestFiles(context.Background(), testPR)

	require.NoError(t, err)
	assert.Len(t, files, 101)
	assert.Equal(t, []string{"1", "2"}, pagesServed)
}

func TestClient_RetriesOn503(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message": "Service Unavailable"}`))
			return
		}
		json.NewEncoder(w).Encode(github.CreateCommentResponse{ID: 1})
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL)
	client.SetInitialBackoff(time.Millisecond)

	_, err := client.CreateReviewComment(context.Background(), testPR, "main.go", 1, "body")

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestClient_DoesNotRetryOn422(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "Validation Failed", "errors": [{"field": "position", "code": "invalid"}]}`))
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL)
	client.SetInitialBackoff(time.Millisecond)

	_, err := client.CreateReviewComment(context.Background(), testPR, "main.go", 999, "body")

	require.Error(t, err)
	assert.Equal(t, 1, attempts)

	var httpErr *httpclient.Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, httpclient.ErrTypeInvalidRequest, httpErr.Type)
	assert.Contains(t, httpErr.Message, "Validation Failed")
}

func TestSetBaseURL_TrimsTrailingSlashes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotContains(t, r.URL.Path, "//")
		json.NewEncoder(w).Encode([]github.PullRequestFile{})
	}))
	defer server.Close()

	client := github.NewClient("test-token")
	client.SetBaseURL(server.URL + "///")

	_, err := client.ListPullRequestFiles(context.Background(), testPR)
	require.NoError(t, err)
}
