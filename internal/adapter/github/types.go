package github

// CreateCommentRequest is the payload for POST /repos/{owner}/{repo}/pulls/{n}/comments.
type CreateCommentRequest struct {
	Body     string `json:"body"`
	CommitID string `json:"commit_id"`
	Path     string `json:"path"`
	Position int    `json:"position"`
	Side     string `json:"side"`
}

// CreateCommentResponse is the subset of the comment creation response we use.
type CreateCommentResponse struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// CreateIssueCommentRequest is the payload for POST /repos/{owner}/{repo}/issues/{n}/comments.
type CreateIssueCommentRequest struct {
	Body string `json:"body"`
}

// PullRequestFile is one entry from GET /repos/{owner}/{repo}/pulls/{n}/files.
// Patch is absent for binary and renamed-only files.
type PullRequestFile struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Patch    string `json:"patch"`
}

// PullRequestResponse is the subset of GET /repos/{owner}/{repo}/pulls/{n}
// we use: the head SHA anchors review comments and cache keys.
type PullRequestResponse struct {
	Number int `json:"number"`
	Head   struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

// ErrorResponse is GitHub's standard error body.
type ErrorResponse struct {
	Message string       `json:"message"`
	Errors  []ErrorField `json:"errors,omitempty"`
}

// ErrorField is a validation error detail within an ErrorResponse.
type ErrorField struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}
