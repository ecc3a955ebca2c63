package webhook

// pullRequestPayload is the subset of the pull_request event payload we use.
type pullRequestPayload struct {
	Action      string `json:"action"`
	Number      int    `json:"number"`
	PullRequest struct {
		Number int `json:"number"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository repositoryPayload `json:"repository"`
}

// issueCommentPayload is the subset of the issue_comment event payload we use.
// Issue.PullRequest is non-null exactly when the comment sits on a PR thread.
type issueCommentPayload struct {
	Action string `json:"action"`
	Issue  struct {
		Number      int       `json:"number"`
		PullRequest *struct{} `json:"pull_request"`
	} `json:"issue"`
	Comment struct {
		Body string `json:"body"`
	} `json:"comment"`
	Repository repositoryPayload `json:"repository"`
}

type repositoryPayload struct {
	Name  string `json:"name"`
	Owner struct {
		Login string `json:"login"`
	} `json:"owner"`
}
