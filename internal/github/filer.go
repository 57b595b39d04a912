package github

import (
	"context"
	"fmt"
	"strings"
)

// IssueFiler files finalized documents as issues in a fixed repository
// using the caller's token.
type IssueFiler struct {
	client *Client
	owner  string
	repo   string
	labels []string
}

// NewIssueFiler creates a filer targeting an "owner/repo" slug.
func NewIssueFiler(client *Client, slug string, labels []string) (*IssueFiler, error) {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid issue repo %q, want owner/repo", slug)
	}
	return &IssueFiler{
		client: client,
		owner:  owner,
		repo:   repo,
		labels: labels,
	}, nil
}

// FileIssue creates the issue.
func (f *IssueFiler) FileIssue(ctx context.Context, credential, title, body string) error {
	_, err := f.client.CreateIssue(ctx, credential, f.owner, f.repo, IssueRequest{
		Title:  title,
		Body:   body,
		Labels: f.labels,
	})
	return err
}
