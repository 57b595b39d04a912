package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueFiler_FileIssue(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/wackypm/ideas/issues", r.URL.Path)

		var req IssueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"prd", "wacky"}, req.Labels)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Issue{Number: 1})
	}))
	defer ts.Close()

	filer, err := NewIssueFiler(NewClient(ts.URL), "wackypm/ideas", []string{"prd", "wacky"})
	require.NoError(t, err)

	err = filer.FileIssue(context.Background(), "tok", "PRD: something", "body")
	assert.NoError(t, err)
}

func TestNewIssueFiler_BadSlug(t *testing.T) {
	c := NewClient("")

	for _, slug := range []string{"", "noslash", "/repo", "owner/"} {
		_, err := NewIssueFiler(c, slug, nil)
		assert.Error(t, err, "slug %q", slug)
	}
}
