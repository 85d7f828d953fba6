package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

const (
	probeRequestTimeoutConstant = 10 * time.Second

	tokenNotConfiguredMessageConstant      = "github token not configured"
	httpClientNotConfiguredMessageConstant = "http client not configured"
	baseURLParseErrorTemplateConstant      = "failed to parse github api base url %s: %w"
	repositoryVerifyErrorTemplateConstant  = "failed to verify repository %s/%s: %w"
	branchTipErrorTemplateConstant         = "failed to resolve tip of %s/%s@%s: %w"
	emptyCommitSHAMessageTemplateConstant  = "github returned an empty commit sha for %s/%s@%s"
	repositoryNotFoundTemplateConstant     = "repository %s/%s was not found or the token lacks access"
	baseURLTrailingSlashConstant           = "/"
)

// ErrTokenNotConfigured indicates a client was requested without an access token.
var ErrTokenNotConfigured = errors.New(tokenNotConfiguredMessageConstant)

// ErrHTTPClientNotConfigured indicates a client was requested without an HTTP client.
var ErrHTTPClientNotConfigured = errors.New(httpClientNotConfiguredMessageConstant)

// RepositoryNotFoundError indicates the repository does not exist or the token cannot see it.
type RepositoryNotFoundError struct {
	Owner string
	Name  string
}

// Error describes the inaccessible repository.
func (notFoundError RepositoryNotFoundError) Error() string {
	return fmt.Sprintf(repositoryNotFoundTemplateConstant, notFoundError.Owner, notFoundError.Name)
}

// Client wraps the GitHub REST API operations the watcher depends on.
type Client struct {
	apiClient *github.Client
}

// NewClient constructs a Client authenticating with the provided token.
//
// Requests carry a fixed timeout so a stalled GitHub endpoint cannot block the
// polling loop indefinitely.
func NewClient(token string) (*Client, error) {
	trimmedToken := strings.TrimSpace(token)
	if len(trimmedToken) == 0 {
		return nil, ErrTokenNotConfigured
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedToken})
	authenticatedHTTPClient := oauth2.NewClient(context.Background(), tokenSource)
	authenticatedHTTPClient.Timeout = probeRequestTimeoutConstant

	return &Client{apiClient: github.NewClient(authenticatedHTTPClient)}, nil
}

// NewClientWithHTTPClient constructs a Client against an alternate API endpoint.
//
// Tests use this constructor to point the client at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	if httpClient == nil {
		return nil, ErrHTTPClientNotConfigured
	}

	apiClient := github.NewClient(httpClient)
	if len(baseURL) > 0 {
		normalizedBaseURL := baseURL
		if !strings.HasSuffix(normalizedBaseURL, baseURLTrailingSlashConstant) {
			normalizedBaseURL += baseURLTrailingSlashConstant
		}
		parsedBaseURL, parseError := apiClient.BaseURL.Parse(normalizedBaseURL)
		if parseError != nil {
			return nil, fmt.Errorf(baseURLParseErrorTemplateConstant, baseURL, parseError)
		}
		apiClient.BaseURL = parsedBaseURL
	}

	return &Client{apiClient: apiClient}, nil
}

// VerifyRepositoryAccess confirms the repository exists and the token can read it.
func (client *Client) VerifyRepositoryAccess(executionContext context.Context, owner string, name string) error {
	_, _, requestError := client.apiClient.Repositories.Get(executionContext, owner, name)
	if requestError == nil {
		return nil
	}

	if isNotFoundOrForbidden(requestError) {
		return RepositoryNotFoundError{Owner: owner, Name: name}
	}

	return fmt.Errorf(repositoryVerifyErrorTemplateConstant, owner, name, requestError)
}

// FetchBranchTipSHA resolves the commit SHA currently at the tip of the branch.
func (client *Client) FetchBranchTipSHA(executionContext context.Context, owner string, name string, branch string) (string, error) {
	repositoryCommit, _, requestError := client.apiClient.Repositories.GetCommit(executionContext, owner, name, branch, nil)
	if requestError != nil {
		if isNotFoundOrForbidden(requestError) {
			return "", RepositoryNotFoundError{Owner: owner, Name: name}
		}
		return "", fmt.Errorf(branchTipErrorTemplateConstant, owner, name, branch, requestError)
	}

	commitSHA := repositoryCommit.GetSHA()
	if len(commitSHA) == 0 {
		return "", fmt.Errorf(emptyCommitSHAMessageTemplateConstant, owner, name, branch)
	}

	return commitSHA, nil
}

func isNotFoundOrForbidden(requestError error) bool {
	errorResponse := &github.ErrorResponse{}
	if !errors.As(requestError, &errorResponse) {
		return false
	}
	if errorResponse.Response == nil {
		return false
	}
	statusCode := errorResponse.Response.StatusCode
	return statusCode == http.StatusNotFound || statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized
}
