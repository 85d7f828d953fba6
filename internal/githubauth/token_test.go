package githubauth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/autopull/internal/githubauth"
)

const (
	cliTokenValueConstant = "cli-token"
	apiTokenValueConstant = "api-token"
	envTokenValueConstant = "process-token"
)

func clearTokenEnvironment(testInstance *testing.T) {
	testInstance.Setenv(githubauth.EnvGitHubCLIToken, "")
	testInstance.Setenv(githubauth.EnvGitHubToken, "")
	testInstance.Setenv(githubauth.EnvGitHubAPIToken, "")
}

func TestResolveTokenPrefersMapOverProcessEnvironment(testInstance *testing.T) {
	clearTokenEnvironment(testInstance)
	testInstance.Setenv(githubauth.EnvGitHubToken, envTokenValueConstant)

	resolvedToken, tokenAvailable := githubauth.ResolveToken(map[string]string{
		githubauth.EnvGitHubAPIToken: apiTokenValueConstant,
	})

	require.True(testInstance, tokenAvailable)
	require.Equal(testInstance, apiTokenValueConstant, resolvedToken)
}

func TestResolveTokenHonorsPreferenceOrder(testInstance *testing.T) {
	clearTokenEnvironment(testInstance)

	resolvedToken, tokenAvailable := githubauth.ResolveToken(map[string]string{
		githubauth.EnvGitHubCLIToken: cliTokenValueConstant,
		githubauth.EnvGitHubAPIToken: apiTokenValueConstant,
	})

	require.True(testInstance, tokenAvailable)
	require.Equal(testInstance, cliTokenValueConstant, resolvedToken)
}

func TestResolveTokenFallsBackToProcessEnvironment(testInstance *testing.T) {
	clearTokenEnvironment(testInstance)
	testInstance.Setenv(githubauth.EnvGitHubAPIToken, envTokenValueConstant)

	resolvedToken, tokenAvailable := githubauth.ResolveToken(nil)

	require.True(testInstance, tokenAvailable)
	require.Equal(testInstance, envTokenValueConstant, resolvedToken)
}

func TestResolveTokenWithSourceReportsSupplyingVariable(testInstance *testing.T) {
	clearTokenEnvironment(testInstance)

	resolvedToken, tokenSource, tokenAvailable := githubauth.ResolveTokenWithSource(map[string]string{
		githubauth.EnvGitHubAPIToken: apiTokenValueConstant,
	})

	require.True(testInstance, tokenAvailable)
	require.Equal(testInstance, apiTokenValueConstant, resolvedToken)
	require.Equal(testInstance, githubauth.EnvGitHubAPIToken, tokenSource)
}

func TestResolveTokenIgnoresBlankValues(testInstance *testing.T) {
	clearTokenEnvironment(testInstance)

	resolvedToken, tokenAvailable := githubauth.ResolveToken(map[string]string{
		githubauth.EnvGitHubToken: "   ",
	})

	require.False(testInstance, tokenAvailable)
	require.Empty(testInstance, resolvedToken)
}
