package setup_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/autopull/internal/configstore"
	"github.com/temirov/autopull/internal/setup"
)

const (
	testTokenConstant            = "ghp_wizard_token"
	testEnvironmentTokenConstant = "ghp_environment_token"
	testRepositoryURLConstant    = "https://github.com/example/project"
	testRepositoryOwnerConstant  = "example"
	testRepositoryNameConstant   = "project"
	testBranchNameConstant       = "release"
	testPostCommandConstant      = "make deploy"
	newlineConstant              = "\n"
)

type stubVerifier struct {
	verificationError error
	verifiedOwners    []string
	verifiedNames     []string
}

func (verifier *stubVerifier) VerifyRepositoryAccess(executionContext context.Context, owner string, name string) error {
	verifier.verifiedOwners = append(verifier.verifiedOwners, owner)
	verifier.verifiedNames = append(verifier.verifiedNames, name)
	return verifier.verificationError
}

type wizardHarness struct {
	wizard   *setup.Wizard
	store    *configstore.Store
	output   *bytes.Buffer
	verifier *stubVerifier
	tokens   []string
}

func newWizardHarness(testInstance *testing.T, inputLines []string, environment map[string]string, verificationError error) *wizardHarness {
	neutralizeTokenEnvironment(testInstance)

	store := configstore.NewStore(filepath.Join(testInstance.TempDir(), configstore.DefaultConfigurationFileName))
	output := &bytes.Buffer{}
	verifier := &stubVerifier{verificationError: verificationError}
	harness := &wizardHarness{store: store, output: output, verifier: verifier}

	wizard, creationError := setup.NewWizard(setup.Dependencies{
		Input:  strings.NewReader(strings.Join(inputLines, newlineConstant) + newlineConstant),
		Output: output,
		Store:  store,
		VerifierFactory: func(token string) (setup.AccessVerifier, error) {
			harness.tokens = append(harness.tokens, token)
			return verifier, nil
		},
		Environment: environment,
	})
	require.NoError(testInstance, creationError)

	harness.wizard = wizard
	return harness
}

func neutralizeTokenEnvironment(testInstance *testing.T) {
	testInstance.Setenv("GH_TOKEN", "")
	testInstance.Setenv("GITHUB_TOKEN", "")
	testInstance.Setenv("GITHUB_API_TOKEN", "")
}

func TestWizardPersistsVerifiedConfiguration(testInstance *testing.T) {
	localPath := testInstance.TempDir()
	harness := newWizardHarness(testInstance, []string{
		testTokenConstant,
		testRepositoryURLConstant,
		testBranchNameConstant,
		localPath,
		testPostCommandConstant,
	}, nil, nil)

	runError := harness.wizard.Run(context.Background())
	require.NoError(testInstance, runError)

	require.Equal(testInstance, []string{testTokenConstant}, harness.tokens)
	require.Equal(testInstance, []string{testRepositoryOwnerConstant}, harness.verifier.verifiedOwners)
	require.Equal(testInstance, []string{testRepositoryNameConstant}, harness.verifier.verifiedNames)

	savedConfiguration, configurationExists, loadError := harness.store.Load()
	require.NoError(testInstance, loadError)
	require.True(testInstance, configurationExists)
	require.Equal(testInstance, testTokenConstant, savedConfiguration.GitHubToken)
	require.Equal(testInstance, testRepositoryOwnerConstant, savedConfiguration.RepositoryOwner)
	require.Equal(testInstance, testRepositoryNameConstant, savedConfiguration.RepositoryName)
	require.Equal(testInstance, testRepositoryURLConstant, savedConfiguration.RepositoryURL)
	require.Equal(testInstance, testBranchNameConstant, savedConfiguration.BranchName)
	require.Equal(testInstance, localPath, savedConfiguration.LocalPath)
	require.Equal(testInstance, testPostCommandConstant, savedConfiguration.PostCommand)

	wizardOutput := harness.output.String()
	require.Contains(testInstance, wizardOutput, "Repository access verified ✓")
	require.Contains(testInstance, wizardOutput, "Setup complete!")
}

func TestWizardAppliesBranchDefault(testInstance *testing.T) {
	harness := newWizardHarness(testInstance, []string{
		testTokenConstant,
		testRepositoryURLConstant,
		"",
		testInstance.TempDir(),
		"",
	}, nil, nil)

	runError := harness.wizard.Run(context.Background())
	require.NoError(testInstance, runError)

	savedConfiguration, _, loadError := harness.store.Load()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, configstore.DefaultBranchName, savedConfiguration.BranchName)
	require.Empty(testInstance, savedConfiguration.PostCommand)
}

func TestWizardRepromptsOnInvalidRepositoryURL(testInstance *testing.T) {
	harness := newWizardHarness(testInstance, []string{
		testTokenConstant,
		"not a repository url",
		testRepositoryURLConstant,
		testBranchNameConstant,
		testInstance.TempDir(),
		"",
	}, nil, nil)

	runError := harness.wizard.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Contains(testInstance, harness.output.String(), "Please enter a valid GitHub repository URL!")
}

func TestWizardRepromptsOnEmptyToken(testInstance *testing.T) {
	harness := newWizardHarness(testInstance, []string{
		"",
		testTokenConstant,
		testRepositoryURLConstant,
		testBranchNameConstant,
		testInstance.TempDir(),
		"",
	}, nil, nil)

	runError := harness.wizard.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Contains(testInstance, harness.output.String(), "Token cannot be empty!")
	require.Equal(testInstance, []string{testTokenConstant}, harness.tokens)
}

func TestWizardUsesEnvironmentTokenWhenInputEmpty(testInstance *testing.T) {
	environment := map[string]string{"GITHUB_TOKEN": testEnvironmentTokenConstant}
	harness := newWizardHarness(testInstance, []string{
		"",
		testRepositoryURLConstant,
		testBranchNameConstant,
		testInstance.TempDir(),
		"",
	}, environment, nil)

	runError := harness.wizard.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{testEnvironmentTokenConstant}, harness.tokens)

	savedConfiguration, _, loadError := harness.store.Load()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testEnvironmentTokenConstant, savedConfiguration.GitHubToken)
}

func TestWizardDoesNotPersistUnverifiedConfiguration(testInstance *testing.T) {
	verificationFailure := errors.New("repository not found")
	harness := newWizardHarness(testInstance, []string{
		testTokenConstant,
		testRepositoryURLConstant,
		testBranchNameConstant,
		testInstance.TempDir(),
		"",
	}, nil, verificationFailure)

	runError := harness.wizard.Run(context.Background())
	require.ErrorIs(testInstance, runError, setup.ErrRepositoryNotAccessible)
	require.Contains(testInstance, harness.output.String(), "Could not access repository")

	_, configurationExists, loadError := harness.store.Load()
	require.NoError(testInstance, loadError)
	require.False(testInstance, configurationExists)
}

func TestWizardKeepsExistingConfigurationWhenDeclined(testInstance *testing.T) {
	neutralizeTokenEnvironment(testInstance)

	store := configstore.NewStore(filepath.Join(testInstance.TempDir(), configstore.DefaultConfigurationFileName))
	existingConfiguration := configstore.RepositoryConfiguration{
		GitHubToken:     testTokenConstant,
		RepositoryOwner: testRepositoryOwnerConstant,
		RepositoryName:  testRepositoryNameConstant,
		RepositoryURL:   testRepositoryURLConstant,
		BranchName:      testBranchNameConstant,
		LocalPath:       testInstance.TempDir(),
	}
	require.NoError(testInstance, store.Save(existingConfiguration))

	output := &bytes.Buffer{}
	verifier := &stubVerifier{}
	wizard, creationError := setup.NewWizard(setup.Dependencies{
		Input:  strings.NewReader("n" + newlineConstant),
		Output: output,
		Store:  store,
		VerifierFactory: func(token string) (setup.AccessVerifier, error) {
			return verifier, nil
		},
	})
	require.NoError(testInstance, creationError)

	runError := wizard.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Empty(testInstance, verifier.verifiedOwners)
	require.Contains(testInstance, output.String(), "Configuration already exists:")

	unchangedConfiguration, _, loadError := store.Load()
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testTokenConstant, unchangedConfiguration.GitHubToken)
}

func TestWizardReconfiguresWhenExistingConfigurationUnreadable(testInstance *testing.T) {
	neutralizeTokenEnvironment(testInstance)

	configurationFilePath := filepath.Join(testInstance.TempDir(), configstore.DefaultConfigurationFileName)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("{not json"), 0o600))
	store := configstore.NewStore(configurationFilePath)

	localPath := testInstance.TempDir()
	output := &bytes.Buffer{}
	verifier := &stubVerifier{}
	wizard, creationError := setup.NewWizard(setup.Dependencies{
		Input: strings.NewReader(strings.Join([]string{
			testTokenConstant,
			testRepositoryURLConstant,
			testBranchNameConstant,
			localPath,
			"",
		}, newlineConstant) + newlineConstant),
		Output: output,
		Store:  store,
		VerifierFactory: func(token string) (setup.AccessVerifier, error) {
			return verifier, nil
		},
	})
	require.NoError(testInstance, creationError)

	runError := wizard.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Contains(testInstance, output.String(), "Error loading config:")
	require.Equal(testInstance, []string{testRepositoryOwnerConstant}, verifier.verifiedOwners)

	repairedConfiguration, configurationExists, loadError := store.Load()
	require.NoError(testInstance, loadError)
	require.True(testInstance, configurationExists)
	require.Equal(testInstance, testTokenConstant, repairedConfiguration.GitHubToken)
	require.Equal(testInstance, localPath, repairedConfiguration.LocalPath)
}

func TestWizardEnvironmentPromptNamesTokenSource(testInstance *testing.T) {
	environment := map[string]string{"GH_TOKEN": testEnvironmentTokenConstant}
	harness := newWizardHarness(testInstance, []string{
		"",
		testRepositoryURLConstant,
		testBranchNameConstant,
		testInstance.TempDir(),
		"",
	}, environment, nil)

	runError := harness.wizard.Run(context.Background())
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{testEnvironmentTokenConstant}, harness.tokens)
	require.Contains(testInstance, harness.output.String(), "GH_TOKEN")
	require.NotContains(testInstance, harness.output.String(), "GITHUB_API_TOKEN")
}

func TestWizardRoutesMilestonesThroughActivityLogger(testInstance *testing.T) {
	neutralizeTokenEnvironment(testInstance)

	observerCore, observedLogs := observer.New(zap.InfoLevel)
	store := configstore.NewStore(filepath.Join(testInstance.TempDir(), configstore.DefaultConfigurationFileName))
	output := &bytes.Buffer{}
	verifier := &stubVerifier{}
	wizard, creationError := setup.NewWizard(setup.Dependencies{
		Input: strings.NewReader(strings.Join([]string{
			testTokenConstant,
			testRepositoryURLConstant,
			testBranchNameConstant,
			testInstance.TempDir(),
			"",
		}, newlineConstant) + newlineConstant),
		Output: output,
		Store:  store,
		VerifierFactory: func(token string) (setup.AccessVerifier, error) {
			return verifier, nil
		},
		ActivityLogger: zap.New(observerCore),
	})
	require.NoError(testInstance, creationError)

	runError := wizard.Run(context.Background())
	require.NoError(testInstance, runError)

	loggedMessages := []string{}
	for _, loggedEntry := range observedLogs.All() {
		loggedMessages = append(loggedMessages, loggedEntry.Message)
	}
	require.Contains(testInstance, loggedMessages, "Repository access verified ✓")
	require.Contains(testInstance, loggedMessages, "Configuration saved successfully!")

	require.NotContains(testInstance, output.String(), "Repository access verified ✓")
	require.Contains(testInstance, output.String(), "Setup complete!")
}
