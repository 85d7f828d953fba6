package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/autopull/internal/configstore"
	"github.com/temirov/autopull/internal/githubauth"
	"github.com/temirov/autopull/internal/gitrepo"
)

const (
	inputNotConfiguredMessageConstant    = "input reader not configured"
	outputNotConfiguredMessageConstant   = "output writer not configured"
	storeNotConfiguredMessageConstant    = "configuration store not configured"
	verifierNotConfiguredMessageConstant = "repository verifier factory not configured"
	setupAbortedMessageConstant          = "setup aborted: repository is not accessible with the provided settings"

	wizardBannerConstant              = "AutoPull Setup"
	bannerUnderlineRuneConstant       = "="
	bannerUnderlineLengthConstant     = 50
	existingConfigurationMessage      = "Configuration already exists:"
	existingRepositoryTemplate        = "  Repository: %s/%s\n"
	existingBranchTemplate            = "  Branch: %s\n"
	existingLocalPathTemplate         = "  Local path: %s\n"
	existingPostCommandTemplate       = "  Post-command: %s\n"
	noPostCommandLabelConstant        = "None"
	reconfigurePromptConstant         = "Reconfigure? (y/N): "
	affirmativeAnswerConstant         = "y"
	affirmativeAnswerLongConstant     = "yes"
	tokenGuidanceMessageConstant      = "GitHub Personal Access Token is required."
	tokenCreateHintMessageConstant    = "Create one at: https://github.com/settings/tokens"
	tokenScopeHintMessageConstant     = "Required permissions: 'repo' (for private repos) or 'public_repo' (for public repos)"
	tokenPromptConstant               = "GitHub token: "
	tokenEnvPromptTemplateConstant    = "GitHub token [press Enter to use %s from the environment]: "
	tokenEmptyMessageConstant         = "Token cannot be empty!"
	repositoryURLPromptConstant       = "GitHub repository URL (e.g., https://github.com/owner/repo): "
	repositoryURLInvalidMessage       = "Please enter a valid GitHub repository URL!"
	branchPromptTemplateConstant      = "Branch to monitor [%s]: "
	localPathPromptTemplateConstant   = "Local path for repository [%s]: "
	localPathDefaultLabelConstant     = "current directory"
	postCommandPromptConstant         = "Post-pull command (optional): "
	verifyingMessageConstant          = "Verifying repository access..."
	accessVerifiedMessageConstant     = "Repository access verified ✓"
	accessFailedMessageConstant       = "Error: Could not access repository. Please check your settings."
	configurationSavedMessageConstant = "Configuration saved successfully!"
	configurationLoadFailedTemplate   = "Error loading config: %v"
	setupCompleteMessageConstant      = "Setup complete! Run 'autopull watch' to start monitoring."
	promptReadErrorTemplateConstant   = "failed to read input: %w"
	promptWriteErrorTemplateConstant  = "failed to write prompt: %w"
)

// ErrInputNotConfigured indicates the wizard was constructed without an input reader.
var ErrInputNotConfigured = errors.New(inputNotConfiguredMessageConstant)

// ErrOutputNotConfigured indicates the wizard was constructed without an output writer.
var ErrOutputNotConfigured = errors.New(outputNotConfiguredMessageConstant)

// ErrStoreNotConfigured indicates the wizard was constructed without a configuration store.
var ErrStoreNotConfigured = errors.New(storeNotConfiguredMessageConstant)

// ErrVerifierNotConfigured indicates the wizard was constructed without a verifier factory.
var ErrVerifierNotConfigured = errors.New(verifierNotConfiguredMessageConstant)

// ErrRepositoryNotAccessible indicates verification failed for the collected settings.
var ErrRepositoryNotAccessible = errors.New(setupAbortedMessageConstant)

// AccessVerifier confirms a repository exists and the token can read it.
type AccessVerifier interface {
	VerifyRepositoryAccess(executionContext context.Context, owner string, name string) error
}

// VerifierFactory builds an AccessVerifier for the supplied token.
type VerifierFactory func(token string) (AccessVerifier, error)

// Dependencies enumerates the collaborators required by the Wizard.
type Dependencies struct {
	Input           io.Reader
	Output          io.Writer
	Store           *configstore.Store
	VerifierFactory VerifierFactory
	Environment     map[string]string
	ActivityLogger  *zap.Logger
}

// Wizard collects, verifies, and persists the repository configuration interactively.
type Wizard struct {
	input           *bufio.Reader
	output          io.Writer
	store           *configstore.Store
	verifierFactory VerifierFactory
	environment     map[string]string
	activityLogger  *zap.Logger
}

// NewWizard validates dependencies and constructs a Wizard.
func NewWizard(dependencies Dependencies) (*Wizard, error) {
	if dependencies.Input == nil {
		return nil, ErrInputNotConfigured
	}
	if dependencies.Output == nil {
		return nil, ErrOutputNotConfigured
	}
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	if dependencies.VerifierFactory == nil {
		return nil, ErrVerifierNotConfigured
	}

	return &Wizard{
		input:           bufio.NewReader(dependencies.Input),
		output:          dependencies.Output,
		store:           dependencies.Store,
		verifierFactory: dependencies.VerifierFactory,
		environment:     dependencies.Environment,
		activityLogger:  dependencies.ActivityLogger,
	}, nil
}

// Run executes the setup flow: review any existing configuration, collect new
// settings, verify repository access, and persist the result.
func (wizard *Wizard) Run(executionContext context.Context) error {
	wizard.printLine(wizardBannerConstant)
	wizard.printLine(strings.Repeat(bannerUnderlineRuneConstant, bannerUnderlineLengthConstant))

	// An unreadable configuration file is not fatal here: the wizard exists
	// to produce a valid one, so collect fresh settings and overwrite it.
	existingConfiguration, configurationExists, loadError := wizard.store.Load()
	if loadError != nil {
		wizard.logMilestone(fmt.Sprintf(configurationLoadFailedTemplate, loadError))
		configurationExists = false
	}

	if configurationExists {
		wizard.describeExistingConfiguration(existingConfiguration)
		reconfigure, promptError := wizard.promptYesNo(reconfigurePromptConstant)
		if promptError != nil {
			return promptError
		}
		if !reconfigure {
			return nil
		}
	}

	collectedConfiguration, collectError := wizard.collectConfiguration()
	if collectError != nil {
		return collectError
	}

	wizard.printLine(verifyingMessageConstant)
	verifier, verifierError := wizard.verifierFactory(collectedConfiguration.GitHubToken)
	if verifierError != nil {
		return verifierError
	}

	verificationError := verifier.VerifyRepositoryAccess(executionContext, collectedConfiguration.RepositoryOwner, collectedConfiguration.RepositoryName)
	if verificationError != nil {
		wizard.logMilestone(accessFailedMessageConstant)
		return fmt.Errorf("%w: %w", ErrRepositoryNotAccessible, verificationError)
	}
	wizard.logMilestone(accessVerifiedMessageConstant)

	saveError := wizard.store.Save(collectedConfiguration)
	if saveError != nil {
		return saveError
	}
	wizard.logMilestone(configurationSavedMessageConstant)

	wizard.printLine(setupCompleteMessageConstant)
	return nil
}

// logMilestone records setup milestones in the activity log when one is
// configured, falling back to the interactive output otherwise.
func (wizard *Wizard) logMilestone(message string) {
	if wizard.activityLogger != nil {
		wizard.activityLogger.Info(message)
		return
	}
	wizard.printLine(message)
}

func (wizard *Wizard) collectConfiguration() (configstore.RepositoryConfiguration, error) {
	token, tokenError := wizard.promptToken()
	if tokenError != nil {
		return configstore.RepositoryConfiguration{}, tokenError
	}

	repositoryURL, remote, urlError := wizard.promptRepositoryURL()
	if urlError != nil {
		return configstore.RepositoryConfiguration{}, urlError
	}

	branchName, branchError := wizard.promptWithDefault(fmt.Sprintf(branchPromptTemplateConstant, configstore.DefaultBranchName), configstore.DefaultBranchName)
	if branchError != nil {
		return configstore.RepositoryConfiguration{}, branchError
	}

	localPath, localPathError := wizard.promptWithDefault(fmt.Sprintf(localPathPromptTemplateConstant, localPathDefaultLabelConstant), "")
	if localPathError != nil {
		return configstore.RepositoryConfiguration{}, localPathError
	}

	postCommand, postCommandError := wizard.promptLine(postCommandPromptConstant)
	if postCommandError != nil {
		return configstore.RepositoryConfiguration{}, postCommandError
	}

	return configstore.RepositoryConfiguration{
		GitHubToken:     token,
		RepositoryOwner: remote.Owner,
		RepositoryName:  remote.Repository,
		RepositoryURL:   repositoryURL,
		BranchName:      branchName,
		LocalPath:       localPath,
		PostCommand:     postCommand,
	}, nil
}

func (wizard *Wizard) promptToken() (string, error) {
	wizard.printLine(tokenGuidanceMessageConstant)
	wizard.printLine(tokenCreateHintMessageConstant)
	wizard.printLine(tokenScopeHintMessageConstant)

	environmentToken, environmentTokenSource, environmentTokenAvailable := githubauth.ResolveTokenWithSource(wizard.environment)

	for {
		tokenPrompt := tokenPromptConstant
		if environmentTokenAvailable {
			tokenPrompt = fmt.Sprintf(tokenEnvPromptTemplateConstant, environmentTokenSource)
		}

		enteredToken, readError := wizard.promptLine(tokenPrompt)
		if readError != nil {
			return "", readError
		}

		if len(enteredToken) > 0 {
			return enteredToken, nil
		}
		if environmentTokenAvailable {
			return environmentToken, nil
		}
		wizard.printLine(tokenEmptyMessageConstant)
	}
}

func (wizard *Wizard) promptRepositoryURL() (string, gitrepo.RemoteURL, error) {
	for {
		enteredURL, readError := wizard.promptLine(repositoryURLPromptConstant)
		if readError != nil {
			return "", gitrepo.RemoteURL{}, readError
		}

		parsedRemote, parseError := gitrepo.ParseRemoteURL(enteredURL)
		if parseError != nil {
			wizard.printLine(repositoryURLInvalidMessage)
			continue
		}

		return enteredURL, parsedRemote, nil
	}
}

func (wizard *Wizard) promptWithDefault(prompt string, defaultValue string) (string, error) {
	enteredValue, readError := wizard.promptLine(prompt)
	if readError != nil {
		return "", readError
	}
	if len(enteredValue) == 0 {
		return defaultValue, nil
	}
	return enteredValue, nil
}

func (wizard *Wizard) promptYesNo(prompt string) (bool, error) {
	answer, readError := wizard.promptLine(prompt)
	if readError != nil {
		return false, readError
	}
	normalizedAnswer := strings.ToLower(answer)
	return normalizedAnswer == affirmativeAnswerConstant || normalizedAnswer == affirmativeAnswerLongConstant, nil
}

func (wizard *Wizard) promptLine(prompt string) (string, error) {
	_, writeError := fmt.Fprint(wizard.output, prompt)
	if writeError != nil {
		return "", fmt.Errorf(promptWriteErrorTemplateConstant, writeError)
	}

	enteredLine, readError := wizard.input.ReadString('\n')
	if readError != nil && (len(enteredLine) == 0 || readError != io.EOF) {
		return "", fmt.Errorf(promptReadErrorTemplateConstant, readError)
	}

	return strings.TrimSpace(enteredLine), nil
}

func (wizard *Wizard) printLine(message string) {
	fmt.Fprintln(wizard.output, message)
}

func (wizard *Wizard) describeExistingConfiguration(configuration configstore.RepositoryConfiguration) {
	wizard.printLine(existingConfigurationMessage)
	fmt.Fprintf(wizard.output, existingRepositoryTemplate, configuration.RepositoryOwner, configuration.RepositoryName)
	fmt.Fprintf(wizard.output, existingBranchTemplate, configuration.BranchName)
	fmt.Fprintf(wizard.output, existingLocalPathTemplate, configuration.LocalPath)
	postCommandLabel := configuration.PostCommand
	if len(postCommandLabel) == 0 {
		postCommandLabel = noPostCommandLabelConstant
	}
	fmt.Fprintf(wizard.output, existingPostCommandTemplate, postCommandLabel)
}
