package updater

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/autopull/internal/execshell"
)

const (
	gitExecutorNotConfiguredMessageConstant = "git executor not configured"
	repositoryURLRequiredMessageConstant    = "repository url is required"
	localPathRequiredMessageConstant        = "local path is required"
	branchNameRequiredMessageConstant       = "branch name is required"

	gitDirectoryNameConstant          = ".git"
	gitCloneSubcommandConstant        = "clone"
	gitPullSubcommandConstant         = "pull"
	gitDefaultRemoteNameConstant      = "origin"
	cloneIntoCurrentDirectoryConstant = "."
	shellCommandFlagConstant          = "-c"

	gitTerminalPromptEnvironmentKeyConstant  = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledValueConstant   = "0"
	localPathCreationErrorTemplateConstant   = "failed to create local path %s: %w"
	localPathInspectionErrorTemplateConstant = "failed to inspect local path %s: %w"
	repositoryDirectoryPermissionsConstant   = os.FileMode(0o755)

	logFieldLocalPathConstant  = "local_path"
	logFieldBranchNameConstant = "branch"

	postCommandFailureMessageConstant = "post-update command failed"
	cloneCompletedMessageConstant     = "repository cloned"
	pullCompletedMessageConstant      = "repository updated"
)

// ErrGitExecutorNotConfigured indicates the service was constructed without a command executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorNotConfiguredMessageConstant)

// ErrRepositoryURLRequired indicates sync options omitted the repository URL.
var ErrRepositoryURLRequired = errors.New(repositoryURLRequiredMessageConstant)

// ErrLocalPathRequired indicates sync options omitted the local checkout path.
var ErrLocalPathRequired = errors.New(localPathRequiredMessageConstant)

// ErrBranchNameRequired indicates sync options omitted the branch.
var ErrBranchNameRequired = errors.New(branchNameRequiredMessageConstant)

// CommandExecutor runs the git and shell commands the updater relies on.
type CommandExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
	ExecuteShell(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Dependencies enumerates the collaborators required by the Service.
type Dependencies struct {
	Executor CommandExecutor
	Logger   *zap.Logger
}

// Options describe one synchronization of a local checkout with its remote.
type Options struct {
	RepositoryURL string
	LocalPath     string
	BranchName    string
	PostCommand   string
}

// Result reports what a synchronization did.
type Result struct {
	Cloned           bool
	PostCommandRan   bool
	PostCommandError error
}

// Service brings a local checkout up to date with its remote branch.
type Service struct {
	executor CommandExecutor
	logger   *zap.Logger
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Executor == nil {
		return nil, ErrGitExecutorNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{executor: dependencies.Executor, logger: logger}, nil
}

// EnsureAndSync clones the repository when no checkout exists and pulls the
// branch otherwise, then runs the optional post-update command.
//
// A failing post-update command does not fail the synchronization; it is
// reported through the Result so callers can log the failure and keep polling.
func (service *Service) EnsureAndSync(executionContext context.Context, options Options) (Result, error) {
	validationError := validateOptions(options)
	if validationError != nil {
		return Result{}, validationError
	}

	repositoryExists, inspectionError := checkoutExists(options.LocalPath)
	if inspectionError != nil {
		return Result{}, inspectionError
	}

	syncResult := Result{Cloned: !repositoryExists}

	if repositoryExists {
		pullError := service.pullBranch(executionContext, options)
		if pullError != nil {
			return Result{}, pullError
		}
		service.logger.Info(pullCompletedMessageConstant, service.syncLogFields(options)...)
	} else {
		cloneError := service.cloneRepository(executionContext, options)
		if cloneError != nil {
			return Result{}, cloneError
		}
		service.logger.Info(cloneCompletedMessageConstant, service.syncLogFields(options)...)
	}

	trimmedPostCommand := strings.TrimSpace(options.PostCommand)
	if len(trimmedPostCommand) > 0 {
		syncResult.PostCommandRan = true
		syncResult.PostCommandError = service.runPostCommand(executionContext, options.LocalPath, trimmedPostCommand)
	}

	return syncResult, nil
}

func (service *Service) cloneRepository(executionContext context.Context, options Options) error {
	createError := os.MkdirAll(options.LocalPath, repositoryDirectoryPermissionsConstant)
	if createError != nil {
		return fmt.Errorf(localPathCreationErrorTemplateConstant, options.LocalPath, createError)
	}

	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, options.RepositoryURL, cloneIntoCurrentDirectoryConstant},
		WorkingDirectory:     options.LocalPath,
		EnvironmentVariables: nonInteractiveGitEnvironment(),
	})
	return executionError
}

func (service *Service) pullBranch(executionContext context.Context, options Options) error {
	_, executionError := service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            []string{gitPullSubcommandConstant, gitDefaultRemoteNameConstant, options.BranchName},
		WorkingDirectory:     options.LocalPath,
		EnvironmentVariables: nonInteractiveGitEnvironment(),
	})
	return executionError
}

func (service *Service) runPostCommand(executionContext context.Context, workingDirectory string, postCommand string) error {
	_, executionError := service.executor.ExecuteShell(executionContext, execshell.CommandDetails{
		Arguments:        []string{shellCommandFlagConstant, postCommand},
		WorkingDirectory: workingDirectory,
	})
	if executionError != nil {
		service.logger.Warn(postCommandFailureMessageConstant, zap.Error(executionError))
	}
	return executionError
}

func (service *Service) syncLogFields(options Options) []zap.Field {
	return []zap.Field{
		zap.String(logFieldLocalPathConstant, options.LocalPath),
		zap.String(logFieldBranchNameConstant, options.BranchName),
	}
}

func validateOptions(options Options) error {
	if len(strings.TrimSpace(options.RepositoryURL)) == 0 {
		return ErrRepositoryURLRequired
	}
	if len(strings.TrimSpace(options.LocalPath)) == 0 {
		return ErrLocalPathRequired
	}
	if len(strings.TrimSpace(options.BranchName)) == 0 {
		return ErrBranchNameRequired
	}
	return nil
}

func checkoutExists(localPath string) (bool, error) {
	gitDirectoryPath := filepath.Join(localPath, gitDirectoryNameConstant)
	_, statError := os.Stat(gitDirectoryPath)
	if statError == nil {
		return true, nil
	}
	if errors.Is(statError, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf(localPathInspectionErrorTemplateConstant, localPath, statError)
}

func nonInteractiveGitEnvironment() map[string]string {
	return map[string]string{gitTerminalPromptEnvironmentKeyConstant: gitTerminalPromptDisabledValueConstant}
}
