package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/autopull/internal/configstore"
	"github.com/temirov/autopull/internal/updater"
)

const (
	// DefaultPollInterval is the fixed wait between successive tip-commit checks.
	DefaultPollInterval = 60 * time.Second

	probeNotConfiguredMessageConstant        = "commit probe not configured"
	synchronizerNotConfiguredMessageConstant = "repository synchronizer not configured"

	serviceStartedMessageConstant            = "Starting AutoPull service mode"
	monitoringMessageTemplateConstant        = "Monitoring: %s/%s (%s)"
	checkIntervalMessageTemplateConstant     = "Check interval: %.0f seconds"
	initialCommitMessageTemplateConstant     = "Initial commit: %s"
	newCommitMessageTemplateConstant         = "New commit detected: %s"
	probeFailureMessageTemplateConstant      = "Failed to check for updates: %v"
	updateCompletedMessageConstant           = "Update completed successfully ✓"
	updateFailedMessageTemplateConstant      = "Update failed ✗: %v"
	postCommandFailedMessageTemplateConstant = "Post-pull command failed: %v"
	postCommandCompletedMessageConstant      = "Post-pull command completed ✓"
	unexpectedErrorMessageTemplateConstant   = "Unexpected error: %v"
	serviceStoppedMessageConstant            = "AutoPull service stopped"

	shortCommitSHALengthConstant = 8
)

// ErrProbeNotConfigured indicates the service was constructed without a commit probe.
var ErrProbeNotConfigured = errors.New(probeNotConfiguredMessageConstant)

// ErrSynchronizerNotConfigured indicates the service was constructed without a synchronizer.
var ErrSynchronizerNotConfigured = errors.New(synchronizerNotConfiguredMessageConstant)

// Probe resolves the current tip commit of the watched branch.
type Probe interface {
	FetchBranchTipSHA(executionContext context.Context, owner string, name string, branch string) (string, error)
}

// Synchronizer brings the local checkout up to date with the remote branch.
type Synchronizer interface {
	EnsureAndSync(executionContext context.Context, options updater.Options) (updater.Result, error)
}

// SleepFunc waits for the poll interval or until the provided context is cancelled.
type SleepFunc func(waitContext context.Context, interval time.Duration)

// Dependencies enumerates the collaborators required by the Service.
type Dependencies struct {
	Probe          Probe
	Synchronizer   Synchronizer
	ActivityLogger *zap.Logger
	Sleep          SleepFunc
}

// Options configure one watch run.
type Options struct {
	Configuration configstore.RepositoryConfiguration
	PollInterval  time.Duration
}

// Service polls the remote branch tip and converges the local checkout on change.
type Service struct {
	probe          Probe
	synchronizer   Synchronizer
	activityLogger *zap.Logger
	sleep          SleepFunc
}

type watchState struct {
	lastObservedSHA string
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Probe == nil {
		return nil, ErrProbeNotConfigured
	}
	if dependencies.Synchronizer == nil {
		return nil, ErrSynchronizerNotConfigured
	}

	activityLogger := dependencies.ActivityLogger
	if activityLogger == nil {
		activityLogger = zap.NewNop()
	}

	sleep := dependencies.Sleep
	if sleep == nil {
		sleep = interruptibleSleep
	}

	return &Service{
		probe:          dependencies.Probe,
		synchronizer:   dependencies.Synchronizer,
		activityLogger: activityLogger,
		sleep:          sleep,
	}, nil
}

// Run executes the polling loop until the signal context is cancelled.
//
// Shutdown is honored only at iteration boundaries: an in-flight probe, sync,
// or post-update command always completes before the loop stops, so a clone or
// pull is never left half-applied. Probe and sync invocations therefore run on
// contexts independent of the signal context.
func (service *Service) Run(signalContext context.Context, options Options) error {
	validationError := configstore.Validate(options.Configuration)
	if validationError != nil {
		return validationError
	}

	pollInterval := options.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	service.activityLogger.Info(serviceStartedMessageConstant)
	service.activityLogger.Info(fmt.Sprintf(
		monitoringMessageTemplateConstant,
		options.Configuration.RepositoryOwner,
		options.Configuration.RepositoryName,
		options.Configuration.BranchName,
	))
	service.activityLogger.Info(fmt.Sprintf(checkIntervalMessageTemplateConstant, pollInterval.Seconds()))

	state := &watchState{}

	for signalContext.Err() == nil {
		service.runIteration(state, options.Configuration)

		if signalContext.Err() != nil {
			break
		}
		service.sleep(signalContext, pollInterval)
	}

	service.activityLogger.Info(serviceStoppedMessageConstant)
	return nil
}

// runIteration performs one probe-compare-sync cycle. Panics are contained
// here so a single bad iteration never terminates the loop.
func (service *Service) runIteration(state *watchState, configuration configstore.RepositoryConfiguration) {
	defer func() {
		if recovered := recover(); recovered != nil {
			service.activityLogger.Error(fmt.Sprintf(unexpectedErrorMessageTemplateConstant, recovered))
		}
	}()

	fetchedSHA, probeError := service.probe.FetchBranchTipSHA(
		context.Background(),
		configuration.RepositoryOwner,
		configuration.RepositoryName,
		configuration.BranchName,
	)
	if probeError != nil {
		service.activityLogger.Warn(fmt.Sprintf(probeFailureMessageTemplateConstant, probeError))
		return
	}

	if len(state.lastObservedSHA) == 0 {
		state.lastObservedSHA = fetchedSHA
		service.activityLogger.Info(fmt.Sprintf(initialCommitMessageTemplateConstant, shortCommitSHA(fetchedSHA)))
		return
	}

	if fetchedSHA == state.lastObservedSHA {
		return
	}

	service.activityLogger.Info(fmt.Sprintf(newCommitMessageTemplateConstant, shortCommitSHA(fetchedSHA)))

	syncResult, syncError := service.synchronizer.EnsureAndSync(context.Background(), updater.Options{
		RepositoryURL: configuration.RepositoryURL,
		LocalPath:     configuration.LocalPath,
		BranchName:    configuration.BranchName,
		PostCommand:   configuration.PostCommand,
	})
	if syncError != nil {
		service.activityLogger.Warn(fmt.Sprintf(updateFailedMessageTemplateConstant, syncError))
		return
	}

	if syncResult.PostCommandRan {
		if syncResult.PostCommandError != nil {
			service.activityLogger.Warn(fmt.Sprintf(postCommandFailedMessageTemplateConstant, syncResult.PostCommandError))
		} else {
			service.activityLogger.Info(postCommandCompletedMessageConstant)
		}
	}

	state.lastObservedSHA = fetchedSHA
	service.activityLogger.Info(updateCompletedMessageConstant)
}

func shortCommitSHA(commitSHA string) string {
	if len(commitSHA) <= shortCommitSHALengthConstant {
		return commitSHA
	}
	return commitSHA[:shortCommitSHALengthConstant]
}

func interruptibleSleep(waitContext context.Context, interval time.Duration) {
	intervalTimer := time.NewTimer(interval)
	defer intervalTimer.Stop()

	select {
	case <-waitContext.Done():
	case <-intervalTimer.C:
	}
}
