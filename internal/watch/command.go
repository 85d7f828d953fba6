package watch

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/autopull/internal/configstore"
	"github.com/temirov/autopull/internal/execshell"
	"github.com/temirov/autopull/internal/githubapi"
	"github.com/temirov/autopull/internal/ui"
	"github.com/temirov/autopull/internal/updater"
)

const (
	commandUseConstant              = "watch"
	commandShortDescriptionConstant = "Poll the configured repository and pull new commits"
	commandLongDescriptionConstant  = "watch polls the configured GitHub branch for new commits on a fixed interval and synchronizes the local checkout when the tip changes."

	// DefaultLogFileName receives a copy of every activity log line.
	DefaultLogFileName = "gitwatch.log"

	defaultIntervalSecondsConstant = 60

	intervalSecondsConfigKeySuffixConstant = ".interval_seconds"
	configFileConfigKeySuffixConstant      = ".config_file"
	logFileConfigKeySuffixConstant         = ".log_file"

	missingConfigurationMessageConstant        = "no configuration found at %s; run 'autopull setup' first"
	activityLogDegradedMessageTemplateConstant = "Failed to write to log file, continuing with stdout only: %v"
)

// CommandConfiguration captures the watch command settings sourced from configuration files.
type CommandConfiguration struct {
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	ConfigFile      string `mapstructure:"config_file"`
	LogFile         string `mapstructure:"log_file"`
}

// Sanitize normalizes configured values, applying defaults for anything unset.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if sanitized.IntervalSeconds <= 0 {
		sanitized.IntervalSeconds = defaultIntervalSecondsConstant
	}
	if len(sanitized.ConfigFile) == 0 {
		sanitized.ConfigFile = configstore.DefaultConfigurationFileName
	}
	if len(sanitized.LogFile) == 0 {
		sanitized.LogFile = DefaultLogFileName
	}
	return sanitized
}

// DefaultCommandConfiguration returns the watch settings used when no configuration is supplied.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{}.Sanitize()
}

// DefaultConfigurationValues exposes the watch defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + intervalSecondsConfigKeySuffixConstant: defaults.IntervalSeconds,
		configurationKeyPrefix + configFileConfigKeySuffixConstant:      defaults.ConfigFile,
		configurationKeyPrefix + logFileConfigKeySuffixConstant:         defaults.LogFile,
	}
}

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ActivityLoggerFactory builds the timestamped activity logger for the given log file.
type ActivityLoggerFactory func(logFilePath string) (*zap.Logger, error)

// CommandBuilder assembles the watch command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	ActivityLoggerFactory ActivityLoggerFactory
}

// Build constructs the watch command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:   commandUseConstant,
		Short: commandShortDescriptionConstant,
		Long:  commandLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.run,
	}

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()

	activityLogger, activityLoggerError := builder.createActivityLogger(configuration.LogFile)
	if activityLoggerError != nil {
		activityLogger.Warn(fmt.Sprintf(activityLogDegradedMessageTemplateConstant, activityLoggerError))
	}

	store := configstore.NewStore(configuration.ConfigFile)
	repositoryConfiguration, configurationExists, loadError := store.Load()
	if loadError != nil {
		return loadError
	}
	if !configurationExists {
		return fmt.Errorf(missingConfigurationMessageConstant, store.Path())
	}

	probeClient, probeError := githubapi.NewClient(repositoryConfiguration.GitHubToken)
	if probeError != nil {
		return probeError
	}

	commandObserver := ui.NewConsoleCommandEventLogger(activityLogger)
	shellExecutor, executorError := execshell.NewShellExecutorWithObserver(logger, execshell.NewOSCommandRunner(), commandObserver)
	if executorError != nil {
		return executorError
	}

	synchronizer, synchronizerError := updater.NewService(updater.Dependencies{Executor: shellExecutor, Logger: logger})
	if synchronizerError != nil {
		return synchronizerError
	}

	watchService, serviceError := NewService(Dependencies{
		Probe:          probeClient,
		Synchronizer:   synchronizer,
		ActivityLogger: activityLogger,
	})
	if serviceError != nil {
		return serviceError
	}

	signalContext, stopSignalHandling := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
	defer stopSignalHandling()

	return watchService.Run(signalContext, Options{
		Configuration: repositoryConfiguration,
		PollInterval:  time.Duration(configuration.IntervalSeconds) * time.Second,
	})
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) createActivityLogger(logFilePath string) (*zap.Logger, error) {
	if builder.ActivityLoggerFactory == nil {
		return zap.NewNop(), nil
	}
	return builder.ActivityLoggerFactory(logFilePath)
}
