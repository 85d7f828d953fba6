package setup

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/autopull/internal/configstore"
	"github.com/temirov/autopull/internal/githubapi"
)

const (
	commandUseConstant              = "setup"
	commandShortDescriptionConstant = "Interactively configure the watched repository"
	commandLongDescriptionConstant  = "setup collects the GitHub token, repository, branch, local path, and optional post-pull command, verifies access, and persists the configuration."

	defaultLogFileNameConstant = "gitwatch.log"

	configFileConfigKeySuffixConstant = ".config_file"
	logFileConfigKeySuffixConstant    = ".log_file"

	activityLogDegradedMessageTemplateConstant = "Failed to write to log file, continuing with stdout only: %v"
)

// CommandConfiguration captures the setup command settings sourced from configuration files.
type CommandConfiguration struct {
	ConfigFile string `mapstructure:"config_file"`
	LogFile    string `mapstructure:"log_file"`
}

// Sanitize normalizes configured values, applying defaults for anything unset.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	sanitized := configuration
	if len(sanitized.ConfigFile) == 0 {
		sanitized.ConfigFile = configstore.DefaultConfigurationFileName
	}
	if len(sanitized.LogFile) == 0 {
		sanitized.LogFile = defaultLogFileNameConstant
	}
	return sanitized
}

// DefaultCommandConfiguration returns the setup settings used when no configuration is supplied.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{}.Sanitize()
}

// DefaultConfigurationValues exposes the setup defaults keyed for the configuration loader.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + configFileConfigKeySuffixConstant: defaults.ConfigFile,
		configurationKeyPrefix + logFileConfigKeySuffixConstant:    defaults.LogFile,
	}
}

// ActivityLoggerFactory builds the timestamped activity logger for the given log file.
type ActivityLoggerFactory func(logFilePath string) (*zap.Logger, error)

// CommandBuilder assembles the setup command.
type CommandBuilder struct {
	ConfigurationProvider func() CommandConfiguration
	ActivityLoggerFactory ActivityLoggerFactory
}

// Build constructs the setup command.
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

	activityLogger, activityLoggerError := builder.createActivityLogger(configuration.LogFile)
	if activityLoggerError != nil && activityLogger != nil {
		activityLogger.Warn(fmt.Sprintf(activityLogDegradedMessageTemplateConstant, activityLoggerError))
	}

	wizard, wizardError := NewWizard(Dependencies{
		Input:           command.InOrStdin(),
		Output:          command.OutOrStdout(),
		Store:           configstore.NewStore(configuration.ConfigFile),
		VerifierFactory: newAPIAccessVerifier,
		ActivityLogger:  activityLogger,
	})
	if wizardError != nil {
		return wizardError
	}

	return wizard.Run(command.Context())
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) createActivityLogger(logFilePath string) (*zap.Logger, error) {
	if builder.ActivityLoggerFactory == nil {
		return nil, nil
	}
	return builder.ActivityLoggerFactory(logFilePath)
}

func newAPIAccessVerifier(token string) (AccessVerifier, error) {
	client, clientError := githubapi.NewClient(token)
	if clientError != nil {
		return nil, clientError
	}
	return client, nil
}
