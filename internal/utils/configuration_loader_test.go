package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/autopull/internal/utils"
)

const (
	testEnvironmentPrefixConstant                     = "TESTAUTOPULL"
	testCommonSectionKeyConstant                      = "common"
	testLogLevelKeyConstant                           = testCommonSectionKeyConstant + ".log_level"
	testWatchIntervalKeyConstant                      = "tools.watch.interval_seconds"
	testWatchConfigFileKeyConstant                    = "tools.watch.config_file"
	testDefaultLogLevelConstant                       = "info"
	testConfiguredLogLevelConstant                    = "debug"
	testOverriddenLogLevelConstant                    = "error"
	testFileLogLevelConstant                          = "warn"
	testDefaultWatchIntervalConstant                  = 60
	testEmbeddedWatchIntervalConstant                 = 120
	testFileWatchIntervalConstant                     = 30
	testOverriddenWatchIntervalConstant               = 5
	testWatchConfigFileNameConstant                   = ".autopull-config"
	testConfigFileNameConstant                        = "config.yaml"
	testConfigContentTemplateConstant                 = "common:\n  log_level: %s\ntools:\n  watch:\n    interval_seconds: %d\n"
	testCaseEmbeddedMessageConstant                   = "embedded configuration merges"
	testCaseDefaultsMessageConstant                   = "defaults are applied"
	testCaseFileMessageConstant                       = "config file overrides defaults"
	testCaseEnvironmentMessageConstant                = "environment overrides file"
	testConfigurationNameConstant                     = "config"
	testConfigurationTypeConstant                     = "yaml"
	configurationLoaderSubtestNameTemplateConstant    = "%d_%s"
	testEmbeddedLogLevelConstant                      = "debug"
	testUserConfigurationDirectoryNameConstant        = ".autopull"
	testXDGConfigHomeDirectoryNameConstant            = "config"
	testCaseSearchPathWorkingDirectoryMessageConstant = "searches working directory"
	testCaseSearchPathHomeDirectoryMessageConstant    = "searches home configuration directory"
)

type configurationFixture struct {
	Common configurationCommonFixture `mapstructure:"common"`
	Tools  configurationToolsFixture  `mapstructure:"tools"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationToolsFixture struct {
	Watch configurationWatchFixture `mapstructure:"watch"`
}

type configurationWatchFixture struct {
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	ConfigFile      string `mapstructure:"config_file"`
}

func TestConfigurationLoaderLoadConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		embeddedLogLevel      string
		embeddedWatchInterval int
		fileLogLevel          string
		fileWatchInterval     int
		environmentLogLevel   string
		expectedLogLevel      string
		expectedWatchInterval int
	}{
		{
			name:                  testCaseEmbeddedMessageConstant,
			embeddedLogLevel:      testEmbeddedLogLevelConstant,
			embeddedWatchInterval: testEmbeddedWatchIntervalConstant,
			expectedLogLevel:      testEmbeddedLogLevelConstant,
			expectedWatchInterval: testEmbeddedWatchIntervalConstant,
		},
		{
			name:                  testCaseDefaultsMessageConstant,
			embeddedLogLevel:      testDefaultLogLevelConstant,
			embeddedWatchInterval: testDefaultWatchIntervalConstant,
			expectedLogLevel:      testDefaultLogLevelConstant,
			expectedWatchInterval: testDefaultWatchIntervalConstant,
		},
		{
			name:                  testCaseFileMessageConstant,
			embeddedLogLevel:      testDefaultLogLevelConstant,
			embeddedWatchInterval: testDefaultWatchIntervalConstant,
			fileLogLevel:          testConfiguredLogLevelConstant,
			fileWatchInterval:     testFileWatchIntervalConstant,
			expectedLogLevel:      testConfiguredLogLevelConstant,
			expectedWatchInterval: testFileWatchIntervalConstant,
		},
		{
			name:                  testCaseEnvironmentMessageConstant,
			embeddedLogLevel:      testDefaultLogLevelConstant,
			embeddedWatchInterval: testDefaultWatchIntervalConstant,
			fileLogLevel:          testFileLogLevelConstant,
			fileWatchInterval:     testFileWatchIntervalConstant,
			environmentLogLevel:   testOverriddenLogLevelConstant,
			expectedLogLevel:      testOverriddenLogLevelConstant,
			expectedWatchInterval: testFileWatchIntervalConstant,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			tempDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileLogLevel) > 0 {
				configurationFilePath = filepath.Join(tempDirectory, testConfigFileNameConstant)
				configurationContent := fmt.Sprintf(testConfigContentTemplateConstant, testCase.fileLogLevel, testCase.fileWatchInterval)
				writeError := os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600)
				require.NoError(testInstance, writeError)
			}

			if len(testCase.environmentLogLevel) > 0 {
				environmentVariableName := fmt.Sprintf("%s_%s", testEnvironmentPrefixConstant, strings.ToUpper(strings.ReplaceAll(testLogLevelKeyConstant, ".", "_")))
				testInstance.Setenv(environmentVariableName, testCase.environmentLogLevel)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{tempDirectory})

			configurationLoader.SetEmbeddedConfiguration([]byte(fmt.Sprintf(testConfigContentTemplateConstant, testCase.embeddedLogLevel, testCase.embeddedWatchInterval)), testConfigurationTypeConstant)

			defaultValues := map[string]any{
				testLogLevelKeyConstant:        testDefaultLogLevelConstant,
				testWatchIntervalKeyConstant:   testDefaultWatchIntervalConstant,
				testWatchConfigFileKeyConstant: testWatchConfigFileNameConstant,
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, testCase.expectedWatchInterval, loadedConfiguration.Tools.Watch.IntervalSeconds)
			require.Equal(testInstance, testWatchConfigFileNameConstant, loadedConfiguration.Tools.Watch.ConfigFile)

			if len(configurationFilePath) > 0 {
				require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
			} else {
				require.Empty(testInstance, metadata.ConfigFileUsed)
			}
		})
	}
}

func TestConfigurationLoaderEnvironmentOverridesWatchInterval(testInstance *testing.T) {
	environmentVariableName := fmt.Sprintf("%s_%s", testEnvironmentPrefixConstant, strings.ToUpper(strings.ReplaceAll(testWatchIntervalKeyConstant, ".", "_")))
	testInstance.Setenv(environmentVariableName, fmt.Sprintf("%d", testOverriddenWatchIntervalConstant))

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{testInstance.TempDir()})

	defaultValues := map[string]any{
		testWatchIntervalKeyConstant: testDefaultWatchIntervalConstant,
	}

	loadedConfiguration := configurationFixture{}
	_, loadError := configurationLoader.LoadConfiguration("", defaultValues, &loadedConfiguration)
	require.NoError(testInstance, loadError)
	require.Equal(testInstance, testOverriddenWatchIntervalConstant, loadedConfiguration.Tools.Watch.IntervalSeconds)
}

func TestConfigurationLoaderSearchPaths(testInstance *testing.T) {
	testCases := []struct {
		name                         string
		configurationDirectorySelect func(workingDirectoryPath string, userConfigurationDirectoryPath string) string
	}{
		{
			name: testCaseSearchPathWorkingDirectoryMessageConstant,
			configurationDirectorySelect: func(workingDirectoryPath string, userConfigurationDirectoryPath string) string {
				return workingDirectoryPath
			},
		},
		{
			name: testCaseSearchPathHomeDirectoryMessageConstant,
			configurationDirectorySelect: func(workingDirectoryPath string, userConfigurationDirectoryPath string) string {
				return userConfigurationDirectoryPath
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			workingDirectoryPath := testInstance.TempDir()
			homeDirectoryPath := testInstance.TempDir()
			xdgConfigHomeDirectoryPath := filepath.Join(homeDirectoryPath, testXDGConfigHomeDirectoryNameConstant)

			testInstance.Setenv("HOME", homeDirectoryPath)
			testInstance.Setenv("XDG_CONFIG_HOME", xdgConfigHomeDirectoryPath)

			userConfigurationBaseDirectoryPath, userConfigurationDirectoryError := os.UserConfigDir()
			require.NoError(testInstance, userConfigurationDirectoryError)
			require.NotEmpty(testInstance, userConfigurationBaseDirectoryPath)

			userConfigurationDirectoryPath := filepath.Join(userConfigurationBaseDirectoryPath, testUserConfigurationDirectoryNameConstant)
			createDirectoryError := os.MkdirAll(userConfigurationDirectoryPath, 0o755)
			require.NoError(testInstance, createDirectoryError)

			selectedConfigurationDirectoryPath := testCase.configurationDirectorySelect(workingDirectoryPath, userConfigurationDirectoryPath)
			ensureSelectedDirectoryError := os.MkdirAll(selectedConfigurationDirectoryPath, 0o755)
			require.NoError(testInstance, ensureSelectedDirectoryError)

			configurationFilePath := filepath.Join(selectedConfigurationDirectoryPath, testConfigFileNameConstant)
			configurationContent := fmt.Sprintf(testConfigContentTemplateConstant, testConfiguredLogLevelConstant, testFileWatchIntervalConstant)
			writeConfigurationError := os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600)
			require.NoError(testInstance, writeConfigurationError)

			configurationLoader := utils.NewConfigurationLoader(
				testConfigurationNameConstant,
				testConfigurationTypeConstant,
				testEnvironmentPrefixConstant,
				[]string{workingDirectoryPath, userConfigurationDirectoryPath},
			)

			defaultValues := map[string]any{
				testLogLevelKeyConstant: testDefaultLogLevelConstant,
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration("", defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testConfiguredLogLevelConstant, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, testFileWatchIntervalConstant, loadedConfiguration.Tools.Watch.IntervalSeconds)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}
