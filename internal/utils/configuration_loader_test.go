package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tabmigrate/internal/utils"
)

const (
	testEnvironmentPrefixConstant                     = "TESTTABMIGRATE"
	testLogLevelKeyConstant                           = "common.log_level"
	testRequestTimeoutKeyConstant                     = "servers.source.request_timeout"
	testLogLevelEnvironmentVariableConstant           = testEnvironmentPrefixConstant + "_COMMON_LOG_LEVEL"
	testSourcePasswordEnvironmentVariableConstant     = testEnvironmentPrefixConstant + "_SERVERS_SOURCE_PASSWORD"
	testDefaultLogLevelConstant                       = "info"
	testEmbeddedLogLevelConstant                      = "debug"
	testFileLogLevelConstant                          = "warn"
	testEnvironmentLogLevelConstant                   = "error"
	testDefaultRequestTimeoutConstant                 = "1m0s"
	testFileRequestTimeoutConstant                    = "90s"
	testEnvironmentPasswordConstant                   = "s3cret"
	testConfigFileNameConstant                        = "config.yaml"
	testConfigurationNameConstant                     = "config"
	testConfigurationTypeConstant                     = "yaml"
	testUserConfigurationDirectoryNameConstant        = "tabmigrate"
	testXDGConfigHomeDirectoryNameConstant            = "config"
	configurationLoaderSubtestNameTemplateConstant    = "%d_%s"
	testLogLevelContentTemplateConstant               = "common:\n  log_level: %s\n"
	testEmbeddedContentConstant                       = "common:\n  log_level: debug\nservers:\n  source:\n    password: \"\"\n"
	testFileContentTemplateConstant                   = "common:\n  log_level: %s\nservers:\n  source:\n    request_timeout: %s\n    sites: finance, sales\n"
	testCaseSearchPathWorkingDirectoryMessageConstant = "searches_working_directory"
	testCaseSearchPathHomeDirectoryMessageConstant    = "searches_user_configuration_directory"
)

type configurationFixture struct {
	Common  configurationCommonFixture  `mapstructure:"common"`
	Servers configurationServersFixture `mapstructure:"servers"`
}

type configurationCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type configurationServersFixture struct {
	Source configurationServerFixture `mapstructure:"source"`
}

type configurationServerFixture struct {
	Password       string        `mapstructure:"password"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Sites          []string      `mapstructure:"sites"`
}

func TestConfigurationLoaderPrecedence(testInstance *testing.T) {
	testCases := []struct {
		name                   string
		writeFile              bool
		environmentLogLevel    string
		environmentPassword    string
		expectedLogLevel       string
		expectedRequestTimeout time.Duration
		expectedSites          []string
		expectedPassword       string
	}{
		{
			name:                   "embedded_overrides_defaults",
			expectedLogLevel:       testEmbeddedLogLevelConstant,
			expectedRequestTimeout: time.Minute,
		},
		{
			name:                   "file_overrides_embedded",
			writeFile:              true,
			expectedLogLevel:       testFileLogLevelConstant,
			expectedRequestTimeout: 90 * time.Second,
			expectedSites:          []string{"finance", " sales"},
		},
		{
			name:                   "environment_overrides_file",
			writeFile:              true,
			environmentLogLevel:    testEnvironmentLogLevelConstant,
			environmentPassword:    testEnvironmentPasswordConstant,
			expectedLogLevel:       testEnvironmentLogLevelConstant,
			expectedRequestTimeout: 90 * time.Second,
			expectedSites:          []string{"finance", " sales"},
			expectedPassword:       testEnvironmentPasswordConstant,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(configurationLoaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			temporaryDirectory := testInstance.TempDir()
			configurationFilePath := ""
			if testCase.writeFile {
				configurationFilePath = filepath.Join(temporaryDirectory, testConfigFileNameConstant)
				configurationContent := fmt.Sprintf(testFileContentTemplateConstant, testFileLogLevelConstant, testFileRequestTimeoutConstant)
				require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600))
			}
			if len(testCase.environmentLogLevel) > 0 {
				testInstance.Setenv(testLogLevelEnvironmentVariableConstant, testCase.environmentLogLevel)
			}
			if len(testCase.environmentPassword) > 0 {
				testInstance.Setenv(testSourcePasswordEnvironmentVariableConstant, testCase.environmentPassword)
			}

			configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, []string{temporaryDirectory})
			configurationLoader.SetEmbeddedConfiguration([]byte(testEmbeddedContentConstant), testConfigurationTypeConstant)

			defaultValues := map[string]any{
				testLogLevelKeyConstant:       testDefaultLogLevelConstant,
				testRequestTimeoutKeyConstant: testDefaultRequestTimeoutConstant,
			}

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration(configurationFilePath, defaultValues, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testCase.expectedLogLevel, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, testCase.expectedRequestTimeout, loadedConfiguration.Servers.Source.RequestTimeout)
			require.Equal(testInstance, testCase.expectedSites, loadedConfiguration.Servers.Source.Sites)
			require.Equal(testInstance, testCase.expectedPassword, loadedConfiguration.Servers.Source.Password)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderRejectsMalformedFile(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), testConfigFileNameConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("common: [unterminated"), 0o600))

	configurationLoader := utils.NewConfigurationLoader(testConfigurationNameConstant, testConfigurationTypeConstant, testEnvironmentPrefixConstant, nil)
	_, loadError := configurationLoader.LoadConfiguration(configurationFilePath, nil, &configurationFixture{})
	require.ErrorContains(testInstance, loadError, configurationFilePath)
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
			testInstance.Setenv("HOME", homeDirectoryPath)
			testInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectoryPath, testXDGConfigHomeDirectoryNameConstant))

			userConfigurationBaseDirectoryPath, userConfigurationDirectoryError := os.UserConfigDir()
			require.NoError(testInstance, userConfigurationDirectoryError)
			userConfigurationDirectoryPath := filepath.Join(userConfigurationBaseDirectoryPath, testUserConfigurationDirectoryNameConstant)

			selectedConfigurationDirectoryPath := testCase.configurationDirectorySelect(workingDirectoryPath, userConfigurationDirectoryPath)
			require.NoError(testInstance, os.MkdirAll(selectedConfigurationDirectoryPath, 0o755))

			configurationFilePath := filepath.Join(selectedConfigurationDirectoryPath, testConfigFileNameConstant)
			configurationContent := fmt.Sprintf(testLogLevelContentTemplateConstant, testFileLogLevelConstant)
			require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte(configurationContent), 0o600))

			configurationLoader := utils.NewConfigurationLoader(
				testConfigurationNameConstant,
				testConfigurationTypeConstant,
				testEnvironmentPrefixConstant,
				[]string{workingDirectoryPath, userConfigurationDirectoryPath},
			)

			loadedConfiguration := configurationFixture{}
			metadata, loadError := configurationLoader.LoadConfiguration("", map[string]any{testLogLevelKeyConstant: testDefaultLogLevelConstant}, &loadedConfiguration)
			require.NoError(testInstance, loadError)
			require.Equal(testInstance, testFileLogLevelConstant, loadedConfiguration.Common.LogLevel)
			require.Equal(testInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}
