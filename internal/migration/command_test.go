package migration_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/migration"
	"github.com/temirov/tabmigrate/internal/restapi"
	"github.com/temirov/tabmigrate/internal/servers"
)

const (
	testSourceServerURLConstant = "https://source.example.com"
	testTargetServerURLConstant = "https://target.example.com"
)

type fakeExecutor struct {
	workbookRequests []migration.WorkbookRequest
	projectRequests  []migration.ProjectRequest
	siteRequests     []migration.SiteRequest
	projectResult    migration.ProjectResult
	operationError   error
	closed           bool
}

func (executor *fakeExecutor) MigrateWorkbook(_ context.Context, request migration.WorkbookRequest) (migration.WorkbookResult, error) {
	executor.workbookRequests = append(executor.workbookRequests, request)
	if executor.operationError != nil {
		return migration.WorkbookResult{}, executor.operationError
	}
	return migration.WorkbookResult{SourceWorkbookID: request.WorkbookID, TargetWorkbookID: "tgt-9", Name: testDashboardNameConstant}, nil
}

func (executor *fakeExecutor) MigrateProject(_ context.Context, request migration.ProjectRequest) (migration.ProjectResult, error) {
	executor.projectRequests = append(executor.projectRequests, request)
	return executor.projectResult, executor.operationError
}

func (executor *fakeExecutor) MigrateSite(_ context.Context, request migration.SiteRequest) (migration.SiteReport, error) {
	executor.siteRequests = append(executor.siteRequests, request)
	return migration.SiteReport{SourceSite: request.SourceSite, TargetSite: request.TargetSite, MigratedWorkbooks: 3}, executor.operationError
}

func (executor *fakeExecutor) Close(context.Context) error {
	executor.closed = true
	return nil
}

type commandHarness struct {
	executor       *fakeExecutor
	providerCalls  int
	configurations []migration.CommandConfiguration
	output         *bytes.Buffer
}

func runMigrateCommand(testInstance *testing.T, configuration migration.CommandConfiguration, executor *fakeExecutor, arguments []string) (*commandHarness, error) {
	testInstance.Helper()
	harness := &commandHarness{executor: executor, output: &bytes.Buffer{}}
	builder := migration.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: func() migration.CommandConfiguration { return configuration },
		ExecutorProvider: func(_ context.Context, _ *zap.Logger, resolved migration.CommandConfiguration) (migration.Executor, error) {
			harness.providerCalls++
			harness.configurations = append(harness.configurations, resolved)
			return executor, nil
		},
	}
	command, buildError := builder.Build()
	require.NoError(testInstance, buildError)
	command.SilenceUsage = true
	command.SilenceErrors = true
	command.SetOut(harness.output)
	command.SetErr(&bytes.Buffer{})
	command.SetArgs(arguments)
	command.SetContext(context.Background())
	return harness, command.Execute()
}

func configuredServers() migration.CommandConfiguration {
	configuration := migration.CommandConfiguration{Servers: servers.DefaultConfigurations(), Migration: migration.DefaultConfiguration()}
	configuration.Servers.Source.URL = testSourceServerURLConstant
	configuration.Servers.Target.URL = testTargetServerURLConstant
	return configuration
}

func TestMigrateCommandDispatch(testInstance *testing.T) {
	testCases := []struct {
		name           string
		arguments      []string
		verify         func(testInstance *testing.T, harness *commandHarness)
		expectedOutput string
	}{
		{
			name:      "workbook",
			arguments: []string{"workbook", testDashboardIDConstant, "--source-project-id", testDataIDConstant},
			verify: func(testInstance *testing.T, harness *commandHarness) {
				require.Equal(testInstance, []migration.WorkbookRequest{{WorkbookID: testDashboardIDConstant, SourceProjectID: testDataIDConstant}}, harness.executor.workbookRequests)
			},
			expectedOutput: "target_workbook_id: tgt-9",
		},
		{
			name:      "project_with_target",
			arguments: []string{"project", testDataIDConstant, "--target-project-id", testExplicitTargetIDConstant},
			verify: func(testInstance *testing.T, harness *commandHarness) {
				require.Equal(testInstance, []migration.ProjectRequest{{SourceProjectID: testDataIDConstant, TargetProjectID: testExplicitTargetIDConstant}}, harness.executor.projectRequests)
			},
			expectedOutput: "migrated: 1",
		},
		{
			name:      "site_with_sites",
			arguments: []string{"site", "--source-site-id", testOtherSourceSiteConstant, "--target-site-id", testBoundTargetSiteConstant},
			verify: func(testInstance *testing.T, harness *commandHarness) {
				require.Equal(testInstance, []migration.SiteRequest{{SourceSite: testOtherSourceSiteConstant, TargetSite: testBoundTargetSiteConstant}}, harness.executor.siteRequests)
			},
			expectedOutput: "migrated_workbooks: 3",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor := &fakeExecutor{projectResult: migration.ProjectResult{SourceProjectID: testDataIDConstant, Migrated: 1}}
			harness, executionError := runMigrateCommand(testInstance, configuredServers(), executor, testCase.arguments)
			require.NoError(testInstance, executionError)
			require.Equal(testInstance, 1, harness.providerCalls)
			require.True(testInstance, executor.closed)
			testCase.verify(testInstance, harness)
			require.Contains(testInstance, harness.output.String(), testCase.expectedOutput)
		})
	}
}

func TestMigrateCommandPreconditions(testInstance *testing.T) {
	missingTarget := configuredServers()
	missingTarget.Servers.Target.URL = ""

	testCases := []struct {
		name          string
		configuration migration.CommandConfiguration
		arguments     []string
		verify        func(testInstance *testing.T, executionError error)
	}{
		{
			name:          "workbook_without_source_project",
			configuration: configuredServers(),
			arguments:     []string{"workbook", testDashboardIDConstant},
			verify: func(testInstance *testing.T, executionError error) {
				require.ErrorContains(testInstance, executionError, "--source-project-id")
			},
		},
		{
			name:          "workbook_without_identifier",
			configuration: configuredServers(),
			arguments:     []string{"workbook", "--source-project-id", testDataIDConstant},
			verify: func(testInstance *testing.T, executionError error) {
				require.Error(testInstance, executionError)
			},
		},
		{
			name:          "missing_target_server",
			configuration: missingTarget,
			arguments:     []string{"site"},
			verify: func(testInstance *testing.T, executionError error) {
				var configurationError servers.ConfigurationError
				require.ErrorAs(testInstance, executionError, &configurationError)
				require.Equal(testInstance, "target-server", configurationError.FlagName)
			},
		},
		{
			name:          "exclusive_target_credentials",
			configuration: configuredServers(),
			arguments:     []string{"site", "--target-token-name", "token", "--target-username", "admin"},
			verify: func(testInstance *testing.T, executionError error) {
				require.Error(testInstance, executionError)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			executor := &fakeExecutor{}
			harness, executionError := runMigrateCommand(testInstance, testCase.configuration, executor, testCase.arguments)
			testCase.verify(testInstance, executionError)
			require.Zero(testInstance, harness.providerCalls)
			require.False(testInstance, executor.closed)
		})
	}
}

func TestMigrateCommandFlagsOverrideConfiguration(testInstance *testing.T) {
	stagingDirectory := testInstance.TempDir()
	executor := &fakeExecutor{}
	harness, executionError := runMigrateCommand(testInstance, configuredServers(), executor, []string{
		"site",
		"--staging-dir", stagingDirectory,
		"--workbook-workers", "4",
		"--project-workers", "2",
		"--overwrite=no",
		"--target-server", "https://override.example.com/",
		"--source-token-name", "token",
	})
	require.NoError(testInstance, executionError)
	require.Len(testInstance, harness.configurations, 1)

	resolved := harness.configurations[0]
	require.Equal(testInstance, stagingDirectory, resolved.Migration.StagingDirectory)
	require.Equal(testInstance, 4, resolved.Migration.WorkbookWorkers)
	require.Equal(testInstance, 2, resolved.Migration.ProjectWorkers)
	require.False(testInstance, resolved.Migration.Overwrite)
	require.Equal(testInstance, "https://override.example.com", resolved.Servers.Target.URL)
	require.Equal(testInstance, "token", resolved.Servers.Source.TokenName)
	require.Equal(testInstance, testSourceServerURLConstant, resolved.Servers.Source.URL)
}

func TestMigrateCommandReportsFailuresAfterPrintingReport(testInstance *testing.T) {
	executor := &fakeExecutor{
		projectResult:  migration.ProjectResult{SourceProjectID: testDataIDConstant, Failures: []migration.WorkbookFailure{{WorkbookID: testDashboardIDConstant, Message: testPublishRefusedMessageConstant}}},
		operationError: errors.New(testPublishRefusedMessageConstant),
	}
	harness, executionError := runMigrateCommand(testInstance, configuredServers(), executor, []string{"project", testDataIDConstant})
	require.ErrorContains(testInstance, executionError, testPublishRefusedMessageConstant)
	require.True(testInstance, executor.closed)
	require.Contains(testInstance, harness.output.String(), "workbook_id: W1")
}

func TestWriteReportRendersYAML(testInstance *testing.T) {
	buffer := &bytes.Buffer{}
	require.NoError(testInstance, migration.WriteReport(buffer, migration.ProjectResult{SourceProjectID: testDataIDConstant, TargetProjectID: "tgt-2", Migrated: 2}))
	require.Equal(testInstance, "source_project_id: P2\ntarget_project_id: tgt-2\nmigrated: 2\n", buffer.String())
}

func TestConfigurationSanitizeClampsPageSize(testInstance *testing.T) {
	testCases := []struct {
		name             string
		pageSize         int
		expectedPageSize int
	}{
		{name: "unset_uses_default", pageSize: 0, expectedPageSize: migration.DefaultConfiguration().PageSize},
		{name: "within_limit_kept", pageSize: 250, expectedPageSize: 250},
		{name: "above_server_limit_capped", pageSize: 5000, expectedPageSize: restapi.MaximumPageSize},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(testInstance *testing.T) {
			configuration := migration.DefaultConfiguration()
			configuration.PageSize = testCase.pageSize
			require.Equal(testInstance, testCase.expectedPageSize, configuration.Sanitize().PageSize)
		})
	}
}
