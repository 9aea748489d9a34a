package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/servers"
	"github.com/temirov/tabmigrate/internal/utils/flags"
)

const (
	migrateCommandUseConstant               = "migrate"
	migrateCommandShortDescriptionConstant  = "Migrate content from the source server to the target server"
	migrateCommandLongDescriptionConstant   = "migrate recreates the source project hierarchy on the target server and republishes workbooks into it."
	workbookCommandUseConstant              = "workbook <workbook-id>"
	workbookCommandShortDescriptionConstant = "Migrate a single workbook"
	projectCommandUseConstant               = "project <project-id>"
	projectCommandShortDescriptionConstant  = "Migrate every workbook of one project"
	siteCommandUseConstant                  = "site"
	siteCommandShortDescriptionConstant     = "Migrate every project and workbook of a site"
	sourceProjectFlagNameConstant           = "source-project-id"
	sourceProjectFlagDescriptionConstant    = "Identifier of the project that owns the workbook on the source server"
	targetProjectFlagNameConstant           = "target-project-id"
	targetProjectFlagDescriptionConstant    = "Identifier of the destination project (resolved from the source project when omitted)"
	sourceSiteFlagNameConstant              = "source-site-id"
	sourceSiteFlagDescriptionConstant       = "Content URL of the source site to migrate (defaults to the signed-in site)"
	targetSiteFlagNameConstant              = "target-site-id"
	targetSiteFlagDescriptionConstant       = "Content URL of the target site to migrate into (defaults to the signed-in site)"
	stagingDirectoryFlagNameConstant        = "staging-dir"
	stagingDirectoryFlagDescriptionConstant = "Directory under which workbooks are staged during transfer"
	workbookWorkersFlagNameConstant         = "workbook-workers"
	workbookWorkersFlagDescriptionConstant  = "Number of workbooks transferred concurrently within a project"
	projectWorkersFlagNameConstant          = "project-workers"
	projectWorkersFlagDescriptionConstant   = "Number of projects resolved or migrated concurrently"
	overwriteFlagNameConstant               = "overwrite"
	overwriteFlagDescriptionConstant        = "Replace workbooks that already exist in the target project"
	commandExecutionErrorTemplateConstant   = "migrate %s failed: %w"
	executorCloseFailedMessageConstant      = "releasing migration resources failed"
	workbookOperationNameConstant           = "workbook"
	projectOperationNameConstant            = "project"
	siteOperationNameConstant               = "site"
)

var errSourceProjectFlagRequired = errors.New("--" + sourceProjectFlagNameConstant + " is required")

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current migrate configuration.
type ConfigurationProvider func() CommandConfiguration

// CommandBuilder assembles the migrate command hierarchy.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ExecutorProvider      ExecutorProvider
}

// Build constructs the migrate command with workbook, project, and site subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	migrateCommand := &cobra.Command{
		Use:   migrateCommandUseConstant,
		Short: migrateCommandShortDescriptionConstant,
		Long:  migrateCommandLongDescriptionConstant,
	}

	servers.BindFlags(migrateCommand, credentials.RoleSource)
	servers.BindFlags(migrateCommand, credentials.RoleTarget)

	defaults := DefaultConfiguration()
	persistentFlags := migrateCommand.PersistentFlags()
	persistentFlags.String(stagingDirectoryFlagNameConstant, "", stagingDirectoryFlagDescriptionConstant)
	persistentFlags.Int(workbookWorkersFlagNameConstant, defaults.WorkbookWorkers, workbookWorkersFlagDescriptionConstant)
	persistentFlags.Int(projectWorkersFlagNameConstant, defaults.ProjectWorkers, projectWorkersFlagDescriptionConstant)
	flags.AddToggleFlag(persistentFlags, nil, overwriteFlagNameConstant, "", defaults.Overwrite, overwriteFlagDescriptionConstant)

	workbookCommand := &cobra.Command{
		Use:   workbookCommandUseConstant,
		Short: workbookCommandShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.runWorkbook,
	}
	workbookCommand.Flags().String(sourceProjectFlagNameConstant, "", sourceProjectFlagDescriptionConstant)
	workbookCommand.Flags().String(targetProjectFlagNameConstant, "", targetProjectFlagDescriptionConstant)

	projectCommand := &cobra.Command{
		Use:   projectCommandUseConstant,
		Short: projectCommandShortDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.runProject,
	}
	projectCommand.Flags().String(targetProjectFlagNameConstant, "", targetProjectFlagDescriptionConstant)

	siteCommand := &cobra.Command{
		Use:   siteCommandUseConstant,
		Short: siteCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runSite,
	}
	siteCommand.Flags().String(sourceSiteFlagNameConstant, "", sourceSiteFlagDescriptionConstant)
	siteCommand.Flags().String(targetSiteFlagNameConstant, "", targetSiteFlagDescriptionConstant)

	migrateCommand.AddCommand(workbookCommand, projectCommand, siteCommand)
	return migrateCommand, nil
}

func (builder *CommandBuilder) runWorkbook(command *cobra.Command, arguments []string) error {
	sourceProjectID, sourceProjectError := command.Flags().GetString(sourceProjectFlagNameConstant)
	if sourceProjectError != nil {
		return sourceProjectError
	}
	if len(strings.TrimSpace(sourceProjectID)) == 0 {
		return errSourceProjectFlagRequired
	}
	targetProjectID, targetProjectError := command.Flags().GetString(targetProjectFlagNameConstant)
	if targetProjectError != nil {
		return targetProjectError
	}

	request := WorkbookRequest{WorkbookID: arguments[0], SourceProjectID: sourceProjectID, TargetProjectID: targetProjectID}
	return builder.execute(command, workbookOperationNameConstant, func(executor Executor) (any, error) {
		result, migrateError := executor.MigrateWorkbook(command.Context(), request)
		if migrateError != nil {
			return nil, migrateError
		}
		return result, nil
	})
}

func (builder *CommandBuilder) runProject(command *cobra.Command, arguments []string) error {
	targetProjectID, targetProjectError := command.Flags().GetString(targetProjectFlagNameConstant)
	if targetProjectError != nil {
		return targetProjectError
	}

	request := ProjectRequest{SourceProjectID: arguments[0], TargetProjectID: targetProjectID}
	return builder.execute(command, projectOperationNameConstant, func(executor Executor) (any, error) {
		return executor.MigrateProject(command.Context(), request)
	})
}

func (builder *CommandBuilder) runSite(command *cobra.Command, _ []string) error {
	sourceSite, sourceSiteError := command.Flags().GetString(sourceSiteFlagNameConstant)
	if sourceSiteError != nil {
		return sourceSiteError
	}
	targetSite, targetSiteError := command.Flags().GetString(targetSiteFlagNameConstant)
	if targetSiteError != nil {
		return targetSiteError
	}

	request := SiteRequest{SourceSite: sourceSite, TargetSite: targetSite}
	return builder.execute(command, siteOperationNameConstant, func(executor Executor) (any, error) {
		return executor.MigrateSite(command.Context(), request)
	})
}

// execute validates preconditions and opens an executor, which is always released before the report is printed.
func (builder *CommandBuilder) execute(command *cobra.Command, operationName string, operation func(Executor) (any, error)) error {
	configuration, configurationError := builder.parseConfiguration(command)
	if configurationError != nil {
		return configurationError
	}
	for _, role := range []credentials.Role{credentials.RoleSource, credentials.RoleTarget} {
		if validationError := configuration.Servers.ForRole(role).Validate(role); validationError != nil {
			return validationError
		}
	}

	logger := builder.resolveLogger()
	executor, executorError := builder.resolveExecutorProvider()(command.Context(), logger, configuration)
	if executorError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, operationName, executorError)
	}

	report, operationError := operation(executor)
	if closeError := executor.Close(command.Context()); closeError != nil {
		logger.Warn(executorCloseFailedMessageConstant, zap.Error(closeError))
	}

	if report != nil {
		if writeError := WriteReport(command.OutOrStdout(), report); writeError != nil {
			return errors.Join(writeError, operationError)
		}
	}
	if operationError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, operationName, operationError)
	}
	return nil
}

func (builder *CommandBuilder) parseConfiguration(command *cobra.Command) (CommandConfiguration, error) {
	configuration := builder.resolveConfiguration()
	flagSet := command.Flags()

	for _, role := range []credentials.Role{credentials.RoleSource, credentials.RoleTarget} {
		roleConfiguration, applyError := servers.ApplyFlags(flagSet, role, configuration.Servers.ForRole(role))
		if applyError != nil {
			return CommandConfiguration{}, applyError
		}
		configuration.Servers = configuration.Servers.WithRole(role, roleConfiguration)
	}

	if flagSet.Changed(stagingDirectoryFlagNameConstant) {
		stagingDirectory, stagingError := flagSet.GetString(stagingDirectoryFlagNameConstant)
		if stagingError != nil {
			return CommandConfiguration{}, stagingError
		}
		configuration.Migration.StagingDirectory = stagingDirectory
	}
	if flagSet.Changed(workbookWorkersFlagNameConstant) {
		workbookWorkers, workersError := flagSet.GetInt(workbookWorkersFlagNameConstant)
		if workersError != nil {
			return CommandConfiguration{}, workersError
		}
		configuration.Migration.WorkbookWorkers = workbookWorkers
	}
	if flagSet.Changed(projectWorkersFlagNameConstant) {
		projectWorkers, workersError := flagSet.GetInt(projectWorkersFlagNameConstant)
		if workersError != nil {
			return CommandConfiguration{}, workersError
		}
		configuration.Migration.ProjectWorkers = projectWorkers
	}
	if flagSet.Changed(overwriteFlagNameConstant) {
		overwrite, overwriteError := flagSet.GetBool(overwriteFlagNameConstant)
		if overwriteError != nil {
			return CommandConfiguration{}, overwriteError
		}
		configuration.Migration.Overwrite = overwrite
	}

	return configuration.Sanitize(), nil
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

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return CommandConfiguration{Servers: servers.DefaultConfigurations(), Migration: DefaultConfiguration()}
	}
	return builder.ConfigurationProvider()
}

func (builder *CommandBuilder) resolveExecutorProvider() ExecutorProvider {
	if builder.ExecutorProvider == nil {
		return OpenExecutor
	}
	return builder.ExecutorProvider
}
