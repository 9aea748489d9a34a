package listing

import (
	"errors"
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/servers"
)

const (
	listCommandUseConstant                   = "list"
	listCommandShortDescriptionConstant      = "List content on the source server"
	listCommandLongDescriptionConstant       = "list prints sites, projects, or workbooks visible to the source credentials."
	sitesCommandUseConstant                  = "sites"
	sitesCommandShortDescriptionConstant     = "List sites"
	projectsCommandUseConstant               = "projects"
	projectsCommandShortDescriptionConstant  = "List projects with their parent project identifiers"
	workbooksCommandUseConstant              = "workbooks"
	workbooksCommandShortDescriptionConstant = "List workbooks, optionally restricted to one project"
	sourceProjectFlagNameConstant            = "source-project-id"
	sourceProjectFlagDescriptionConstant     = "Only list workbooks owned by this project"
	commandExecutionErrorTemplateConstant    = "list %s failed: %w"
	signOutFailedMessageConstant             = "source sign out failed"
	tableColumnSeparatorConstant             = "  "
	tableMaximumColumnWidthConstant          = 80
	identifierHeaderConstant                 = "ID"
	nameHeaderConstant                       = "NAME"
	contentURLHeaderConstant                 = "CONTENT URL"
	parentHeaderConstant                     = "PARENT ID"
	owningProjectHeaderConstant              = "PROJECT ID"
	defaultPageSizeConstant                  = 100
)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the current listing configuration.
type ConfigurationProvider func() Configuration

// CommandBuilder assembles the list command hierarchy.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	ListerProvider        ListerProvider
}

// Build constructs the list command with sites, projects, and workbooks subcommands.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	listCommand := &cobra.Command{
		Use:   listCommandUseConstant,
		Short: listCommandShortDescriptionConstant,
		Long:  listCommandLongDescriptionConstant,
	}
	servers.BindFlags(listCommand, credentials.RoleSource)

	sitesCommand := &cobra.Command{
		Use:   sitesCommandUseConstant,
		Short: sitesCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			return builder.execute(command, sitesCommandUseConstant, func(lister Lister, writer io.Writer) error {
				sites, listError := lister.ListSites(command.Context())
				if listError != nil {
					return listError
				}
				rows := make([][3]string, 0, len(sites))
				for _, site := range sites {
					rows = append(rows, [3]string{site.ID, site.Name, site.ContentURL})
				}
				return writeTable(writer, [3]string{identifierHeaderConstant, nameHeaderConstant, contentURLHeaderConstant}, rows)
			})
		},
	}

	projectsCommand := &cobra.Command{
		Use:   projectsCommandUseConstant,
		Short: projectsCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			return builder.execute(command, projectsCommandUseConstant, func(lister Lister, writer io.Writer) error {
				projects, listError := lister.ListProjects(command.Context())
				if listError != nil {
					return listError
				}
				rows := make([][3]string, 0, len(projects))
				for _, project := range projects {
					rows = append(rows, [3]string{project.ID, project.Name, project.ParentID})
				}
				return writeTable(writer, [3]string{identifierHeaderConstant, nameHeaderConstant, parentHeaderConstant}, rows)
			})
		},
	}

	workbooksCommand := &cobra.Command{
		Use:   workbooksCommandUseConstant,
		Short: workbooksCommandShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			projectID, flagError := command.Flags().GetString(sourceProjectFlagNameConstant)
			if flagError != nil {
				return flagError
			}
			return builder.execute(command, workbooksCommandUseConstant, func(lister Lister, writer io.Writer) error {
				workbooks, listError := lister.ListWorkbooks(command.Context(), projectID)
				if listError != nil {
					return listError
				}
				rows := make([][3]string, 0, len(workbooks))
				for _, workbook := range workbooks {
					rows = append(rows, [3]string{workbook.ID, workbook.Name, workbook.ProjectID})
				}
				return writeTable(writer, [3]string{identifierHeaderConstant, nameHeaderConstant, owningProjectHeaderConstant}, rows)
			})
		},
	}
	workbooksCommand.Flags().String(sourceProjectFlagNameConstant, "", sourceProjectFlagDescriptionConstant)

	listCommand.AddCommand(sitesCommand, projectsCommand, workbooksCommand)
	return listCommand, nil
}

func (builder *CommandBuilder) execute(command *cobra.Command, listingName string, listing func(Lister, io.Writer) error) error {
	configuration := builder.resolveConfiguration()
	sourceConfiguration, applyError := servers.ApplyFlags(command.Flags(), credentials.RoleSource, configuration.Source)
	if applyError != nil {
		return applyError
	}
	if validationError := sourceConfiguration.Validate(credentials.RoleSource); validationError != nil {
		return validationError
	}
	configuration.Source = sourceConfiguration

	logger := builder.resolveLogger()
	lister, listerError := builder.resolveListerProvider()(command.Context(), logger, configuration)
	if listerError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, listingName, listerError)
	}

	listingError := listing(lister, command.OutOrStdout())
	closeError := lister.Close(command.Context())
	if closeError != nil {
		logger.Warn(signOutFailedMessageConstant, zap.Error(closeError))
	}
	if listingError != nil {
		return fmt.Errorf(commandExecutionErrorTemplateConstant, listingName, errors.Join(listingError, closeError))
	}
	return nil
}

// writeTable renders a header and rows as space-aligned columns. Long names wrap within their column.
func writeTable(writer io.Writer, header [3]string, rows [][3]string) error {
	table := uitable.New()
	table.Separator = tableColumnSeparatorConstant
	table.MaxColWidth = tableMaximumColumnWidthConstant
	table.Wrap = true
	table.AddRow(header[0], header[1], header[2])
	for _, row := range rows {
		table.AddRow(row[0], row[1], row[2])
	}
	_, writeError := fmt.Fprintln(writer, table)
	return writeError
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

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	configuration := Configuration{Source: servers.DefaultConfiguration(), PageSize: defaultPageSizeConstant}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	if configuration.PageSize <= 0 {
		configuration.PageSize = defaultPageSizeConstant
	}
	return configuration
}

func (builder *CommandBuilder) resolveListerProvider() ListerProvider {
	if builder.ListerProvider == nil {
		return OpenLister
	}
	return builder.ListerProvider
}
