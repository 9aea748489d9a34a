package migration

import (
	"os"
	"strings"

	"github.com/temirov/tabmigrate/internal/restapi"
	"github.com/temirov/tabmigrate/internal/servers"
	pathutils "github.com/temirov/tabmigrate/internal/utils/path"
)

var migrationConfigurationHomeDirectoryExpander = pathutils.NewHomeExpander()

const (
	defaultWorkbookWorkersConstant = 1
	defaultProjectWorkersConstant  = 1
	defaultOverwriteConstant       = true
	defaultPageSizeConstant        = 100
	minimumWorkersConstant         = 1
)

// Configuration stores migration tuning options.
type Configuration struct {
	StagingDirectory string `mapstructure:"staging_directory"`
	WorkbookWorkers  int    `mapstructure:"workbook_workers"`
	ProjectWorkers   int    `mapstructure:"project_workers"`
	Overwrite        bool   `mapstructure:"overwrite"`
	PageSize         int    `mapstructure:"page_size"`
}

// CommandConfiguration aggregates everything the migrate command needs.
type CommandConfiguration struct {
	Servers   servers.Configurations
	Migration Configuration
}

// DefaultConfiguration supplies baseline migration values.
func DefaultConfiguration() Configuration {
	return Configuration{
		WorkbookWorkers: defaultWorkbookWorkersConstant,
		ProjectWorkers:  defaultProjectWorkersConstant,
		Overwrite:       defaultOverwriteConstant,
		PageSize:        defaultPageSizeConstant,
	}
}

// DefaultConfigurationValues returns viper defaults keyed under prefix, e.g. "migration".
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	return map[string]any{
		prefix + ".staging_directory": defaults.StagingDirectory,
		prefix + ".workbook_workers":  defaults.WorkbookWorkers,
		prefix + ".project_workers":   defaults.ProjectWorkers,
		prefix + ".overwrite":         defaults.Overwrite,
		prefix + ".page_size":         defaults.PageSize,
	}
}

// Sanitize expands the staging directory and clamps worker counts and page size.
// An empty staging directory selects the system temporary directory.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	stagingDirectory := strings.TrimSpace(configuration.StagingDirectory)
	if len(stagingDirectory) == 0 {
		stagingDirectory = os.TempDir()
	}
	sanitized.StagingDirectory = migrationConfigurationHomeDirectoryExpander.Expand(stagingDirectory)
	if sanitized.WorkbookWorkers < minimumWorkersConstant {
		sanitized.WorkbookWorkers = defaultWorkbookWorkersConstant
	}
	if sanitized.ProjectWorkers < minimumWorkersConstant {
		sanitized.ProjectWorkers = defaultProjectWorkersConstant
	}
	if sanitized.PageSize <= 0 {
		sanitized.PageSize = defaultPageSizeConstant
	}
	if sanitized.PageSize > restapi.MaximumPageSize {
		sanitized.PageSize = restapi.MaximumPageSize
	}
	return sanitized
}

// Sanitize applies Sanitize to every section.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	return CommandConfiguration{
		Servers:   configuration.Servers.Sanitize(),
		Migration: configuration.Migration.Sanitize(),
	}
}
