package migration

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/temirov/tabmigrate/internal/catalog"
	"github.com/temirov/tabmigrate/internal/hierarchy"
	"github.com/temirov/tabmigrate/internal/transfer"
)

const (
	reportIndentationConstant         = 2
	reportEncodeErrorTemplateConstant = "write migration report: %w"
)

// WorkbookRequest identifies one workbook to migrate.
type WorkbookRequest struct {
	WorkbookID      string
	SourceProjectID string
	TargetProjectID string
}

// ProjectRequest identifies one project whose workbooks should be migrated.
type ProjectRequest struct {
	SourceProjectID string
	TargetProjectID string
}

// SiteRequest names the site pair to migrate.
type SiteRequest struct {
	SourceSite string
	TargetSite string
}

// WorkbookResult describes a published workbook.
type WorkbookResult struct {
	SourceWorkbookID string `yaml:"source_workbook_id"`
	TargetWorkbookID string `yaml:"target_workbook_id"`
	Name             string `yaml:"name"`
	SourceProjectID  string `yaml:"source_project_id"`
	TargetProjectID  string `yaml:"target_project_id"`
}

// WorkbookFailure describes a workbook that could not be migrated.
type WorkbookFailure struct {
	WorkbookID   string `yaml:"workbook_id"`
	WorkbookName string `yaml:"workbook_name,omitempty"`
	Stage        string `yaml:"stage,omitempty"`
	Message      string `yaml:"message"`
}

// ProjectResult summarizes the content migration of one project.
type ProjectResult struct {
	SourceProjectID string            `yaml:"source_project_id"`
	TargetProjectID string            `yaml:"target_project_id,omitempty"`
	Migrated        int               `yaml:"migrated"`
	Workbooks       []WorkbookResult  `yaml:"workbooks,omitempty"`
	Failures        []WorkbookFailure `yaml:"failures,omitempty"`
	Error           string            `yaml:"error,omitempty"`
}

// SiteReport summarizes a site migration.
type SiteReport struct {
	SourceSite        string                   `yaml:"source_site"`
	TargetSite        string                   `yaml:"target_site"`
	CreatedProjects   int                      `yaml:"created_projects"`
	MigratedWorkbooks int                      `yaml:"migrated_workbooks"`
	FailedWorkbooks   int                      `yaml:"failed_workbooks"`
	HierarchyErrors   []string                 `yaml:"hierarchy_errors,omitempty"`
	Mapping           []hierarchy.MappingEntry `yaml:"mapping"`
	Projects          []ProjectResult          `yaml:"projects"`
}

func newWorkbookResult(sourceWorkbookID string, sourceProjectID string, published catalog.Workbook) WorkbookResult {
	return WorkbookResult{
		SourceWorkbookID: sourceWorkbookID,
		TargetWorkbookID: published.ID,
		Name:             published.Name,
		SourceProjectID:  sourceProjectID,
		TargetProjectID:  published.ProjectID,
	}
}

func newWorkbookFailure(workbook catalog.Workbook, failure error) WorkbookFailure {
	workbookFailure := WorkbookFailure{WorkbookID: workbook.ID, WorkbookName: workbook.Name, Message: failure.Error()}
	var transferError transfer.TransferError
	if errors.As(failure, &transferError) {
		workbookFailure.Stage = string(transferError.Stage)
		if len(transferError.WorkbookName) > 0 {
			workbookFailure.WorkbookName = transferError.WorkbookName
		}
		if transferError.Cause != nil {
			workbookFailure.Message = transferError.Cause.Error()
		}
	}
	return workbookFailure
}

func describeErrors(joined error) []string {
	if joined == nil {
		return nil
	}
	multiple, isMultiple := joined.(interface{ Unwrap() []error })
	if !isMultiple {
		return []string{joined.Error()}
	}
	descriptions := make([]string, 0)
	for _, nested := range multiple.Unwrap() {
		descriptions = append(descriptions, describeErrors(nested)...)
	}
	return descriptions
}

// WriteReport renders report as YAML.
func WriteReport(writer io.Writer, report any) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(reportIndentationConstant)
	if encodeError := encoder.Encode(report); encodeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return fmt.Errorf(reportEncodeErrorTemplateConstant, closeError)
	}
	return nil
}
