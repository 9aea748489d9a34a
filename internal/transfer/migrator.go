package transfer

import (
	"context"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const (
	workbookIDFieldNameConstant         = "workbook_id"
	workbookNameFieldNameConstant       = "workbook_name"
	targetProjectIDFieldNameConstant    = "target_project_id"
	targetWorkbookIDFieldNameConstant   = "target_workbook_id"
	stagedFileFieldNameConstant         = "staged_file"
	stagedSizeFieldNameConstant         = "size"
	overwriteFieldNameConstant          = "overwrite"
	downloadCompletedMessageConstant    = "workbook downloaded"
	publishCompletedMessageConstant     = "workbook published"
	stagingReleaseFailedMessageConstant = "unable to release staging directory"
)

// ContentSource downloads workbook content into a directory and returns the written file path.
type ContentSource interface {
	Download(executionContext context.Context, workbookID string, directory string) (string, error)
}

// ContentDestination publishes a staged workbook file into a target project.
type ContentDestination interface {
	Publish(executionContext context.Context, workbook catalog.Workbook, filePath string, overwrite bool) (catalog.Workbook, error)
}

// WorkbookMetadataSource fetches workbook details when a transfer starts from an identifier alone.
type WorkbookMetadataSource interface {
	GetWorkbook(executionContext context.Context, identifier string) (catalog.Workbook, error)
}

// Options tunes publishing.
type Options struct {
	Overwrite bool
}

// DefaultOptions replaces same-named workbooks in the target project.
func DefaultOptions() Options {
	return Options{Overwrite: true}
}

// MigratorDependencies describes the collaborators used by the Migrator.
type MigratorDependencies struct {
	Logger      *zap.Logger
	Source      ContentSource
	Destination ContentDestination
	Metadata    WorkbookMetadataSource
	StagingArea *StagingArea
}

// Migrator moves one workbook at a time from a source to a destination server.
type Migrator struct {
	logger      *zap.Logger
	source      ContentSource
	destination ContentDestination
	metadata    WorkbookMetadataSource
	stagingArea *StagingArea
	options     Options
}

// NewMigrator constructs a Migrator.
func NewMigrator(dependencies MigratorDependencies, options Options) (*Migrator, error) {
	if dependencies.Source == nil {
		return nil, ErrSourceMissing
	}
	if dependencies.Destination == nil {
		return nil, ErrDestinationMissing
	}
	if dependencies.Metadata == nil {
		return nil, ErrMetadataMissing
	}
	if dependencies.StagingArea == nil {
		return nil, ErrStagingAreaMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Migrator{
		logger:      logger,
		source:      dependencies.Source,
		destination: dependencies.Destination,
		metadata:    dependencies.Metadata,
		stagingArea: dependencies.StagingArea,
		options:     options,
	}, nil
}

// Migrate downloads item from the source and publishes it into targetProjectID.
// The scoped staging directory is released on every exit path.
func (migrator *Migrator) Migrate(executionContext context.Context, item catalog.Workbook, targetProjectID string) (catalog.Workbook, error) {
	if len(strings.TrimSpace(targetProjectID)) == 0 {
		return catalog.Workbook{}, TransferError{WorkbookID: item.ID, WorkbookName: item.Name, Stage: StagePublish, Cause: ErrTargetProjectRequired}
	}

	directory, release, acquireError := migrator.stagingArea.Acquire(item.ID)
	if acquireError != nil {
		return catalog.Workbook{}, TransferError{WorkbookID: item.ID, WorkbookName: item.Name, Stage: StageStaging, Cause: acquireError}
	}
	defer func() {
		if releaseError := release(); releaseError != nil {
			migrator.logger.Warn(stagingReleaseFailedMessageConstant, zap.String(workbookIDFieldNameConstant, item.ID), zap.Error(releaseError))
		}
	}()

	stagedFilePath, downloadError := migrator.source.Download(executionContext, item.ID, directory)
	if downloadError != nil {
		return catalog.Workbook{}, TransferError{WorkbookID: item.ID, WorkbookName: item.Name, Stage: StageDownload, Cause: downloadError}
	}
	stagedSize := describeFileSize(stagedFilePath)
	migrator.logger.Debug(
		downloadCompletedMessageConstant,
		zap.String(workbookIDFieldNameConstant, item.ID),
		zap.String(stagedFileFieldNameConstant, stagedFilePath),
		zap.String(stagedSizeFieldNameConstant, stagedSize),
	)

	workbookName := item.Name
	if len(strings.TrimSpace(workbookName)) == 0 {
		details, metadataError := migrator.metadata.GetWorkbook(executionContext, item.ID)
		if metadataError != nil {
			return catalog.Workbook{}, TransferError{WorkbookID: item.ID, Stage: StageMetadata, Cause: metadataError}
		}
		workbookName = details.Name
	}

	published, publishError := migrator.destination.Publish(
		executionContext,
		catalog.Workbook{Name: workbookName, ProjectID: targetProjectID},
		stagedFilePath,
		migrator.options.Overwrite,
	)
	if publishError != nil {
		return catalog.Workbook{}, TransferError{WorkbookID: item.ID, WorkbookName: workbookName, Stage: StagePublish, Cause: publishError}
	}

	migrator.logger.Info(
		publishCompletedMessageConstant,
		zap.String(workbookIDFieldNameConstant, item.ID),
		zap.String(workbookNameFieldNameConstant, workbookName),
		zap.String(targetProjectIDFieldNameConstant, targetProjectID),
		zap.String(targetWorkbookIDFieldNameConstant, published.ID),
		zap.String(stagedSizeFieldNameConstant, stagedSize),
		zap.Bool(overwriteFieldNameConstant, migrator.options.Overwrite),
	)
	return published, nil
}

// describeFileSize renders the staged file size for logs, e.g. "1.2 MiB". Unknown sizes render empty.
func describeFileSize(filePath string) string {
	fileInfo, statError := os.Stat(filePath)
	if statError != nil {
		return ""
	}
	return humanize.IBytes(uint64(fileInfo.Size()))
}
