package transfer

import (
	"errors"
	"fmt"
)

// Stage names the step of a workbook transfer that failed.
type Stage string

// Transfer stages.
const (
	StageStaging  Stage = Stage("staging")
	StageDownload Stage = Stage("download")
	StageMetadata Stage = Stage("metadata")
	StagePublish  Stage = Stage("publish")
)

const (
	transferErrorTemplateConstant        = "workbook %s (%q) %s failed: %v"
	sourceMissingMessageConstant         = "transfer content source not configured"
	destinationMissingMessageConstant    = "transfer content destination not configured"
	metadataMissingMessageConstant       = "transfer metadata source not configured"
	stagingAreaMissingMessageConstant    = "transfer staging area not configured"
	stagingAreaClosedMessageConstant     = "staging area already closed"
	targetProjectRequiredMessageConstant = "target project identifier required"
)

var (
	// ErrSourceMissing indicates no content source was provided.
	ErrSourceMissing = errors.New(sourceMissingMessageConstant)
	// ErrDestinationMissing indicates no content destination was provided.
	ErrDestinationMissing = errors.New(destinationMissingMessageConstant)
	// ErrMetadataMissing indicates no metadata source was provided.
	ErrMetadataMissing = errors.New(metadataMissingMessageConstant)
	// ErrStagingAreaMissing indicates no staging area was provided.
	ErrStagingAreaMissing = errors.New(stagingAreaMissingMessageConstant)
	// ErrStagingAreaClosed indicates the staging root was already removed.
	ErrStagingAreaClosed = errors.New(stagingAreaClosedMessageConstant)
	// ErrTargetProjectRequired indicates a transfer was requested without a destination project.
	ErrTargetProjectRequired = errors.New(targetProjectRequiredMessageConstant)
)

// TransferError reports a failed workbook transfer with the item identity and failing stage.
type TransferError struct {
	WorkbookID   string
	WorkbookName string
	Stage        Stage
	Cause        error
}

// Error describes the failed transfer.
func (transferError TransferError) Error() string {
	return fmt.Sprintf(transferErrorTemplateConstant, transferError.WorkbookID, transferError.WorkbookName, transferError.Stage, transferError.Cause)
}

// Unwrap exposes the underlying cause.
func (transferError TransferError) Unwrap() error {
	return transferError.Cause
}
