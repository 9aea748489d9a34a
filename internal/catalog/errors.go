package catalog

import (
	"errors"
	"fmt"
)

const (
	notFoundErrorTemplateConstant             = "%s %s not found"
	conflictErrorTemplateConstant             = "%s %q conflicts with an existing entity"
	conflictErrorWithCauseTemplateConstant    = "%s %q conflicts with an existing entity: %s"
	validationErrorTemplateConstant           = "%s %q rejected: %s"
	collaboratorMissingMessageConstant        = "catalog collaborator not configured"
	projectNameRequiredMessageConstant        = "project name required"
	workbookIdentifierRequiredMessageConstant = "workbook identifier required"
	projectIdentifierRequiredMessageConstant  = "project identifier required"
)

// ErrCollaboratorMissing indicates an Accessor was constructed without a collaborator.
var ErrCollaboratorMissing = errors.New(collaboratorMissingMessageConstant)

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Kind       Kind
	Identifier string
}

// Error describes the missing entity.
func (notFoundError NotFoundError) Error() string {
	return fmt.Sprintf(notFoundErrorTemplateConstant, notFoundError.Kind, notFoundError.Identifier)
}

// ConflictError reports that the remote side refused a creation because the entity already exists.
type ConflictError struct {
	Kind  Kind
	Name  string
	Cause error
}

// Error describes the conflict.
func (conflictError ConflictError) Error() string {
	if conflictError.Cause == nil {
		return fmt.Sprintf(conflictErrorTemplateConstant, conflictError.Kind, conflictError.Name)
	}
	return fmt.Sprintf(conflictErrorWithCauseTemplateConstant, conflictError.Kind, conflictError.Name, conflictError.Cause)
}

// Unwrap exposes the underlying cause.
func (conflictError ConflictError) Unwrap() error {
	return conflictError.Cause
}

// ValidationError reports that the remote side rejected an entity specification.
type ValidationError struct {
	Kind    Kind
	Name    string
	Message string
	Cause   error
}

// Error describes the rejected specification.
func (validationError ValidationError) Error() string {
	return fmt.Sprintf(validationErrorTemplateConstant, validationError.Kind, validationError.Name, validationError.Message)
}

// Unwrap exposes the underlying cause.
func (validationError ValidationError) Unwrap() error {
	return validationError.Cause
}

// IsNotFound reports whether the error chain contains a NotFoundError.
func IsNotFound(candidate error) bool {
	var notFoundError NotFoundError
	return errors.As(candidate, &notFoundError)
}
