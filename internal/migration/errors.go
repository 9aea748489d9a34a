package migration

import (
	"errors"
	"fmt"

	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/restapi"
)

const (
	bindingIncompleteMessageConstant         = "migration site binding incomplete"
	siteBinderMissingMessageConstant         = "migration site binder not configured"
	workbookIdentifierMissingMessageConstant = "workbook identifier required"
	sourceProjectMissingMessageConstant      = "source project identifier required"
	connectionMissingMessageConstant         = "migration connections not configured"
	targetProjectUnresolvedMessageConstant   = "target project could not be resolved"
	runAbortedMessageConstant                = "migration run aborted after authentication failure"
	projectErrorTemplateConstant             = "project %s: %v"
	siteSwitchErrorTemplateConstant          = "switch %s connection to site %q: %v"
)

var (
	// ErrBindingIncomplete indicates a site binding lacks catalogs, resolver, or migrator.
	ErrBindingIncomplete = errors.New(bindingIncompleteMessageConstant)
	// ErrSiteBinderMissing indicates a different site was requested but no binder is available.
	ErrSiteBinderMissing = errors.New(siteBinderMissingMessageConstant)
	// ErrWorkbookIdentifierRequired indicates a workbook migration without a workbook id.
	ErrWorkbookIdentifierRequired = errors.New(workbookIdentifierMissingMessageConstant)
	// ErrSourceProjectIdentifierRequired indicates a migration without a source project id.
	ErrSourceProjectIdentifierRequired = errors.New(sourceProjectMissingMessageConstant)
	// ErrConnectionMissing indicates a connection binder was constructed without connections.
	ErrConnectionMissing = errors.New(connectionMissingMessageConstant)
	// ErrTargetProjectUnresolved indicates the source project chain produced no target project.
	ErrTargetProjectUnresolved = errors.New(targetProjectUnresolvedMessageConstant)
	// ErrRunAborted indicates a site migration stopped because a server rejected the session.
	ErrRunAborted = errors.New(runAbortedMessageConstant)
)

// isAuthenticationFailure reports whether candidate means the session can no longer be used.
func isAuthenticationFailure(candidate error) bool {
	var restAuthenticationError restapi.AuthenticationError
	if errors.As(candidate, &restAuthenticationError) {
		return true
	}
	var credentialAuthenticationError credentials.AuthenticationError
	return errors.As(candidate, &credentialAuthenticationError)
}

// ProjectError reports a failure that affected a whole source project.
type ProjectError struct {
	SourceProjectID string
	Cause           error
}

// Error describes the failed project.
func (projectError ProjectError) Error() string {
	return fmt.Sprintf(projectErrorTemplateConstant, projectError.SourceProjectID, projectError.Cause)
}

// Unwrap exposes the underlying cause.
func (projectError ProjectError) Unwrap() error {
	return projectError.Cause
}

// SiteSwitchError reports a connection that could not be bound to the requested site.
type SiteSwitchError struct {
	Role  credentials.Role
	Site  string
	Cause error
}

// Error describes the failed switch.
func (siteSwitchError SiteSwitchError) Error() string {
	return fmt.Sprintf(siteSwitchErrorTemplateConstant, siteSwitchError.Role, siteSwitchError.Site, siteSwitchError.Cause)
}

// Unwrap exposes the underlying cause.
func (siteSwitchError SiteSwitchError) Unwrap() error {
	return siteSwitchError.Cause
}
