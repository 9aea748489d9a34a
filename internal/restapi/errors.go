package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const (
	authenticationErrorTemplateConstant = "%s: authentication rejected (status %d): %s"
	authorizationErrorTemplateConstant  = "%s: access denied (status %d): %s"
	operationErrorTemplateConstant      = "%s failed (status %d): %s"
	operationCauseErrorTemplateConstant = "%s failed: %v"
	errorDetailSeparatorConstant        = ": "
	baseURLRequiredMessageConstant      = "server URL required"
	apiVersionRequiredMessageConstant   = "API version required"
	sessionRequiredMessageConstant      = "session token required"
	credentialRequiredMessageConstant   = "credential requires a token pair or a username and password"
)

var (
	// ErrBaseURLRequired indicates a client was configured without a server URL.
	ErrBaseURLRequired = errors.New(baseURLRequiredMessageConstant)
	// ErrAPIVersionRequired indicates a client was configured without an API version.
	ErrAPIVersionRequired = errors.New(apiVersionRequiredMessageConstant)
	// ErrSessionRequired indicates a call was made without a signed-in session.
	ErrSessionRequired = errors.New(sessionRequiredMessageConstant)
	// ErrCredentialIncomplete indicates SignIn received neither a token pair nor a username and password.
	ErrCredentialIncomplete = errors.New(credentialRequiredMessageConstant)
)

// OperationName identifies a REST call for error reporting.
type OperationName string

// Supported operations.
const (
	OperationSignIn     OperationName = OperationName("sign in")
	OperationSignOut    OperationName = OperationName("sign out")
	OperationSwitchSite OperationName = OperationName("switch site")
	OperationList       OperationName = OperationName("list")
	OperationGet        OperationName = OperationName("get")
	OperationCreate     OperationName = OperationName("create")
	OperationDownload   OperationName = OperationName("download")
	OperationPublish    OperationName = OperationName("publish")
)

// AuthenticationError reports rejected credentials or an expired session.
type AuthenticationError struct {
	Operation  OperationName
	StatusCode int
	Message    string
}

// Error describes the authentication failure.
func (authenticationError AuthenticationError) Error() string {
	return fmt.Sprintf(authenticationErrorTemplateConstant, authenticationError.Operation, authenticationError.StatusCode, authenticationError.Message)
}

// AuthorizationError reports a credential lacking access to the requested resource or site.
type AuthorizationError struct {
	Operation  OperationName
	StatusCode int
	Message    string
}

// Error describes the authorization failure.
func (authorizationError AuthorizationError) Error() string {
	return fmt.Sprintf(authorizationErrorTemplateConstant, authorizationError.Operation, authorizationError.StatusCode, authorizationError.Message)
}

// OperationError reports any other failed call.
type OperationError struct {
	Operation  OperationName
	StatusCode int
	Message    string
	Cause      error
}

// Error describes the failure.
func (operationError OperationError) Error() string {
	if operationError.Cause != nil {
		return fmt.Sprintf(operationCauseErrorTemplateConstant, operationError.Operation, operationError.Cause)
	}
	return fmt.Sprintf(operationErrorTemplateConstant, operationError.Operation, operationError.StatusCode, operationError.Message)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Summary string `json:"summary"`
		Detail  string `json:"detail"`
	} `json:"error"`
}

// resourceReference identifies the entity a failed call concerned.
type resourceReference struct {
	kind       catalog.Kind
	identifier string
	name       string
}

func classifyFailure(operation OperationName, resource resourceReference, statusCode int, body []byte) error {
	message := describeFailure(statusCode, body)
	switch statusCode {
	case http.StatusBadRequest:
		return catalog.ValidationError{Kind: resource.kind, Name: resource.name, Message: message}
	case http.StatusUnauthorized:
		return AuthenticationError{Operation: operation, StatusCode: statusCode, Message: message}
	case http.StatusForbidden:
		return AuthorizationError{Operation: operation, StatusCode: statusCode, Message: message}
	case http.StatusNotFound:
		if len(resource.kind) > 0 {
			return catalog.NotFoundError{Kind: resource.kind, Identifier: resource.identifier}
		}
	case http.StatusConflict:
		return catalog.ConflictError{Kind: resource.kind, Name: resource.name, Cause: OperationError{Operation: operation, StatusCode: statusCode, Message: message}}
	}
	return OperationError{Operation: operation, StatusCode: statusCode, Message: message}
}

func describeFailure(statusCode int, body []byte) string {
	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil && len(envelope.Error.Summary) > 0 {
		parts := []string{envelope.Error.Summary}
		if len(envelope.Error.Detail) > 0 {
			parts = append(parts, envelope.Error.Detail)
		}
		return strings.Join(parts, errorDetailSeparatorConstant)
	}
	trimmedBody := strings.TrimSpace(string(body))
	if len(trimmedBody) > 0 {
		return trimmedBody
	}
	return http.StatusText(statusCode)
}
