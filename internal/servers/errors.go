package servers

import (
	"errors"
	"fmt"

	"github.com/temirov/tabmigrate/internal/credentials"
)

const (
	configurationErrorTemplateConstant       = "%s server: %s (--%s)"
	connectionErrorTemplateConstant          = "%s server %s: %v"
	missingServerURLMessageConstant          = "server URL required"
	credentialResolverMissingMessageConstant = "server credential resolver not configured"
)

// ErrCredentialResolverMissing indicates a connector was constructed without a credential resolver.
var ErrCredentialResolverMissing = errors.New(credentialResolverMissingMessageConstant)

// ConfigurationError reports an incomplete server configuration.
type ConfigurationError struct {
	Role     credentials.Role
	FlagName string
	Message  string
}

// Error describes the missing setting together with the flag that supplies it.
func (configurationError ConfigurationError) Error() string {
	return fmt.Sprintf(configurationErrorTemplateConstant, configurationError.Role, configurationError.Message, configurationError.FlagName)
}

// ConnectionError reports a failed sign-in.
type ConnectionError struct {
	Role      credentials.Role
	ServerURL string
	Cause     error
}

// Error describes the failed sign-in.
func (connectionError ConnectionError) Error() string {
	return fmt.Sprintf(connectionErrorTemplateConstant, connectionError.Role, connectionError.ServerURL, connectionError.Cause)
}

// Unwrap exposes the underlying cause.
func (connectionError ConnectionError) Unwrap() error {
	return connectionError.Cause
}
