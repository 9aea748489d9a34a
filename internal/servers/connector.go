package servers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/restapi"
)

const (
	signedInMessageConstant         = "signed in"
	roleFieldNameConstant           = "role"
	serverFieldNameConstant         = "server"
	siteFieldNameConstant           = "site"
	authenticationFieldNameConstant = "authentication"
	tokenAuthenticationConstant     = "token"
	passwordAuthenticationConstant  = "password"
)

// ConnectorDependencies enumerates collaborators required by Connector.
type ConnectorDependencies struct {
	Logger             *zap.Logger
	CredentialResolver *credentials.Resolver
	HTTPClient         *http.Client
}

// Connector resolves credentials and signs in to a configured server.
type Connector struct {
	logger             *zap.Logger
	credentialResolver *credentials.Resolver
	httpClient         *http.Client
}

// NewConnector validates dependencies and constructs a Connector.
func NewConnector(dependencies ConnectorDependencies) (*Connector, error) {
	if dependencies.CredentialResolver == nil {
		return nil, ErrCredentialResolverMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connector{
		logger:             logger,
		credentialResolver: dependencies.CredentialResolver,
		httpClient:         dependencies.HTTPClient,
	}, nil
}

// Connect signs in to the server of role and returns a connection bound to the configured site.
func (connector *Connector) Connect(executionContext context.Context, role credentials.Role, configuration Configuration, pageSize int) (*restapi.Connection, error) {
	sanitized := configuration.Sanitize()
	if validationError := sanitized.Validate(role); validationError != nil {
		return nil, validationError
	}

	credential, credentialError := connector.credentialResolver.Resolve(role, sanitized.credentialInput())
	if credentialError != nil {
		return nil, credentialError
	}

	client, clientError := restapi.NewClient(restapi.ClientConfiguration{
		BaseURL:           sanitized.URL,
		APIVersion:        sanitized.APIVersion,
		PageSize:          pageSize,
		RequestTimeout:    sanitized.RequestTimeout,
		RequestsPerSecond: sanitized.RequestsPerSecond,
	}, connector.httpClient, connector.logger)
	if clientError != nil {
		return nil, ConnectionError{Role: role, ServerURL: sanitized.URL, Cause: clientError}
	}

	connection, openError := restapi.Open(executionContext, client, credential, sanitized.Site)
	if openError != nil {
		return nil, ConnectionError{Role: role, ServerURL: sanitized.URL, Cause: openError}
	}

	authenticationMethod := passwordAuthenticationConstant
	if credential.UsesToken() {
		authenticationMethod = tokenAuthenticationConstant
	}
	connector.logger.Info(
		signedInMessageConstant,
		zap.String(roleFieldNameConstant, string(role)),
		zap.String(serverFieldNameConstant, sanitized.URL),
		zap.String(siteFieldNameConstant, connection.SiteContentURL()),
		zap.String(authenticationFieldNameConstant, authenticationMethod),
	)
	return connection, nil
}
