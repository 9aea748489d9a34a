package listing

import (
	"context"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/catalog"
	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/restapi"
	"github.com/temirov/tabmigrate/internal/servers"
)

// Configuration aggregates settings for listing commands.
type Configuration struct {
	Source   servers.Configuration
	PageSize int
}

// Lister reads source catalog entries and releases its session on Close.
type Lister interface {
	ListSites(executionContext context.Context) ([]catalog.Site, error)
	ListProjects(executionContext context.Context) ([]catalog.Project, error)
	ListWorkbooks(executionContext context.Context, projectID string) ([]catalog.Workbook, error)
	Close(executionContext context.Context) error
}

// ListerProvider opens a Lister for the supplied configuration.
type ListerProvider func(executionContext context.Context, logger *zap.Logger, configuration Configuration) (Lister, error)

type sessionLister struct {
	*catalog.Accessor
	connection *restapi.Connection
}

// Close signs out of the source session.
func (lister *sessionLister) Close(executionContext context.Context) error {
	return lister.connection.Close(executionContext)
}

// OpenLister signs in to the source server only.
func OpenLister(executionContext context.Context, logger *zap.Logger, configuration Configuration) (Lister, error) {
	connector, connectorError := servers.NewConnector(servers.ConnectorDependencies{
		Logger: logger,
		CredentialResolver: credentials.NewResolver(credentials.ResolverDependencies{
			Prompter: credentials.NewTerminalPasswordPrompter(os.Stdin, os.Stderr),
		}),
	})
	if connectorError != nil {
		return nil, connectorError
	}

	connection, connectError := connector.Connect(executionContext, credentials.RoleSource, configuration.Source, configuration.PageSize)
	if connectError != nil {
		return nil, connectError
	}

	accessor, accessorError := catalog.NewAccessor(connection)
	if accessorError != nil {
		return nil, accessorError
	}
	return &sessionLister{Accessor: accessor, connection: connection}, nil
}
