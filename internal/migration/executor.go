package migration

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/hierarchy"
	"github.com/temirov/tabmigrate/internal/servers"
	"github.com/temirov/tabmigrate/internal/transfer"
)

// Executor runs migrations and releases the resources it holds on Close.
type Executor interface {
	MigrateWorkbook(executionContext context.Context, request WorkbookRequest) (WorkbookResult, error)
	MigrateProject(executionContext context.Context, request ProjectRequest) (ProjectResult, error)
	MigrateSite(executionContext context.Context, request SiteRequest) (SiteReport, error)
	Close(executionContext context.Context) error
}

// ExecutorProvider opens an Executor for the supplied configuration.
type ExecutorProvider func(executionContext context.Context, logger *zap.Logger, configuration CommandConfiguration) (Executor, error)

type sessionExecutor struct {
	*Service
	binder      *ConnectionBinder
	stagingArea *transfer.StagingArea
}

// Close removes the staging root and signs out of both servers.
func (executor *sessionExecutor) Close(executionContext context.Context) error {
	return errors.Join(executor.stagingArea.Close(), executor.binder.Close(executionContext))
}

// OpenExecutor signs in to both servers, creates the run's staging root, and binds the configured sites.
func OpenExecutor(executionContext context.Context, logger *zap.Logger, configuration CommandConfiguration) (Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitized := configuration.Sanitize()

	connector, connectorError := servers.NewConnector(servers.ConnectorDependencies{
		Logger: logger,
		CredentialResolver: credentials.NewResolver(credentials.ResolverDependencies{
			Prompter: credentials.NewTerminalPasswordPrompter(os.Stdin, os.Stderr),
		}),
	})
	if connectorError != nil {
		return nil, connectorError
	}

	sourceConnection, sourceError := connector.Connect(executionContext, credentials.RoleSource, sanitized.Servers.Source, sanitized.Migration.PageSize)
	if sourceError != nil {
		return nil, sourceError
	}
	targetConnection, targetError := connector.Connect(executionContext, credentials.RoleTarget, sanitized.Servers.Target, sanitized.Migration.PageSize)
	if targetError != nil {
		return nil, errors.Join(targetError, sourceConnection.Close(executionContext))
	}

	stagingArea, stagingError := transfer.NewStagingArea(sanitized.Migration.StagingDirectory)
	if stagingError != nil {
		return nil, errors.Join(stagingError, sourceConnection.Close(executionContext), targetConnection.Close(executionContext))
	}

	binder, binderError := NewConnectionBinder(ConnectionBinderDependencies{
		Logger:          logger,
		Source:          sourceConnection,
		Target:          targetConnection,
		StagingArea:     stagingArea,
		ResolverOptions: hierarchy.ResolverOptions{Parallelism: sanitized.Migration.ProjectWorkers},
		TransferOptions: transfer.Options{Overwrite: sanitized.Migration.Overwrite},
	})
	if binderError != nil {
		return nil, errors.Join(binderError, stagingArea.Close(), sourceConnection.Close(executionContext), targetConnection.Close(executionContext))
	}

	binding, bindError := binder.Bind(executionContext, sourceConnection.SiteContentURL(), targetConnection.SiteContentURL())
	if bindError != nil {
		return nil, errors.Join(bindError, stagingArea.Close(), binder.Close(executionContext))
	}

	service, serviceError := NewService(ServiceDependencies{Logger: logger, Binding: binding, Binder: binder}, Options{
		WorkbookParallelism: sanitized.Migration.WorkbookWorkers,
		ProjectParallelism:  sanitized.Migration.ProjectWorkers,
	})
	if serviceError != nil {
		return nil, errors.Join(serviceError, stagingArea.Close(), binder.Close(executionContext))
	}

	return &sessionExecutor{Service: service, binder: binder, stagingArea: stagingArea}, nil
}
