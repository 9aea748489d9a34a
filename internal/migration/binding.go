package migration

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/temirov/tabmigrate/internal/catalog"
	"github.com/temirov/tabmigrate/internal/credentials"
	"github.com/temirov/tabmigrate/internal/hierarchy"
	"github.com/temirov/tabmigrate/internal/restapi"
	"github.com/temirov/tabmigrate/internal/transfer"
)

const (
	siteBoundMessageConstant        = "bound site context"
	sourceSiteFieldNameConstant     = "source_site"
	targetSiteFieldNameConstant     = "target_site"
	signOutFailedMessageConstant    = "sign out failed"
	roleFieldNameConstant           = "role"
	defaultSiteDisplayConstant      = "(default)"
	siteDisplayFieldNameConstant    = "site"
	siteSwitchingMessageConstant    = "switching site"
	connectionClosedMessageConstant = "signed out"
)

// SourceCollaborator reads catalog entries and downloads content.
type SourceCollaborator interface {
	catalog.Collaborator
	transfer.ContentSource
}

// TargetCollaborator reads and creates catalog entries and publishes content.
type TargetCollaborator interface {
	catalog.Collaborator
	transfer.ContentDestination
}

// ProjectResolver maps source project nodes onto target projects.
type ProjectResolver interface {
	Resolve(executionContext context.Context, nodes []hierarchy.ProjectNode) (*hierarchy.Mapping, error)
}

// ContentMigrator moves one workbook into a target project.
type ContentMigrator interface {
	Migrate(executionContext context.Context, item catalog.Workbook, targetProjectID string) (catalog.Workbook, error)
}

// SiteBinding holds everything needed to migrate between one pair of sites.
type SiteBinding struct {
	SourceSite      string
	TargetSite      string
	SourceCatalog   *catalog.Accessor
	TargetCatalog   *catalog.Accessor
	Resolver        ProjectResolver
	ContentMigrator ContentMigrator
}

func (binding SiteBinding) complete() bool {
	return binding.SourceCatalog != nil && binding.TargetCatalog != nil && binding.Resolver != nil && binding.ContentMigrator != nil
}

func (binding SiteBinding) matches(sourceSite string, targetSite string) bool {
	return strings.EqualFold(binding.SourceSite, sourceSite) && strings.EqualFold(binding.TargetSite, targetSite)
}

// SiteBinder produces bindings for other site pairs.
type SiteBinder interface {
	Bind(executionContext context.Context, sourceSite string, targetSite string) (SiteBinding, error)
}

// BindingDependencies enumerates collaborators for NewSiteBinding.
type BindingDependencies struct {
	Logger          *zap.Logger
	Source          SourceCollaborator
	Target          TargetCollaborator
	SourceSite      string
	TargetSite      string
	StagingArea     *transfer.StagingArea
	ResolverOptions hierarchy.ResolverOptions
	TransferOptions transfer.Options
}

// NewSiteBinding wires catalog accessors, a hierarchy resolver, and a content migrator for one site pair.
// Each binding owns a fresh resolver so its signature cache never outlives the site context.
func NewSiteBinding(dependencies BindingDependencies) (SiteBinding, error) {
	if dependencies.Source == nil || dependencies.Target == nil {
		return SiteBinding{}, ErrBindingIncomplete
	}

	sourceAccessor, sourceAccessorError := catalog.NewAccessor(dependencies.Source)
	if sourceAccessorError != nil {
		return SiteBinding{}, sourceAccessorError
	}
	targetAccessor, targetAccessorError := catalog.NewAccessor(dependencies.Target)
	if targetAccessorError != nil {
		return SiteBinding{}, targetAccessorError
	}

	matcher, matcherError := hierarchy.NewNameParentMatcher(targetAccessor)
	if matcherError != nil {
		return SiteBinding{}, matcherError
	}
	resolver, resolverError := hierarchy.NewResolver(hierarchy.ResolverDependencies{
		Logger:  dependencies.Logger,
		Creator: targetAccessor,
		Matcher: matcher,
	}, dependencies.ResolverOptions)
	if resolverError != nil {
		return SiteBinding{}, resolverError
	}

	migrator, migratorError := transfer.NewMigrator(transfer.MigratorDependencies{
		Logger:      dependencies.Logger,
		Source:      dependencies.Source,
		Destination: dependencies.Target,
		Metadata:    sourceAccessor,
		StagingArea: dependencies.StagingArea,
	}, dependencies.TransferOptions)
	if migratorError != nil {
		return SiteBinding{}, migratorError
	}

	return SiteBinding{
		SourceSite:      strings.TrimSpace(dependencies.SourceSite),
		TargetSite:      strings.TrimSpace(dependencies.TargetSite),
		SourceCatalog:   sourceAccessor,
		TargetCatalog:   targetAccessor,
		Resolver:        resolver,
		ContentMigrator: migrator,
	}, nil
}

// ConnectionBinderDependencies enumerates collaborators for ConnectionBinder.
type ConnectionBinderDependencies struct {
	Logger          *zap.Logger
	Source          *restapi.Connection
	Target          *restapi.Connection
	StagingArea     *transfer.StagingArea
	ResolverOptions hierarchy.ResolverOptions
	TransferOptions transfer.Options
}

// ConnectionBinder switches live server connections between sites and builds bindings for them.
// It owns the most recent connection of each role and signs both out on Close.
type ConnectionBinder struct {
	mutex           sync.Mutex
	logger          *zap.Logger
	source          *restapi.Connection
	target          *restapi.Connection
	stagingArea     *transfer.StagingArea
	resolverOptions hierarchy.ResolverOptions
	transferOptions transfer.Options
}

// NewConnectionBinder validates dependencies and constructs a ConnectionBinder.
func NewConnectionBinder(dependencies ConnectionBinderDependencies) (*ConnectionBinder, error) {
	if dependencies.Source == nil || dependencies.Target == nil {
		return nil, ErrConnectionMissing
	}
	if dependencies.StagingArea == nil {
		return nil, transfer.ErrStagingAreaMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionBinder{
		logger:          logger,
		source:          dependencies.Source,
		target:          dependencies.Target,
		stagingArea:     dependencies.StagingArea,
		resolverOptions: dependencies.ResolverOptions,
		transferOptions: dependencies.TransferOptions,
	}, nil
}

// Bind switches each connection to the requested site when it is bound elsewhere and returns a binding.
func (binder *ConnectionBinder) Bind(executionContext context.Context, sourceSite string, targetSite string) (SiteBinding, error) {
	binder.mutex.Lock()
	defer binder.mutex.Unlock()

	switchedSource, sourceError := binder.switchConnection(executionContext, credentials.RoleSource, binder.source, sourceSite)
	if sourceError != nil {
		return SiteBinding{}, sourceError
	}
	binder.source = switchedSource

	switchedTarget, targetError := binder.switchConnection(executionContext, credentials.RoleTarget, binder.target, targetSite)
	if targetError != nil {
		return SiteBinding{}, targetError
	}
	binder.target = switchedTarget

	binder.logger.Info(
		siteBoundMessageConstant,
		zap.String(sourceSiteFieldNameConstant, displaySite(binder.source.SiteContentURL())),
		zap.String(targetSiteFieldNameConstant, displaySite(binder.target.SiteContentURL())),
	)

	return NewSiteBinding(BindingDependencies{
		Logger:          binder.logger,
		Source:          binder.source,
		Target:          binder.target,
		SourceSite:      binder.source.SiteContentURL(),
		TargetSite:      binder.target.SiteContentURL(),
		StagingArea:     binder.stagingArea,
		ResolverOptions: binder.resolverOptions,
		TransferOptions: binder.transferOptions,
	})
}

func (binder *ConnectionBinder) switchConnection(executionContext context.Context, role credentials.Role, connection *restapi.Connection, site string) (*restapi.Connection, error) {
	if strings.EqualFold(strings.TrimSpace(site), connection.SiteContentURL()) {
		return connection, nil
	}
	binder.logger.Info(siteSwitchingMessageConstant, zap.String(roleFieldNameConstant, string(role)), zap.String(siteDisplayFieldNameConstant, displaySite(site)))
	switched, switchError := connection.SwitchSite(executionContext, site)
	if switchError != nil {
		return nil, SiteSwitchError{Role: role, Site: site, Cause: switchError}
	}
	return switched, nil
}

// Close signs out of both current sessions.
func (binder *ConnectionBinder) Close(executionContext context.Context) error {
	binder.mutex.Lock()
	defer binder.mutex.Unlock()

	var closeErrors []error
	for role, connection := range map[credentials.Role]*restapi.Connection{credentials.RoleSource: binder.source, credentials.RoleTarget: binder.target} {
		if closeError := connection.Close(executionContext); closeError != nil {
			binder.logger.Warn(signOutFailedMessageConstant, zap.String(roleFieldNameConstant, string(role)), zap.Error(closeError))
			closeErrors = append(closeErrors, closeError)
			continue
		}
		binder.logger.Debug(connectionClosedMessageConstant, zap.String(roleFieldNameConstant, string(role)))
	}
	return errors.Join(closeErrors...)
}

func displaySite(site string) string {
	trimmed := strings.TrimSpace(site)
	if len(trimmed) == 0 {
		return defaultSiteDisplayConstant
	}
	return trimmed
}
