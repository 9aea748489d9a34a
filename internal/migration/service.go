package migration

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/tabmigrate/internal/catalog"
	"github.com/temirov/tabmigrate/internal/hierarchy"
	"github.com/temirov/tabmigrate/internal/transfer"
)

const (
	workbookIDFieldNameConstant             = "workbook_id"
	sourceProjectIDFieldNameConstant        = "source_project_id"
	targetProjectIDFieldNameConstant        = "target_project_id"
	workbookCountFieldNameConstant          = "workbook_count"
	migratedCountFieldNameConstant          = "migrated_count"
	failedCountFieldNameConstant            = "failed_count"
	projectCountFieldNameConstant           = "project_count"
	mappedCountFieldNameConstant            = "mapped_count"
	projectMigrationStartedMessageConstant  = "migrating project content"
	projectMigrationFinishedMessageConstant = "project content migrated"
	foreignWorkbookSkippedMessageConstant   = "skipping workbook owned by another project"
	workbookFailedMessageConstant           = "workbook migration failed"
	siteMigrationStartedMessageConstant     = "migrating site"
	siteMigrationFinishedMessageConstant    = "site migrated"
	hierarchyIncompleteMessageConstant      = "hierarchy resolved with errors"
	targetProjectResolvedMessageConstant    = "resolved target project"
	runAbortedLogMessageConstant            = "authentication rejected, stopping site migration"
	defaultParallelismConstant              = 1
)

// Options tunes orchestration concurrency.
type Options struct {
	// WorkbookParallelism bounds concurrent workbook transfers within one project.
	WorkbookParallelism int
	// ProjectParallelism bounds concurrently migrated projects during a site migration.
	ProjectParallelism int
}

// ServiceDependencies enumerates collaborators required by Service.
type ServiceDependencies struct {
	Logger  *zap.Logger
	Binding SiteBinding
	Binder  SiteBinder
}

// Service migrates workbooks, projects, and sites.
type Service struct {
	logger  *zap.Logger
	binding SiteBinding
	binder  SiteBinder
	options Options
}

// NewService validates dependencies and constructs a Service.
func NewService(dependencies ServiceDependencies, options Options) (*Service, error) {
	if !dependencies.Binding.complete() {
		return nil, ErrBindingIncomplete
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if options.WorkbookParallelism < defaultParallelismConstant {
		options.WorkbookParallelism = defaultParallelismConstant
	}
	if options.ProjectParallelism < defaultParallelismConstant {
		options.ProjectParallelism = defaultParallelismConstant
	}
	return &Service{
		logger:  logger,
		binding: dependencies.Binding,
		binder:  dependencies.Binder,
		options: options,
	}, nil
}

// MigrateWorkbook transfers one workbook. An empty target project id is resolved from the source project.
func (service *Service) MigrateWorkbook(executionContext context.Context, request WorkbookRequest) (WorkbookResult, error) {
	workbookID := strings.TrimSpace(request.WorkbookID)
	if len(workbookID) == 0 {
		return WorkbookResult{}, ErrWorkbookIdentifierRequired
	}
	sourceProjectID := strings.TrimSpace(request.SourceProjectID)
	if len(sourceProjectID) == 0 {
		return WorkbookResult{}, ErrSourceProjectIdentifierRequired
	}

	targetProjectID, targetError := service.targetProjectFor(executionContext, service.binding, sourceProjectID, request.TargetProjectID)
	if targetError != nil {
		return WorkbookResult{}, targetError
	}

	published, migrateError := service.binding.ContentMigrator.Migrate(executionContext, catalog.Workbook{ID: workbookID, ProjectID: sourceProjectID}, targetProjectID)
	if migrateError != nil {
		return WorkbookResult{}, migrateError
	}
	return newWorkbookResult(workbookID, sourceProjectID, published), nil
}

// MigrateProject transfers every workbook owned by the source project.
func (service *Service) MigrateProject(executionContext context.Context, request ProjectRequest) (ProjectResult, error) {
	sourceProjectID := strings.TrimSpace(request.SourceProjectID)
	if len(sourceProjectID) == 0 {
		return ProjectResult{}, ErrSourceProjectIdentifierRequired
	}

	targetProjectID, targetError := service.targetProjectFor(executionContext, service.binding, sourceProjectID, request.TargetProjectID)
	if targetError != nil {
		return ProjectResult{SourceProjectID: sourceProjectID, Error: targetError.Error()}, targetError
	}

	return service.migrateProjectContent(executionContext, service.binding, sourceProjectID, targetProjectID, nil)
}

// MigrateSite resolves the whole source hierarchy on the target and then transfers the content
// of every mapped project. Empty site values keep the currently bound site.
func (service *Service) MigrateSite(executionContext context.Context, request SiteRequest) (SiteReport, error) {
	binding, bindingError := service.bindingFor(executionContext, request)
	if bindingError != nil {
		return SiteReport{}, bindingError
	}

	report := SiteReport{SourceSite: binding.SourceSite, TargetSite: binding.TargetSite}

	sourceProjects, listError := binding.SourceCatalog.ListProjects(executionContext)
	if listError != nil {
		return report, listError
	}
	service.logger.Info(
		siteMigrationStartedMessageConstant,
		zap.String(sourceSiteFieldNameConstant, displaySite(binding.SourceSite)),
		zap.String(targetSiteFieldNameConstant, displaySite(binding.TargetSite)),
		zap.Int(projectCountFieldNameConstant, len(sourceProjects)),
	)

	mapping, resolveError := binding.Resolver.Resolve(executionContext, hierarchy.NodesFromProjects(sourceProjects))
	if mapping == nil {
		mapping = hierarchy.NewMapping()
	}
	if contextError := executionContext.Err(); contextError != nil {
		return report, errors.Join(resolveError, contextError)
	}
	var siteErrors []error
	if resolveError != nil {
		service.logger.Warn(hierarchyIncompleteMessageConstant, zap.Int(mappedCountFieldNameConstant, mapping.Len()), zap.Error(resolveError))
		report.HierarchyErrors = describeErrors(resolveError)
		siteErrors = append(siteErrors, resolveError)
	}

	entries := mapping.Entries()
	report.Mapping = entries
	report.CreatedProjects = mapping.CreatedCount()

	runContext, stopRun := context.WithCancelCause(executionContext)
	defer stopRun(nil)

	projectResults := make([]ProjectResult, len(entries))
	projectErrors := make([]error, len(entries))
	var group errgroup.Group
	group.SetLimit(service.options.ProjectParallelism)
	for entryIndex, entry := range entries {
		group.Go(func() error {
			if runContext.Err() != nil {
				projectResults[entryIndex] = ProjectResult{SourceProjectID: entry.SourceID, TargetProjectID: entry.TargetID, Error: ErrRunAborted.Error()}
				return nil
			}
			projectResults[entryIndex], projectErrors[entryIndex] = service.migrateProjectContent(runContext, binding, entry.SourceID, entry.TargetID, stopRun)
			return nil
		})
	}
	_ = group.Wait()
	runAborted := isAuthenticationFailure(context.Cause(runContext))

	report.Projects = projectResults
	for _, projectResult := range projectResults {
		report.MigratedWorkbooks += projectResult.Migrated
		report.FailedWorkbooks += len(projectResult.Failures)
	}
	siteErrors = append(siteErrors, projectErrors...)

	service.logger.Info(
		siteMigrationFinishedMessageConstant,
		zap.Int(mappedCountFieldNameConstant, len(entries)),
		zap.Int(migratedCountFieldNameConstant, report.MigratedWorkbooks),
		zap.Int(failedCountFieldNameConstant, report.FailedWorkbooks),
	)
	if runAborted {
		siteErrors = append([]error{ErrRunAborted}, siteErrors...)
	}
	return report, errors.Join(siteErrors...)
}

func (service *Service) bindingFor(executionContext context.Context, request SiteRequest) (SiteBinding, error) {
	sourceSite := strings.TrimSpace(request.SourceSite)
	if len(sourceSite) == 0 {
		sourceSite = service.binding.SourceSite
	}
	targetSite := strings.TrimSpace(request.TargetSite)
	if len(targetSite) == 0 {
		targetSite = service.binding.TargetSite
	}
	if service.binding.matches(sourceSite, targetSite) {
		return service.binding, nil
	}
	if service.binder == nil {
		return SiteBinding{}, ErrSiteBinderMissing
	}
	binding, bindError := service.binder.Bind(executionContext, sourceSite, targetSite)
	if bindError != nil {
		return SiteBinding{}, bindError
	}
	if !binding.complete() {
		return SiteBinding{}, ErrBindingIncomplete
	}
	return binding, nil
}

// targetProjectFor returns the explicit target when given; otherwise it resolves the source
// project together with its ancestors so the target mirrors the full path.
func (service *Service) targetProjectFor(executionContext context.Context, binding SiteBinding, sourceProjectID string, explicitTargetID string) (string, error) {
	trimmedTarget := strings.TrimSpace(explicitTargetID)
	if len(trimmedTarget) > 0 {
		return trimmedTarget, nil
	}

	chain, chainError := ancestorChain(executionContext, binding.SourceCatalog, sourceProjectID)
	if chainError != nil {
		return "", ProjectError{SourceProjectID: sourceProjectID, Cause: chainError}
	}

	mapping, resolveError := binding.Resolver.Resolve(executionContext, hierarchy.NodesFromProjects(chain))
	targetProjectID, found := "", false
	if mapping != nil {
		targetProjectID, found = mapping.Lookup(sourceProjectID)
	}
	if !found {
		if resolveError == nil {
			resolveError = ErrTargetProjectUnresolved
		}
		return "", ProjectError{SourceProjectID: sourceProjectID, Cause: resolveError}
	}

	service.logger.Info(targetProjectResolvedMessageConstant, zap.String(sourceProjectIDFieldNameConstant, sourceProjectID), zap.String(targetProjectIDFieldNameConstant, targetProjectID))
	return targetProjectID, nil
}

func ancestorChain(executionContext context.Context, accessor *catalog.Accessor, projectID string) ([]catalog.Project, error) {
	chain := make([]catalog.Project, 0)
	visited := make(map[string]struct{})
	currentID := projectID
	for len(currentID) > 0 {
		if _, seen := visited[currentID]; seen {
			break
		}
		visited[currentID] = struct{}{}

		project, getError := accessor.GetProject(executionContext, currentID)
		if getError != nil {
			return nil, getError
		}
		chain = append(chain, project)
		currentID = strings.TrimSpace(project.ParentID)
	}
	return chain, nil
}

type workbookOutcome struct {
	result WorkbookResult
	err    error
}

// migrateProjectContent transfers the workbooks owned by sourceProjectID. stopRun, when set, is
// called with the first authentication failure so the surrounding run stops issuing calls.
func (service *Service) migrateProjectContent(executionContext context.Context, binding SiteBinding, sourceProjectID string, targetProjectID string, stopRun context.CancelCauseFunc) (ProjectResult, error) {
	result := ProjectResult{SourceProjectID: sourceProjectID, TargetProjectID: targetProjectID}
	abortOnAuthenticationFailure := func(candidate error) {
		if stopRun == nil || !isAuthenticationFailure(candidate) {
			return
		}
		service.logger.Error(runAbortedLogMessageConstant, zap.String(sourceProjectIDFieldNameConstant, sourceProjectID), zap.Error(candidate))
		stopRun(candidate)
	}

	listedWorkbooks, listError := binding.SourceCatalog.ListWorkbooks(executionContext, sourceProjectID)
	if listError != nil {
		abortOnAuthenticationFailure(listError)
		projectError := ProjectError{SourceProjectID: sourceProjectID, Cause: listError}
		result.Error = projectError.Error()
		return result, projectError
	}

	ownedWorkbooks := make([]catalog.Workbook, 0, len(listedWorkbooks))
	for _, workbook := range listedWorkbooks {
		if workbook.ProjectID != sourceProjectID {
			service.logger.Debug(foreignWorkbookSkippedMessageConstant, zap.String(workbookIDFieldNameConstant, workbook.ID), zap.String(sourceProjectIDFieldNameConstant, workbook.ProjectID))
			continue
		}
		ownedWorkbooks = append(ownedWorkbooks, workbook)
	}

	service.logger.Info(
		projectMigrationStartedMessageConstant,
		zap.String(sourceProjectIDFieldNameConstant, sourceProjectID),
		zap.String(targetProjectIDFieldNameConstant, targetProjectID),
		zap.Int(workbookCountFieldNameConstant, len(ownedWorkbooks)),
	)

	outcomes := make([]workbookOutcome, len(ownedWorkbooks))
	var group errgroup.Group
	group.SetLimit(service.options.WorkbookParallelism)
	for workbookIndex, workbook := range ownedWorkbooks {
		group.Go(func() error {
			if executionContext.Err() != nil {
				outcomes[workbookIndex] = workbookOutcome{err: transfer.TransferError{WorkbookID: workbook.ID, WorkbookName: workbook.Name, Stage: transfer.StageDownload, Cause: context.Cause(executionContext)}}
				return nil
			}
			published, migrateError := binding.ContentMigrator.Migrate(executionContext, workbook, targetProjectID)
			if migrateError != nil {
				abortOnAuthenticationFailure(migrateError)
				outcomes[workbookIndex] = workbookOutcome{err: migrateError}
				return nil
			}
			outcomes[workbookIndex] = workbookOutcome{result: newWorkbookResult(workbook.ID, sourceProjectID, published)}
			return nil
		})
	}
	_ = group.Wait()

	var workbookErrors []error
	for workbookIndex, outcome := range outcomes {
		if outcome.err != nil {
			service.logger.Warn(workbookFailedMessageConstant, zap.String(workbookIDFieldNameConstant, ownedWorkbooks[workbookIndex].ID), zap.Error(outcome.err))
			result.Failures = append(result.Failures, newWorkbookFailure(ownedWorkbooks[workbookIndex], outcome.err))
			workbookErrors = append(workbookErrors, outcome.err)
			continue
		}
		result.Workbooks = append(result.Workbooks, outcome.result)
		result.Migrated++
	}

	service.logger.Info(
		projectMigrationFinishedMessageConstant,
		zap.String(sourceProjectIDFieldNameConstant, sourceProjectID),
		zap.Int(migratedCountFieldNameConstant, result.Migrated),
		zap.Int(failedCountFieldNameConstant, len(result.Failures)),
	)
	return result, errors.Join(workbookErrors...)
}
