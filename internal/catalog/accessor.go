package catalog

import (
	"context"
	"iter"
	"strings"
)

// Accessor layers typed list, get, and create helpers over a Collaborator.
type Accessor struct {
	collaborator Collaborator
}

// NewAccessor constructs an Accessor for the provided collaborator.
func NewAccessor(collaborator Collaborator) (*Accessor, error) {
	if collaborator == nil {
		return nil, ErrCollaboratorMissing
	}
	return &Accessor{collaborator: collaborator}, nil
}

// Projects lazily enumerates projects matching the filter.
func (accessor *Accessor) Projects(executionContext context.Context, filter Filter) iter.Seq2[Project, error] {
	return func(yield func(Project, error) bool) {
		for entity, listError := range accessor.collaborator.ListEntities(executionContext, KindProject, filter) {
			if listError != nil {
				yield(Project{}, listError)
				return
			}
			if !yield(projectFromEntity(entity), nil) {
				return
			}
		}
	}
}

// ListProjects collects every project on the active site.
func (accessor *Accessor) ListProjects(executionContext context.Context) ([]Project, error) {
	return collect(accessor.Projects(executionContext, Filter{}))
}

// FindProjectsByName collects projects whose name equals the provided name.
func (accessor *Accessor) FindProjectsByName(executionContext context.Context, name string) ([]Project, error) {
	return collect(accessor.Projects(executionContext, Filter{Name: name}))
}

// GetProject fetches one project by identifier.
func (accessor *Accessor) GetProject(executionContext context.Context, identifier string) (Project, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return Project{}, ValidationError{Kind: KindProject, Message: projectIdentifierRequiredMessageConstant}
	}
	entity, getError := accessor.collaborator.GetEntity(executionContext, KindProject, trimmedIdentifier)
	if getError != nil {
		return Project{}, getError
	}
	return projectFromEntity(entity), nil
}

// CreateProject creates a project under parentID, or at the top level when parentID is empty.
func (accessor *Accessor) CreateProject(executionContext context.Context, name string, parentID string) (Project, error) {
	if len(strings.TrimSpace(name)) == 0 {
		return Project{}, ValidationError{Kind: KindProject, Name: name, Message: projectNameRequiredMessageConstant}
	}
	created, createError := accessor.collaborator.CreateEntity(executionContext, KindProject, Entity{Name: name, ContainerID: parentID})
	if createError != nil {
		return Project{}, createError
	}
	return projectFromEntity(created), nil
}

// Workbooks lazily enumerates workbooks, restricted to one owning project when projectID is set.
func (accessor *Accessor) Workbooks(executionContext context.Context, projectID string) iter.Seq2[Workbook, error] {
	return func(yield func(Workbook, error) bool) {
		filter := Filter{ContainerID: strings.TrimSpace(projectID)}
		for entity, listError := range accessor.collaborator.ListEntities(executionContext, KindWorkbook, filter) {
			if listError != nil {
				yield(Workbook{}, listError)
				return
			}
			if !yield(workbookFromEntity(entity), nil) {
				return
			}
		}
	}
}

// ListWorkbooks collects workbooks, restricted to one owning project when projectID is set.
func (accessor *Accessor) ListWorkbooks(executionContext context.Context, projectID string) ([]Workbook, error) {
	return collect(accessor.Workbooks(executionContext, projectID))
}

// GetWorkbook fetches one workbook by identifier.
func (accessor *Accessor) GetWorkbook(executionContext context.Context, identifier string) (Workbook, error) {
	trimmedIdentifier := strings.TrimSpace(identifier)
	if len(trimmedIdentifier) == 0 {
		return Workbook{}, ValidationError{Kind: KindWorkbook, Message: workbookIdentifierRequiredMessageConstant}
	}
	entity, getError := accessor.collaborator.GetEntity(executionContext, KindWorkbook, trimmedIdentifier)
	if getError != nil {
		return Workbook{}, getError
	}
	return workbookFromEntity(entity), nil
}

// ListSites collects every site visible to the credential.
func (accessor *Accessor) ListSites(executionContext context.Context) ([]Site, error) {
	sites := make([]Site, 0)
	for entity, listError := range accessor.collaborator.ListEntities(executionContext, KindSite, Filter{}) {
		if listError != nil {
			return nil, listError
		}
		sites = append(sites, siteFromEntity(entity))
	}
	return sites, nil
}

func collect[T any](sequence iter.Seq2[T, error]) ([]T, error) {
	collected := make([]T, 0)
	for element, sequenceError := range sequence {
		if sequenceError != nil {
			return nil, sequenceError
		}
		collected = append(collected, element)
	}
	return collected, nil
}
