package catalog

import (
	"context"
	"iter"
	"strings"
)

// Kind names a remote entity collection.
type Kind string

// Supported entity collections.
const (
	KindProject  Kind = Kind("projects")
	KindWorkbook Kind = Kind("workbooks")
	KindSite     Kind = Kind("sites")
)

// Entity is the kind-agnostic record exchanged with a Collaborator.
// ContainerID holds the parent project for projects and the owning project for workbooks.
type Entity struct {
	ID          string
	Name        string
	ContainerID string
	ContentURL  string
}

// Filter restricts listings by equality. Empty fields do not constrain the result.
type Filter struct {
	Name        string
	ContainerID string
}

// Matches reports whether the entity satisfies every populated filter field.
func (filter Filter) Matches(entity Entity) bool {
	if len(filter.Name) > 0 && entity.Name != filter.Name {
		return false
	}
	if len(filter.ContainerID) > 0 && entity.ContainerID != filter.ContainerID {
		return false
	}
	return true
}

// Collaborator is the remote capability set consumed by the catalog.
type Collaborator interface {
	ListEntities(executionContext context.Context, kind Kind, filter Filter) iter.Seq2[Entity, error]
	GetEntity(executionContext context.Context, kind Kind, identifier string) (Entity, error)
	CreateEntity(executionContext context.Context, kind Kind, entity Entity) (Entity, error)
}

// Project describes a folder-like container that may nest under another project.
type Project struct {
	ID       string
	Name     string
	ParentID string
}

// IsRoot reports whether the project has no parent.
func (project Project) IsRoot() bool {
	return len(strings.TrimSpace(project.ParentID)) == 0
}

// Workbook describes a content item owned by exactly one project.
type Workbook struct {
	ID        string
	Name      string
	ProjectID string
}

// Site describes a tenant within one server.
type Site struct {
	ID         string
	Name       string
	ContentURL string
}

func projectFromEntity(entity Entity) Project {
	return Project{ID: entity.ID, Name: entity.Name, ParentID: entity.ContainerID}
}

func workbookFromEntity(entity Entity) Workbook {
	return Workbook{ID: entity.ID, Name: entity.Name, ProjectID: entity.ContainerID}
}

func siteFromEntity(entity Entity) Site {
	return Site{ID: entity.ID, Name: entity.Name, ContentURL: entity.ContentURL}
}
