package hierarchy

import (
	"context"
	"strings"

	"github.com/temirov/tabmigrate/internal/catalog"
)

// MatchingPolicy decides whether a target project equivalent to (name, parentID) already exists.
type MatchingPolicy interface {
	FindExisting(executionContext context.Context, name string, parentID string) (string, bool, error)
}

// ProjectCreator creates target projects.
type ProjectCreator interface {
	CreateProject(executionContext context.Context, name string, parentID string) (catalog.Project, error)
}

// NameParentMatcher treats a target project as equivalent when both name and parent match.
type NameParentMatcher struct {
	accessor *catalog.Accessor
}

// NewNameParentMatcher constructs a matcher that queries the provided target accessor.
func NewNameParentMatcher(accessor *catalog.Accessor) (*NameParentMatcher, error) {
	if accessor == nil {
		return nil, ErrAccessorMissing
	}
	return &NameParentMatcher{accessor: accessor}, nil
}

// FindExisting returns the first target project named name whose parent equals parentID.
func (matcher *NameParentMatcher) FindExisting(executionContext context.Context, name string, parentID string) (string, bool, error) {
	expectedParent := strings.TrimSpace(parentID)
	for project, listError := range matcher.accessor.Projects(executionContext, catalog.Filter{Name: name}) {
		if listError != nil {
			return "", false, listError
		}
		if strings.TrimSpace(project.ParentID) == expectedParent {
			return project.ID, true, nil
		}
	}
	return "", false, nil
}
