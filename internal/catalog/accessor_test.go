package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/tabmigrate/internal/catalog"
	"github.com/temirov/tabmigrate/internal/catalog/testsupport"
)

const (
	testIdentifierPrefixConstant          = "src"
	testRootProjectIdentifierConstant     = "p-root"
	testChildProjectIdentifierConstant    = "p-child"
	testRootProjectNameConstant           = "Engineering"
	testChildProjectNameConstant          = "Data"
	testWorkbookIdentifierConstant        = "w-1"
	testWorkbookNameConstant              = "Dashboard"
	testSiteIdentifierConstant            = "site-1"
	testSiteNameConstant                  = "Finance"
	testSiteContentURLConstant            = "finance"
	testCreatedProjectNameConstant        = "Marketing"
	testListFailureMessageConstant        = "listing unavailable"
	testSubtestNameTemplateConstant       = "%d_%s"
	testMissingProjectIdentifierConstant  = "p-missing"
	testWhitespaceIdentifierConstant      = "   "
	testProjectsCaseNameConstant          = "all_projects"
	testProjectsByNameCaseNameConstant    = "projects_by_name"
	testWorkbooksCaseNameConstant         = "workbooks_for_project"
	testWorkbooksAllCaseNameConstant      = "workbooks_for_site"
	testRejectEmptyNameCaseNameConstant   = "reject_empty_name"
	testCreateTopLevelCaseNameConstant    = "create_top_level"
	testCreateNestedCaseNameConstant      = "create_nested"
	testRejectEmptyIdentifierCaseConstant = "reject_empty_identifier"
)

func newSeededCatalog() *testsupport.MemoryCatalog {
	memoryCatalog := testsupport.NewMemoryCatalog(testIdentifierPrefixConstant)
	memoryCatalog.AddProject(catalog.Project{ID: testRootProjectIdentifierConstant, Name: testRootProjectNameConstant})
	memoryCatalog.AddProject(catalog.Project{ID: testChildProjectIdentifierConstant, Name: testChildProjectNameConstant, ParentID: testRootProjectIdentifierConstant})
	memoryCatalog.AddWorkbook(catalog.Workbook{ID: testWorkbookIdentifierConstant, Name: testWorkbookNameConstant, ProjectID: testChildProjectIdentifierConstant}, []byte("content"))
	memoryCatalog.AddSite(catalog.Site{ID: testSiteIdentifierConstant, Name: testSiteNameConstant, ContentURL: testSiteContentURLConstant})
	return memoryCatalog
}

func TestNewAccessorValidation(testInstance *testing.T) {
	accessor, creationError := catalog.NewAccessor(nil)
	require.ErrorIs(testInstance, creationError, catalog.ErrCollaboratorMissing)
	require.Nil(testInstance, accessor)
}

func TestAccessorListing(testInstance *testing.T) {
	testCases := []struct {
		name   string
		verify func(testInstance *testing.T, accessor *catalog.Accessor)
	}{
		{
			name: testProjectsCaseNameConstant,
			verify: func(testInstance *testing.T, accessor *catalog.Accessor) {
				projects, listError := accessor.ListProjects(context.Background())
				require.NoError(testInstance, listError)
				require.Len(testInstance, projects, 2)
				require.True(testInstance, projects[0].IsRoot())
				require.Equal(testInstance, testRootProjectIdentifierConstant, projects[1].ParentID)
			},
		},
		{
			name: testProjectsByNameCaseNameConstant,
			verify: func(testInstance *testing.T, accessor *catalog.Accessor) {
				projects, listError := accessor.FindProjectsByName(context.Background(), testChildProjectNameConstant)
				require.NoError(testInstance, listError)
				require.Equal(testInstance, []catalog.Project{{ID: testChildProjectIdentifierConstant, Name: testChildProjectNameConstant, ParentID: testRootProjectIdentifierConstant}}, projects)
			},
		},
		{
			name: testWorkbooksCaseNameConstant,
			verify: func(testInstance *testing.T, accessor *catalog.Accessor) {
				workbooks, listError := accessor.ListWorkbooks(context.Background(), testChildProjectIdentifierConstant)
				require.NoError(testInstance, listError)
				require.Equal(testInstance, []catalog.Workbook{{ID: testWorkbookIdentifierConstant, Name: testWorkbookNameConstant, ProjectID: testChildProjectIdentifierConstant}}, workbooks)

				emptyWorkbooks, emptyError := accessor.ListWorkbooks(context.Background(), testRootProjectIdentifierConstant)
				require.NoError(testInstance, emptyError)
				require.Empty(testInstance, emptyWorkbooks)
			},
		},
		{
			name: testWorkbooksAllCaseNameConstant,
			verify: func(testInstance *testing.T, accessor *catalog.Accessor) {
				workbooks, listError := accessor.ListWorkbooks(context.Background(), "")
				require.NoError(testInstance, listError)
				require.Len(testInstance, workbooks, 1)

				sites, sitesError := accessor.ListSites(context.Background())
				require.NoError(testInstance, sitesError)
				require.Equal(testInstance, []catalog.Site{{ID: testSiteIdentifierConstant, Name: testSiteNameConstant, ContentURL: testSiteContentURLConstant}}, sites)
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			accessor, creationError := catalog.NewAccessor(newSeededCatalog())
			require.NoError(testInstance, creationError)
			testCase.verify(testInstance, accessor)
		})
	}
}

func TestAccessorListingPropagatesErrors(testInstance *testing.T) {
	memoryCatalog := newSeededCatalog()
	memoryCatalog.ListError = errors.New(testListFailureMessageConstant)
	accessor, creationError := catalog.NewAccessor(memoryCatalog)
	require.NoError(testInstance, creationError)

	_, projectsError := accessor.ListProjects(context.Background())
	require.EqualError(testInstance, projectsError, testListFailureMessageConstant)

	_, sitesError := accessor.ListSites(context.Background())
	require.EqualError(testInstance, sitesError, testListFailureMessageConstant)
}

func TestAccessorProjectsStopsEarly(testInstance *testing.T) {
	accessor, creationError := catalog.NewAccessor(newSeededCatalog())
	require.NoError(testInstance, creationError)

	visited := 0
	for _, iterationError := range accessor.Projects(context.Background(), catalog.Filter{}) {
		require.NoError(testInstance, iterationError)
		visited++
		break
	}
	require.Equal(testInstance, 1, visited)
}

func TestAccessorCreateProject(testInstance *testing.T) {
	testCases := []struct {
		name        string
		projectName string
		parentID    string
		expectError bool
	}{
		{name: testRejectEmptyNameCaseNameConstant, projectName: testWhitespaceIdentifierConstant, expectError: true},
		{name: testCreateTopLevelCaseNameConstant, projectName: testCreatedProjectNameConstant},
		{name: testCreateNestedCaseNameConstant, projectName: testCreatedProjectNameConstant, parentID: testRootProjectIdentifierConstant},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			memoryCatalog := newSeededCatalog()
			accessor, creationError := catalog.NewAccessor(memoryCatalog)
			require.NoError(testInstance, creationError)

			project, createError := accessor.CreateProject(context.Background(), testCase.projectName, testCase.parentID)
			if testCase.expectError {
				var validationError catalog.ValidationError
				require.ErrorAs(testInstance, createError, &validationError)
				require.Equal(testInstance, catalog.KindProject, validationError.Kind)
				require.Zero(testInstance, memoryCatalog.CreateCount())
				return
			}
			require.NoError(testInstance, createError)
			require.NotEmpty(testInstance, project.ID)
			require.Equal(testInstance, testCase.projectName, project.Name)
			require.Equal(testInstance, testCase.parentID, project.ParentID)
			require.Equal(testInstance, 1, memoryCatalog.CreateCount())
		})
	}
}

func TestAccessorGetters(testInstance *testing.T) {
	accessor, creationError := catalog.NewAccessor(newSeededCatalog())
	require.NoError(testInstance, creationError)

	project, projectError := accessor.GetProject(context.Background(), testChildProjectIdentifierConstant)
	require.NoError(testInstance, projectError)
	require.Equal(testInstance, testChildProjectNameConstant, project.Name)

	workbook, workbookError := accessor.GetWorkbook(context.Background(), testWorkbookIdentifierConstant)
	require.NoError(testInstance, workbookError)
	require.Equal(testInstance, testChildProjectIdentifierConstant, workbook.ProjectID)

	_, missingError := accessor.GetProject(context.Background(), testMissingProjectIdentifierConstant)
	require.True(testInstance, catalog.IsNotFound(missingError))
	require.EqualError(testInstance, missingError, "projects p-missing not found")

	testInstance.Run(testRejectEmptyIdentifierCaseConstant, func(testInstance *testing.T) {
		_, emptyProjectError := accessor.GetProject(context.Background(), testWhitespaceIdentifierConstant)
		require.ErrorAs(testInstance, emptyProjectError, &catalog.ValidationError{})
		_, emptyWorkbookError := accessor.GetWorkbook(context.Background(), "")
		require.ErrorAs(testInstance, emptyWorkbookError, &catalog.ValidationError{})
	})
}

func TestErrorsUnwrap(testInstance *testing.T) {
	rootCause := errors.New(testListFailureMessageConstant)
	conflictError := catalog.ConflictError{Kind: catalog.KindProject, Name: testRootProjectNameConstant, Cause: rootCause}
	require.ErrorIs(testInstance, conflictError, rootCause)
	require.Contains(testInstance, conflictError.Error(), testRootProjectNameConstant)

	validationError := catalog.ValidationError{Kind: catalog.KindProject, Name: testRootProjectNameConstant, Message: "bad", Cause: rootCause}
	require.ErrorIs(testInstance, validationError, rootCause)
	require.False(testInstance, catalog.IsNotFound(validationError))
}
