package hierarchy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/tabmigrate/internal/catalog"
	"github.com/temirov/tabmigrate/internal/catalog/testsupport"
	"github.com/temirov/tabmigrate/internal/hierarchy"
)

const (
	testTargetPrefixConstant             = "tgt"
	testSubtestNameTemplateConstant      = "%d_%s"
	testEngineeringNameConstant          = "Eng"
	testDataNameConstant                 = "Data"
	testSalesNameConstant                = "Sales"
	testReportsNameConstant              = "Reports"
	testEngineeringSourceIDConstant      = "P1"
	testDataSourceIDConstant             = "P2"
	testCycleFirstSourceIDConstant       = "A"
	testCycleSecondSourceIDConstant      = "B"
	testSelfParentSourceIDConstant       = "S"
	testDanglingSourceIDConstant         = "D"
	testMissingParentIDConstant          = "P-missing"
	testDuplicateSourceWarningConstant   = "duplicate source project ignored"
	testRejectedNameMessageConstant      = "name rejected"
	testConcurrentSiblingCountConstant   = 24
	testConcurrentParallelismConstant    = 8
	testCycleCaseNameConstant            = "mutual_cycle"
	testSelfParentCaseNameConstant       = "self_parent"
	testDanglingParentCaseNameConstant   = "dangling_parent"
	testExistingTargetIDConstant         = "existing-eng"
	testExistingNestedTargetIDConstant   = "existing-data"
	testPreexistingOtherParentIDConstant = "other-parent"
)

func newResolver(testInstance *testing.T, target *testsupport.MemoryCatalog, parallelism int, logger *zap.Logger) *hierarchy.Resolver {
	testInstance.Helper()
	accessor, accessorError := catalog.NewAccessor(target)
	require.NoError(testInstance, accessorError)
	matcher, matcherError := hierarchy.NewNameParentMatcher(accessor)
	require.NoError(testInstance, matcherError)
	resolver, resolverError := hierarchy.NewResolver(
		hierarchy.ResolverDependencies{Logger: logger, Creator: accessor, Matcher: matcher},
		hierarchy.ResolverOptions{Parallelism: parallelism},
	)
	require.NoError(testInstance, resolverError)
	return resolver
}

func engineeringForest() []hierarchy.ProjectNode {
	return []hierarchy.ProjectNode{
		{SourceID: testDataSourceIDConstant, Name: testDataNameConstant, ParentID: testEngineeringSourceIDConstant},
		{SourceID: testEngineeringSourceIDConstant, Name: testEngineeringNameConstant},
	}
}

func TestNewResolverValidation(testInstance *testing.T) {
	accessor, accessorError := catalog.NewAccessor(testsupport.NewMemoryCatalog(testTargetPrefixConstant))
	require.NoError(testInstance, accessorError)
	matcher, matcherError := hierarchy.NewNameParentMatcher(accessor)
	require.NoError(testInstance, matcherError)

	_, creatorError := hierarchy.NewResolver(hierarchy.ResolverDependencies{Matcher: matcher}, hierarchy.ResolverOptions{})
	require.ErrorIs(testInstance, creatorError, hierarchy.ErrCreatorMissing)

	_, missingMatcherError := hierarchy.NewResolver(hierarchy.ResolverDependencies{Creator: accessor}, hierarchy.ResolverOptions{})
	require.ErrorIs(testInstance, missingMatcherError, hierarchy.ErrMatcherMissing)

	_, missingAccessorError := hierarchy.NewNameParentMatcher(nil)
	require.ErrorIs(testInstance, missingAccessorError, hierarchy.ErrAccessorMissing)
}

func TestResolveCreatesHierarchyParentFirst(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	resolver := newResolver(testInstance, target, 1, nil)

	mapping, resolveError := resolver.Resolve(context.Background(), engineeringForest())
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, 2, mapping.Len())
	require.Equal(testInstance, 2, mapping.CreatedCount())

	engineeringTargetID, engineeringMapped := mapping.Lookup(testEngineeringSourceIDConstant)
	require.True(testInstance, engineeringMapped)
	dataTargetID, dataMapped := mapping.Lookup(testDataSourceIDConstant)
	require.True(testInstance, dataMapped)

	entries := mapping.Entries()
	require.Equal(testInstance, testEngineeringSourceIDConstant, entries[0].SourceID)
	require.Equal(testInstance, testDataSourceIDConstant, entries[1].SourceID)

	require.Len(testInstance, target.CreatedEntities, 2)
	require.Equal(testInstance, catalog.Entity{ID: engineeringTargetID, Name: testEngineeringNameConstant}, target.CreatedEntities[0])
	require.Equal(testInstance, catalog.Entity{ID: dataTargetID, Name: testDataNameConstant, ContainerID: engineeringTargetID}, target.CreatedEntities[1])
}

func TestResolveIsIdempotentAcrossRuns(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)

	firstMapping, firstError := newResolver(testInstance, target, 1, nil).Resolve(context.Background(), engineeringForest())
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, 2, target.CreateCount())

	secondMapping, secondError := newResolver(testInstance, target, 1, nil).Resolve(context.Background(), engineeringForest())
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, 2, target.CreateCount())
	require.Zero(testInstance, secondMapping.CreatedCount())

	for _, entry := range firstMapping.Entries() {
		secondTargetID, mapped := secondMapping.Lookup(entry.SourceID)
		require.True(testInstance, mapped)
		require.Equal(testInstance, entry.TargetID, secondTargetID)
	}
}

func TestResolveReusesMatchingTargetsOnly(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	target.AddProject(catalog.Project{ID: testExistingTargetIDConstant, Name: testEngineeringNameConstant})
	target.AddProject(catalog.Project{ID: testExistingNestedTargetIDConstant, Name: testDataNameConstant, ParentID: testPreexistingOtherParentIDConstant})

	mapping, resolveError := newResolver(testInstance, target, 1, nil).Resolve(context.Background(), engineeringForest())
	require.NoError(testInstance, resolveError)

	engineeringTargetID, _ := mapping.Lookup(testEngineeringSourceIDConstant)
	require.Equal(testInstance, testExistingTargetIDConstant, engineeringTargetID)

	dataTargetID, _ := mapping.Lookup(testDataSourceIDConstant)
	require.NotEqual(testInstance, testExistingNestedTargetIDConstant, dataTargetID)
	require.Equal(testInstance, 1, target.CreateCount())
	require.Equal(testInstance, testExistingTargetIDConstant, target.CreatedEntities[0].ContainerID)
}

func TestResolveReportsStructuralErrors(testInstance *testing.T) {
	testCases := []struct {
		name               string
		nodes              []hierarchy.ProjectNode
		expectedUnresolved []string
	}{
		{
			name: testCycleCaseNameConstant,
			nodes: []hierarchy.ProjectNode{
				{SourceID: testCycleFirstSourceIDConstant, Name: "A", ParentID: testCycleSecondSourceIDConstant},
				{SourceID: testCycleSecondSourceIDConstant, Name: "B", ParentID: testCycleFirstSourceIDConstant},
				{SourceID: testEngineeringSourceIDConstant, Name: testEngineeringNameConstant},
			},
			expectedUnresolved: []string{testCycleFirstSourceIDConstant, testCycleSecondSourceIDConstant},
		},
		{
			name: testSelfParentCaseNameConstant,
			nodes: []hierarchy.ProjectNode{
				{SourceID: testSelfParentSourceIDConstant, Name: "Self", ParentID: testSelfParentSourceIDConstant},
				{SourceID: testEngineeringSourceIDConstant, Name: testEngineeringNameConstant},
			},
			expectedUnresolved: []string{testSelfParentSourceIDConstant},
		},
		{
			name: testDanglingParentCaseNameConstant,
			nodes: []hierarchy.ProjectNode{
				{SourceID: testDanglingSourceIDConstant, Name: "Orphan", ParentID: testMissingParentIDConstant},
				{SourceID: testEngineeringSourceIDConstant, Name: testEngineeringNameConstant},
			},
			expectedUnresolved: []string{testDanglingSourceIDConstant},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
			mapping, resolveError := newResolver(testInstance, target, 1, nil).Resolve(context.Background(), testCase.nodes)

			var structuralError hierarchy.StructuralError
			require.ErrorAs(testInstance, resolveError, &structuralError)
			require.Equal(testInstance, testCase.expectedUnresolved, structuralError.UnresolvedNodeIDs)

			require.Equal(testInstance, 1, mapping.Len())
			_, rootMapped := mapping.Lookup(testEngineeringSourceIDConstant)
			require.True(testInstance, rootMapped)
			require.Equal(testInstance, 1, target.CreateCount())
		})
	}
}

func TestResolveCollapsesDuplicateNamedRoots(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	nodes := []hierarchy.ProjectNode{
		{SourceID: "R1", Name: testSalesNameConstant},
		{SourceID: "R2", Name: testSalesNameConstant},
	}

	mapping, resolveError := newResolver(testInstance, target, 1, nil).Resolve(context.Background(), nodes)
	require.NoError(testInstance, resolveError)

	firstTargetID, _ := mapping.Lookup("R1")
	secondTargetID, _ := mapping.Lookup("R2")
	require.Equal(testInstance, firstTargetID, secondTargetID)
	require.Equal(testInstance, 1, target.CreateCount())
	require.Len(testInstance, target.Projects(), 1)
}

func TestResolveBlocksDescendantsOfFailedCreation(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	rejection := catalog.ValidationError{Kind: catalog.KindProject, Name: testEngineeringNameConstant, Message: testRejectedNameMessageConstant}
	target.CreateErrors[testEngineeringNameConstant] = rejection

	nodes := append(engineeringForest(),
		hierarchy.ProjectNode{SourceID: "P3", Name: testReportsNameConstant, ParentID: testDataSourceIDConstant},
		hierarchy.ProjectNode{SourceID: "P9", Name: testSalesNameConstant},
	)

	mapping, resolveError := newResolver(testInstance, target, 1, nil).Resolve(context.Background(), nodes)

	var creationError hierarchy.CreationError
	require.ErrorAs(testInstance, resolveError, &creationError)
	require.Equal(testInstance, testEngineeringSourceIDConstant, creationError.NodeID)
	require.Equal(testInstance, []string{testDataSourceIDConstant, "P3"}, creationError.BlockedNodeIDs)
	require.ErrorIs(testInstance, resolveError, rejection)

	var structuralError hierarchy.StructuralError
	require.False(testInstance, errors.As(resolveError, &structuralError))

	require.Equal(testInstance, 1, mapping.Len())
	_, independentMapped := mapping.Lookup("P9")
	require.True(testInstance, independentMapped)
}

func TestResolveDeduplicatesConcurrentSiblings(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	nodes := []hierarchy.ProjectNode{{SourceID: testEngineeringSourceIDConstant, Name: testEngineeringNameConstant}}
	for siblingIndex := 0; siblingIndex < testConcurrentSiblingCountConstant; siblingIndex++ {
		nodes = append(nodes, hierarchy.ProjectNode{
			SourceID: fmt.Sprintf("C%d", siblingIndex),
			Name:     fmt.Sprintf("Team %d", siblingIndex%3),
			ParentID: testEngineeringSourceIDConstant,
		})
	}

	mapping, resolveError := newResolver(testInstance, target, testConcurrentParallelismConstant, nil).Resolve(context.Background(), nodes)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, len(nodes), mapping.Len())
	require.Equal(testInstance, 4, target.CreateCount())

	entries := mapping.Entries()
	require.Equal(testInstance, testEngineeringSourceIDConstant, entries[0].SourceID)
	for siblingIndex := 0; siblingIndex < testConcurrentSiblingCountConstant; siblingIndex++ {
		require.Equal(testInstance, fmt.Sprintf("C%d", siblingIndex), entries[siblingIndex+1].SourceID)
	}
}

func TestResolveLogsDuplicateSourceIdentifiers(testInstance *testing.T) {
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	nodes := []hierarchy.ProjectNode{
		{SourceID: testEngineeringSourceIDConstant, Name: testEngineeringNameConstant},
		{SourceID: testEngineeringSourceIDConstant, Name: testSalesNameConstant},
	}

	mapping, resolveError := newResolver(testInstance, target, 1, zap.New(observedCore)).Resolve(context.Background(), nodes)
	require.NoError(testInstance, resolveError)
	require.Equal(testInstance, 1, mapping.Len())
	require.Equal(testInstance, testEngineeringNameConstant, mapping.Entries()[0].Name)
	require.Equal(testInstance, 1, observedLogs.FilterMessage(testDuplicateSourceWarningConstant).Len())
}

func TestResolveStopsOnCancelledContext(testInstance *testing.T) {
	target := testsupport.NewMemoryCatalog(testTargetPrefixConstant)
	cancelledContext, cancel := context.WithCancel(context.Background())
	cancel()

	mapping, resolveError := newResolver(testInstance, target, 1, nil).Resolve(cancelledContext, engineeringForest())
	require.ErrorIs(testInstance, resolveError, context.Canceled)
	require.Zero(testInstance, mapping.Len())
	require.Zero(testInstance, target.CreateCount())
}
