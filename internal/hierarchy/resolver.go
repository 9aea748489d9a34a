package hierarchy

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/im7mortal/kmutex"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const (
	sourceProjectIDFieldNameConstant       = "source_project_id"
	targetProjectIDFieldNameConstant       = "target_project_id"
	targetParentIDFieldNameConstant        = "target_parent_id"
	projectNameFieldNameConstant           = "project_name"
	levelFieldNameConstant                 = "level"
	levelSizeFieldNameConstant             = "level_size"
	nodeCountFieldNameConstant             = "node_count"
	mappedCountFieldNameConstant           = "mapped_count"
	unresolvedCountFieldNameConstant       = "unresolved_count"
	duplicateSourceIDMessageConstant       = "duplicate source project ignored"
	resolutionStartedMessageConstant       = "resolving project hierarchy"
	levelResolvingMessageConstant          = "resolving hierarchy level"
	projectReusedMessageConstant           = "reusing existing target project"
	projectCreatedMessageConstant          = "created target project"
	projectResolutionFailedMessageConstant = "project resolution failed"
	unresolvedProjectsMessageConstant      = "source projects unreachable from a root"
	resolutionCompletedMessageConstant     = "project hierarchy resolved"
	signatureSeparatorConstant             = "\x00"
	defaultResolverParallelismConstant     = 1
	minimumResolverParallelismConstant     = 1
	emptyParentIdentifierConstant          = ""
	resolutionInterruptedMessageConstant   = "project hierarchy resolution interrupted"
	missingSourceIDMessageConstant         = "source project without identifier ignored"
)

// ResolverOptions tunes resolution.
type ResolverOptions struct {
	// Parallelism bounds concurrent look-up-or-create calls among siblings of one level.
	Parallelism int
}

// ResolverDependencies describes the collaborators used by the Resolver.
type ResolverDependencies struct {
	Logger  *zap.Logger
	Creator ProjectCreator
	Matcher MatchingPolicy
}

// Resolver maps source project forests onto target projects, creating missing ones.
//
// A Resolver remembers every (name, target parent) signature it has resolved, so repeated
// resolutions during one run reuse earlier results instead of querying the target again.
type Resolver struct {
	logger      *zap.Logger
	creator     ProjectCreator
	matcher     MatchingPolicy
	parallelism int

	signatureLocks *kmutex.Kmutex
	cacheMutex     sync.RWMutex
	signatureCache map[string]string
}

type resolution struct {
	targetID string
	created  bool
	err      error
}

// NewResolver constructs a Resolver.
func NewResolver(dependencies ResolverDependencies, options ResolverOptions) (*Resolver, error) {
	if dependencies.Creator == nil {
		return nil, ErrCreatorMissing
	}
	if dependencies.Matcher == nil {
		return nil, ErrMatcherMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	parallelism := options.Parallelism
	if parallelism < minimumResolverParallelismConstant {
		parallelism = defaultResolverParallelismConstant
	}

	return &Resolver{
		logger:         logger,
		creator:        dependencies.Creator,
		matcher:        dependencies.Matcher,
		parallelism:    parallelism,
		signatureLocks: kmutex.New(),
		signatureCache: make(map[string]string),
	}, nil
}

// Resolve ensures every node reachable from a root has a target counterpart.
// The returned mapping holds every node resolved before an error occurred, so callers may
// continue with the partial result.
func (resolver *Resolver) Resolve(executionContext context.Context, nodes []ProjectNode) (*Mapping, error) {
	mapping := NewMapping()
	orderedNodes, children := resolver.index(nodes)

	resolver.logger.Info(resolutionStartedMessageConstant, zap.Int(nodeCountFieldNameConstant, len(orderedNodes)))

	currentLevel := children[emptyParentIdentifierConstant]
	failedNodes := make([]ProjectNode, 0)
	failureCauses := make(map[string]error)
	levelNumber := 0

	for len(currentLevel) > 0 {
		if contextError := executionContext.Err(); contextError != nil {
			resolver.logger.Warn(resolutionInterruptedMessageConstant, zap.Error(contextError))
			return mapping, contextError
		}

		resolver.logger.Debug(levelResolvingMessageConstant, zap.Int(levelFieldNameConstant, levelNumber), zap.Int(levelSizeFieldNameConstant, len(currentLevel)))
		resolutions := resolver.resolveLevel(executionContext, currentLevel, mapping)

		nextLevel := make([]ProjectNode, 0)
		for position, node := range currentLevel {
			outcome := resolutions[position]
			if outcome.err != nil {
				failedNodes = append(failedNodes, node)
				failureCauses[node.SourceID] = outcome.err
				continue
			}
			mapping.record(MappingEntry{SourceID: node.SourceID, TargetID: outcome.targetID, Name: node.Name, Created: outcome.created})
			nextLevel = append(nextLevel, children[node.SourceID]...)
		}
		currentLevel = nextLevel
		levelNumber++
	}

	resolutionErrors := make([]error, 0)
	blockedNodes := make(map[string]struct{})
	for _, failedNode := range failedNodes {
		blockedNodeIDs := collectDescendants(failedNode.SourceID, children)
		for _, blockedNodeID := range blockedNodeIDs {
			blockedNodes[blockedNodeID] = struct{}{}
		}
		resolutionErrors = append(resolutionErrors, CreationError{
			NodeID:         failedNode.SourceID,
			Name:           failedNode.Name,
			Cause:          failureCauses[failedNode.SourceID],
			BlockedNodeIDs: blockedNodeIDs,
		})
	}

	unresolvedNodeIDs := make([]string, 0)
	for _, node := range orderedNodes {
		if _, mapped := mapping.Lookup(node.SourceID); mapped {
			continue
		}
		if _, failed := failureCauses[node.SourceID]; failed {
			continue
		}
		if _, blocked := blockedNodes[node.SourceID]; blocked {
			continue
		}
		unresolvedNodeIDs = append(unresolvedNodeIDs, node.SourceID)
	}
	if len(unresolvedNodeIDs) > 0 {
		resolver.logger.Warn(unresolvedProjectsMessageConstant, zap.Strings(sourceProjectIDFieldNameConstant, unresolvedNodeIDs))
		resolutionErrors = append(resolutionErrors, StructuralError{UnresolvedNodeIDs: unresolvedNodeIDs})
	}

	resolver.logger.Info(
		resolutionCompletedMessageConstant,
		zap.Int(mappedCountFieldNameConstant, mapping.Len()),
		zap.Int(unresolvedCountFieldNameConstant, len(orderedNodes)-mapping.Len()),
	)

	return mapping, errors.Join(resolutionErrors...)
}

// LookUpOrCreate resolves a single (name, target parent) signature.
func (resolver *Resolver) LookUpOrCreate(executionContext context.Context, name string, targetParentID string) (string, bool, error) {
	signature := strings.TrimSpace(targetParentID) + signatureSeparatorConstant + name

	resolver.signatureLocks.Lock(signature)
	defer resolver.signatureLocks.Unlock(signature)

	if cachedTargetID, cached := resolver.cachedTarget(signature); cached {
		return cachedTargetID, false, nil
	}

	existingTargetID, found, matchError := resolver.matcher.FindExisting(executionContext, name, targetParentID)
	if matchError != nil {
		return "", false, matchError
	}
	if found {
		resolver.storeTarget(signature, existingTargetID)
		resolver.logger.Debug(
			projectReusedMessageConstant,
			zap.String(projectNameFieldNameConstant, name),
			zap.String(targetParentIDFieldNameConstant, targetParentID),
			zap.String(targetProjectIDFieldNameConstant, existingTargetID),
		)
		return existingTargetID, false, nil
	}

	createdProject, createError := resolver.creator.CreateProject(executionContext, name, targetParentID)
	if createError != nil {
		return "", false, createError
	}
	resolver.storeTarget(signature, createdProject.ID)
	resolver.logger.Info(
		projectCreatedMessageConstant,
		zap.String(projectNameFieldNameConstant, name),
		zap.String(targetParentIDFieldNameConstant, targetParentID),
		zap.String(targetProjectIDFieldNameConstant, createdProject.ID),
	)
	return createdProject.ID, true, nil
}

func (resolver *Resolver) resolveLevel(executionContext context.Context, level []ProjectNode, mapping *Mapping) []resolution {
	resolutions := make([]resolution, len(level))

	resolveNode := func(position int) {
		node := level[position]
		targetParentID := emptyParentIdentifierConstant
		if len(node.ParentID) > 0 {
			targetParentID, _ = mapping.Lookup(node.ParentID)
		}
		targetID, created, resolveError := resolver.LookUpOrCreate(executionContext, node.Name, targetParentID)
		if resolveError != nil {
			resolver.logger.Warn(
				projectResolutionFailedMessageConstant,
				zap.String(sourceProjectIDFieldNameConstant, node.SourceID),
				zap.String(projectNameFieldNameConstant, node.Name),
				zap.Error(resolveError),
			)
		}
		resolutions[position] = resolution{targetID: targetID, created: created, err: resolveError}
	}

	if resolver.parallelism == minimumResolverParallelismConstant || len(level) == 1 {
		for position := range level {
			resolveNode(position)
		}
		return resolutions
	}

	var group errgroup.Group
	group.SetLimit(resolver.parallelism)
	for position := range level {
		group.Go(func() error {
			resolveNode(position)
			return nil
		})
	}
	_ = group.Wait()
	return resolutions
}

func (resolver *Resolver) index(nodes []ProjectNode) ([]ProjectNode, map[string][]ProjectNode) {
	orderedNodes := make([]ProjectNode, 0, len(nodes))
	children := make(map[string][]ProjectNode)
	seen := make(map[string]struct{}, len(nodes))

	for _, node := range nodes {
		node.ParentID = strings.TrimSpace(node.ParentID)
		if len(strings.TrimSpace(node.SourceID)) == 0 {
			resolver.logger.Warn(missingSourceIDMessageConstant, zap.String(projectNameFieldNameConstant, node.Name))
			continue
		}
		if _, duplicate := seen[node.SourceID]; duplicate {
			resolver.logger.Warn(duplicateSourceIDMessageConstant, zap.String(sourceProjectIDFieldNameConstant, node.SourceID), zap.String(projectNameFieldNameConstant, node.Name))
			continue
		}
		seen[node.SourceID] = struct{}{}
		orderedNodes = append(orderedNodes, node)
		children[node.ParentID] = append(children[node.ParentID], node)
	}
	return orderedNodes, children
}

func (resolver *Resolver) cachedTarget(signature string) (string, bool) {
	resolver.cacheMutex.RLock()
	defer resolver.cacheMutex.RUnlock()
	targetID, cached := resolver.signatureCache[signature]
	return targetID, cached
}

func (resolver *Resolver) storeTarget(signature string, targetID string) {
	resolver.cacheMutex.Lock()
	defer resolver.cacheMutex.Unlock()
	resolver.signatureCache[signature] = targetID
}

func collectDescendants(rootID string, children map[string][]ProjectNode) []string {
	descendants := make([]string, 0)
	visited := map[string]struct{}{rootID: {}}
	queue := []string{rootID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]
		for _, child := range children[currentID] {
			if _, alreadyVisited := visited[child.SourceID]; alreadyVisited {
				continue
			}
			visited[child.SourceID] = struct{}{}
			descendants = append(descendants, child.SourceID)
			queue = append(queue, child.SourceID)
		}
	}
	return descendants
}

var _ ProjectCreator = (*catalog.Accessor)(nil)
