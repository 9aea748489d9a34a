package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

const (
	structuralErrorTemplateConstant      = "%d source projects unreachable from a root (cycle or missing parent): %s"
	creationErrorTemplateConstant        = "resolve project %s (%q): %v"
	creationBlockedErrorTemplateConstant = "resolve project %s (%q): %v; blocked descendants: %s"
	identifierSeparatorConstant          = ", "
	creatorMissingMessageConstant        = "hierarchy project creator not configured"
	matcherMissingMessageConstant        = "hierarchy matching policy not configured"
	accessorMissingMessageConstant       = "hierarchy catalog accessor not configured"
)

var (
	// ErrCreatorMissing indicates the resolver has no way to create target projects.
	ErrCreatorMissing = errors.New(creatorMissingMessageConstant)
	// ErrMatcherMissing indicates the resolver has no matching policy.
	ErrMatcherMissing = errors.New(matcherMissingMessageConstant)
	// ErrAccessorMissing indicates a matcher was constructed without a catalog accessor.
	ErrAccessorMissing = errors.New(accessorMissingMessageConstant)
)

// StructuralError lists source nodes that no root reaches.
type StructuralError struct {
	UnresolvedNodeIDs []string
}

// Error describes the unresolved nodes.
func (structuralError StructuralError) Error() string {
	return fmt.Sprintf(structuralErrorTemplateConstant, len(structuralError.UnresolvedNodeIDs), strings.Join(structuralError.UnresolvedNodeIDs, identifierSeparatorConstant))
}

// CreationError reports a failed look-up-or-create for one node together with the descendants it blocked.
type CreationError struct {
	NodeID         string
	Name           string
	Cause          error
	BlockedNodeIDs []string
}

// Error describes the failed node.
func (creationError CreationError) Error() string {
	if len(creationError.BlockedNodeIDs) == 0 {
		return fmt.Sprintf(creationErrorTemplateConstant, creationError.NodeID, creationError.Name, creationError.Cause)
	}
	return fmt.Sprintf(creationBlockedErrorTemplateConstant, creationError.NodeID, creationError.Name, creationError.Cause, strings.Join(creationError.BlockedNodeIDs, identifierSeparatorConstant))
}

// Unwrap exposes the underlying cause.
func (creationError CreationError) Unwrap() error {
	return creationError.Cause
}
