// Package catalog exposes the entity catalog shared by both migration endpoints.
//
// It defines the kind-agnostic Entity record exchanged with the remote collaborator,
// the typed Project, Workbook, and Site views consumed by the migration core, and the
// Accessor that layers list, get, and create helpers over any Collaborator.
package catalog
