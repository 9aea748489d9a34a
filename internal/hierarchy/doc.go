// Package hierarchy reconstructs a source project forest on a target server.
//
// The Resolver walks source projects level by level from their roots, looks up or creates
// an equivalent target project for each node under its already resolved parent, and records
// the source to target identifier pairs in a Mapping. Nodes that cannot be reached from a
// root are reported through StructuralError, and failed creations through CreationError.
package hierarchy
