package hierarchy

import (
	"sync"

	"github.com/temirov/tabmigrate/internal/catalog"
)

// ProjectNode describes one source project. An empty ParentID denotes a root.
type ProjectNode struct {
	SourceID string
	Name     string
	ParentID string
}

// NodesFromProjects converts catalog projects into resolver input.
func NodesFromProjects(projects []catalog.Project) []ProjectNode {
	nodes := make([]ProjectNode, 0, len(projects))
	for _, project := range projects {
		nodes = append(nodes, ProjectNode{SourceID: project.ID, Name: project.Name, ParentID: project.ParentID})
	}
	return nodes
}

// MappingEntry pairs a source project with its target counterpart.
type MappingEntry struct {
	SourceID string `yaml:"source_id"`
	TargetID string `yaml:"target_id"`
	Name     string `yaml:"name"`
	Created  bool   `yaml:"created"`
}

// Mapping is an append-only, insertion-ordered source to target project identifier map.
type Mapping struct {
	mutex   sync.RWMutex
	entries []MappingEntry
	index   map[string]int
}

// NewMapping constructs an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{index: make(map[string]int)}
}

func (mapping *Mapping) record(entry MappingEntry) {
	mapping.mutex.Lock()
	defer mapping.mutex.Unlock()
	if _, exists := mapping.index[entry.SourceID]; exists {
		return
	}
	mapping.index[entry.SourceID] = len(mapping.entries)
	mapping.entries = append(mapping.entries, entry)
}

// Lookup returns the target identifier recorded for the source identifier.
func (mapping *Mapping) Lookup(sourceID string) (string, bool) {
	mapping.mutex.RLock()
	defer mapping.mutex.RUnlock()
	position, exists := mapping.index[sourceID]
	if !exists {
		return "", false
	}
	return mapping.entries[position].TargetID, true
}

// Entries returns a copy of the recorded entries in insertion order.
func (mapping *Mapping) Entries() []MappingEntry {
	mapping.mutex.RLock()
	defer mapping.mutex.RUnlock()
	return append([]MappingEntry(nil), mapping.entries...)
}

// Len reports the number of recorded entries.
func (mapping *Mapping) Len() int {
	mapping.mutex.RLock()
	defer mapping.mutex.RUnlock()
	return len(mapping.entries)
}

// CreatedCount reports how many entries required a new target project.
func (mapping *Mapping) CreatedCount() int {
	mapping.mutex.RLock()
	defer mapping.mutex.RUnlock()
	createdCount := 0
	for _, entry := range mapping.entries {
		if entry.Created {
			createdCount++
		}
	}
	return createdCount
}
