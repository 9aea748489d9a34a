// Package testsupport provides an in-memory catalog used by package tests across the module.
package testsupport

import (
	"context"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const (
	generatedIdentifierTemplateConstant = "%s-%d"
	stagedFileNameTemplateConstant      = "%s.twbx"
	missingContentTemplateConstant      = "no content registered for workbook %s"
	stagedFilePermissionsConstant       = 0o600
)

// PublishRecord captures one Publish invocation.
type PublishRecord struct {
	Workbook    catalog.Workbook
	FilePath    string
	Content     []byte
	Overwrite   bool
	StagedExist bool
}

// MemoryCatalog implements catalog.Collaborator and the content transfer pair entirely in memory.
type MemoryCatalog struct {
	mutex sync.Mutex

	prefix   string
	sequence int
	entities map[catalog.Kind][]catalog.Entity
	content  map[string][]byte

	// CreateErrors forces CreateEntity to fail for the named entity.
	CreateErrors map[string]error
	// GetErrors forces GetEntity to fail for the identifier.
	GetErrors map[string]error
	// DownloadErrors forces Download to fail for the workbook identifier.
	DownloadErrors map[string]error
	// PublishErrors forces Publish to fail for the workbook name.
	PublishErrors map[string]error
	// ListError forces every ListEntities call to fail.
	ListError error

	CreatedEntities []catalog.Entity
	Downloads       []string
	DownloadedFiles []string
	Publishes       []PublishRecord
	GetRequests     []string
}

// NewMemoryCatalog constructs an empty catalog whose generated identifiers start with prefix.
func NewMemoryCatalog(prefix string) *MemoryCatalog {
	return &MemoryCatalog{
		prefix:         prefix,
		entities:       make(map[catalog.Kind][]catalog.Entity),
		content:        make(map[string][]byte),
		CreateErrors:   make(map[string]error),
		GetErrors:      make(map[string]error),
		DownloadErrors: make(map[string]error),
		PublishErrors:  make(map[string]error),
	}
}

// AddProject seeds a project without recording a creation call.
func (memoryCatalog *MemoryCatalog) AddProject(project catalog.Project) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	memoryCatalog.entities[catalog.KindProject] = append(memoryCatalog.entities[catalog.KindProject], catalog.Entity{
		ID:          project.ID,
		Name:        project.Name,
		ContainerID: project.ParentID,
	})
}

// AddWorkbook seeds a workbook together with its downloadable content.
func (memoryCatalog *MemoryCatalog) AddWorkbook(workbook catalog.Workbook, content []byte) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	memoryCatalog.entities[catalog.KindWorkbook] = append(memoryCatalog.entities[catalog.KindWorkbook], catalog.Entity{
		ID:          workbook.ID,
		Name:        workbook.Name,
		ContainerID: workbook.ProjectID,
	})
	memoryCatalog.content[workbook.ID] = append([]byte(nil), content...)
}

// AddSite seeds a site.
func (memoryCatalog *MemoryCatalog) AddSite(site catalog.Site) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	memoryCatalog.entities[catalog.KindSite] = append(memoryCatalog.entities[catalog.KindSite], catalog.Entity{
		ID:         site.ID,
		Name:       site.Name,
		ContentURL: site.ContentURL,
	})
}

// Projects returns a snapshot of stored projects sorted by identifier.
func (memoryCatalog *MemoryCatalog) Projects() []catalog.Project {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	projects := make([]catalog.Project, 0, len(memoryCatalog.entities[catalog.KindProject]))
	for _, entity := range memoryCatalog.entities[catalog.KindProject] {
		projects = append(projects, catalog.Project{ID: entity.ID, Name: entity.Name, ParentID: entity.ContainerID})
	}
	sort.Slice(projects, func(left int, right int) bool { return projects[left].ID < projects[right].ID })
	return projects
}

// Workbooks returns a snapshot of stored workbooks in insertion order.
func (memoryCatalog *MemoryCatalog) Workbooks() []catalog.Workbook {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	workbooks := make([]catalog.Workbook, 0, len(memoryCatalog.entities[catalog.KindWorkbook]))
	for _, entity := range memoryCatalog.entities[catalog.KindWorkbook] {
		workbooks = append(workbooks, catalog.Workbook{ID: entity.ID, Name: entity.Name, ProjectID: entity.ContainerID})
	}
	return workbooks
}

// CreateCount reports how many CreateEntity calls succeeded.
func (memoryCatalog *MemoryCatalog) CreateCount() int {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	return len(memoryCatalog.CreatedEntities)
}

// PublishedRecords returns a snapshot of successful Publish calls.
func (memoryCatalog *MemoryCatalog) PublishedRecords() []PublishRecord {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	return append([]PublishRecord(nil), memoryCatalog.Publishes...)
}

// ListEntities yields a snapshot of the stored entities matching the filter.
func (memoryCatalog *MemoryCatalog) ListEntities(_ context.Context, kind catalog.Kind, filter catalog.Filter) iter.Seq2[catalog.Entity, error] {
	return func(yield func(catalog.Entity, error) bool) {
		memoryCatalog.mutex.Lock()
		listError := memoryCatalog.ListError
		snapshot := append([]catalog.Entity(nil), memoryCatalog.entities[kind]...)
		memoryCatalog.mutex.Unlock()

		if listError != nil {
			yield(catalog.Entity{}, listError)
			return
		}
		for _, entity := range snapshot {
			if !filter.Matches(entity) {
				continue
			}
			if !yield(entity, nil) {
				return
			}
		}
	}
}

// GetEntity returns the stored entity or a catalog.NotFoundError.
func (memoryCatalog *MemoryCatalog) GetEntity(_ context.Context, kind catalog.Kind, identifier string) (catalog.Entity, error) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	memoryCatalog.GetRequests = append(memoryCatalog.GetRequests, identifier)
	if getError, exists := memoryCatalog.GetErrors[identifier]; exists {
		return catalog.Entity{}, getError
	}
	for _, entity := range memoryCatalog.entities[kind] {
		if entity.ID == identifier {
			return entity, nil
		}
	}
	return catalog.Entity{}, catalog.NotFoundError{Kind: kind, Identifier: identifier}
}

// CreateEntity stores a new entity with a generated identifier.
func (memoryCatalog *MemoryCatalog) CreateEntity(_ context.Context, kind catalog.Kind, entity catalog.Entity) (catalog.Entity, error) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	if createError, exists := memoryCatalog.CreateErrors[entity.Name]; exists {
		return catalog.Entity{}, createError
	}
	created := memoryCatalog.storeLocked(kind, entity)
	memoryCatalog.CreatedEntities = append(memoryCatalog.CreatedEntities, created)
	return created, nil
}

// Download writes the registered workbook content into directory.
func (memoryCatalog *MemoryCatalog) Download(_ context.Context, workbookID string, directory string) (string, error) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	memoryCatalog.Downloads = append(memoryCatalog.Downloads, workbookID)
	if downloadError, exists := memoryCatalog.DownloadErrors[workbookID]; exists {
		return "", downloadError
	}
	content, exists := memoryCatalog.content[workbookID]
	if !exists {
		return "", fmt.Errorf(missingContentTemplateConstant, workbookID)
	}
	filePath := filepath.Join(directory, fmt.Sprintf(stagedFileNameTemplateConstant, workbookID))
	if writeError := os.WriteFile(filePath, content, stagedFilePermissionsConstant); writeError != nil {
		return "", writeError
	}
	memoryCatalog.DownloadedFiles = append(memoryCatalog.DownloadedFiles, filePath)
	return filePath, nil
}

// Publish stores the staged file as a workbook, replacing a same-named workbook in the project when overwrite is set.
func (memoryCatalog *MemoryCatalog) Publish(_ context.Context, workbook catalog.Workbook, filePath string, overwrite bool) (catalog.Workbook, error) {
	memoryCatalog.mutex.Lock()
	defer memoryCatalog.mutex.Unlock()
	if publishError, exists := memoryCatalog.PublishErrors[workbook.Name]; exists {
		return catalog.Workbook{}, publishError
	}
	content, readError := os.ReadFile(filePath)
	if readError != nil {
		return catalog.Workbook{}, readError
	}

	memoryCatalog.Publishes = append(memoryCatalog.Publishes, PublishRecord{
		Workbook:    workbook,
		FilePath:    filePath,
		Content:     content,
		Overwrite:   overwrite,
		StagedExist: true,
	})

	if overwrite {
		for _, existing := range memoryCatalog.entities[catalog.KindWorkbook] {
			if existing.Name == workbook.Name && existing.ContainerID == workbook.ProjectID {
				memoryCatalog.content[existing.ID] = content
				return catalog.Workbook{ID: existing.ID, Name: existing.Name, ProjectID: existing.ContainerID}, nil
			}
		}
	}

	stored := memoryCatalog.storeLocked(catalog.KindWorkbook, catalog.Entity{Name: workbook.Name, ContainerID: workbook.ProjectID})
	memoryCatalog.content[stored.ID] = content
	return catalog.Workbook{ID: stored.ID, Name: stored.Name, ProjectID: stored.ContainerID}, nil
}

func (memoryCatalog *MemoryCatalog) storeLocked(kind catalog.Kind, entity catalog.Entity) catalog.Entity {
	memoryCatalog.sequence++
	stored := entity
	stored.ID = fmt.Sprintf(generatedIdentifierTemplateConstant, memoryCatalog.prefix, memoryCatalog.sequence)
	memoryCatalog.entities[kind] = append(memoryCatalog.entities[kind], stored)
	return stored
}
