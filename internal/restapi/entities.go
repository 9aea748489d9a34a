package restapi

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const (
	pageSizeParameterConstant              = "pageSize"
	pageNumberParameterConstant            = "pageNumber"
	filterParameterConstant                = "filter"
	nameFilterTemplateConstant             = "name:eq:%s"
	sitesCollectionPathConstant            = "sites"
	unsupportedKindTemplateConstant        = "unsupported entity kind %q"
	firstPageNumberConstant                = 1
	paginationNumberErrorTemplateConstant  = "invalid pagination value %q: %w"
	projectCreationKindRestrictionConstant = "only projects can be created through the REST API"
)

type paginationPayload struct {
	PageNumber     json.Number `json:"pageNumber"`
	PageSize       json.Number `json:"pageSize"`
	TotalAvailable json.Number `json:"totalAvailable"`
}

type projectPayload struct {
	ID              string `json:"id,omitempty"`
	Name            string `json:"name"`
	ParentProjectID string `json:"parentProjectId,omitempty"`
}

type projectReferencePayload struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type workbookPayload struct {
	ID         string                  `json:"id,omitempty"`
	Name       string                  `json:"name"`
	ContentURL string                  `json:"contentUrl,omitempty"`
	Project    projectReferencePayload `json:"project"`
}

type listResponse struct {
	Pagination paginationPayload `json:"pagination"`
	Projects   struct {
		Project []projectPayload `json:"project"`
	} `json:"projects"`
	Workbooks struct {
		Workbook []workbookPayload `json:"workbook"`
	} `json:"workbooks"`
	Sites struct {
		Site []sitePayload `json:"site"`
	} `json:"sites"`
}

type projectEnvelope struct {
	Project projectPayload `json:"project"`
}

type workbookEnvelope struct {
	Workbook workbookPayload `json:"workbook"`
}

type siteEnvelope struct {
	Site sitePayload `json:"site"`
}

func (response listResponse) entities(kind catalog.Kind) []catalog.Entity {
	entities := make([]catalog.Entity, 0)
	switch kind {
	case catalog.KindProject:
		for _, project := range response.Projects.Project {
			entities = append(entities, projectEntity(project))
		}
	case catalog.KindWorkbook:
		for _, workbook := range response.Workbooks.Workbook {
			entities = append(entities, workbookEntity(workbook))
		}
	case catalog.KindSite:
		for _, site := range response.Sites.Site {
			entities = append(entities, siteEntity(site))
		}
	}
	return entities
}

func projectEntity(project projectPayload) catalog.Entity {
	return catalog.Entity{ID: project.ID, Name: project.Name, ContainerID: project.ParentProjectID}
}

func workbookEntity(workbook workbookPayload) catalog.Entity {
	return catalog.Entity{ID: workbook.ID, Name: workbook.Name, ContainerID: workbook.Project.ID, ContentURL: workbook.ContentURL}
}

func siteEntity(site sitePayload) catalog.Entity {
	return catalog.Entity{ID: site.ID, Name: site.Name, ContentURL: site.ContentURL}
}

func (client *Client) collectionPath(session Session, kind catalog.Kind, segments ...string) (string, error) {
	switch kind {
	case catalog.KindSite:
		pathSegments := append([]string{sitesCollectionPathConstant}, escapeSegments(segments)...)
		return client.apiPath(strings.Join(pathSegments, "/")), nil
	case catalog.KindProject, catalog.KindWorkbook:
		if len(session.Token) == 0 {
			return "", ErrSessionRequired
		}
		return client.sitePath(session, append([]string{string(kind)}, segments...)...), nil
	default:
		return "", fmt.Errorf(unsupportedKindTemplateConstant, kind)
	}
}

func escapeSegments(segments []string) []string {
	escaped := make([]string, 0, len(segments))
	for _, segment := range segments {
		escaped = append(escaped, url.PathEscape(segment))
	}
	return escaped
}

// ListEntities lazily pages through a collection. The name filter is applied by the server
// and the container filter locally, so every yielded entity satisfies filter.
func (client *Client) ListEntities(executionContext context.Context, session Session, kind catalog.Kind, filter catalog.Filter) iter.Seq2[catalog.Entity, error] {
	return func(yield func(catalog.Entity, error) bool) {
		path, pathError := client.collectionPath(session, kind)
		if pathError != nil {
			yield(catalog.Entity{}, OperationError{Operation: OperationList, Cause: pathError})
			return
		}

		fetchedCount := 0
		for pageNumber := firstPageNumberConstant; ; pageNumber++ {
			query := url.Values{}
			query.Set(pageSizeParameterConstant, strconv.Itoa(client.pageSize))
			query.Set(pageNumberParameterConstant, strconv.Itoa(pageNumber))
			if len(filter.Name) > 0 {
				query.Set(filterParameterConstant, fmt.Sprintf(nameFilterTemplateConstant, filter.Name))
			}

			var response listResponse
			if requestError := client.doJSON(executionContext, OperationList, resourceReference{kind: kind}, session, http.MethodGet, path, query, nil, &response); requestError != nil {
				yield(catalog.Entity{}, requestError)
				return
			}

			pageEntities := response.entities(kind)
			for _, entity := range pageEntities {
				if !filter.Matches(entity) {
					continue
				}
				if !yield(entity, nil) {
					return
				}
			}

			totalAvailable, totalError := paginationValue(response.Pagination.TotalAvailable)
			if totalError != nil {
				yield(catalog.Entity{}, OperationError{Operation: OperationList, Cause: totalError})
				return
			}
			appliedPageSize, pageSizeError := paginationValue(response.Pagination.PageSize)
			if pageSizeError != nil {
				yield(catalog.Entity{}, OperationError{Operation: OperationList, Cause: pageSizeError})
				return
			}
			if appliedPageSize <= 0 {
				appliedPageSize = client.pageSize
			}

			// Servers may cap the page size, so count received entities, not requested pages.
			fetchedCount += len(pageEntities)
			if len(pageEntities) == 0 {
				return
			}
			if totalAvailable > 0 && fetchedCount >= totalAvailable {
				return
			}
			if totalAvailable <= 0 && len(pageEntities) < appliedPageSize {
				return
			}
		}
	}
}

func paginationValue(value json.Number) (int, error) {
	if len(value) == 0 {
		return 0, nil
	}
	parsed, parseError := strconv.Atoi(value.String())
	if parseError != nil {
		return 0, fmt.Errorf(paginationNumberErrorTemplateConstant, value, parseError)
	}
	return parsed, nil
}

// GetEntity fetches one entity by identifier.
func (client *Client) GetEntity(executionContext context.Context, session Session, kind catalog.Kind, identifier string) (catalog.Entity, error) {
	path, pathError := client.collectionPath(session, kind, identifier)
	if pathError != nil {
		return catalog.Entity{}, OperationError{Operation: OperationGet, Cause: pathError}
	}
	resource := resourceReference{kind: kind, identifier: identifier}

	switch kind {
	case catalog.KindProject:
		var envelope projectEnvelope
		if requestError := client.doJSON(executionContext, OperationGet, resource, session, http.MethodGet, path, nil, nil, &envelope); requestError != nil {
			return catalog.Entity{}, requestError
		}
		return projectEntity(envelope.Project), nil
	case catalog.KindWorkbook:
		var envelope workbookEnvelope
		if requestError := client.doJSON(executionContext, OperationGet, resource, session, http.MethodGet, path, nil, nil, &envelope); requestError != nil {
			return catalog.Entity{}, requestError
		}
		return workbookEntity(envelope.Workbook), nil
	default:
		var envelope siteEnvelope
		if requestError := client.doJSON(executionContext, OperationGet, resource, session, http.MethodGet, path, nil, nil, &envelope); requestError != nil {
			return catalog.Entity{}, requestError
		}
		return siteEntity(envelope.Site), nil
	}
}

// CreateEntity creates a project. Workbooks are created through Publish.
func (client *Client) CreateEntity(executionContext context.Context, session Session, kind catalog.Kind, entity catalog.Entity) (catalog.Entity, error) {
	resource := resourceReference{kind: kind, name: entity.Name}
	if kind != catalog.KindProject {
		return catalog.Entity{}, catalog.ValidationError{Kind: kind, Name: entity.Name, Message: projectCreationKindRestrictionConstant}
	}
	path, pathError := client.collectionPath(session, kind)
	if pathError != nil {
		return catalog.Entity{}, OperationError{Operation: OperationCreate, Cause: pathError}
	}

	request := projectEnvelope{Project: projectPayload{Name: entity.Name, ParentProjectID: entity.ContainerID}}
	var response projectEnvelope
	if requestError := client.doJSON(executionContext, OperationCreate, resource, session, http.MethodPost, path, nil, request, &response); requestError != nil {
		return catalog.Entity{}, requestError
	}
	return projectEntity(response.Project), nil
}
