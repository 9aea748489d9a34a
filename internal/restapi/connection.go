package restapi

import (
	"context"
	"errors"
	"iter"
	"strings"

	"github.com/temirov/tabmigrate/internal/catalog"
)

const clientMissingMessageConstant = "REST client not configured"

// ErrClientMissing indicates a connection was constructed without a client.
var ErrClientMissing = errors.New(clientMissingMessageConstant)

// Connection pairs a Client with one immutable Session.
type Connection struct {
	client  *Client
	session Session
}

// NewConnection binds client to an existing session.
func NewConnection(client *Client, session Session) (*Connection, error) {
	if client == nil {
		return nil, ErrClientMissing
	}
	if len(session.Token) == 0 {
		return nil, ErrSessionRequired
	}
	return &Connection{client: client, session: session}, nil
}

// Open signs in and returns a connection bound to the resulting session.
func Open(executionContext context.Context, client *Client, credential Credential, siteContentURL string) (*Connection, error) {
	if client == nil {
		return nil, ErrClientMissing
	}
	session, signInError := client.SignIn(executionContext, credential, siteContentURL)
	if signInError != nil {
		return nil, signInError
	}
	return NewConnection(client, session)
}

// Session returns the bound session.
func (connection *Connection) Session() Session {
	return connection.session
}

// SiteContentURL returns the content URL of the bound site. The default site has an empty content URL.
func (connection *Connection) SiteContentURL() string {
	return connection.session.SiteContentURL
}

// SwitchSite returns a connection bound to siteContentURL. The receiver is returned unchanged
// when it is already bound to that site; otherwise the receiver's session is superseded and
// should no longer be used.
func (connection *Connection) SwitchSite(executionContext context.Context, siteContentURL string) (*Connection, error) {
	if strings.EqualFold(strings.TrimSpace(siteContentURL), connection.session.SiteContentURL) {
		return connection, nil
	}
	session, switchError := connection.client.SwitchSite(executionContext, connection.session, siteContentURL)
	if switchError != nil {
		return nil, switchError
	}
	return NewConnection(connection.client, session)
}

// Close signs the session out.
func (connection *Connection) Close(executionContext context.Context) error {
	return connection.client.SignOut(executionContext, connection.session)
}

// ListEntities lazily pages through a collection on the bound site.
func (connection *Connection) ListEntities(executionContext context.Context, kind catalog.Kind, filter catalog.Filter) iter.Seq2[catalog.Entity, error] {
	return connection.client.ListEntities(executionContext, connection.session, kind, filter)
}

// GetEntity fetches one entity from the bound site.
func (connection *Connection) GetEntity(executionContext context.Context, kind catalog.Kind, identifier string) (catalog.Entity, error) {
	return connection.client.GetEntity(executionContext, connection.session, kind, identifier)
}

// CreateEntity creates an entity on the bound site.
func (connection *Connection) CreateEntity(executionContext context.Context, kind catalog.Kind, entity catalog.Entity) (catalog.Entity, error) {
	return connection.client.CreateEntity(executionContext, connection.session, kind, entity)
}

// Download writes workbook content from the bound site into directory.
func (connection *Connection) Download(executionContext context.Context, workbookID string, directory string) (string, error) {
	return connection.client.Download(executionContext, connection.session, workbookID, directory)
}

// Publish uploads a staged workbook file to the bound site.
func (connection *Connection) Publish(executionContext context.Context, workbook catalog.Workbook, filePath string, overwrite bool) (catalog.Workbook, error) {
	return connection.client.Publish(executionContext, connection.session, workbook, filePath, overwrite)
}

var _ catalog.Collaborator = (*Connection)(nil)
