// Package restapi implements the analytics server REST API used by the migration commands.
//
// Client is stateless: every call takes the Session returned by SignIn or SwitchSite.
// Connection pairs a Client with one Session and satisfies the catalog and transfer
// collaborator interfaces.
package restapi
