package restapi

import "strings"

// Credential holds either a personal access token pair or a username and password.
type Credential struct {
	TokenName  string
	TokenValue string
	Username   string
	Password   string
}

// UsesToken reports whether the credential carries a personal access token pair.
func (credential Credential) UsesToken() bool {
	return len(strings.TrimSpace(credential.TokenName)) > 0 && len(credential.TokenValue) > 0
}

// UsesPassword reports whether the credential carries a username and password.
func (credential Credential) UsesPassword() bool {
	return len(strings.TrimSpace(credential.Username)) > 0 && len(credential.Password) > 0
}

// Session is the handle returned by a successful sign-in or site switch.
type Session struct {
	Token          string
	SiteID         string
	SiteContentURL string
	UserID         string
}

// Valid reports whether the session carries a token and a site.
func (session Session) Valid() bool {
	return len(session.Token) > 0 && len(session.SiteID) > 0
}
