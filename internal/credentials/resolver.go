package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/temirov/tabmigrate/internal/restapi"
)

// Role names the server a credential belongs to.
type Role string

// Supported roles.
const (
	RoleSource Role = Role("source")
	RoleTarget Role = Role("target")
)

const (
	environmentKeyTemplateConstant      = "TABMIGRATE_%s_%s"
	tokenNameEnvironmentSuffixConstant  = "TOKEN_NAME"
	tokenValueEnvironmentSuffixConstant = "TOKEN_VALUE"
	usernameEnvironmentSuffixConstant   = "USERNAME"
	passwordEnvironmentSuffixConstant   = "PASSWORD"
	passwordPromptTemplateConstant      = "%s server password for %s: "
	authenticationErrorTemplateConstant = "%s server credentials: %s"
	authenticationCauseTemplateConstant = "%s server credentials: %s: %v"
	missingCredentialMessageConstant    = "provide a token name and value or a username and password"
	missingTokenValueMessageConstant    = "token value required for token name"
	missingPasswordMessageConstant      = "password required and no interactive terminal available"
	passwordPromptFailedMessageConstant = "unable to read password"
	promptUnavailableMessageConstant    = "interactive terminal unavailable"
	emptyPasswordMessageConstant        = "empty password entered"
)

// ErrPromptUnavailable indicates no interactive terminal is attached.
var ErrPromptUnavailable = errors.New(promptUnavailableMessageConstant)

// AuthenticationError reports a credential that cannot be used to sign in.
type AuthenticationError struct {
	Role    Role
	Message string
	Cause   error
}

// Error describes the unusable credential.
func (authenticationError AuthenticationError) Error() string {
	if authenticationError.Cause != nil {
		return fmt.Sprintf(authenticationCauseTemplateConstant, authenticationError.Role, authenticationError.Message, authenticationError.Cause)
	}
	return fmt.Sprintf(authenticationErrorTemplateConstant, authenticationError.Role, authenticationError.Message)
}

// Unwrap exposes the underlying cause.
func (authenticationError AuthenticationError) Unwrap() error {
	return authenticationError.Cause
}

// Input carries credential values supplied through flags or configuration.
type Input struct {
	TokenName  string
	TokenValue string
	Username   string
	Password   string
}

func (input Input) empty() bool {
	return len(input.TokenName) == 0 && len(input.TokenValue) == 0 && len(input.Username) == 0 && len(input.Password) == 0
}

// PasswordPrompter reads a password without echoing it.
type PasswordPrompter interface {
	PromptPassword(prompt string) (string, error)
}

// EnvironmentLookup mirrors os.LookupEnv.
type EnvironmentLookup func(key string) (string, bool)

// ResolverDependencies describes the collaborators used by the Resolver.
type ResolverDependencies struct {
	LookupEnvironment EnvironmentLookup
	Prompter          PasswordPrompter
}

// Resolver turns Input into a restapi.Credential.
type Resolver struct {
	lookupEnvironment EnvironmentLookup
	prompter          PasswordPrompter
}

// NewResolver constructs a Resolver. Missing dependencies fall back to the process environment and no prompting.
func NewResolver(dependencies ResolverDependencies) *Resolver {
	lookupEnvironment := dependencies.LookupEnvironment
	if lookupEnvironment == nil {
		lookupEnvironment = os.LookupEnv
	}
	return &Resolver{lookupEnvironment: lookupEnvironment, prompter: dependencies.Prompter}
}

// EnvironmentKey returns the variable consulted for a role and suffix, for example TABMIGRATE_SOURCE_TOKEN_VALUE.
func EnvironmentKey(role Role, suffix string) string {
	return fmt.Sprintf(environmentKeyTemplateConstant, strings.ToUpper(string(role)), suffix)
}

// Resolve returns a usable credential. Environment variables are consulted only when no explicit
// value was supplied, and a password is prompted for when a username has none.
func (resolver *Resolver) Resolve(role Role, input Input) (restapi.Credential, error) {
	resolved := trimInput(input)
	if resolved.empty() {
		resolved = trimInput(Input{
			TokenName:  resolver.environmentValue(role, tokenNameEnvironmentSuffixConstant),
			TokenValue: resolver.environmentValue(role, tokenValueEnvironmentSuffixConstant),
			Username:   resolver.environmentValue(role, usernameEnvironmentSuffixConstant),
			Password:   resolver.environmentValue(role, passwordEnvironmentSuffixConstant),
		})
	}

	if len(resolved.TokenName) > 0 {
		if len(resolved.TokenValue) == 0 {
			resolved.TokenValue = strings.TrimSpace(resolver.environmentValue(role, tokenValueEnvironmentSuffixConstant))
		}
		if len(resolved.TokenValue) == 0 {
			return restapi.Credential{}, AuthenticationError{Role: role, Message: missingTokenValueMessageConstant}
		}
		return restapi.Credential{TokenName: resolved.TokenName, TokenValue: resolved.TokenValue}, nil
	}

	if len(resolved.Username) == 0 {
		return restapi.Credential{}, AuthenticationError{Role: role, Message: missingCredentialMessageConstant}
	}

	if len(resolved.Password) == 0 {
		resolved.Password = resolver.environmentValue(role, passwordEnvironmentSuffixConstant)
	}
	if len(resolved.Password) == 0 {
		password, promptError := resolver.promptPassword(role, resolved.Username)
		if promptError != nil {
			return restapi.Credential{}, promptError
		}
		resolved.Password = password
	}
	return restapi.Credential{Username: resolved.Username, Password: resolved.Password}, nil
}

func (resolver *Resolver) promptPassword(role Role, username string) (string, error) {
	if resolver.prompter == nil {
		return "", AuthenticationError{Role: role, Message: missingPasswordMessageConstant}
	}
	password, promptError := resolver.prompter.PromptPassword(fmt.Sprintf(passwordPromptTemplateConstant, roleTitle(role), username))
	if promptError != nil {
		if errors.Is(promptError, ErrPromptUnavailable) {
			return "", AuthenticationError{Role: role, Message: missingPasswordMessageConstant}
		}
		return "", AuthenticationError{Role: role, Message: passwordPromptFailedMessageConstant, Cause: promptError}
	}
	if len(password) == 0 {
		return "", AuthenticationError{Role: role, Message: emptyPasswordMessageConstant}
	}
	return password, nil
}

func (resolver *Resolver) environmentValue(role Role, suffix string) string {
	value, exists := resolver.lookupEnvironment(EnvironmentKey(role, suffix))
	if !exists {
		return ""
	}
	return value
}

func trimInput(input Input) Input {
	return Input{
		TokenName:  strings.TrimSpace(input.TokenName),
		TokenValue: strings.TrimSpace(input.TokenValue),
		Username:   strings.TrimSpace(input.Username),
		Password:   input.Password,
	}
}

func roleTitle(role Role) string {
	name := string(role)
	if len(name) == 0 {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
