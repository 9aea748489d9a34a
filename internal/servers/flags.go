package servers

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/temirov/tabmigrate/internal/credentials"
)

// Flag suffixes combined with a role name, e.g. "source-server".
const (
	ServerFlagSuffix     = "server"
	SiteFlagSuffix       = "site"
	TokenNameFlagSuffix  = "token-name"
	TokenValueFlagSuffix = "token-value"
	UsernameFlagSuffix   = "username"
	PasswordFlagSuffix   = "password"
)

const (
	flagNameTemplateConstant          = "%s-%s"
	serverFlagUsageTemplateConstant   = "Base URL of the %s server"
	siteFlagUsageTemplateConstant     = "Content URL of the %s site (empty selects the default site)"
	tokenNameUsageTemplateConstant    = "Personal access token name for the %s server"
	tokenValueUsageTemplateConstant   = "Personal access token value for the %s server"
	usernameFlagUsageTemplateConstant = "Username for the %s server"
	passwordFlagUsageTemplateConstant = "Password for the %s server (prompted when omitted)"
)

type flagDefinition struct {
	suffix        string
	usageTemplate string
	assign        func(configuration *Configuration, value string)
}

var flagDefinitions = []flagDefinition{
	{suffix: ServerFlagSuffix, usageTemplate: serverFlagUsageTemplateConstant, assign: func(configuration *Configuration, value string) { configuration.URL = value }},
	{suffix: SiteFlagSuffix, usageTemplate: siteFlagUsageTemplateConstant, assign: func(configuration *Configuration, value string) { configuration.Site = value }},
	{suffix: TokenNameFlagSuffix, usageTemplate: tokenNameUsageTemplateConstant, assign: func(configuration *Configuration, value string) { configuration.TokenName = value }},
	{suffix: TokenValueFlagSuffix, usageTemplate: tokenValueUsageTemplateConstant, assign: func(configuration *Configuration, value string) { configuration.TokenValue = value }},
	{suffix: UsernameFlagSuffix, usageTemplate: usernameFlagUsageTemplateConstant, assign: func(configuration *Configuration, value string) { configuration.Username = value }},
	{suffix: PasswordFlagSuffix, usageTemplate: passwordFlagUsageTemplateConstant, assign: func(configuration *Configuration, value string) { configuration.Password = value }},
}

// FlagName returns the flag name for role and suffix.
func FlagName(role credentials.Role, suffix string) string {
	return fmt.Sprintf(flagNameTemplateConstant, role, suffix)
}

// BindFlags registers the server flags of role as persistent flags of command.
// Token name and username are mutually exclusive.
func BindFlags(command *cobra.Command, role credentials.Role) {
	if command == nil {
		return
	}
	flagSet := command.PersistentFlags()
	for _, definition := range flagDefinitions {
		flagSet.String(FlagName(role, definition.suffix), "", fmt.Sprintf(definition.usageTemplate, role))
	}
	command.MarkFlagsMutuallyExclusive(FlagName(role, TokenNameFlagSuffix), FlagName(role, UsernameFlagSuffix))
}

// ApplyFlags overrides configuration with the flags of role that were set explicitly.
func ApplyFlags(flagSet *pflag.FlagSet, role credentials.Role, configuration Configuration) (Configuration, error) {
	updated := configuration
	if flagSet == nil {
		return updated, nil
	}
	for _, definition := range flagDefinitions {
		flagName := FlagName(role, definition.suffix)
		if flagSet.Lookup(flagName) == nil || !flagSet.Changed(flagName) {
			continue
		}
		value, valueError := flagSet.GetString(flagName)
		if valueError != nil {
			return Configuration{}, valueError
		}
		definition.assign(&updated, value)
	}
	return updated.Sanitize(), nil
}
