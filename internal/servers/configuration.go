package servers

import (
	"strings"
	"time"

	"github.com/temirov/tabmigrate/internal/credentials"
)

const (
	defaultAPIVersionConstant     = "3.19"
	defaultRequestTimeoutConstant = 60 * time.Second
	urlTrailingSeparatorConstant  = "/"
)

// Configuration describes how to reach and authenticate against one server.
type Configuration struct {
	URL               string        `mapstructure:"url"`
	Site              string        `mapstructure:"site"`
	APIVersion        string        `mapstructure:"api_version"`
	TokenName         string        `mapstructure:"token_name"`
	TokenValue        string        `mapstructure:"token_value"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// Configurations groups the per-role server settings.
type Configurations struct {
	Source Configuration `mapstructure:"source"`
	Target Configuration `mapstructure:"target"`
}

// DefaultConfiguration supplies baseline values for one server.
func DefaultConfiguration() Configuration {
	return Configuration{
		APIVersion:     defaultAPIVersionConstant,
		RequestTimeout: defaultRequestTimeoutConstant,
	}
}

// DefaultConfigurations supplies baseline values for both roles.
func DefaultConfigurations() Configurations {
	return Configurations{
		Source: DefaultConfiguration(),
		Target: DefaultConfiguration(),
	}
}

// DefaultConfigurationValues returns viper defaults keyed under prefix, e.g. "servers".
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultConfiguration()
	values := map[string]any{}
	for _, role := range []credentials.Role{credentials.RoleSource, credentials.RoleTarget} {
		rolePrefix := prefix + "." + string(role) + "."
		values[rolePrefix+"api_version"] = defaults.APIVersion
		values[rolePrefix+"request_timeout"] = defaults.RequestTimeout.String()
	}
	return values
}

// Sanitize trims values and restores defaults for empty API version and timeout.
// A negative request rate means unlimited.
func (configuration Configuration) Sanitize() Configuration {
	defaults := DefaultConfiguration()
	sanitized := configuration
	sanitized.URL = strings.TrimRight(strings.TrimSpace(configuration.URL), urlTrailingSeparatorConstant)
	sanitized.Site = strings.TrimSpace(configuration.Site)
	sanitized.APIVersion = strings.TrimSpace(configuration.APIVersion)
	sanitized.TokenName = strings.TrimSpace(configuration.TokenName)
	sanitized.Username = strings.TrimSpace(configuration.Username)
	if len(sanitized.APIVersion) == 0 {
		sanitized.APIVersion = defaults.APIVersion
	}
	if sanitized.RequestTimeout <= 0 {
		sanitized.RequestTimeout = defaults.RequestTimeout
	}
	if sanitized.RequestsPerSecond < 0 {
		sanitized.RequestsPerSecond = 0
	}
	return sanitized
}

// Sanitize applies Sanitize to both roles.
func (configurations Configurations) Sanitize() Configurations {
	return Configurations{
		Source: configurations.Source.Sanitize(),
		Target: configurations.Target.Sanitize(),
	}
}

// ForRole returns the configuration of role.
func (configurations Configurations) ForRole(role credentials.Role) Configuration {
	if role == credentials.RoleTarget {
		return configurations.Target
	}
	return configurations.Source
}

// WithRole returns a copy where the configuration of role is replaced.
func (configurations Configurations) WithRole(role credentials.Role, configuration Configuration) Configurations {
	updated := configurations
	if role == credentials.RoleTarget {
		updated.Target = configuration
	} else {
		updated.Source = configuration
	}
	return updated
}

// Validate reports a ConfigurationError when the server URL is missing.
func (configuration Configuration) Validate(role credentials.Role) error {
	if len(strings.TrimSpace(configuration.URL)) == 0 {
		return ConfigurationError{Role: role, FlagName: FlagName(role, ServerFlagSuffix), Message: missingServerURLMessageConstant}
	}
	return nil
}

func (configuration Configuration) credentialInput() credentials.Input {
	return credentials.Input{
		TokenName:  configuration.TokenName,
		TokenValue: configuration.TokenValue,
		Username:   configuration.Username,
		Password:   configuration.Password,
	}
}
