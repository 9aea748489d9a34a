package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleTrueCanonicalValue          = "true"
	toggleFalseCanonicalValue         = "false"
	toggleFlagTypeConstant            = "bool"
	toggleLongPrefixConstant          = "--"
	toggleValueSeparatorConstant      = "="
	toggleParseErrorTemplate          = "invalid toggle value %q"
	toggleUsageTemplateConstant       = "`%s` %s"
	toggleEnabledPlaceholderConstant  = "<YES|no>"
	toggleDisabledPlaceholderConstant = "<yes|NO>"
)

var toggleLiteralValues = map[string]bool{
	"true": true, "yes": true, "on": true, "1": true, "t": true, "y": true,
	"false": false, "no": false, "off": false, "0": false, "f": false, "n": false,
}

var (
	toggleRegistryMutex sync.RWMutex
	toggleRegistry      = map[string]struct{}{}
)

// AddToggleFlag registers a boolean flag that also accepts yes/no, on/off and 1/0.
// A bare flag enables it. target may be nil when callers read the value through the flag set.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	value := &toggleValue{current: defaultValue, target: target}
	if target != nil {
		*target = defaultValue
	}
	flagSet.VarP(value, name, shorthand, usage)

	flag := flagSet.Lookup(name)
	flag.NoOptDefVal = toggleTrueCanonicalValue
	flag.Usage = toggleUsage(usage, defaultValue)

	toggleRegistryMutex.Lock()
	toggleRegistry[name] = struct{}{}
	toggleRegistryMutex.Unlock()
}

// NormalizeToggleArguments joins "--toggle value" into "--toggle=value" for registered toggles,
// since pflag treats a flag with NoOptDefVal as taking no separate argument.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		current := arguments[index]
		if current == toggleLongPrefixConstant {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		if index+1 < len(arguments) && isBareToggle(current) && isToggleLiteral(arguments[index+1]) {
			normalized = append(normalized, current+toggleValueSeparatorConstant+arguments[index+1])
			index++
			continue
		}
		normalized = append(normalized, current)
	}
	return normalized
}

type toggleValue struct {
	current bool
	target  *bool
}

func (value *toggleValue) Set(rawValue string) error {
	parsed, parseError := parseToggle(rawValue)
	if parseError != nil {
		return parseError
	}
	value.current = parsed
	if value.target != nil {
		*value.target = parsed
	}
	return nil
}

func (value *toggleValue) String() string {
	if value != nil && value.current {
		return toggleTrueCanonicalValue
	}
	return toggleFalseCanonicalValue
}

func (value *toggleValue) Type() string {
	return toggleFlagTypeConstant
}

func parseToggle(rawValue string) (bool, error) {
	normalized := strings.ToLower(strings.TrimSpace(rawValue))
	if len(normalized) == 0 {
		return true, nil
	}
	parsed, known := toggleLiteralValues[normalized]
	if !known {
		return false, fmt.Errorf(toggleParseErrorTemplate, rawValue)
	}
	return parsed, nil
}

func toggleUsage(description string, defaultValue bool) string {
	placeholder := toggleDisabledPlaceholderConstant
	if defaultValue {
		placeholder = toggleEnabledPlaceholderConstant
	}
	return strings.TrimSpace(fmt.Sprintf(toggleUsageTemplateConstant, placeholder, strings.TrimSpace(description)))
}

func isBareToggle(argument string) bool {
	if !strings.HasPrefix(argument, toggleLongPrefixConstant) || strings.Contains(argument, toggleValueSeparatorConstant) {
		return false
	}
	toggleRegistryMutex.RLock()
	defer toggleRegistryMutex.RUnlock()
	_, registered := toggleRegistry[strings.TrimPrefix(argument, toggleLongPrefixConstant)]
	return registered
}

func isToggleLiteral(argument string) bool {
	_, known := toggleLiteralValues[strings.ToLower(strings.TrimSpace(argument))]
	return known
}
