package flags

import (
	"fmt"
	"strings"
)

const (
	choicePlaceholderTemplateConstant = "<%s>"
	choiceSeparatorConstant           = "|"
	choiceUsageTemplateConstant       = "`%s` %s"
	unsupportedChoiceTemplateConstant = "unsupported value %q, expected one of %s"
)

// FormatChoiceUsage renders "`<a|DEFAULT|c>` description" with the default choice upper-cased.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	displayed := make([]string, 0, len(choices))
	for _, choice := range uniqueChoices(choices) {
		if strings.ToLower(choice) == normalizedDefault {
			choice = strings.ToUpper(choice)
		}
		displayed = append(displayed, choice)
	}

	placeholder := fmt.Sprintf(choicePlaceholderTemplateConstant, strings.Join(displayed, choiceSeparatorConstant))
	return strings.TrimSpace(fmt.Sprintf(choiceUsageTemplateConstant, placeholder, strings.TrimSpace(description)))
}

// NormalizeChoice returns the canonical spelling of value among choices, ignoring case and surrounding space.
func NormalizeChoice(value string, choices []string) (string, error) {
	normalizedValue := strings.ToLower(strings.TrimSpace(value))
	candidates := uniqueChoices(choices)
	for _, choice := range candidates {
		if strings.ToLower(choice) == normalizedValue {
			return choice, nil
		}
	}
	return "", fmt.Errorf(unsupportedChoiceTemplateConstant, value, strings.Join(candidates, choiceSeparatorConstant))
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmedChoice := strings.TrimSpace(choice)
		normalizedChoice := strings.ToLower(trimmedChoice)
		if len(trimmedChoice) == 0 {
			continue
		}
		if _, duplicate := seen[normalizedChoice]; duplicate {
			continue
		}
		seen[normalizedChoice] = struct{}{}
		unique = append(unique, trimmedChoice)
	}
	return unique
}
