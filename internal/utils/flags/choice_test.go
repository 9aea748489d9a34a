package flags

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

const testChoiceSubtestTemplateConstant = "%d_%s"

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first",
			defaultChoice:  "structured",
			choices:        []string{"structured", "console"},
			description:    "Log output encoding.",
			expectedOutput: "`<STRUCTURED|console>` Log output encoding.",
		},
		{
			name:           "default_second",
			defaultChoice:  "console",
			choices:        []string{"structured", "console"},
			description:    "Log output encoding.",
			expectedOutput: "`<structured|CONSOLE>` Log output encoding.",
		},
		{
			name:           "empty_description",
			defaultChoice:  "info",
			choices:        []string{"debug", "info"},
			expectedOutput: "`<debug|INFO>`",
		},
		{
			name:           "duplicates_and_whitespace",
			defaultChoice:  "warn",
			choices:        []string{" warn ", "warn", "", "error"},
			description:    "Minimum level.",
			expectedOutput: "`<WARN|error>` Minimum level.",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testChoiceSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedOutput, FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}

func TestNormalizeChoice(testInstance *testing.T) {
	choices := []string{"structured", "console"}

	testCases := []struct {
		name          string
		value         string
		expected      string
		expectedError bool
	}{
		{name: "exact", value: "console", expected: "console"},
		{name: "case_and_space", value: " Structured ", expected: "structured"},
		{name: "unknown", value: "xml", expectedError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(testChoiceSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			normalized, normalizeError := NormalizeChoice(testCase.value, choices)
			if testCase.expectedError {
				require.ErrorContains(testInstance, normalizeError, "structured|console")
				return
			}
			require.NoError(testInstance, normalizeError)
			require.Equal(testInstance, testCase.expected, normalized)
		})
	}
}
