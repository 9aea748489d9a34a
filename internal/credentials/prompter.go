package credentials

import (
	"io"
	"os"

	"golang.org/x/term"
)

// TerminalPasswordPrompter reads passwords from a terminal without echo.
type TerminalPasswordPrompter struct {
	input  *os.File
	output io.Writer
}

// NewTerminalPasswordPrompter constructs a prompter reading from input and writing prompts to output.
func NewTerminalPasswordPrompter(input *os.File, output io.Writer) *TerminalPasswordPrompter {
	return &TerminalPasswordPrompter{input: input, output: output}
}

// PromptPassword writes prompt and reads one line without echo.
func (prompter *TerminalPasswordPrompter) PromptPassword(prompt string) (string, error) {
	if prompter.input == nil {
		return "", ErrPromptUnavailable
	}
	fileDescriptor := int(prompter.input.Fd())
	if !term.IsTerminal(fileDescriptor) {
		return "", ErrPromptUnavailable
	}
	if prompter.output != nil {
		if _, writeError := io.WriteString(prompter.output, prompt); writeError != nil {
			return "", writeError
		}
	}
	password, readError := term.ReadPassword(fileDescriptor)
	if prompter.output != nil {
		_, _ = io.WriteString(prompter.output, "\n")
	}
	if readError != nil {
		return "", readError
	}
	return string(password), nil
}
