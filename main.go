package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"

	"github.com/temirov/tabmigrate/cmd/cli"
)

const (
	exitErrorTemplateConstant            = "%v\n"
	environmentFileErrorTemplateConstant = "unable to load .env: %v\n"
)

// main loads an optional .env file and executes the tabmigrate command-line application.
func main() {
	if loadError := godotenv.Load(); loadError != nil && !errors.Is(loadError, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, environmentFileErrorTemplateConstant, loadError)
		os.Exit(1)
	}
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
