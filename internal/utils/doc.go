// Package utils holds the process-level plumbing shared by every command:
// layered configuration loading through Viper, zap logger construction, and
// values carried on the command context such as the configuration path and
// the run identifier.
package utils
