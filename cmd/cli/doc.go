// Package cli constructs the tabmigrate command-line interface. It wires the
// Cobra root command to the layered configuration loader and the zap logger,
// and registers the list and migrate command families.
package cli
