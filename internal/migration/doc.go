// Package migration orchestrates hierarchy resolution and workbook transfers between a source
// and a target server, and exposes the migrate command.
package migration
