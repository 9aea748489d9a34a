// Package transfer moves one workbook between servers through a scoped local staging directory.
package transfer
