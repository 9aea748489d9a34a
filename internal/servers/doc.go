// Package servers describes the source and target servers and signs in to them.
package servers
