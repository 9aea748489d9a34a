// Package credentials resolves the sign-in credential for a source or target server from
// explicit values, the environment, and an interactive password prompt.
package credentials
