// Package listing prints the sites, projects, and workbooks visible on the source server.
package listing
