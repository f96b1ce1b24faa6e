// Package services wires sessions, the marker store, the bulk loader and
// the query runner into complete units of work for orchestrators and the CLI.
package services
