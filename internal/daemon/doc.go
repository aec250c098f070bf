// Package daemon runs the redub background process: it enforces
// single-instance execution with a lock file, drives the workflow manager,
// and serves the HTTP API the CLI talks to.
package daemon
