// Command redub is the CLI for the redub dubbing daemon: it runs the daemon
// in the foreground and submits, inspects, and manages dubbing runs over the
// daemon's HTTP API.
package main
