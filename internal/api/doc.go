// Package api defines the transport DTOs for the daemon's HTTP surface, the
// service layer that produces them from the queue, and the client the CLI
// uses to talk to a running daemon.
package api
