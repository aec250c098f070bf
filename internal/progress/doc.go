// Package progress fans out run lifecycle events to observers. Events flow
// through an in-memory hub with a bounded replay buffer so CLI watchers and
// the HTTP event stream can catch up after connecting mid-run, and a reporter
// mirrors every event into the structured log.
package progress
