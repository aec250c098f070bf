// Package queue persists dubbing runs in SQLite: run status, the append-only
// stage result history, and artifact locators. The manifest is the source of
// truth the workflow manager resumes from after a restart.
package queue
