// Package services defines the shared error taxonomy and context plumbing
// used by stage adapters and the workflow manager. Adapters classify their
// failures with the sentinel markers here; the retry policy keys off that
// classification.
package services
