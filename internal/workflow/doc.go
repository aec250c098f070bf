// Package workflow advances dubbing runs through the pipeline stages.
//
// The Manager runs a small pool of workers. Each worker claims the oldest
// run sitting at a claimable checkpoint by atomically moving it into the
// stage's processing status, executes exactly one stage, and releases the
// run at the next checkpoint. Because every stage boundary is persisted,
// independent runs proceed concurrently and a restart resumes each run from
// its last completed stage.
//
// Stage failures are classified: transient errors retry with exponential
// backoff up to the configured attempt budget, everything else fails the run
// immediately. Cancellation is honored between stages; a cancel request
// never interrupts a stage mid-flight.
package workflow
