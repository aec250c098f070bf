// Package segments holds the transcript, translation, and subtitle cue data
// model plus the pure timing validation that gates stage transitions.
package segments
