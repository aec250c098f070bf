// Package dubbing implements the eight pipeline stages that turn a source
// video URL into a dubbed MP4: download, audio extraction, transcription,
// translation, voice synthesis, subtitle stripping, subtitle generation, and
// the final mux. Each stage is a handler the workflow manager drives through
// Prepare and Execute; stages consume and produce artifacts so an interrupted
// run resumes from its last completed checkpoint.
package dubbing
