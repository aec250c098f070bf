// Package artifacts stores the files each dubbing stage produces and the
// locator rows that make a run resumable. Files live under the workspace in a
// per-run directory; rows live in the queue database. Writes are append-only:
// a retried stage records a new attempt instead of overwriting the old one.
package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"redub/internal/config"
	"redub/internal/queue"
	"redub/internal/services"
)

// Artifact kinds, one per stage output.
const (
	KindRawVideo             = "raw_video"
	KindExtractedAudio       = "extracted_audio"
	KindTranscript           = "transcript"
	KindTranslatedTranscript = "translated_transcript"
	KindDubbedAudio          = "dubbed_audio"
	KindSubtitleTrack        = "subtitle_track"
	KindStrippedVideo        = "stripped_video"
	KindFinalVideo           = "final_video"
)

var kindExtensions = map[string]string{
	KindRawVideo:             ".mp4",
	KindExtractedAudio:       ".mp3",
	KindTranscript:           ".json",
	KindTranslatedTranscript: ".json",
	KindDubbedAudio:          ".mp3",
	KindSubtitleTrack:        ".srt",
	KindStrippedVideo:        ".mp4",
	KindFinalVideo:           ".mp4",
}

// Store writes stage outputs into the workspace and records their locators.
type Store struct {
	queue *queue.Store
	root  string
}

// NewStore builds an artifact store rooted at the workspace runs directory.
func NewStore(cfg *config.Config, queueStore *queue.Store) *Store {
	return &Store{
		queue: queueStore,
		root:  filepath.Join(cfg.Paths.WorkspaceDir, "runs"),
	}
}

// RunDir returns the directory holding a run's files, creating it if needed.
func (s *Store) RunDir(runID string) (string, error) {
	dir := filepath.Join(s.root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStorage, "artifacts", "run dir", "create run directory", err)
	}
	return dir, nil
}

// WorkPath returns a scratch path inside the run directory for a stage to
// write into before the output is committed with Commit.
func (s *Store) WorkPath(runID, kind string, attempt int) (string, error) {
	dir, err := s.RunDir(runID)
	if err != nil {
		return "", err
	}
	ext, ok := kindExtensions[kind]
	if !ok {
		return "", services.Wrap(services.ErrContractViolation, "artifacts", "work path", fmt.Sprintf("unknown artifact kind %q", kind), nil)
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d%s", kind, attempt, ext)), nil
}

// Commit records a locator row for a file a stage already wrote at path. The
// file must be non-empty; committing verifies size and captures a checksum so
// a resumed run can trust what it finds on disk.
func (s *Store) Commit(ctx context.Context, runID, stage, kind string, attempt int, path string) (*queue.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "commit artifact", "stat artifact file", err)
	}
	if info.Size() == 0 {
		return nil, services.Wrap(services.ErrContractViolation, stage, "commit artifact", fmt.Sprintf("%s output is empty", kind), nil)
	}
	checksum, err := checksumFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "commit artifact", "checksum artifact file", err)
	}
	artifact := &queue.Artifact{
		RunID:     runID,
		Kind:      kind,
		Path:      path,
		SizeBytes: info.Size(),
		Checksum:  checksum,
		Stage:     stage,
		Attempt:   attempt,
	}
	if err := s.queue.AddArtifact(ctx, artifact); err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "commit artifact", "record artifact row", err)
	}
	return artifact, nil
}

// Put writes content as a new artifact and commits it in one step. Used by
// stages whose output is produced in memory, such as transcripts and subtitle
// tracks.
func (s *Store) Put(ctx context.Context, runID, stage, kind string, attempt int, content []byte) (*queue.Artifact, error) {
	path, err := s.WorkPath(runID, kind, attempt)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return nil, services.Wrap(services.ErrStorage, stage, "put artifact", "write artifact file", err)
	}
	return s.Commit(ctx, runID, stage, kind, attempt, path)
}

// NextAttempt returns the attempt number the next write of a kind should
// use: one past the newest recorded attempt.
func (s *Store) NextAttempt(ctx context.Context, runID, kind string) (int, error) {
	latest, err := s.queue.LatestArtifact(ctx, runID, kind)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "artifacts", "next attempt", "query artifact row", err)
	}
	if latest == nil {
		return 1, nil
	}
	return latest.Attempt + 1, nil
}

// Get returns the newest artifact of a kind along with a check that the file
// is still where the locator says. A missing row or missing file both return
// a not-found error so the caller can re-run the producing stage.
func (s *Store) Get(ctx context.Context, runID, kind string) (*queue.Artifact, error) {
	artifact, err := s.queue.LatestArtifact(ctx, runID, kind)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "artifacts", "get artifact", "query artifact row", err)
	}
	if artifact == nil {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "get artifact", fmt.Sprintf("no %s artifact recorded for run %s", kind, runID), nil)
	}
	if _, err := os.Stat(artifact.Path); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "artifacts", "get artifact", fmt.Sprintf("%s artifact file missing at %s", kind, artifact.Path), err)
	}
	return artifact, nil
}

// ReadAll returns the contents of the newest artifact of a kind.
func (s *Store) ReadAll(ctx context.Context, runID, kind string) ([]byte, error) {
	artifact, err := s.Get(ctx, runID, kind)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "artifacts", "read artifact", "read artifact file", err)
	}
	return data, nil
}

// Purge removes all artifact rows and files for a run. File removal is best
// effort; the first filesystem error is reported after the rows are gone so
// the run can no longer resume against half-deleted outputs.
func (s *Store) Purge(ctx context.Context, runID string) error {
	if _, err := s.queue.PurgeArtifactRows(ctx, runID); err != nil {
		return services.Wrap(services.ErrStorage, "artifacts", "purge", "delete artifact rows", err)
	}
	dir := filepath.Join(s.root, runID)
	if err := os.RemoveAll(dir); err != nil {
		return services.Wrap(services.ErrStorage, "artifacts", "purge", "remove run directory", err)
	}
	return nil
}

func checksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}
