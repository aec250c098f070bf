package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AppendStageResult records one attempt of one stage for a run.
func (s *Store) AppendStageResult(ctx context.Context, result *StageResult) error {
	if result == nil {
		return errors.New("stage result is nil")
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO stage_results (
            run_id, stage, status, attempts, error_message, duration_ms, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Stage,
		result.Status,
		result.Attempts,
		nullableString(result.ErrorMessage),
		result.Duration.Milliseconds(),
		result.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert stage result: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		result.ID = id
	}
	return nil
}

// StageResultsForRun lists every recorded stage attempt for a run in
// chronological order.
func (s *Store) StageResultsForRun(ctx context.Context, runID string) ([]*StageResult, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, run_id, stage, status, attempts, error_message, duration_ms, created_at
         FROM stage_results WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stage results: %w", err)
	}
	defer rows.Close()

	var results []*StageResult
	for rows.Next() {
		var (
			result       StageResult
			errorMessage sql.NullString
			durationMS   int64
			createdAt    string
		)
		if err := rows.Scan(
			&result.ID,
			&result.RunID,
			&result.Stage,
			&result.Status,
			&result.Attempts,
			&errorMessage,
			&durationMS,
			&createdAt,
		); err != nil {
			return nil, err
		}
		result.ErrorMessage = errorMessage.String
		result.Duration = time.Duration(durationMS) * time.Millisecond
		result.CreatedAt = parseTimestamp(createdAt)
		results = append(results, &result)
	}
	return results, rows.Err()
}

// AddArtifact records the locator row for a stored artifact.
func (s *Store) AddArtifact(ctx context.Context, artifact *Artifact) error {
	if artifact == nil {
		return errors.New("artifact is nil")
	}
	if artifact.CreatedAt.IsZero() {
		artifact.CreatedAt = time.Now().UTC()
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artifacts (
            run_id, kind, path, size_bytes, checksum, stage, attempt, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		artifact.RunID,
		artifact.Kind,
		artifact.Path,
		artifact.SizeBytes,
		nullableString(artifact.Checksum),
		artifact.Stage,
		artifact.Attempt,
		artifact.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		artifact.ID = id
	}
	return nil
}

const artifactColumns = `id, run_id, kind, path, size_bytes, checksum, stage, attempt, created_at`

func scanArtifact(row rowScanner) (*Artifact, error) {
	var (
		artifact  Artifact
		checksum  sql.NullString
		createdAt string
	)
	if err := row.Scan(
		&artifact.ID,
		&artifact.RunID,
		&artifact.Kind,
		&artifact.Path,
		&artifact.SizeBytes,
		&checksum,
		&artifact.Stage,
		&artifact.Attempt,
		&createdAt,
	); err != nil {
		return nil, err
	}
	artifact.Checksum = checksum.String
	artifact.CreatedAt = parseTimestamp(createdAt)
	return &artifact, nil
}

// ArtifactsForRun lists every artifact row for a run, oldest first.
func (s *Store) ArtifactsForRun(ctx context.Context, runID string) ([]*Artifact, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*Artifact
	for rows.Next() {
		artifact, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, artifact)
	}
	return artifacts, rows.Err()
}

// LatestArtifact returns the newest artifact of a kind for a run, or nil when
// none has been recorded yet.
func (s *Store) LatestArtifact(ctx context.Context, runID, kind string) (*Artifact, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artifactColumns+` FROM artifacts
         WHERE run_id = ? AND kind = ? ORDER BY attempt DESC, id DESC LIMIT 1`,
		runID,
		kind,
	)
	artifact, err := scanArtifact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest artifact: %w", err)
	}
	return artifact, nil
}

// PurgeArtifactRows deletes all artifact rows for a run and returns the paths
// they pointed at so the caller can remove the files.
func (s *Store) PurgeArtifactRows(ctx context.Context, runID string) ([]string, error) {
	artifacts, err := s.ArtifactsForRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		paths = append(paths, artifact.Path)
	}
	if _, err := s.execWithRetry(ctx, `DELETE FROM artifacts WHERE run_id = ?`, runID); err != nil {
		return nil, fmt.Errorf("purge artifacts: %w", err)
	}
	return paths, nil
}
