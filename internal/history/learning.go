package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LearningCandidate is one staged correction pattern awaiting user
// confirmation before promotion to the private rules engine.
// Phrase/RejectedCommand/CorrectedCommand are stored in the clear: by the
// time a candidate is recorded, memory.Miner has already redacted the
// originating HistoryEntry text it was derived from.
type LearningCandidate struct {
	ID               string
	Phrase           string
	RejectedCommand  string
	CorrectedCommand string
	Count            int
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RecordLearningCandidate increments an existing candidate's count or
// inserts a new one, an upsert keyed on the unique (phrase, rejected
// command, corrected command) triple.
func (s *Store) RecordLearningCandidate(ctx context.Context, id, phrase, rejected, corrected string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO learning_candidates (id, phrase, rejected_command, corrected_command, count, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, 'pending', ?, ?)
		ON CONFLICT(phrase, rejected_command, corrected_command) DO UPDATE SET
			count = count + 1,
			updated_at = excluded.updated_at
	`, id, phrase, rejected, corrected, now, now)
	if err != nil {
		return fmt.Errorf("record learning candidate: %w", err)
	}
	return nil
}

// ListLearningCandidates returns candidates filtered by status (empty =
// all), newest-updated first.
func (s *Store) ListLearningCandidates(ctx context.Context, status string, limit int) ([]LearningCandidate, error) {
	query := `SELECT id, phrase, rejected_command, corrected_command, count, status, created_at, updated_at FROM learning_candidates`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY updated_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list learning candidates: %w", err)
	}
	defer rows.Close()

	var out []LearningCandidate
	for rows.Next() {
		var c LearningCandidate
		var createdMillis, updatedMillis int64
		if err := rows.Scan(&c.ID, &c.Phrase, &c.RejectedCommand, &c.CorrectedCommand, &c.Count, &c.Status, &createdMillis, &updatedMillis); err != nil {
			return nil, fmt.Errorf("scan learning candidate: %w", err)
		}
		c.CreatedAt = time.UnixMilli(createdMillis)
		c.UpdatedAt = time.UnixMilli(updatedMillis)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetLearningCandidateStatus transitions a candidate to "confirmed" or
// "rejected". Promotion to the private rules engine happens one layer up
// (internal/memory), triggered only by the explicit "confirmed" status
// this method records.
func (s *Store) SetLearningCandidateStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		`UPDATE learning_candidates SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update learning candidate status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
