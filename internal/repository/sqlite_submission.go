package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/google/uuid"
)

// SQLiteSubmissionRepo records accepted evaluation write-backs.
type SQLiteSubmissionRepo struct {
	db db.DBTX
}

func NewSQLiteSubmissionRepo(conn db.DBTX) *SQLiteSubmissionRepo {
	return &SQLiteSubmissionRepo{db: conn}
}

func (r *SQLiteSubmissionRepo) Record(ctx context.Context, s *Submission) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluation_submissions (id, target_id, plan_count, submitted_at) VALUES (?, ?, ?, ?)`,
		s.ID, s.TargetID, s.PlanCount, s.SubmittedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("recording submission: %w", err)
	}
	return nil
}

func (r *SQLiteSubmissionRepo) ListByTarget(ctx context.Context, targetID string) ([]Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, target_id, plan_count, submitted_at FROM evaluation_submissions
		WHERE target_id = ? ORDER BY submitted_at, id`, targetID)
	if err != nil {
		return nil, fmt.Errorf("listing submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var s Submission
		var at string
		if err := rows.Scan(&s.ID, &s.TargetID, &s.PlanCount, &at); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		s.SubmittedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating submissions: %w", err)
	}
	return out, nil
}
