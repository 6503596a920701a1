package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent and re-run
// on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillPlanSeq(db); err != nil {
		return fmt.Errorf("backfilling plan seq values: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS targets (
		id              TEXT PRIMARY KEY,
		name            TEXT NOT NULL,
		department      TEXT NOT NULL DEFAULT '',
		status          TEXT NOT NULL DEFAULT 'pending'
		                CHECK(status IN ('pending','evaluating','completed')),
		responsible_uid TEXT NOT NULL DEFAULT '',
		start_date      TEXT,
		end_date        TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS plans (
		id          TEXT PRIMARY KEY,
		target_id   TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		plan_type   TEXT NOT NULL
		            CHECK(plan_type IN ('data_acquisition','data_quality_improvement','data_resource_cataloging','business_analysis')),
		plan_name   TEXT NOT NULL DEFAULT '',
		owner       TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	// Display order within a target; backfilled for rows created before it existed.
	`ALTER TABLE plans ADD COLUMN seq INTEGER NOT NULL DEFAULT 0`,

	`CREATE TABLE IF NOT EXISTS plan_quantities (
		plan_id TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		field   TEXT NOT NULL,
		kind    TEXT NOT NULL CHECK(kind IN ('target','actual')),
		value   INTEGER NOT NULL CHECK(value >= 0),
		PRIMARY KEY (plan_id, field)
	)`,

	`CREATE TABLE IF NOT EXISTS plan_relations (
		plan_id      TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		related_id   TEXT NOT NULL,
		related_name TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (plan_id, related_id)
	)`,

	`CREATE TABLE IF NOT EXISTS evaluation_submissions (
		id           TEXT PRIMARY KEY,
		target_id    TEXT NOT NULL REFERENCES targets(id) ON DELETE CASCADE,
		plan_count   INTEGER NOT NULL,
		submitted_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_targets_status ON targets(status)`,
	`CREATE INDEX IF NOT EXISTS idx_plans_target ON plans(target_id, plan_type)`,
	`CREATE INDEX IF NOT EXISTS idx_submissions_target ON evaluation_submissions(target_id, submitted_at)`,
}

// migrateBackfillPlanSeq numbers plans with seq = 0 per target in creation
// order, after any plan that already has a seq.
func migrateBackfillPlanSeq(db *sql.DB) error {
	ctx := context.Background()
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT target_id FROM plans WHERE seq = 0`)
	if err != nil {
		return fmt.Errorf("querying targets needing backfill: %w", err)
	}
	var targetIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning target id: %w", err)
		}
		targetIDs = append(targetIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating targets: %w", err)
	}

	for _, targetID := range targetIDs {
		if err := backfillTargetPlanSeq(ctx, db, targetID); err != nil {
			return err
		}
	}
	return nil
}

func backfillTargetPlanSeq(ctx context.Context, db *sql.DB, targetID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting backfill for %s: %w", targetID, err)
	}
	defer tx.Rollback()

	var maxSeq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM plans WHERE target_id = ?`, targetID,
	).Scan(&maxSeq); err != nil {
		return fmt.Errorf("reading max seq for %s: %w", targetID, err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM plans WHERE target_id = ? AND seq = 0 ORDER BY created_at, id`, targetID)
	if err != nil {
		return fmt.Errorf("listing plans for %s: %w", targetID, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning plan id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating plans: %w", err)
	}

	for _, id := range ids {
		maxSeq++
		if _, err := tx.ExecContext(ctx, `UPDATE plans SET seq = ? WHERE id = ?`, maxSeq, id); err != nil {
			return fmt.Errorf("setting seq for plan %s: %w", id, err)
		}
	}
	return tx.Commit()
}
