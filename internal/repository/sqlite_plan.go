package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

const planColumns = `id, target_id, plan_type, plan_name, owner, description, created_at, updated_at`

const (
	kindTarget = "target"
	kindActual = "actual"
)

// SQLitePlanRepo implements PlanRepo. Quantities live in plan_quantities,
// one row per column, so every plan type shares the same tables.
type SQLitePlanRepo struct {
	db db.DBTX
}

// NewSQLitePlanRepo creates a new SQLitePlanRepo.
func NewSQLitePlanRepo(conn db.DBTX) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: conn}
}

func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.PlanItem) error {
	cfg, ok := domain.ConfigFor(p.PlanType)
	if !ok {
		return fmt.Errorf("invalid plan type %q", p.PlanType)
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	ts := p.UpdatedAt.Format(time.RFC3339)

	query := `INSERT INTO plans (` + planColumns + `, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM plans WHERE target_id = ?))`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.TargetID, string(p.PlanType), p.PlanName, p.Owner, p.Description, ts, ts, p.TargetID)
	if err != nil {
		return fmt.Errorf("inserting plan: %w", err)
	}

	for _, d := range cfg.Dimensions {
		if v, ok := p.Target(d.TargetField); ok {
			if err := r.putQuantity(ctx, p.ID, d.TargetField, kindTarget, v); err != nil {
				return err
			}
		}
		if v, ok := p.ActualInt(d.ActualField); ok {
			if err := r.putQuantity(ctx, p.ID, d.ActualField, kindActual, v); err != nil {
				return err
			}
		}
	}

	for _, rp := range p.RelatedPlans {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO plan_relations (plan_id, related_id, related_name) VALUES (?, ?, ?)`,
			p.ID, rp.ID, rp.Name)
		if err != nil {
			return fmt.Errorf("inserting plan relation: %w", err)
		}
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.PlanItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("plan %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	plans := []domain.PlanItem{*p}
	if err := r.attachDetails(ctx, plans); err != nil {
		return nil, err
	}
	return &plans[0], nil
}

// ListByTarget returns a target's plans in display order with quantities and
// relations attached.
func (r *SQLitePlanRepo) ListByTarget(ctx context.Context, targetID string) ([]domain.PlanItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE target_id = ? ORDER BY seq, id`, targetID)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	var plans []domain.PlanItem
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		plans = append(plans, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}

	if err := r.attachDetails(ctx, plans); err != nil {
		return nil, err
	}
	return plans, nil
}

// UpdateMeta writes the descriptive fields. Empty fields keep their value.
func (r *SQLitePlanRepo) UpdateMeta(ctx context.Context, id string, m domain.PlanMeta) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE plans SET
			owner       = COALESCE(NULLIF(?, ''), owner),
			plan_name   = COALESCE(NULLIF(?, ''), plan_name),
			description = COALESCE(NULLIF(?, ''), description),
			updated_at  = ?
		WHERE id = ?`,
		m.Owner, m.PlanName, m.Description, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	return requireAffected(res, "plan", id)
}

// SetActuals upserts actual values keyed by actual column.
func (r *SQLitePlanRepo) SetActuals(ctx context.Context, id string, values map[string]int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE plans SET updated_at = ? WHERE id = ?`, nowUTC(), id)
	if err != nil {
		return fmt.Errorf("touching plan: %w", err)
	}
	if err := requireAffected(res, "plan", id); err != nil {
		return err
	}
	for field, v := range values {
		if err := r.putQuantity(ctx, id, field, kindActual, v); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLitePlanRepo) putQuantity(ctx context.Context, planID, field, kind string, v int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO plan_quantities (plan_id, field, kind, value) VALUES (?, ?, ?, ?)
		ON CONFLICT(plan_id, field) DO UPDATE SET value = excluded.value, kind = excluded.kind`,
		planID, field, kind, v)
	if err != nil {
		return fmt.Errorf("writing %s %s for plan %s: %w", kind, field, planID, err)
	}
	return nil
}

// attachDetails loads quantities and relations for plans in two queries.
func (r *SQLitePlanRepo) attachDetails(ctx context.Context, plans []domain.PlanItem) error {
	if len(plans) == 0 {
		return nil
	}
	idx := make(map[string]int, len(plans))
	args := make([]any, 0, len(plans))
	for i := range plans {
		idx[plans[i].ID] = i
		args = append(args, plans[i].ID)
	}
	in := placeholders(len(plans))

	rows, err := r.db.QueryContext(ctx,
		`SELECT plan_id, field, kind, value FROM plan_quantities WHERE plan_id IN (`+in+`)`, args...)
	if err != nil {
		return fmt.Errorf("loading plan quantities: %w", err)
	}
	for rows.Next() {
		var planID, field, kind string
		var v int
		if err := rows.Scan(&planID, &field, &kind, &v); err != nil {
			rows.Close()
			return fmt.Errorf("scanning plan quantity: %w", err)
		}
		p := &plans[idx[planID]]
		if kind == kindTarget {
			p.Targets[field] = v
		} else {
			p.Actuals[field] = strconv.Itoa(v)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating plan quantities: %w", err)
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT plan_id, related_id, related_name FROM plan_relations
		WHERE plan_id IN (`+in+`) ORDER BY plan_id, related_name, related_id`, args...)
	if err != nil {
		return fmt.Errorf("loading plan relations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var planID string
		var rp domain.RelatedPlan
		if err := rows.Scan(&planID, &rp.ID, &rp.Name); err != nil {
			return fmt.Errorf("scanning plan relation: %w", err)
		}
		p := &plans[idx[planID]]
		p.RelatedPlans = append(p.RelatedPlans, rp)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating plan relations: %w", err)
	}
	return nil
}

func scanPlan(s rowScanner) (*domain.PlanItem, error) {
	var p domain.PlanItem
	var planType, createdAt, updatedAt string
	err := s.Scan(&p.ID, &p.TargetID, &planType, &p.PlanName, &p.Owner, &p.Description, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning plan: %w", err)
	}
	p.PlanType = domain.PlanType(planType)
	p.UpdatedAt = parseTimestamp(updatedAt)
	p.Targets = make(map[string]int)
	p.Actuals = make(map[string]string)
	return &p, nil
}
