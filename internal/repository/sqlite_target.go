package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JourneyJu/dsg-sub008/internal/db"
	"github.com/JourneyJu/dsg-sub008/internal/domain"
)

const targetColumns = `id, name, department, status, responsible_uid, start_date, end_date, created_at, updated_at`

// SQLiteTargetRepo implements TargetRepo using a SQLite database.
type SQLiteTargetRepo struct {
	db db.DBTX
}

// NewSQLiteTargetRepo creates a new SQLiteTargetRepo.
func NewSQLiteTargetRepo(conn db.DBTX) *SQLiteTargetRepo {
	return &SQLiteTargetRepo{db: conn}
}

func (r *SQLiteTargetRepo) Create(ctx context.Context, t *domain.Target) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("validating target: %w", err)
	}
	if t.Status == "" {
		t.Status = domain.TargetPending
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}

	query := `INSERT INTO targets (` + targetColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.Name,
		t.Department,
		string(t.Status),
		t.ResponsibleUID,
		nullableTimeToString(t.StartDate, dateLayout),
		nullableTimeToString(t.EndDate, dateLayout),
		t.CreatedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting target: %w", err)
	}
	return nil
}

func (r *SQLiteTargetRepo) GetByID(ctx context.Context, id string) (*domain.Target, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+targetColumns+` FROM targets WHERE id = ?`, id)
	t, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("target %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// List returns one page of targets ordered by creation time, newest first,
// together with the total number of matches.
func (r *SQLiteTargetRepo) List(ctx context.Context, f TargetFilter) ([]*domain.Target, int, error) {
	var where []string
	var args []any
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		pattern := "%" + escapeLike(kw) + "%"
		where = append(where, `(name LIKE ? ESCAPE '\' OR department LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(f.Status))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM targets`+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting targets: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + targetColumns + ` FROM targets` + clause +
		` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, append(args, limit, max(f.Offset, 0))...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing targets: %w", err)
	}
	defer rows.Close()

	var targets []*domain.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, 0, err
		}
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating targets: %w", err)
	}
	return targets, total, nil
}

func (r *SQLiteTargetRepo) UpdateStatus(ctx context.Context, id string, status domain.TargetStatus) error {
	if !domain.ValidTargetStatuses[string(status)] {
		return fmt.Errorf("invalid target status %q", status)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE targets SET status = ?, updated_at = ? WHERE id = ?`, string(status), nowUTC(), id)
	if err != nil {
		return fmt.Errorf("updating target status: %w", err)
	}
	return requireAffected(res, "target", id)
}

func (r *SQLiteTargetRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM targets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting target: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTarget(s rowScanner) (*domain.Target, error) {
	var t domain.Target
	var status, createdAt, updatedAt string
	var startDate, endDate sql.NullString

	err := s.Scan(&t.ID, &t.Name, &t.Department, &status, &t.ResponsibleUID,
		&startDate, &endDate, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning target: %w", err)
	}

	t.Status = domain.TargetStatus(status)
	t.StartDate = parseNullableTime(startDate, dateLayout)
	t.EndDate = parseNullableTime(endDate, dateLayout)
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)
	return &t, nil
}

func requireAffected(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}
