package rewardfine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository persists ledger entries in Postgres and reads the attendance
// and student tables the sweep scans.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// StudentIDs returns every student id, for the full sweep.
func (r *Repository) StudentIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM students ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AttendanceStatuses returns the statuses of a student's attendance records
// with date in [from, to].
func (r *Repository) AttendanceStatuses(ctx context.Context, studentID int64, from, to time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status FROM attendance
		WHERE student_id = $1 AND date BETWEEN $2 AND $3
	`, studentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var statuses []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, rows.Err()
}

// FindEntry returns the entry for (student, month, type), or nil.
func (r *Repository) FindEntry(ctx context.Context, studentID int64, month time.Time, typ EntryType) (*Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, student_id, type, amount, reason, month, attendance_percentage, created_at
		FROM attendance_rewards_fines
		WHERE student_id = $1 AND month = $2 AND type = $3
	`, studentID, month, typ)
	var e Entry
	if err := row.Scan(&e.ID, &e.StudentID, &e.Type, &e.Amount, &e.Reason, &e.Month, &e.AttendancePercentage, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

// CreateEntry writes a new ledger entry.
func (r *Repository) CreateEntry(ctx context.Context, e Entry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_rewards_fines (student_id, type, amount, reason, month, attendance_percentage)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, e.StudentID, e.Type, e.Amount, e.Reason, e.Month, e.AttendancePercentage)
	return err
}

// UpdateEntry overwrites amount, reason and percentage in place.
func (r *Repository) UpdateEntry(ctx context.Context, id int64, amount float64, reason string, percentage float64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_rewards_fines
		SET amount = $2, reason = $3, attendance_percentage = $4
		WHERE id = $1
	`, id, amount, reason, percentage)
	return err
}

// ListFilter narrows List results; zero values mean "any".
type ListFilter struct {
	StudentID int64
	Month     time.Time
	Type      EntryType
	Limit     int
	Offset    int
}

// List returns ledger entries with basic filters, newest first.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]Entry, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT id, student_id, type, amount, reason, month, attendance_percentage, created_at FROM attendance_rewards_fines`
	args := []any{}
	clauses := []string{}
	if f.StudentID != 0 {
		clauses = append(clauses, "student_id = $"+itoa(len(args)+1))
		args = append(args, f.StudentID)
	}
	if !f.Month.IsZero() {
		clauses = append(clauses, "month = $"+itoa(len(args)+1))
		args = append(args, f.Month)
	}
	if f.Type != "" {
		clauses = append(clauses, "type = $"+itoa(len(args)+1))
		args = append(args, f.Type)
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Type, &e.Amount, &e.Reason, &e.Month, &e.AttendancePercentage, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func itoa(i int) string { return fmt.Sprintf("%d", i) }

func joinClauses(parts []string, sep string) string {
	if len(parts) == 0 {
		return ""
	}
	out := parts[0]
	for i := 1; i < len(parts); i++ {
		out += sep + parts[i]
	}
	return out
}
