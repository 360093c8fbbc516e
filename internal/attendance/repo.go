package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ScheduleExists reports whether the class schedule is known.
func (r *Repository) ScheduleExists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM class_schedules WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Upsert writes one record; re-marking the same (class, student, date)
// overwrites status, marked_by and marked_at instead of creating a second row.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance (class_schedule_id, student_id, date, status, marked_by, marked_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (class_schedule_id, student_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			marked_by = EXCLUDED.marked_by,
			marked_at = EXCLUDED.marked_at
	`, rec.ClassScheduleID, rec.StudentID, rec.Date, rec.Status, rec.MarkedBy, rec.MarkedAt)
	return err
}

// ListForClassDate returns the records for a class schedule on a date,
// ordered by student for stable screens.
func (r *Repository) ListForClassDate(ctx context.Context, classScheduleID int64, date time.Time) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, class_schedule_id, student_id, date, status, marked_by, marked_at
		FROM attendance
		WHERE class_schedule_id = $1 AND date = $2
		ORDER BY student_id
	`, classScheduleID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var (
			rec      Record
			markedBy sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.ClassScheduleID, &rec.StudentID, &rec.Date, &rec.Status, &markedBy, &rec.MarkedAt); err != nil {
			return nil, err
		}
		rec.MarkedBy = markedBy.String
		res = append(res, rec)
	}
	return res, rows.Err()
}
