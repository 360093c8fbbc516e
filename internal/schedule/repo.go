package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Repository persists class schedules in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const scheduleColumns = `id, subject_id, teacher_id, guest_teacher_id, room_number, schedule_day, start_time, end_time, class_type, semester, academic_year, is_active`

func scanSchedule(row interface{ Scan(...any) error }) (*ClassSchedule, error) {
	var (
		cs             ClassSchedule
		teacherID      sql.NullInt64
		guestTeacherID sql.NullInt64
		roomNumber     sql.NullString
	)
	err := row.Scan(&cs.ID, &cs.SubjectID, &teacherID, &guestTeacherID, &roomNumber,
		&cs.ScheduleDay, &cs.StartTime, &cs.EndTime, &cs.ClassType, &cs.Semester,
		&cs.AcademicYear, &cs.IsActive)
	if err != nil {
		return nil, err
	}
	switch {
	case teacherID.Valid:
		cs.Instructor = Instructor{Kind: KindTeacher, ID: teacherID.Int64}
	case guestTeacherID.Valid:
		cs.Instructor = Instructor{Kind: KindGuest, ID: guestTeacherID.Int64}
	}
	cs.RoomNumber = roomNumber.String
	return &cs, nil
}

func instructorColumns(i Instructor) (teacherID, guestTeacherID any) {
	if i.Kind == KindTeacher {
		return i.ID, nil
	}
	return nil, i.ID
}

// FindOverlapping runs one existence query of the conflict check. The
// overlap filter is the three disjoined comparisons over the half-open
// window; touching slots do not match.
func (r *Repository) FindOverlapping(ctx context.Context, f OverlapFilter) (*ClassSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM class_schedules
		WHERE schedule_day = $1 AND is_active = TRUE
		AND ((start_time <= $2 AND end_time > $2)
		  OR (start_time < $3 AND end_time >= $3)
		  OR (start_time >= $2 AND end_time <= $3))`
	args := []any{f.ScheduleDay, f.StartTime, f.EndTime}
	if f.AcademicYear != "" {
		args = append(args, f.AcademicYear)
		query += " AND academic_year = $" + itoa(len(args))
	}
	if f.Semester != 0 {
		args = append(args, f.Semester)
		query += " AND semester = $" + itoa(len(args))
	}
	switch {
	case f.TeacherID != 0:
		args = append(args, f.TeacherID)
		query += " AND teacher_id = $" + itoa(len(args))
	case f.GuestTeacherID != 0:
		args = append(args, f.GuestTeacherID)
		query += " AND guest_teacher_id = $" + itoa(len(args))
	case f.RoomNumber != "":
		args = append(args, f.RoomNumber)
		query += " AND room_number = $" + itoa(len(args))
	}
	query += " LIMIT 1"

	cs, err := scanScheduleRow(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func scanScheduleRow(row *sql.Row) (*ClassSchedule, error) {
	cs, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return cs, nil
}

// Insert writes a new schedule and returns it with its id.
func (r *Repository) Insert(ctx context.Context, cs ClassSchedule) (ClassSchedule, error) {
	teacherID, guestTeacherID := instructorColumns(cs.Instructor)
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO class_schedules (subject_id, teacher_id, guest_teacher_id, room_number, schedule_day, start_time, end_time, class_type, semester, academic_year, is_active)
		VALUES ($1,$2,$3,NULLIF($4,''),$5,$6,$7,$8,$9,$10,$11)
		RETURNING id
	`, cs.SubjectID, teacherID, guestTeacherID, cs.RoomNumber, cs.ScheduleDay,
		cs.StartTime, cs.EndTime, cs.ClassType, cs.Semester, cs.AcademicYear, cs.IsActive)
	if err := row.Scan(&cs.ID); err != nil {
		return ClassSchedule{}, err
	}
	return cs, nil
}

// Update overwrites a schedule in place.
func (r *Repository) Update(ctx context.Context, cs ClassSchedule) error {
	teacherID, guestTeacherID := instructorColumns(cs.Instructor)
	_, err := r.db.ExecContext(ctx, `
		UPDATE class_schedules
		SET subject_id = $2, teacher_id = $3, guest_teacher_id = $4, room_number = NULLIF($5,''),
		    schedule_day = $6, start_time = $7, end_time = $8, class_type = $9,
		    semester = $10, academic_year = $11, is_active = $12
		WHERE id = $1
	`, cs.ID, cs.SubjectID, teacherID, guestTeacherID, cs.RoomNumber, cs.ScheduleDay,
		cs.StartTime, cs.EndTime, cs.ClassType, cs.Semester, cs.AcademicYear, cs.IsActive)
	return err
}

// GetByID returns one schedule, or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*ClassSchedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM class_schedules WHERE id = $1`, id)
	return scanScheduleRow(row)
}

// SubjectExists reports whether the subject is known.
func (r *Repository) SubjectExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, `SELECT 1 FROM subjects WHERE id = $1`, id)
}

// InstructorExists reports whether the assigned teacher or guest teacher is known.
func (r *Repository) InstructorExists(ctx context.Context, i Instructor) (bool, error) {
	if i.Kind == KindTeacher {
		return r.exists(ctx, `SELECT 1 FROM teachers WHERE id = $1`, i.ID)
	}
	return r.exists(ctx, `SELECT 1 FROM guest_teachers WHERE id = $1`, i.ID)
}

func (r *Repository) exists(ctx context.Context, query string, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListFilter narrows List results; zero values mean "any".
type ListFilter struct {
	ScheduleDay  string
	AcademicYear string
	Semester     int
	ActiveOnly   bool
	Limit        int
	Offset       int
}

// List returns schedules ordered the way the timetable screens expect.
func (r *Repository) List(ctx context.Context, f ListFilter) ([]ClassSchedule, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT ` + scheduleColumns + ` FROM class_schedules`
	args := []any{}
	clauses := []string{}
	if f.ScheduleDay != "" {
		args = append(args, f.ScheduleDay)
		clauses = append(clauses, "schedule_day = $"+itoa(len(args)))
	}
	if f.AcademicYear != "" {
		args = append(args, f.AcademicYear)
		clauses = append(clauses, "academic_year = $"+itoa(len(args)))
	}
	if f.Semester != 0 {
		args = append(args, f.Semester)
		clauses = append(clauses, "semester = $"+itoa(len(args)))
	}
	if f.ActiveOnly {
		clauses = append(clauses, "is_active = TRUE")
	}
	if len(clauses) > 0 {
		query += " WHERE " + joinClauses(clauses, " AND ")
	}
	query += " ORDER BY academic_year DESC, semester ASC, schedule_day ASC, start_time ASC"
	query += " LIMIT $" + itoa(len(args)+1) + " OFFSET $" + itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ClassSchedule
	for rows.Next() {
		cs, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *cs)
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
