package schedule

import (
	"context"
	"fmt"

	"polytechnic/internal/metrics"
)

// InstructorKind tags who teaches a schedule slot.
type InstructorKind string

const (
	KindTeacher InstructorKind = "teacher"
	KindGuest   InstructorKind = "guest"
)

// Instructor is the teacher-XOR-guest-teacher assignment. Modeling it as a
// tagged value makes the both-set and neither-set states unrepresentable.
type Instructor struct {
	Kind InstructorKind
	ID   int64
}

// Valid reports whether the assignment is usable.
func (i Instructor) Valid() bool {
	return (i.Kind == KindTeacher || i.Kind == KindGuest) && i.ID > 0
}

// ClassSchedule is one recurring weekly slot. StartTime/EndTime are "HH:MM";
// the slot occupies the half-open window [StartTime, EndTime).
type ClassSchedule struct {
	ID           int64
	SubjectID    int64
	Instructor   Instructor
	RoomNumber   string // empty = no room assigned
	ScheduleDay  string
	StartTime    string
	EndTime      string
	ClassType    string
	Semester     int
	AcademicYear string
	IsActive     bool
}

// OverlapFilter describes one existence query of the conflict check: active
// schedules on the same day whose window overlaps [StartTime, EndTime),
// optionally scoped by year/semester, narrowed by exactly one of the
// teacher/guest/room equality conditions.
type OverlapFilter struct {
	ScheduleDay    string
	StartTime      string
	EndTime        string
	AcademicYear   string // empty = unscoped
	Semester       int    // 0 = unscoped
	TeacherID      int64  // 0 = not this check
	GuestTeacherID int64
	RoomNumber     string
}

// Finder runs a single overlap existence query.
type Finder interface {
	FindOverlapping(ctx context.Context, f OverlapFilter) (*ClassSchedule, error)
}

// ConflictChecker rejects schedule writes that would double-book a teacher,
// a guest teacher, or a room.
type ConflictChecker struct {
	store Finder
}

// NewConflictChecker creates a checker backed by a finder.
func NewConflictChecker(store Finder) *ConflictChecker {
	return &ConflictChecker{store: store}
}

// Check returns a human-readable conflict message, or "" when the candidate
// may proceed. The instructor check runs first, then the room check; the
// first hit short-circuits. excludeID names the record being updated so it
// never conflicts with itself: the id is compared against the fetched row,
// exactly as the source system did, rather than filtered out in the query.
// A returned error is an infrastructure failure, never a conflict.
func (c *ConflictChecker) Check(ctx context.Context, cand ClassSchedule, excludeID int64) (string, error) {
	metrics.ConflictChecks.Inc()

	base := OverlapFilter{
		ScheduleDay:  cand.ScheduleDay,
		StartTime:    cand.StartTime,
		EndTime:      cand.EndTime,
		AcademicYear: cand.AcademicYear,
		Semester:     cand.Semester,
	}

	if cand.Instructor.Kind == KindTeacher && cand.Instructor.ID > 0 {
		f := base
		f.TeacherID = cand.Instructor.ID
		hit, err := c.store.FindOverlapping(ctx, f)
		if err != nil {
			return "", err
		}
		if hit != nil && hit.ID != excludeID {
			metrics.ConflictsFound.Inc()
			return fmt.Sprintf("Teacher has a conflicting class schedule at %s - %s", hit.StartTime, hit.EndTime), nil
		}
	}

	if cand.Instructor.Kind == KindGuest && cand.Instructor.ID > 0 {
		f := base
		f.GuestTeacherID = cand.Instructor.ID
		hit, err := c.store.FindOverlapping(ctx, f)
		if err != nil {
			return "", err
		}
		if hit != nil && hit.ID != excludeID {
			metrics.ConflictsFound.Inc()
			return fmt.Sprintf("Guest teacher has a conflicting class schedule at %s - %s", hit.StartTime, hit.EndTime), nil
		}
	}

	if cand.RoomNumber != "" {
		f := base
		f.RoomNumber = cand.RoomNumber
		hit, err := c.store.FindOverlapping(ctx, f)
		if err != nil {
			return "", err
		}
		if hit != nil && hit.ID != excludeID {
			metrics.ConflictsFound.Inc()
			return fmt.Sprintf("Room %s is already booked at %s - %s", cand.RoomNumber, hit.StartTime, hit.EndTime), nil
		}
	}

	return "", nil
}

// Overlaps is the three-clause interval test over "HH:MM" strings. It is the
// in-memory twin of the SQL filter and is deliberately kept as the three
// disjoined comparisons: touching windows (e1 == s2) do not overlap.
func Overlaps(s1, e1, s2, e2 string) bool {
	if s2 <= s1 && e2 > s1 {
		return true
	}
	if s2 < e1 && e2 >= e1 {
		return true
	}
	if s2 >= s1 && e2 <= e1 {
		return true
	}
	return false
}
