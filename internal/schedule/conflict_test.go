package schedule_test

import (
	"context"
	"strings"
	"testing"

	"polytechnic/internal/schedule"
)

// fakeStore keeps schedules in memory and mirrors the overlap query the SQL
// repository runs.
type fakeStore struct {
	schedules []schedule.ClassSchedule
	subjects  map[int64]bool
	teachers  map[int64]bool
	guests    map[int64]bool
	nextID    int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		subjects: map[int64]bool{},
		teachers: map[int64]bool{},
		guests:   map[int64]bool{},
	}
}

func (f *fakeStore) add(cs schedule.ClassSchedule) schedule.ClassSchedule {
	f.nextID++
	cs.ID = f.nextID
	f.schedules = append(f.schedules, cs)
	return cs
}

func (f *fakeStore) FindOverlapping(ctx context.Context, filter schedule.OverlapFilter) (*schedule.ClassSchedule, error) {
	for _, cs := range f.schedules {
		if !cs.IsActive || cs.ScheduleDay != filter.ScheduleDay {
			continue
		}
		if filter.AcademicYear != "" && cs.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.Semester != 0 && cs.Semester != filter.Semester {
			continue
		}
		switch {
		case filter.TeacherID != 0:
			if cs.Instructor.Kind != schedule.KindTeacher || cs.Instructor.ID != filter.TeacherID {
				continue
			}
		case filter.GuestTeacherID != 0:
			if cs.Instructor.Kind != schedule.KindGuest || cs.Instructor.ID != filter.GuestTeacherID {
				continue
			}
		case filter.RoomNumber != "":
			if cs.RoomNumber != filter.RoomNumber {
				continue
			}
		}
		if schedule.Overlaps(filter.StartTime, filter.EndTime, cs.StartTime, cs.EndTime) {
			hit := cs
			return &hit, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Insert(ctx context.Context, cs schedule.ClassSchedule) (schedule.ClassSchedule, error) {
	return f.add(cs), nil
}

func (f *fakeStore) Update(ctx context.Context, cs schedule.ClassSchedule) error {
	for i := range f.schedules {
		if f.schedules[i].ID == cs.ID {
			f.schedules[i] = cs
			return nil
		}
	}
	return schedule.ErrNotFound
}

func (f *fakeStore) GetByID(ctx context.Context, id int64) (*schedule.ClassSchedule, error) {
	for _, cs := range f.schedules {
		if cs.ID == id {
			hit := cs
			return &hit, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) SubjectExists(ctx context.Context, id int64) (bool, error) {
	return f.subjects[id], nil
}

func (f *fakeStore) InstructorExists(ctx context.Context, i schedule.Instructor) (bool, error) {
	if i.Kind == schedule.KindGuest {
		return f.guests[i.ID], nil
	}
	return f.teachers[i.ID], nil
}

func (f *fakeStore) List(ctx context.Context, _ schedule.ListFilter) ([]schedule.ClassSchedule, error) {
	return f.schedules, nil
}

func teacherSlot(teacherID int64, room, day, start, end string) schedule.ClassSchedule {
	return schedule.ClassSchedule{
		SubjectID:    1,
		Instructor:   schedule.Instructor{Kind: schedule.KindTeacher, ID: teacherID},
		RoomNumber:   room,
		ScheduleDay:  day,
		StartTime:    start,
		EndTime:      end,
		ClassType:    "lecture",
		Semester:     1,
		AcademicYear: "2024-25",
		IsActive:     true,
	}
}

func TestCheck_TouchingSlotsDoNotConflict(t *testing.T) {
	f := newFakeStore()
	f.add(teacherSlot(5, "R1", "monday", "09:00", "10:00"))

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), teacherSlot(5, "R1", "monday", "10:00", "11:00"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "" {
		t.Fatalf("back-to-back slots must not conflict, got %q", msg)
	}
}

func TestCheck_TeacherOverlapNamesTheBusySlot(t *testing.T) {
	f := newFakeStore()
	f.add(teacherSlot(5, "R1", "monday", "09:30", "10:30"))

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), teacherSlot(5, "R2", "monday", "09:00", "10:00"), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := "Teacher has a conflicting class schedule at 09:30 - 10:30"
	if msg != want {
		t.Fatalf("got %q, want %q", msg, want)
	}
}

func TestCheck_SelfIsExcludedOnUpdate(t *testing.T) {
	f := newFakeStore()
	existing := f.add(teacherSlot(5, "R1", "monday", "09:00", "10:00"))

	checker := schedule.NewConflictChecker(f)
	cand := existing
	cand.EndTime = "10:30"
	msg, err := checker.Check(context.Background(), cand, existing.ID)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "" {
		t.Fatalf("a slot must not conflict with itself, got %q", msg)
	}
}

func TestCheck_TeacherCheckedBeforeRoom(t *testing.T) {
	f := newFakeStore()
	// Both the teacher and the room are busy; the teacher message wins.
	f.add(teacherSlot(5, "R9", "monday", "09:00", "10:00"))
	f.add(teacherSlot(7, "R1", "monday", "09:00", "10:00"))

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), teacherSlot(5, "R1", "monday", "09:30", "10:30"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(msg, "Teacher has a conflicting") {
		t.Fatalf("teacher conflict should be reported first, got %q", msg)
	}
}

func TestCheck_RoomConflictWithFreeTeacher(t *testing.T) {
	f := newFakeStore()
	f.add(teacherSlot(7, "R1", "monday", "09:00", "10:00"))

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), teacherSlot(5, "R1", "monday", "09:30", "10:30"), 0)
	if err != nil {
		t.Fatal(err)
	}
	want := "Room R1 is already booked at 09:00 - 10:00"
	if msg != want {
		t.Fatalf("got %q, want %q", msg, want)
	}
}

func TestCheck_GuestTeacherConflict(t *testing.T) {
	f := newFakeStore()
	busy := teacherSlot(0, "R1", "tuesday", "14:00", "15:00")
	busy.Instructor = schedule.Instructor{Kind: schedule.KindGuest, ID: 3}
	f.add(busy)

	cand := teacherSlot(0, "R2", "tuesday", "14:30", "15:30")
	cand.Instructor = schedule.Instructor{Kind: schedule.KindGuest, ID: 3}

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), cand, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := "Guest teacher has a conflicting class schedule at 14:00 - 15:00"
	if msg != want {
		t.Fatalf("got %q, want %q", msg, want)
	}
}

func TestCheck_ScopedByYearAndSemester(t *testing.T) {
	f := newFakeStore()
	f.add(teacherSlot(5, "R1", "monday", "09:00", "10:00"))

	cand := teacherSlot(5, "R1", "monday", "09:00", "10:00")
	cand.AcademicYear = "2025-26"

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), cand, 0)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "" {
		t.Fatalf("different academic year must not conflict, got %q", msg)
	}

	cand = teacherSlot(5, "R1", "monday", "09:00", "10:00")
	cand.Semester = 2
	msg, err = checker.Check(context.Background(), cand, 0)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "" {
		t.Fatalf("different semester must not conflict, got %q", msg)
	}
}

func TestCheck_InactiveSlotsAreIgnored(t *testing.T) {
	f := newFakeStore()
	old := teacherSlot(5, "R1", "monday", "09:00", "10:00")
	old.IsActive = false
	f.add(old)

	checker := schedule.NewConflictChecker(f)
	msg, err := checker.Check(context.Background(), teacherSlot(5, "R1", "monday", "09:30", "10:30"), 0)
	if err != nil {
		t.Fatal(err)
	}
	if msg != "" {
		t.Fatalf("inactive schedules must not conflict, got %q", msg)
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"identical", "09:00", "10:00", "09:00", "10:00", true},
		{"existing starts earlier and runs into candidate", "09:30", "10:30", "09:00", "10:00", true},
		{"existing starts inside and runs past", "09:00", "10:00", "09:30", "10:30", true},
		{"existing contained in candidate", "09:00", "11:00", "09:30", "10:30", true},
		{"candidate contained in existing", "09:30", "10:00", "09:00", "11:00", true},
		{"touching before", "10:00", "11:00", "09:00", "10:00", false},
		{"touching after", "09:00", "10:00", "10:00", "11:00", false},
		{"disjoint", "09:00", "10:00", "13:00", "14:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := schedule.Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Fatalf("Overlaps(%s-%s vs %s-%s) = %v, want %v", tc.s1, tc.e1, tc.s2, tc.e2, got, tc.want)
			}
		})
	}
}
