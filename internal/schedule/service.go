package schedule

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an update targets a missing schedule.
var ErrNotFound = errors.New("class schedule not found")

// Store is the persistence surface the service needs.
type Store interface {
	Finder
	Insert(ctx context.Context, cs ClassSchedule) (ClassSchedule, error)
	Update(ctx context.Context, cs ClassSchedule) error
	GetByID(ctx context.Context, id int64) (*ClassSchedule, error)
	SubjectExists(ctx context.Context, id int64) (bool, error)
	InstructorExists(ctx context.Context, i Instructor) (bool, error)
	List(ctx context.Context, f ListFilter) ([]ClassSchedule, error)
}

// Service validates and persists class schedules. A non-empty rejection
// string is a business-rule refusal the caller maps to a 400; errors are
// infrastructure failures.
type Service struct {
	store   Store
	checker *ConflictChecker
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store, checker: NewConflictChecker(store)}
}

// Create validates the candidate, runs the conflict check and persists.
func (s *Service) Create(ctx context.Context, cs ClassSchedule) (*ClassSchedule, string, error) {
	if msg, err := s.validate(ctx, cs); msg != "" || err != nil {
		return nil, msg, err
	}
	msg, err := s.checker.Check(ctx, cs, 0)
	if msg != "" || err != nil {
		return nil, msg, err
	}
	created, err := s.store.Insert(ctx, cs)
	if err != nil {
		return nil, "", err
	}
	return &created, "", nil
}

// Update replaces the schedule with the given id, excluding it from the
// conflict comparison so a slot never conflicts with itself.
func (s *Service) Update(ctx context.Context, id int64, cs ClassSchedule) (*ClassSchedule, string, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if existing == nil {
		return nil, "", ErrNotFound
	}
	cs.ID = id
	if msg, err := s.validate(ctx, cs); msg != "" || err != nil {
		return nil, msg, err
	}
	msg, err := s.checker.Check(ctx, cs, id)
	if msg != "" || err != nil {
		return nil, msg, err
	}
	if err := s.store.Update(ctx, cs); err != nil {
		return nil, "", err
	}
	return &cs, "", nil
}

// List returns schedules matching the filter.
func (s *Service) List(ctx context.Context, f ListFilter) ([]ClassSchedule, error) {
	return s.store.List(ctx, f)
}

func (s *Service) validate(ctx context.Context, cs ClassSchedule) (string, error) {
	if !cs.Instructor.Valid() {
		return "Either a teacher or guest teacher must be assigned to the class schedule", nil
	}
	if cs.EndTime <= cs.StartTime {
		return "End time must be after start time", nil
	}
	ok, err := s.store.SubjectExists(ctx, cs.SubjectID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "Subject not found", nil
	}
	ok, err = s.store.InstructorExists(ctx, cs.Instructor)
	if err != nil {
		return "", err
	}
	if !ok {
		if cs.Instructor.Kind == KindGuest {
			return "Guest teacher not found", nil
		}
		return "Teacher not found", nil
	}
	return "", nil
}
