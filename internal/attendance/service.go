package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"polytechnic/internal/observability"
)

// Status of one student's attendance for one class on one date.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) valid() bool {
	return s == StatusPresent || s == StatusAbsent || s == StatusLate
}

// Record is one attendance row; at most one exists per (class, student, date).
type Record struct {
	ID              int64
	ClassScheduleID int64
	StudentID       int64
	Date            time.Time
	Status          Status
	MarkedBy        string
	MarkedAt        time.Time
}

// Mark is one entry of a marking batch.
type Mark struct {
	StudentID int64
	Status    Status
}

// Summary counts a class/date batch by status.
type Summary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
}

// ErrScheduleNotFound is returned when marking targets an unknown class schedule.
var ErrScheduleNotFound = errors.New("class schedule not found")

// Store is the persistence surface the service needs.
type Store interface {
	ScheduleExists(ctx context.Context, id int64) (bool, error)
	Upsert(ctx context.Context, rec Record) error
	ListForClassDate(ctx context.Context, classScheduleID int64, date time.Time) ([]Record, error)
}

// Recomputer reruns the reward/fine ledger for the month containing date.
type Recomputer interface {
	Recompute(ctx context.Context, date time.Time, studentIDs []int64) error
}

// Service marks attendance batches and triggers the ledger recomputation.
type Service struct {
	store  Store
	engine Recomputer
	log    *zap.Logger
}

// NewService creates a service backed by a store and a reward/fine engine.
func NewService(store Store, engine Recomputer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, engine: engine, log: log}
}

// MarkBatch upserts one record per student, then recomputes the reward/fine
// ledger for the affected students. The recompute is best-effort: its failure
// is logged and captured but never surfaced, so committed attendance always
// reports success.
func (s *Service) MarkBatch(ctx context.Context, classScheduleID int64, date time.Time, marks []Mark, markedBy string) error {
	ok, err := s.store.ScheduleExists(ctx, classScheduleID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrScheduleNotFound
	}

	now := time.Now().UTC()
	studentIDs := make([]int64, 0, len(marks))
	for _, m := range marks {
		if !m.Status.valid() {
			return fmt.Errorf("invalid attendance status %q", m.Status)
		}
		if err := s.store.Upsert(ctx, Record{
			ClassScheduleID: classScheduleID,
			StudentID:       m.StudentID,
			Date:            date,
			Status:          m.Status,
			MarkedBy:        markedBy,
			MarkedAt:        now,
		}); err != nil {
			return err
		}
		studentIDs = append(studentIDs, m.StudentID)
	}

	if s.engine != nil {
		if err := s.engine.Recompute(ctx, date, studentIDs); err != nil {
			s.log.Error("reward/fine recompute failed", zap.Error(err),
				zap.Int64("class_schedule_id", classScheduleID),
				zap.Time("date", date))
			observability.CaptureErr(err)
		}
	}
	return nil
}

// ClassAttendance returns the records and status counts for one class/date.
func (s *Service) ClassAttendance(ctx context.Context, classScheduleID int64, date time.Time) ([]Record, Summary, error) {
	records, err := s.store.ListForClassDate(ctx, classScheduleID, date)
	if err != nil {
		return nil, Summary{}, err
	}
	sum := Summary{Total: len(records)}
	for _, rec := range records {
		switch rec.Status {
		case StatusPresent:
			sum.Present++
		case StatusAbsent:
			sum.Absent++
		case StatusLate:
			sum.Late++
		}
	}
	return records, sum, nil
}
