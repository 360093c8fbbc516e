package rewardfine

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"polytechnic/internal/metrics"
)

// EntryType distinguishes ledger entries.
type EntryType string

const (
	TypeReward EntryType = "reward"
	TypeFine   EntryType = "fine"
)

// Attendance statuses as stored; late counts as attended for the percentage.
const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
)

// Entry is one student's reward or fine for one calendar month.
type Entry struct {
	ID                   int64
	StudentID            int64
	Type                 EntryType
	Amount               float64
	Reason               string
	Month                time.Time // first day of the month, UTC
	AttendancePercentage float64
	CreatedAt            time.Time
}

// Store is the persistence surface the engine needs.
type Store interface {
	StudentIDs(ctx context.Context) ([]int64, error)
	AttendanceStatuses(ctx context.Context, studentID int64, from, to time.Time) ([]string, error)
	FindEntry(ctx context.Context, studentID int64, month time.Time, typ EntryType) (*Entry, error)
	CreateEntry(ctx context.Context, e Entry) error
	UpdateEntry(ctx context.Context, id int64, amount float64, reason string, percentage float64) error
}

// Engine derives monthly reward/fine ledger entries from raw attendance.
type Engine struct {
	store Store
	log   *zap.Logger
}

// NewEngine creates an engine backed by a store.
func NewEngine(store Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, log: log}
}

// MonthOf returns the first day of the calendar month containing t, in UTC.
func MonthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Recompute reruns the ledger classification for the month containing date.
// studentIDs limits the sweep; nil means every student. Entries are upserted
// per (student, month, type), so reruns with unchanged attendance are no-ops
// apart from overwriting identical values. A student with no attendance in
// the month is skipped and their existing entries are left untouched. The
// sweep is not transactional: it stops at the first error, leaving earlier
// students' entries committed.
func (e *Engine) Recompute(ctx context.Context, date time.Time, studentIDs []int64) (err error) {
	start := time.Now()
	metrics.SweepRuns.Inc()
	defer func() {
		metrics.SweepDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.SweepFailures.Inc()
		}
	}()

	month := MonthOf(date)
	from := month
	to := month.AddDate(0, 1, -1) // last day of month, inclusive

	if studentIDs == nil {
		studentIDs, err = e.store.StudentIDs(ctx)
		if err != nil {
			return fmt.Errorf("list students: %w", err)
		}
	}

	for _, studentID := range studentIDs {
		statuses, err := e.store.AttendanceStatuses(ctx, studentID, from, to)
		if err != nil {
			return fmt.Errorf("attendance for student %d: %w", studentID, err)
		}
		if len(statuses) == 0 {
			continue
		}

		totalClasses := len(statuses)
		presentClasses := 0
		for _, s := range statuses {
			if s == StatusPresent || s == StatusLate {
				presentClasses++
			}
		}
		percentage := float64(presentClasses) / float64(totalClasses) * 100

		typ, amount, reason, ok := classify(percentage)
		if !ok {
			continue
		}

		existing, err := e.store.FindEntry(ctx, studentID, month, typ)
		if err != nil {
			return fmt.Errorf("find entry for student %d: %w", studentID, err)
		}
		stored := round2(percentage)
		if existing == nil {
			err = e.store.CreateEntry(ctx, Entry{
				StudentID:            studentID,
				Type:                 typ,
				Amount:               amount,
				Reason:               reason,
				Month:                month,
				AttendancePercentage: stored,
			})
		} else {
			err = e.store.UpdateEntry(ctx, existing.ID, amount, reason, stored)
		}
		if err != nil {
			return fmt.Errorf("upsert entry for student %d: %w", studentID, err)
		}
		e.log.Debug("ledger entry upserted",
			zap.Int64("student_id", studentID),
			zap.String("type", string(typ)),
			zap.Float64("percentage", stored))
	}
	return nil
}

// classify maps an attendance percentage onto a ledger tier. First match
// wins; [75,85) is the neutral band with no entry.
func classify(percentage float64) (EntryType, float64, string, bool) {
	switch {
	case percentage >= 95:
		return TypeReward, 500, fmt.Sprintf("Excellent attendance: %.1f%%", percentage), true
	case percentage >= 85:
		return TypeReward, 200, fmt.Sprintf("Good attendance: %.1f%%", percentage), true
	case percentage < 75:
		return TypeFine, 100, fmt.Sprintf("Poor attendance: %.1f%%", percentage), true
	}
	return "", 0, "", false
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
