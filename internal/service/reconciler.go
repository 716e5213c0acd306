// Package service provides the business logic of a synchronization run:
// reconciling fetched course records against persisted grade state and
// orchestrating the per-account, per-student sync loop.
package service

import (
	"context"
	"time"

	"github.com/graker/scheduler/internal/models"
	"github.com/graker/scheduler/internal/portal"
)

// GradeStore defines the persistence operations needed by the Reconciler.
type GradeStore interface {
	// GetCurrentGrade fetches the current grade row for one (student, course)
	// pair, or (nil, nil) if none exists yet.
	GetCurrentGrade(ctx context.Context, studentID, courseTitle string) (*models.CurrentGrade, error)
	// InsertCurrentGrade inserts a new current grade row.
	InsertCurrentGrade(ctx context.Context, g *models.CurrentGrade) error
	// UpdateCurrentGrade overwrites an existing row's mutable fields, guarded
	// on the score the caller previously read, and reports whether the row
	// was updated.
	UpdateCurrentGrade(ctx context.Context, id, priorScore string, g *models.CurrentGrade) (bool, error)
	// InsertHistory appends one immutable grade history entry.
	InsertHistory(ctx context.Context, e *models.GradeHistoryEntry) error
}

// Reconciler applies fetched course records to the store, keeping the current
// snapshot always fresh while gating history entries on genuine score
// transitions. The snapshot row is overwritten on every pass so fields that
// move on every poll (teacher, room, timestamp) never inflate the history.
type Reconciler struct {
	store GradeStore
	now   func() time.Time
}

// NewReconciler constructs a Reconciler with the provided GradeStore.
func NewReconciler(store GradeStore) *Reconciler {
	return &Reconciler{store: store, now: time.Now}
}

// Reconcile persists one fetched course record for a student.
//
// A course never seen before inserts a current grade row and one history
// entry (the first sighting is always history-worthy). An existing course has
// its teacher, room, period, score, and timestamp overwritten; a history
// entry is appended only when the stored score actually changed. The update
// is guarded on the score read beforehand, so two overlapping runs cannot
// both append history for the same transition.
func (r *Reconciler) Reconcile(ctx context.Context, studentID string, course portal.CourseRecord) error {
	existing, err := r.store.GetCurrentGrade(ctx, studentID, course.Title)
	if err != nil {
		return err
	}

	now := r.now()
	if existing == nil {
		grade := &models.CurrentGrade{
			StudentID:       studentID,
			CourseTitle:     course.Title,
			Teacher:         course.Teacher,
			Room:            course.Room,
			Period:          course.Period,
			CalculatedScore: course.CalculatedScore,
			LastUpdated:     now,
		}
		if err := r.store.InsertCurrentGrade(ctx, grade); err != nil {
			return err
		}
		return r.appendHistory(ctx, studentID, course, now)
	}

	grade := &models.CurrentGrade{
		Teacher:         course.Teacher,
		Room:            course.Room,
		Period:          course.Period,
		CalculatedScore: course.CalculatedScore,
		LastUpdated:     now,
	}
	updated, err := r.store.UpdateCurrentGrade(ctx, existing.ID, existing.CalculatedScore, grade)
	if err != nil {
		return err
	}
	if !updated {
		// A concurrent run changed the score after our read; it owns the
		// history entry for that transition.
		return nil
	}
	if existing.CalculatedScore == course.CalculatedScore {
		return nil
	}
	return r.appendHistory(ctx, studentID, course, now)
}

func (r *Reconciler) appendHistory(ctx context.Context, studentID string, course portal.CourseRecord, at time.Time) error {
	return r.store.InsertHistory(ctx, &models.GradeHistoryEntry{
		StudentID:       studentID,
		CourseTitle:     course.Title,
		Teacher:         course.Teacher,
		Room:            course.Room,
		Period:          course.Period,
		CalculatedScore: course.CalculatedScore,
		RecordedAt:      at,
	})
}
