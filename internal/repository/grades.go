// Package repository provides persistence implementations for the grade
// synchronization services using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graker/scheduler/internal/models"
)

// PostgresGradeRepository implements account selection and grade persistence
// against a PostgreSQL database.
type PostgresGradeRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresGradeRepository creates a new PostgresGradeRepository using the
// provided *sql.DB. db must be a valid connection to a PostgreSQL instance.
func NewPostgresGradeRepository(db *sql.DB) *PostgresGradeRepository {
	return &PostgresGradeRepository{DB: db}
}

// GetDueAccounts retrieves all verified accounts whose schedule slot matches
// the given quarter-hour offset, together with their enrolled students.
// Accounts with no students are still returned so their sync time advances.
//
//	ctx:  context for cancellation and deadlines
//	slot: quarter-hour offset (0, 15, 30, or 45)
//
// Returns a slice of models.Account or an error if the query fails.
func (r *PostgresGradeRepository) GetDueAccounts(ctx context.Context, slot int) ([]models.Account, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT a.id, a.dek_wrapped_scheduler, a.cron_schedule_minutes, a.is_verified, a.last_sync_at,
		       s.id, s.dek_wrapped_scheduler
		FROM user_school_accounts a
		LEFT JOIN students s ON s.account_id = a.id
		WHERE a.is_verified = true AND a.cron_schedule_minutes = $1
		ORDER BY a.id
	`, slot)
	if err != nil {
		return nil, fmt.Errorf("GetDueAccounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	var current *models.Account
	for rows.Next() {
		var acc models.Account
		var studentID, studentSecret sql.NullString
		if err := rows.Scan(&acc.ID, &acc.EncryptedCredentials, &acc.ScheduleSlot, &acc.Verified,
			&acc.LastSyncAt, &studentID, &studentSecret); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if current == nil || current.ID != acc.ID {
			accounts = append(accounts, acc)
			current = &accounts[len(accounts)-1]
		}
		if studentID.Valid {
			current.Students = append(current.Students, models.Student{
				ID:                studentID.String,
				AccountID:         current.ID,
				EncryptedIdentity: studentSecret.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetDueAccounts rows: %w", err)
	}
	return accounts, nil
}

// GetCurrentGrade fetches the current grade row for one (student, course)
// pair. Returns (nil, nil) when no row exists yet.
func (r *PostgresGradeRepository) GetCurrentGrade(ctx context.Context, studentID, courseTitle string) (*models.CurrentGrade, error) {
	var g models.CurrentGrade
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, student_id, course_title, teacher_name, room, period, calculated_score, last_updated
		FROM current_grades WHERE student_id = $1 AND course_title = $2
	`, studentID, courseTitle).Scan(&g.ID, &g.StudentID, &g.CourseTitle, &g.Teacher, &g.Room,
		&g.Period, &g.CalculatedScore, &g.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetCurrentGrade: %w", err)
	}
	return &g, nil
}

// InsertCurrentGrade inserts a new current grade row for a course seen for
// the first time. A generated row ID is written back into g.
func (r *PostgresGradeRepository) InsertCurrentGrade(ctx context.Context, g *models.CurrentGrade) error {
	g.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO current_grades (id, student_id, course_title, teacher_name, room, period, calculated_score, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.StudentID, g.CourseTitle, g.Teacher, g.Room, g.Period, g.CalculatedScore, g.LastUpdated)
	if err != nil {
		return fmt.Errorf("InsertCurrentGrade: %w", err)
	}
	return nil
}

// UpdateCurrentGrade overwrites the mutable fields of an existing current
// grade row, guarded on the score the caller previously read. It reports
// whether the row was updated; false means a concurrent writer changed the
// score since the read, in which case the caller must not append history for
// the transition it observed.
func (r *PostgresGradeRepository) UpdateCurrentGrade(ctx context.Context, id, priorScore string, g *models.CurrentGrade) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE current_grades
		SET teacher_name = $1, room = $2, period = $3, calculated_score = $4, last_updated = $5
		WHERE id = $6 AND calculated_score = $7
	`, g.Teacher, g.Room, g.Period, g.CalculatedScore, g.LastUpdated, id, priorScore)
	if err != nil {
		return false, fmt.Errorf("UpdateCurrentGrade: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("UpdateCurrentGrade rows affected: %w", err)
	}
	return n == 1, nil
}

// InsertHistory appends one immutable grade history entry. A generated entry
// ID is written back into e.
func (r *PostgresGradeRepository) InsertHistory(ctx context.Context, e *models.GradeHistoryEntry) error {
	e.ID = uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO grade_history (id, student_id, course_title, teacher_name, room, period, calculated_score, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.StudentID, e.CourseTitle, e.Teacher, e.Room, e.Period, e.CalculatedScore, e.RecordedAt)
	if err != nil {
		return fmt.Errorf("InsertHistory: %w", err)
	}
	return nil
}

// UpdateLastSync records the completion time of an account's sync pass.
func (r *PostgresGradeRepository) UpdateLastSync(ctx context.Context, accountID string, t time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE user_school_accounts SET last_sync_at = $1 WHERE id = $2
	`, t, accountID)
	if err != nil {
		return fmt.Errorf("UpdateLastSync: %w", err)
	}
	return nil
}
