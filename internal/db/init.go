package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_school_accounts (
    id TEXT PRIMARY KEY,
    dek_wrapped_scheduler TEXT NOT NULL,
    cron_schedule_minutes INTEGER NOT NULL DEFAULT 0,
    is_verified BOOLEAN NOT NULL DEFAULT FALSE,
    last_sync_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    account_id TEXT REFERENCES user_school_accounts(id) ON DELETE CASCADE,
    dek_wrapped_scheduler TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS current_grades (
    id TEXT PRIMARY KEY,
    student_id TEXT REFERENCES students(id) ON DELETE CASCADE,
    course_title TEXT NOT NULL,
    teacher_name TEXT NOT NULL DEFAULT '',
    room TEXT NOT NULL DEFAULT '',
    period TEXT NOT NULL DEFAULT '',
    calculated_score TEXT NOT NULL DEFAULT '',
    last_updated TIMESTAMPTZ NOT NULL,
    UNIQUE (student_id, course_title)
);

CREATE TABLE IF NOT EXISTS grade_history (
    id TEXT PRIMARY KEY,
    student_id TEXT REFERENCES students(id) ON DELETE CASCADE,
    course_title TEXT NOT NULL,
    teacher_name TEXT NOT NULL DEFAULT '',
    room TEXT NOT NULL DEFAULT '',
    period TEXT NOT NULL DEFAULT '',
    calculated_score TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL
);
`

func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return db, nil
}
